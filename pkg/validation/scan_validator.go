// Package validation holds pre-flight checks on incoming scans: image
// quality heuristics that feed result warnings, and source URL vetting
// for remote sheets.
package validation

import (
	"fmt"
	"image"
	"math"

	"go-omr-engine/pkg/models"
)

// ScanThresholds defines configurable thresholds for scan validation.
type ScanThresholds struct {
	// Resolution floor. Sheets below it usually classify poorly.
	MinWidth       int
	MinHeight      int
	MinTotalPixels int

	// Mean brightness range for a readable scan.
	MinBrightness float64
	MaxBrightness float64

	// MinLaplacianVariance is the sharpness floor; lower means blur.
	MinLaplacianVariance float64

	// MaxSkewAngle in degrees. Larger residual skew after deskewing
	// means the correction probably failed.
	MaxSkewAngle float64
}

// DefaultScanThresholds returns the default scan thresholds.
func DefaultScanThresholds() ScanThresholds {
	return ScanThresholds{
		MinWidth:             500,
		MinHeight:            500,
		MinTotalPixels:       250000,
		MinBrightness:        60,
		MaxBrightness:        254,
		MinLaplacianVariance: 50,
		MaxSkewAngle:         5,
	}
}

// Issue is one scan quality finding. Findings are advisory: the pipeline
// surfaces them as warnings and keeps going.
type Issue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	ActualValue float64 `json:"actual_value"`
	Threshold   float64 `json:"threshold"`
}

// ScanValidator checks normalized scans against quality thresholds.
type ScanValidator struct {
	thresholds ScanThresholds
}

// NewScanValidator creates a validator with default thresholds.
func NewScanValidator() *ScanValidator {
	return &ScanValidator{thresholds: DefaultScanThresholds()}
}

// NewScanValidatorWithThresholds creates a validator with custom thresholds.
func NewScanValidatorWithThresholds(thresholds ScanThresholds) *ScanValidator {
	return &ScanValidator{thresholds: thresholds}
}

// Validate inspects the normalized grayscale plane. Every returned issue
// is a warning; validation never rejects a scan outright.
func (v *ScanValidator) Validate(gray *image.Gray, info models.ProcessingInfo) []Issue {
	var issues []Issue

	width, height := info.Width, info.Height
	if width == 0 || height == 0 {
		bounds := gray.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	if width < v.thresholds.MinWidth || height < v.thresholds.MinHeight {
		issues = append(issues, Issue{
			Type: "low_resolution",
			Message: fmt.Sprintf("scan resolution %dx%d below recommended %dx%d",
				width, height, v.thresholds.MinWidth, v.thresholds.MinHeight),
			ActualValue: float64(width * height),
			Threshold:   float64(v.thresholds.MinWidth * v.thresholds.MinHeight),
		})
	} else if width*height < v.thresholds.MinTotalPixels {
		issues = append(issues, Issue{
			Type:        "low_resolution",
			Message:     fmt.Sprintf("scan has %d pixels, below recommended %d", width*height, v.thresholds.MinTotalPixels),
			ActualValue: float64(width * height),
			Threshold:   float64(v.thresholds.MinTotalPixels),
		})
	}

	brightness := meanBrightness(gray)
	if brightness < v.thresholds.MinBrightness {
		issues = append(issues, Issue{
			Type:        "too_dark",
			Message:     fmt.Sprintf("scan mean brightness %.1f below %.1f", brightness, v.thresholds.MinBrightness),
			ActualValue: brightness,
			Threshold:   v.thresholds.MinBrightness,
		})
	} else if brightness > v.thresholds.MaxBrightness {
		issues = append(issues, Issue{
			Type:        "too_bright",
			Message:     fmt.Sprintf("scan mean brightness %.1f above %.1f, bubbles may have washed out", brightness, v.thresholds.MaxBrightness),
			ActualValue: brightness,
			Threshold:   v.thresholds.MaxBrightness,
		})
	}

	sharpness := laplacianVariance(gray)
	if sharpness < v.thresholds.MinLaplacianVariance {
		issues = append(issues, Issue{
			Type:        "blurry",
			Message:     fmt.Sprintf("scan sharpness %.1f below %.1f, marks may blur together", sharpness, v.thresholds.MinLaplacianVariance),
			ActualValue: sharpness,
			Threshold:   v.thresholds.MinLaplacianVariance,
		})
	}

	if math.Abs(info.SkewAngle) > v.thresholds.MaxSkewAngle && !info.Deskewed {
		issues = append(issues, Issue{
			Type:        "skewed",
			Message:     fmt.Sprintf("estimated skew %.1f degrees exceeds %.1f and was not corrected", info.SkewAngle, v.thresholds.MaxSkewAngle),
			ActualValue: math.Abs(info.SkewAngle),
			Threshold:   v.thresholds.MaxSkewAngle,
		})
	}

	return issues
}

func meanBrightness(gray *image.Gray) float64 {
	if len(gray.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range gray.Pix {
		sum += float64(v)
	}
	return sum / float64(len(gray.Pix))
}

// laplacianVariance measures sharpness as the variance of the 4-neighbor
// Laplacian response. Sampling every other pixel keeps the cost flat on
// large scans without changing the verdict.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	var sum, sumSq float64
	count := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y += 2 {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x += 2 {
			center := float64(gray.GrayAt(x, y).Y)
			lap := float64(gray.GrayAt(x-1, y).Y) +
				float64(gray.GrayAt(x+1, y).Y) +
				float64(gray.GrayAt(x, y-1).Y) +
				float64(gray.GrayAt(x, y+1).Y) - 4*center
			sum += lap
			sumSq += lap * lap
			count++
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return sumSq/float64(count) - mean*mean
}
