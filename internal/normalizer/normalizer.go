package normalizer

import (
	"bytes"
	"image"
	"image/draw"
	"io"
	"math"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-omr-engine/internal/errors"
	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/models"
)

// supportedFormats are the raster encodings the pipeline accepts.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"tiff": true,
	"webp": true,
}

// NormalizedImage is the pipeline's working representation of a sheet:
// a deskewed grayscale plane plus its binarized counterpart. It is
// immutable once produced.
type NormalizedImage struct {
	Gray   *image.Gray
	Binary *image.Gray
	Info   models.ProcessingInfo
}

// Bounds returns the normalized pixel bounds.
func (n *NormalizedImage) Bounds() image.Rectangle {
	return n.Gray.Bounds()
}

// Config tunes the normalizer.
type Config struct {
	// MinSkewDegrees is the smallest estimated skew worth correcting.
	MinSkewDegrees float64
	// MaxSkewDegrees caps the correction; wilder estimates are treated as
	// regression noise and ignored.
	MaxSkewDegrees float64
	// ThresholdWindow is the local window size for adaptive binarization.
	ThresholdWindow int
	// ThresholdBias is subtracted from the local mean before comparing,
	// so faint paper texture stays white.
	ThresholdBias float64
	// Denoise enables the 3x3 median filter pass.
	Denoise bool
}

// DefaultConfig returns the normalizer defaults.
func DefaultConfig() Config {
	return Config{
		MinSkewDegrees:  0.5,
		MaxSkewDegrees:  30,
		ThresholdWindow: 25,
		ThresholdBias:   10,
		Denoise:         true,
	}
}

// Normalizer converts raw sheet images into the pipeline representation.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer with default configuration.
func New() *Normalizer {
	return &Normalizer{cfg: DefaultConfig()}
}

// NewWithConfig creates a Normalizer with custom configuration.
func NewWithConfig(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Decode reads one raster image, enforcing the supported format set.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.NewUnreadableImageError("failed to decode image", err)
	}
	if !supportedFormats[format] {
		return nil, "", errors.NewUnsupportedFormatError("unsupported image format: "+format, nil)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory raster image.
func DecodeBytes(data []byte) (image.Image, string, error) {
	return Decode(bytes.NewReader(data))
}

// Normalize converts the source to grayscale, corrects skew, optionally
// denoises, and binarizes. Pure in-memory transformation; artifact
// persistence is the caller's concern.
func (n *Normalizer) Normalize(src image.Image) (*NormalizedImage, error) {
	if src == nil {
		return nil, errors.NewUnreadableImageError("nil source image", nil)
	}
	start := time.Now()
	srcBounds := src.Bounds()
	if srcBounds.Dx() == 0 || srcBounds.Dy() == 0 {
		return nil, errors.NewUnreadableImageError("empty source image", nil)
	}

	info := models.ProcessingInfo{
		SourceWidth:  srcBounds.Dx(),
		SourceHeight: srcBounds.Dy(),
	}

	gray := toGray(src)

	// Estimate skew on the raw grayscale, then rotate the whole plane so
	// bubble rows come out horizontal.
	angle := n.estimateSkew(gray)
	if math.Abs(angle) >= n.cfg.MinSkewDegrees && math.Abs(angle) <= n.cfg.MaxSkewDegrees {
		rotated := imaging.Rotate(gray, angle, image.White)
		gray = toGray(rotated)
		info.SkewAngle = angle
		info.Deskewed = true
		logger.ForStage("normalize").WithField("skew_angle", angle).Debug("corrected sheet skew")
	} else {
		info.SkewAngle = angle
	}

	if n.cfg.Denoise {
		gray = medianFilter(gray)
	}

	binary := adaptiveThreshold(gray, n.cfg.ThresholdWindow, n.cfg.ThresholdBias)

	bounds := gray.Bounds()
	info.Width = bounds.Dx()
	info.Height = bounds.Dy()
	info.DurationSec = time.Since(start).Seconds()

	return &NormalizedImage{Gray: gray, Binary: binary, Info: info}, nil
}

// toGray converts any image to an 8-bit grayscale plane anchored at (0,0).
func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray
}
