package validation

import (
	"image"
	"image/color"
	"testing"

	"go-omr-engine/pkg/models"
)

func uniformGray(width, height int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

// texturedGray is bright paper ruled with dark vertical lines, sharp
// enough to pass the blur check.
func texturedGray(width, height int) *image.Gray {
	img := uniformGray(width, height, 230)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 10 {
			img.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	return img
}

func hasIssueType(issues []Issue, issueType string) bool {
	for _, issue := range issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

func TestValidateCleanScan(t *testing.T) {
	v := NewScanValidator()
	img := texturedGray(600, 600)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600})

	if len(issues) != 0 {
		t.Errorf("Expected no issues for a clean scan, got %v", issues)
	}
}

func TestValidateLowResolution(t *testing.T) {
	v := NewScanValidator()
	img := texturedGray(200, 200)

	issues := v.Validate(img, models.ProcessingInfo{Width: 200, Height: 200})

	if !hasIssueType(issues, "low_resolution") {
		t.Errorf("Expected low_resolution issue, got %v", issues)
	}
}

func TestValidateDarkScan(t *testing.T) {
	v := NewScanValidator()
	img := uniformGray(600, 600, 30)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600})

	if !hasIssueType(issues, "too_dark") {
		t.Errorf("Expected too_dark issue, got %v", issues)
	}
}

func TestValidateBlurryScan(t *testing.T) {
	v := NewScanValidator()
	// Uniform content has zero Laplacian response.
	img := uniformGray(600, 600, 200)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600})

	if !hasIssueType(issues, "blurry") {
		t.Errorf("Expected blurry issue, got %v", issues)
	}
}

func TestValidateUncorrectedSkew(t *testing.T) {
	v := NewScanValidator()
	img := texturedGray(600, 600)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600, SkewAngle: 12, Deskewed: false})

	if !hasIssueType(issues, "skewed") {
		t.Errorf("Expected skewed issue, got %v", issues)
	}
}

func TestValidateCorrectedSkewAccepted(t *testing.T) {
	v := NewScanValidator()
	img := texturedGray(600, 600)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600, SkewAngle: 12, Deskewed: true})

	if hasIssueType(issues, "skewed") {
		t.Errorf("Expected corrected skew to pass, got %v", issues)
	}
}

func TestValidateCustomThresholds(t *testing.T) {
	thresholds := DefaultScanThresholds()
	thresholds.MinWidth = 1000
	v := NewScanValidatorWithThresholds(thresholds)
	img := texturedGray(600, 600)

	issues := v.Validate(img, models.ProcessingInfo{Width: 600, Height: 600})

	if !hasIssueType(issues, "low_resolution") {
		t.Errorf("Expected raised floor to flag resolution, got %v", issues)
	}
}
