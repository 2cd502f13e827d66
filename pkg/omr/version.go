package omr

import (
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// VersionDetector identifies which printed layout variant a sheet uses so
// the right answer key can be selected. The pipeline only depends on this
// interface; collaborators substitute their own detection strategy.
type VersionDetector interface {
	DetectVersion(img image.Image) (string, error)
}

// FixedVersion always reports the same version. It is a stub, not a real
// detector: use it when all sheets in a session share one layout, or as a
// placeholder until a marker-based strategy is wired in.
type FixedVersion struct {
	Version string
}

// DetectVersion returns the configured version.
func (f FixedVersion) DetectVersion(image.Image) (string, error) {
	return f.Version, nil
}

// NoneConfigured rejects auto-detection outright. Use it to make a
// mistakenly enabled auto_detect_version fail loudly instead of silently
// scoring against a default key.
type NoneConfigured struct{}

// DetectVersion always fails.
func (NoneConfigured) DetectVersion(image.Image) (string, error) {
	return "", fmt.Errorf("no version detector configured")
}

// MarkerVersionDetector decodes a printed barcode or QR marker on the
// sheet and uses its text as the version string.
type MarkerVersionDetector struct {
	readers []gozxing.Reader
}

// NewMarkerVersionDetector creates a detector that tries QR first, then
// the common one-dimensional barcode symbologies.
func NewMarkerVersionDetector() *MarkerVersionDetector {
	return &MarkerVersionDetector{
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			oned.NewEAN13Reader(),
		},
	}
}

// DetectVersion scans the sheet for a decodable marker.
func (m *MarkerVersionDetector) DetectVersion(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to create bitmap: %w", err)
	}

	for _, reader := range m.readers {
		result, err := reader.Decode(bmp, nil)
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(result.GetText()); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("no version marker found")
}
