package document

import (
	"fmt"
	"image"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"go-omr-engine/internal/errors"
)

// ExtractPageImage pulls the largest raster image from page 1 of a PDF
// document. Scanned answer sheets delivered as PDFs are a single full-page
// scan per page, so the largest image is the sheet.
func ExtractPageImage(rs io.ReadSeeker) (img image.Image, err error) {
	// pdfcpu panics on some malformed documents; fold that into the
	// unreadable-image error instead of killing the batch worker.
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = errors.NewUnreadableImageError(fmt.Sprintf("pdf parsing panicked: %v", r), nil)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, errors.NewUnreadableImageError("failed to read pdf", err)
	}
	if ctx.PageCount < 1 {
		return nil, errors.NewUnreadableImageError("pdf has no pages", nil)
	}

	pageImages, err := pdfcpu.ExtractPageImages(ctx, 1, false)
	if err != nil {
		return nil, errors.NewUnreadableImageError("failed to extract images from pdf page 1", err)
	}
	if len(pageImages) == 0 {
		return nil, errors.NewUnsupportedFormatError("pdf page 1 contains no raster image", nil)
	}

	var best image.Image
	bestArea := 0
	for _, pageImg := range pageImages {
		decoded, _, decodeErr := image.Decode(pageImg)
		if decodeErr != nil {
			continue
		}
		area := decoded.Bounds().Dx() * decoded.Bounds().Dy()
		if area > bestArea {
			best = decoded
			bestArea = area
		}
	}
	if best == nil {
		return nil, errors.NewUnreadableImageError("no decodable image on pdf page 1", nil)
	}
	return best, nil
}
