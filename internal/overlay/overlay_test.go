package overlay

import (
	"image"
	"image/color"
	"testing"

	"go-omr-engine/internal/classifier"
	"go-omr-engine/internal/detector"
	"go-omr-engine/internal/normalizer"
	"go-omr-engine/internal/synth"
	"go-omr-engine/pkg/models"
)

func renderSheet(t *testing.T, sheet *synth.Sheet) (*models.Grid, *models.Classification, *normalizer.NormalizedImage) {
	t.Helper()
	norm, err := normalizer.New().Normalize(sheet.Render())
	if err != nil {
		t.Fatalf("Failed to normalize synthetic sheet: %v", err)
	}
	opts := models.DefaultProcessingOptions()
	grid := detector.New(opts.Detection, opts.OptionsPerQuestion).DetectGrid(norm)
	class := classifier.New(opts.FillThreshold).Classify(norm, grid)
	return grid, class, norm
}

func hasColorNear(canvas *image.NRGBA, cx, cy, radius int, want color.NRGBA) bool {
	for y := cy - radius - 3; y <= cy+radius+3; y++ {
		for x := cx - radius - 3; x <= cx+radius+3; x++ {
			if canvas.NRGBAAt(x, y) == want {
				return true
			}
		}
	}
	return false
}

func TestRenderPreservesBounds(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout)
	grid, class, norm := renderSheet(t, sheet)

	canvas := New(layout.OptionsPerQuestion).Render(norm.Gray, grid, class)

	if canvas.Bounds() != norm.Gray.Bounds() {
		t.Errorf("Expected canvas bounds %v, got %v", norm.Gray.Bounds(), canvas.Bounds())
	}
}

func TestRenderMarksFilledBubblesGreen(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout).Mark(1, 1)
	grid, class, norm := renderSheet(t, sheet)

	canvas := New(layout.OptionsPerQuestion).Render(norm.Gray, grid, class)

	cx, cy := layout.BubbleCenter(1, 1)
	if !hasColorNear(canvas, cx, cy, layout.BubbleRadius, filledColor) {
		t.Error("Expected green outline around the filled bubble")
	}

	ux, uy := layout.BubbleCenter(1, 0)
	if !hasColorNear(canvas, ux, uy, layout.BubbleRadius, unfilledColor) {
		t.Error("Expected blue outline around the unfilled bubble")
	}
}

func TestRenderLabelsQuestions(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout)
	grid, class, norm := renderSheet(t, sheet)

	canvas := New(layout.OptionsPerQuestion).Render(norm.Gray, grid, class)

	// The Q1 label is anchored left of the first bubble.
	cx, cy := layout.BubbleCenter(1, 0)
	found := false
	for y := cy - 15; y <= cy+15 && !found; y++ {
		for x := cx - labelOffsetX - 10; x <= cx && !found; x++ {
			if canvas.NRGBAAt(x, y) == labelColor {
				found = true
			}
		}
	}
	if !found {
		t.Error("Expected red question label near the first bubble")
	}
}

func TestRenderEmptyGridReturnsCleanCopy(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout)
	norm, err := normalizer.New().Normalize(sheet.Render())
	if err != nil {
		t.Fatalf("Failed to normalize: %v", err)
	}

	canvas := New(layout.OptionsPerQuestion).Render(norm.Gray, &models.Grid{}, nil)

	if canvas.Bounds() != norm.Gray.Bounds() {
		t.Error("Expected unannotated copy for empty grid")
	}
}

func TestRenderDegradedRowsOutlinedGray(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout).AddNoiseBlob(700, layout.MarginY, layout.BubbleRadius)
	grid, class, norm := renderSheet(t, sheet)
	if !grid.Degraded() {
		t.Fatal("Expected degraded grid for bubble-sized blob")
	}

	canvas := New(layout.OptionsPerQuestion).Render(norm.Gray, grid, class)

	cx, cy := layout.BubbleCenter(1, 0)
	if !hasColorNear(canvas, cx, cy, layout.BubbleRadius, unprocessedColor) {
		t.Error("Expected gray outline for bubbles in the degraded row")
	}
}
