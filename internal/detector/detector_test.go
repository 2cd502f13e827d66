package detector

import (
	"image"
	"testing"

	"go-omr-engine/internal/normalizer"
	"go-omr-engine/internal/synth"
	"go-omr-engine/pkg/models"
)

func normalizeSheet(t *testing.T, sheet *synth.Sheet) *normalizer.NormalizedImage {
	t.Helper()
	norm, err := normalizer.New().Normalize(sheet.Render())
	if err != nil {
		t.Fatalf("Failed to normalize synthetic sheet: %v", err)
	}
	return norm
}

func defaultDetector() *Detector {
	opts := models.DefaultProcessingOptions()
	return New(opts.Detection, opts.OptionsPerQuestion)
}

func TestDetectGridBlankSheet(t *testing.T) {
	layout := synth.DefaultLayout()
	norm := normalizeSheet(t, synth.NewSheet(layout))

	grid := defaultDetector().DetectGrid(norm)

	if grid.Empty() {
		t.Fatal("Expected bubbles on a printed sheet")
	}
	if len(grid.Bubbles) != layout.Rows*layout.QuestionsPerRow*layout.OptionsPerQuestion {
		t.Errorf("Expected %d bubbles, got %d", 400, len(grid.Bubbles))
	}
	if len(grid.Rows) != layout.Rows {
		t.Errorf("Expected %d rows, got %d", layout.Rows, len(grid.Rows))
	}
	if grid.Degraded() {
		t.Errorf("Expected no degraded rows, got %v", grid.Diagnostics.DegradedRows)
	}
	if got := grid.QuestionCount(layout.OptionsPerQuestion); got != layout.QuestionCount() {
		t.Errorf("Expected %d questions, got %d", layout.QuestionCount(), got)
	}
}

func TestDetectGridMarkedSheetKeepsShape(t *testing.T) {
	layout := synth.DefaultLayout()
	sheet := synth.NewSheet(layout).MarkAll(func(q int) int { return (q - 1) % layout.OptionsPerQuestion })
	norm := normalizeSheet(t, sheet)

	grid := defaultDetector().DetectGrid(norm)

	if len(grid.Rows) != layout.Rows {
		t.Fatalf("Expected %d rows, got %d", layout.Rows, len(grid.Rows))
	}
	for i, row := range grid.Rows {
		if len(row) != layout.QuestionsPerRow*layout.OptionsPerQuestion {
			t.Errorf("Row %d: expected %d bubbles, got %d", i, layout.QuestionsPerRow*layout.OptionsPerQuestion, len(row))
		}
	}
}

func TestDetectGridRowMajorOrdering(t *testing.T) {
	layout := synth.DefaultLayout()
	norm := normalizeSheet(t, synth.NewSheet(layout))

	grid := defaultDetector().DetectGrid(norm)

	// Indices must increase left-to-right within a row and top-to-bottom
	// across rows, matching the arena flattening.
	next := 0
	for _, row := range grid.Rows {
		var prevX float64 = -1
		for _, idx := range row {
			if idx != next {
				t.Fatalf("Expected arena index %d, got %d", next, idx)
			}
			b := grid.Bubbles[idx]
			if b.CenterX <= prevX {
				t.Errorf("Bubbles not ordered left-to-right at index %d", idx)
			}
			prevX = b.CenterX
			next++
		}
	}
}

func TestDetectGridEmptyImage(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	norm, err := normalizer.New().Normalize(white)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	grid := defaultDetector().DetectGrid(norm)
	if !grid.Empty() {
		t.Errorf("Expected empty grid, got %d bubbles", len(grid.Bubbles))
	}
}

func TestDetectGridRepairsOversizedBlob(t *testing.T) {
	layout := synth.DefaultLayout()
	// A fat stain at the height of the first bubble row. Its diameter is
	// far enough from the bubble median to qualify as a repair outlier.
	sheet := synth.NewSheet(layout).AddNoiseBlob(700, layout.MarginY, 15)
	norm := normalizeSheet(t, sheet)

	grid := defaultDetector().DetectGrid(norm)

	if grid.Diagnostics.RepairedRows != 1 {
		t.Fatalf("Expected 1 repaired row, got %d", grid.Diagnostics.RepairedRows)
	}
	if grid.Degraded() {
		t.Errorf("Expected repair instead of degradation, got %v", grid.Diagnostics.DegradedRows)
	}
	if len(grid.Rows[0]) != layout.QuestionsPerRow*layout.OptionsPerQuestion {
		t.Errorf("Expected repaired row length %d, got %d",
			layout.QuestionsPerRow*layout.OptionsPerQuestion, len(grid.Rows[0]))
	}
}

func TestDetectGridDegradesOnBubbleSizedBlob(t *testing.T) {
	layout := synth.DefaultLayout()
	// A blob the same size as a real bubble cannot be told apart by
	// diameter, so the row must be marked degraded instead of guessing.
	sheet := synth.NewSheet(layout).AddNoiseBlob(700, layout.MarginY, layout.BubbleRadius)
	norm := normalizeSheet(t, sheet)

	grid := defaultDetector().DetectGrid(norm)

	if !grid.Degraded() {
		t.Fatal("Expected degraded row for bubble-sized blob")
	}
	if len(grid.Diagnostics.DegradedRows) != 1 || grid.Diagnostics.DegradedRows[0] != 0 {
		t.Errorf("Expected row 0 degraded, got %v", grid.Diagnostics.DegradedRows)
	}
}

func TestPassesFilterRejectsSpecks(t *testing.T) {
	opts := models.DefaultProcessingOptions()
	d := New(opts.Detection, opts.OptionsPerQuestion)

	tiny := component{minX: 0, minY: 0, maxX: 3, maxY: 3, pixelCount: 10}
	if d.passesFilter(tiny) {
		t.Error("Expected tiny speck to be rejected")
	}

	elongated := component{minX: 0, minY: 0, maxX: 99, maxY: 9, pixelCount: 500}
	if d.passesFilter(elongated) {
		t.Error("Expected elongated shape to be rejected")
	}
}

func TestMedianDiameter(t *testing.T) {
	comps := []component{
		{minX: 0, minY: 0, maxX: 9, maxY: 9},   // diameter 10
		{minX: 0, minY: 0, maxX: 19, maxY: 19}, // diameter 20
		{minX: 0, minY: 0, maxX: 29, maxY: 29}, // diameter 30
	}
	if got := medianDiameter(comps); got != 20 {
		t.Errorf("Expected median diameter 20, got %f", got)
	}
}
