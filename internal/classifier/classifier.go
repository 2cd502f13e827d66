package classifier

import (
	"math"

	"go-omr-engine/internal/normalizer"
	"go-omr-engine/pkg/models"
)

// backgroundMargin is how many gray levels darker than the local
// background a pixel must be to count as mark ink.
const backgroundMargin = 40

// Classifier decides filled vs. unfilled per bubble and scores how sure
// the decision is.
type Classifier struct {
	fillThreshold float64
}

// New creates a Classifier that marks a bubble filled when its fill ratio
// exceeds the given threshold.
func New(fillThreshold float64) *Classifier {
	if fillThreshold <= 0 || fillThreshold >= 1 {
		fillThreshold = 0.5
	}
	return &Classifier{fillThreshold: fillThreshold}
}

// Classify computes a fill ratio for every bubble in the grid and returns
// the per-bubble decisions, confidences and raw ratios, aligned with the
// grid arena by index.
func (c *Classifier) Classify(norm *normalizer.NormalizedImage, grid *models.Grid) *models.Classification {
	n := len(grid.Bubbles)
	result := &models.Classification{
		Filled:     make([]bool, n),
		Confidence: make([]float64, n),
		FillRatios: make([]float64, n),
	}

	for i, bubble := range grid.Bubbles {
		ratio := c.fillRatio(norm, bubble)
		result.FillRatios[i] = ratio
		result.Filled[i] = ratio > c.fillThreshold
		result.Confidence[i] = c.confidence(ratio)
	}
	return result
}

// fillRatio is the fraction of the bubble's inscribed region darker than
// the local paper background. Thresholding against the surrounding annulus
// instead of a global cutoff keeps the ratio stable under uneven
// illumination.
func (c *Classifier) fillRatio(norm *normalizer.NormalizedImage, bubble models.Bubble) float64 {
	background := c.localBackground(norm, bubble)
	cutoff := background - backgroundMargin
	if cutoff < 1 {
		cutoff = 1
	}

	bounds := norm.Gray.Bounds()
	cx, cy := bubble.CenterX, bubble.CenterY
	// Sample the inscribed circle slightly shrunk, so the printed outline
	// ring of an unfilled bubble does not count as fill.
	radius := bubble.Radius * 0.75
	if radius < 1 {
		radius = 1
	}

	dark, total := 0, 0
	minX := int(math.Floor(cx - radius))
	maxX := int(math.Ceil(cx + radius))
	minY := int(math.Floor(cy - radius))
	maxY := int(math.Ceil(cy + radius))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			total++
			if float64(norm.Gray.GrayAt(x, y).Y) < cutoff {
				dark++
			}
		}
	}

	if total == 0 {
		return 0
	}
	return float64(dark) / float64(total)
}

// localBackground estimates the paper brightness around a bubble from an
// annulus between 1.3x and 2x the bubble radius, skipping dark pixels so
// neighboring marks do not drag the estimate down.
func (c *Classifier) localBackground(norm *normalizer.NormalizedImage, bubble models.Bubble) float64 {
	bounds := norm.Gray.Bounds()
	cx, cy := bubble.CenterX, bubble.CenterY
	inner := bubble.Radius * 1.3
	outer := bubble.Radius * 2

	var sum float64
	count := 0
	minX := int(math.Floor(cx - outer))
	maxX := int(math.Ceil(cx + outer))
	minY := int(math.Floor(cy - outer))
	maxY := int(math.Ceil(cy + outer))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			dx, dy := float64(x)-cx, float64(y)-cy
			d2 := dx*dx + dy*dy
			if d2 < inner*inner || d2 > outer*outer {
				continue
			}
			v := float64(norm.Gray.GrayAt(x, y).Y)
			if v < 128 {
				// Likely a neighboring bubble or printed text.
				continue
			}
			sum += v
			count++
		}
	}

	if count == 0 {
		return 255
	}
	return sum / float64(count)
}

// confidence maps distance from the fill threshold to [0,1]. A ratio
// sitting on the threshold scores 0 regardless of which side it lands on.
func (c *Classifier) confidence(ratio float64) float64 {
	var span float64
	if ratio > c.fillThreshold {
		span = 1 - c.fillThreshold
	} else {
		span = c.fillThreshold
	}
	if span <= 0 {
		return 0
	}
	conf := math.Abs(ratio-c.fillThreshold) / span
	if conf > 1 {
		conf = 1
	}
	return conf
}
