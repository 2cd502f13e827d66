package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go-omr-engine/pkg/models"
)

var (
	filledColor      = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	unfilledColor    = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	unprocessedColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	labelColor       = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

const (
	filledThickness   = 3
	unfilledThickness = 1
	labelOffsetX      = 30
)

// Renderer draws the audit overlay: every detected bubble outlined in a
// color keyed to its classification, with a question-number label anchored
// to the first bubble of each group.
type Renderer struct {
	optionsPerQuestion int
}

// New creates a Renderer for the given group size.
func New(optionsPerQuestion int) *Renderer {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = 4
	}
	return &Renderer{optionsPerQuestion: optionsPerQuestion}
}

// Render annotates a copy of the original image. Malformed or empty grids
// never fail here; the unannotated copy comes back instead, because audit
// rendering must not be a point of pipeline failure.
func (r *Renderer) Render(original image.Image, grid *models.Grid, classification *models.Classification) *image.NRGBA {
	canvas := imaging.Clone(original)
	if grid.Empty() {
		return canvas
	}

	question := 1
	degraded := make(map[int]bool, len(grid.Diagnostics.DegradedRows))
	for _, idx := range grid.Diagnostics.DegradedRows {
		degraded[idx] = true
	}

	for rowIdx, row := range grid.Rows {
		if degraded[rowIdx] {
			// Degraded rows still get their bubbles outlined so a reviewer
			// can see what was detected, but no question labels. Numbering
			// advances the same way the answer mapper does.
			for _, bubbleIdx := range row {
				r.drawBubble(canvas, grid.Bubbles[bubbleIdx], unprocessedColor, unfilledThickness)
			}
			skipped := (len(row) + r.optionsPerQuestion/2) / r.optionsPerQuestion
			if skipped == 0 {
				skipped = 1
			}
			question += skipped
			continue
		}

		for start := 0; start+r.optionsPerQuestion <= len(row); start += r.optionsPerQuestion {
			group := row[start : start+r.optionsPerQuestion]

			for _, bubbleIdx := range group {
				bubble := grid.Bubbles[bubbleIdx]
				if classification == nil || bubbleIdx >= classification.Len() {
					r.drawBubble(canvas, bubble, unprocessedColor, unfilledThickness)
					continue
				}
				if classification.Filled[bubbleIdx] {
					r.drawBubble(canvas, bubble, filledColor, filledThickness)
				} else {
					r.drawBubble(canvas, bubble, unfilledColor, unfilledThickness)
				}
			}

			first := grid.Bubbles[group[0]]
			r.drawLabel(canvas, first, fmt.Sprintf("Q%d", question))
			question++
		}
	}

	return canvas
}

func (r *Renderer) drawBubble(canvas *image.NRGBA, bubble models.Bubble, col color.NRGBA, thickness int) {
	if bubble.Circular {
		drawCircle(canvas, bubble.CenterX, bubble.CenterY, bubble.Radius, col, thickness)
	} else {
		drawRect(canvas, bubble.X, bubble.Y, bubble.Width, bubble.Height, col, thickness)
	}
}

// drawCircle outlines a circle by painting every pixel whose distance from
// the center falls within the ring band.
func drawCircle(canvas *image.NRGBA, cx, cy, radius float64, col color.NRGBA, thickness int) {
	outer := radius + float64(thickness)/2
	inner := radius - float64(thickness)/2
	if inner < 0 {
		inner = 0
	}
	bounds := canvas.Bounds()

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
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= inner && d <= outer {
				canvas.SetNRGBA(x, y, col)
			}
		}
	}
}

// drawRect outlines a rectangle with the given border thickness.
func drawRect(canvas *image.NRGBA, x, y, w, h int, col color.NRGBA, thickness int) {
	bounds := canvas.Bounds()
	set := func(px, py int) {
		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			canvas.SetNRGBA(px, py, col)
		}
	}
	for t := 0; t < thickness; t++ {
		for px := x - t; px <= x+w+t; px++ {
			set(px, y-t)
			set(px, y+h+t)
		}
		for py := y - t; py <= y+h+t; py++ {
			set(x-t, py)
			set(x+w+t, py)
		}
	}
}

// drawLabel renders the question number just left of the group's first
// bubble.
func (r *Renderer) drawLabel(canvas *image.NRGBA, anchor models.Bubble, text string) {
	x := anchor.X - labelOffsetX
	if x < 0 {
		x = 0
	}
	y := int(anchor.CenterY) + basicfont.Face7x13.Ascent/2

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
