// Package synth renders synthetic answer-sheet images with known geometry
// and fill patterns. The pipeline's round-trip tests and the fixture CLI
// command are built on it.
package synth

import (
	"image"
	"image/color"
	"math"
)

// Layout describes the printed bubble geometry of a synthetic sheet.
type Layout struct {
	Rows               int
	QuestionsPerRow    int
	OptionsPerQuestion int
	BubbleRadius       int
	// OptionGap is the center-to-center distance between options of one
	// question; GroupGap is the extra distance between question groups.
	OptionGap int
	GroupGap  int
	RowGap    int
	MarginX   int
	MarginY   int
}

// DefaultLayout is a standard 100-question sheet: 20 rows of 5 question
// groups with 4 options each.
func DefaultLayout() Layout {
	return Layout{
		Rows:               20,
		QuestionsPerRow:    5,
		OptionsPerQuestion: 4,
		BubbleRadius:       10,
		OptionGap:          30,
		GroupGap:           40,
		RowGap:             34,
		MarginX:            60,
		MarginY:            40,
	}
}

// QuestionCount returns the number of questions the layout prints.
func (l Layout) QuestionCount() int {
	return l.Rows * l.QuestionsPerRow
}

// groupSpan is the horizontal center-to-center span of one question group.
func (l Layout) groupSpan() int {
	return (l.OptionsPerQuestion - 1) * l.OptionGap
}

// Dimensions returns the rendered sheet size in pixels.
func (l Layout) Dimensions() (int, int) {
	width := 2*l.MarginX + (l.QuestionsPerRow-1)*(l.groupSpan()+l.GroupGap) + l.groupSpan()
	height := 2*l.MarginY + (l.Rows-1)*l.RowGap
	return width, height
}

// BubbleCenter returns the pixel center of one option bubble. question is
// 1-based in row-major order; option is the 0-based group position.
func (l Layout) BubbleCenter(question, option int) (int, int) {
	row := (question - 1) / l.QuestionsPerRow
	col := (question - 1) % l.QuestionsPerRow
	x := l.MarginX + col*(l.groupSpan()+l.GroupGap) + option*l.OptionGap
	y := l.MarginY + row*l.RowGap
	return x, y
}

type noiseBlob struct {
	x, y, radius int
}

// Sheet is a synthetic sheet under construction.
type Sheet struct {
	layout Layout
	marks  map[int][]int
	noise  []noiseBlob // stray blobs, for malformed-grid cases
}

// NewSheet creates a blank sheet on the given layout.
func NewSheet(layout Layout) *Sheet {
	return &Sheet{layout: layout, marks: make(map[int][]int)}
}

// Layout returns the sheet geometry.
func (s *Sheet) Layout() Layout {
	return s.layout
}

// Mark fills the given option positions of a question.
func (s *Sheet) Mark(question int, options ...int) *Sheet {
	s.marks[question] = append(s.marks[question], options...)
	return s
}

// MarkAll fills one option on every question, chosen by pick(question).
func (s *Sheet) MarkAll(pick func(question int) int) *Sheet {
	for q := 1; q <= s.layout.QuestionCount(); q++ {
		s.Mark(q, pick(q))
	}
	return s
}

// AddNoiseBlob prints a small stray blob at the given point, simulating a
// stain or stamp that the detector has to reject or repair around.
func (s *Sheet) AddNoiseBlob(x, y, radius int) *Sheet {
	s.noise = append(s.noise, noiseBlob{x: x, y: y, radius: radius})
	return s
}

// Render draws the sheet: white paper, a 2px printed ring per bubble, and
// a solid disk over every marked option.
func (s *Sheet) Render() *image.Gray {
	width, height := s.layout.Dimensions()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	for q := 1; q <= s.layout.QuestionCount(); q++ {
		filled := make(map[int]bool)
		for _, opt := range s.marks[q] {
			filled[opt] = true
		}
		for opt := 0; opt < s.layout.OptionsPerQuestion; opt++ {
			cx, cy := s.layout.BubbleCenter(q, opt)
			if filled[opt] {
				drawDisk(img, cx, cy, s.layout.BubbleRadius)
			} else {
				drawRing(img, cx, cy, s.layout.BubbleRadius)
			}
		}
	}

	for _, b := range s.noise {
		drawDisk(img, b.x, b.y, b.radius)
	}
	return img
}

func drawDisk(img *image.Gray, cx, cy, radius int) {
	r := float64(radius)
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			if math.Sqrt(dx*dx+dy*dy) <= r {
				setIfInside(img, x, y)
			}
		}
	}
}

func drawRing(img *image.Gray, cx, cy, radius int) {
	outer := float64(radius)
	inner := outer - 2
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= inner && d <= outer {
				setIfInside(img, x, y)
			}
		}
	}
}

func setIfInside(img *image.Gray, x, y int) {
	bounds := img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		img.SetGray(x, y, color.Gray{Y: 0})
	}
}
