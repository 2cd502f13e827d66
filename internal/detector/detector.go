package detector

import (
	"fmt"
	"math"
	"sort"

	"go-omr-engine/internal/logger"
	"go-omr-engine/internal/normalizer"
	"go-omr-engine/pkg/models"
)

// circularAspectTolerance bounds how far from square a bounding box may be
// while the shape is still rendered as a circle.
const circularAspectTolerance = 0.2

// repairDeviationRatio is the minimum relative diameter deviation for a
// shape to be discarded during row repair.
const repairDeviationRatio = 0.2

// Detector locates answer bubbles and assembles them into a grid.
type Detector struct {
	filter             models.DetectionFilter
	optionsPerQuestion int
}

// New creates a Detector for the given shape filter and group size.
func New(filter models.DetectionFilter, optionsPerQuestion int) *Detector {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = 4
	}
	return &Detector{filter: filter, optionsPerQuestion: optionsPerQuestion}
}

// DetectGrid finds bubble-shaped components in the binary plane and
// clusters them into rows. An empty grid is a valid result, not an error;
// the caller decides whether zero bubbles is terminal.
func (d *Detector) DetectGrid(norm *normalizer.NormalizedImage) *models.Grid {
	comps := findComponents(norm.Binary)

	accepted := make([]component, 0, len(comps))
	for _, c := range comps {
		if d.passesFilter(c) {
			accepted = append(accepted, c)
		}
	}

	grid := &models.Grid{
		Diagnostics: models.GridDiagnostics{
			CandidateShapes: len(comps),
			RejectedShapes:  len(comps) - len(accepted),
		},
	}
	if len(accepted) == 0 {
		return grid
	}

	grid.Diagnostics.MedianDiameter = medianDiameter(accepted)

	rows := clusterRows(accepted, grid.Diagnostics.MedianDiameter)
	d.validateRows(rows, grid)

	// Flatten in row-major order so bubble indices line up with question
	// numbering everywhere downstream.
	for _, row := range rows {
		indices := make([]int, 0, len(row))
		for _, c := range row {
			indices = append(indices, len(grid.Bubbles))
			grid.Bubbles = append(grid.Bubbles, toBubble(c, len(grid.Bubbles)))
		}
		grid.Rows = append(grid.Rows, indices)
	}

	logger.ForStage("detect").WithField("bubbles", len(grid.Bubbles)).
		WithField("rows", len(grid.Rows)).Debug("grid assembled")
	return grid
}

func (d *Detector) passesFilter(c component) bool {
	if c.pixelCount < d.filter.MinArea || c.pixelCount > d.filter.MaxArea {
		return false
	}
	aspect := c.aspect()
	return aspect >= d.filter.MinAspect && aspect <= d.filter.MaxAspect
}

func toBubble(c component, index int) models.Bubble {
	aspect := c.aspect()
	circular := math.Abs(aspect-1) <= circularAspectTolerance
	return models.Bubble{
		Index:      index,
		X:          c.minX,
		Y:          c.minY,
		Width:      c.width(),
		Height:     c.height(),
		CenterX:    c.centerX(),
		CenterY:    c.centerY(),
		Radius:     (float64(c.width()) + float64(c.height())) / 4,
		Circular:   circular,
		PixelCount: c.pixelCount,
	}
}

func medianDiameter(comps []component) float64 {
	diameters := make([]float64, len(comps))
	for i, c := range comps {
		diameters[i] = (float64(c.width()) + float64(c.height())) / 2
	}
	sort.Float64s(diameters)
	mid := len(diameters) / 2
	if len(diameters)%2 == 0 {
		return (diameters[mid-1] + diameters[mid]) / 2
	}
	return diameters[mid]
}

// clusterRows groups shapes whose vertical centroids sit within half a
// bubble diameter of the running row mean, then orders rows top-to-bottom
// and each row left-to-right.
func clusterRows(comps []component, medianDiameter float64) [][]component {
	sorted := make([]component, len(comps))
	copy(sorted, comps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].centerY() < sorted[j].centerY() })

	tolerance := medianDiameter * 0.5
	if tolerance < 2 {
		tolerance = 2
	}

	var rows [][]component
	var current []component
	var currentSumY float64

	for _, c := range sorted {
		if len(current) == 0 {
			current = []component{c}
			currentSumY = c.centerY()
			continue
		}
		meanY := currentSumY / float64(len(current))
		if math.Abs(c.centerY()-meanY) <= tolerance {
			current = append(current, c)
			currentSumY += c.centerY()
		} else {
			rows = append(rows, current)
			current = []component{c}
			currentSumY = c.centerY()
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}

	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].centerX() < row[j].centerX() })
	}
	return rows
}

// validateRows enforces grid regularity. A row whose bubble count is not a
// multiple of options-per-question first gets local repair: shapes whose
// diameter deviates hardest from the row median are discarded, never more
// than the surplus. Rows that cannot be repaired are marked degraded so
// downstream mapping skips them instead of shifting question numbering.
func (d *Detector) validateRows(rows [][]component, grid *models.Grid) {
	for i := range rows {
		if len(rows[i])%d.optionsPerQuestion == 0 {
			continue
		}

		repaired, ok := d.repairRow(rows[i])
		if ok {
			discarded := len(rows[i]) - len(repaired)
			rows[i] = repaired
			grid.Diagnostics.RepairedRows++
			logger.ForStage("detect").WithField("row", i).
				WithField("discarded", discarded).
				Warn("repaired irregular row")
			continue
		}

		grid.Diagnostics.DegradedRows = append(grid.Diagnostics.DegradedRows, i)
		logger.ForStage("detect").WithField("row", i).
			WithField("bubbles", len(rows[i])).
			Warn(fmt.Sprintf("row count not a multiple of %d, marking degraded", d.optionsPerQuestion))
	}
}

// repairRow drops up to (len mod optionsPerQuestion) outlier shapes, one
// at a time, largest diameter deviation first. A shape only qualifies as
// an outlier when its deviation from the row median exceeds
// repairDeviationRatio; otherwise repair gives up rather than guessing.
func (d *Detector) repairRow(row []component) ([]component, bool) {
	surplus := len(row) % d.optionsPerQuestion
	if surplus == 0 || len(row) < d.optionsPerQuestion {
		return row, surplus == 0
	}

	working := make([]component, len(row))
	copy(working, row)

	for removed := 0; removed < surplus; removed++ {
		median := medianDiameter(working)
		worstIdx := -1
		worstDev := 0.0
		for i, c := range working {
			dev := math.Abs((float64(c.width())+float64(c.height()))/2 - median)
			if dev > worstDev {
				worstDev = dev
				worstIdx = i
			}
		}
		if worstIdx < 0 || median <= 0 || worstDev/median < repairDeviationRatio {
			return row, false
		}
		working = append(working[:worstIdx], working[worstIdx+1:]...)
	}

	if len(working)%d.optionsPerQuestion != 0 {
		return row, false
	}
	return working, true
}
