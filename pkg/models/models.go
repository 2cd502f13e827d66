package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Bubble is a single detected mark region. Bubbles live in the Grid arena
// and are referenced everywhere else by Index, so geometry is owned exactly
// once across the detector, classifier and overlay renderer.
type Bubble struct {
	Index      int     `json:"index"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Radius     float64 `json:"radius"`
	Circular   bool    `json:"circular"`
	PixelCount int     `json:"pixel_count"`
}

// Diameter returns the mean of the bounding box sides.
func (b Bubble) Diameter() float64 {
	return (float64(b.Width) + float64(b.Height)) / 2
}

// GridDiagnostics records what the detector saw while assembling the grid.
type GridDiagnostics struct {
	CandidateShapes int     `json:"candidate_shapes"`
	RejectedShapes  int     `json:"rejected_shapes"`
	RepairedRows    int     `json:"repaired_rows"`
	DegradedRows    []int   `json:"degraded_rows,omitempty"`
	MedianDiameter  float64 `json:"median_diameter"`
}

// Grid is the reconstructed row/column structure. Rows hold indices into
// the Bubbles arena, ordered top-to-bottom; within a row indices are
// ordered left-to-right by horizontal centroid.
type Grid struct {
	Bubbles     []Bubble        `json:"bubbles"`
	Rows        [][]int         `json:"rows"`
	Diagnostics GridDiagnostics `json:"diagnostics"`
}

// Empty reports whether no bubbles survived detection.
func (g *Grid) Empty() bool {
	return g == nil || len(g.Bubbles) == 0
}

// Degraded reports whether any row failed regularity validation.
func (g *Grid) Degraded() bool {
	return g != nil && len(g.Diagnostics.DegradedRows) > 0
}

// QuestionCount returns the number of question groups the grid yields for
// the given options-per-question, counting only well-formed rows.
func (g *Grid) QuestionCount(optionsPerQuestion int) int {
	if g == nil || optionsPerQuestion <= 0 {
		return 0
	}
	degraded := make(map[int]bool, len(g.Diagnostics.DegradedRows))
	for _, r := range g.Diagnostics.DegradedRows {
		degraded[r] = true
	}
	total := 0
	for i, row := range g.Rows {
		if degraded[i] {
			continue
		}
		total += len(row) / optionsPerQuestion
	}
	return total
}

// Classification holds the per-bubble fill decision, aligned with the grid
// arena by index.
type Classification struct {
	Filled     []bool    `json:"filled"`
	Confidence []float64 `json:"confidence"`
	FillRatios []float64 `json:"fill_ratios"`
}

// Len returns the number of classified bubbles.
func (c *Classification) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Filled)
}

// Answer is the resolved mark state of one question: no letters (blank),
// one letter, or several letters when the question was multi-marked.
type Answer struct {
	Letters []string
}

// Single returns the assigned letter when exactly one bubble was filled.
func (a Answer) Single() (string, bool) {
	if len(a.Letters) == 1 {
		return a.Letters[0], true
	}
	return "", false
}

// Blank reports whether no bubble was filled.
func (a Answer) Blank() bool { return len(a.Letters) == 0 }

// Multiple reports whether more than one bubble was filled.
func (a Answer) Multiple() bool { return len(a.Letters) > 1 }

// MarshalJSON encodes the answer as null, a bare letter, or a letter list,
// matching the wire shape consumed by the surrounding system.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch len(a.Letters) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(a.Letters[0])
	default:
		return json.Marshal(a.Letters)
	}
}

// UnmarshalJSON accepts null, a bare letter, or a letter list.
func (a *Answer) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Letters = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		a.Letters = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("answer must be null, a letter, or a letter list: %w", err)
	}
	a.Letters = many
	return nil
}

// AnswerMap maps question identifiers ("1".."N") to resolved answers.
type AnswerMap map[string]Answer

// Questions returns the question identifiers in numeric order.
func (m AnswerMap) Questions() []string {
	out := make([]string, 0, len(m))
	for q := range m {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i])
		b, _ := strconv.Atoi(out[j])
		return a < b
	})
	return out
}

// FlagReason categorises why a question needs human review.
type FlagReason string

const (
	FlagNoMark        FlagReason = "no_mark"
	FlagMultipleMarks FlagReason = "multiple_marks"
	FlagLowConfidence FlagReason = "low_confidence"
)

// FlaggedQuestion marks a question for review.
type FlaggedQuestion struct {
	Question string     `json:"question"`
	Reason   FlagReason `json:"reason"`
}

// SubjectScore is the per-subject breakdown.
type SubjectScore struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Score      float64 `json:"score"`
}

// ScoreResult aggregates subject-wise and total scores.
type ScoreResult struct {
	Subjects       []string                `json:"subjects"`
	SubjectScores  map[string]SubjectScore `json:"subject_scores"`
	CorrectAnswers int                     `json:"correct_answers"`
	TotalQuestions int                     `json:"total_questions"`
	TotalScore     float64                 `json:"total_score"`
}

// ConfidenceMetrics summarises the per-bubble confidence distribution.
type ConfidenceMetrics struct {
	Average            float64 `json:"average_confidence"`
	Min                float64 `json:"min_confidence"`
	Max                float64 `json:"max_confidence"`
	LowConfidenceCount int     `json:"low_confidence_count"`
}

// ProcessingInfo holds normalizer diagnostics for one sheet.
type ProcessingInfo struct {
	SourceWidth  int     `json:"source_width"`
	SourceHeight int     `json:"source_height"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	SkewAngle    float64 `json:"skew_angle_degrees"`
	Deskewed     bool    `json:"deskewed"`
	Format       string  `json:"format,omitempty"`
	DurationSec  float64 `json:"duration_sec"`
}
