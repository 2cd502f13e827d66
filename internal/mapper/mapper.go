package mapper

import (
	"strconv"

	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/models"
)

// Mapper turns the classified grid into per-question answers.
type Mapper struct {
	optionsPerQuestion  int
	confidenceThreshold float64
}

// New creates a Mapper. Questions are groups of optionsPerQuestion bubbles
// in row-major order; group position determines the letter (first = A).
func New(optionsPerQuestion int, confidenceThreshold float64) *Mapper {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = 4
	}
	return &Mapper{
		optionsPerQuestion:  optionsPerQuestion,
		confidenceThreshold: confidenceThreshold,
	}
}

// Map walks every well-formed row in question groups, assigning letters
// and flagging questions that need review. Question numbering starts at 1
// and increments in row-major order; degraded rows contribute no answers
// but still advance the numbering, so questions below a damaged row keep
// their printed numbers. Ambiguous multi-marks are surfaced as letter
// lists, never collapsed to a best guess.
func (m *Mapper) Map(grid *models.Grid, classification *models.Classification) (models.AnswerMap, []models.FlaggedQuestion) {
	answers := make(models.AnswerMap)
	var flagged []models.FlaggedQuestion

	if grid.Empty() || classification.Len() == 0 {
		return answers, flagged
	}

	degraded := make(map[int]bool, len(grid.Diagnostics.DegradedRows))
	for _, r := range grid.Diagnostics.DegradedRows {
		degraded[r] = true
	}

	question := 1
	for rowIdx, row := range grid.Rows {
		if degraded[rowIdx] {
			// Advance numbering by the row's estimated question count so
			// answers below a damaged row keep their printed numbers.
			skipped := (len(row) + m.optionsPerQuestion/2) / m.optionsPerQuestion
			if skipped == 0 {
				skipped = 1
			}
			question += skipped
			logger.ForStage("map").WithField("row", rowIdx).
				WithField("skipped_questions", skipped).
				Debug("skipping degraded row")
			continue
		}

		for start := 0; start+m.optionsPerQuestion <= len(row); start += m.optionsPerQuestion {
			group := row[start : start+m.optionsPerQuestion]
			qid := strconv.Itoa(question)

			var letters []string
			lowConfidence := false
			for pos, bubbleIdx := range group {
				if bubbleIdx >= classification.Len() {
					continue
				}
				if classification.Filled[bubbleIdx] {
					letters = append(letters, models.OptionLetter(pos))
				}
				if classification.Confidence[bubbleIdx] < m.confidenceThreshold {
					lowConfidence = true
				}
			}

			answers[qid] = models.Answer{Letters: letters}

			switch {
			case len(letters) == 0:
				flagged = append(flagged, models.FlaggedQuestion{Question: qid, Reason: models.FlagNoMark})
			case len(letters) > 1:
				flagged = append(flagged, models.FlaggedQuestion{Question: qid, Reason: models.FlagMultipleMarks})
			}
			// Low confidence flags independently of the letter assignment.
			if lowConfidence {
				flagged = append(flagged, models.FlaggedQuestion{Question: qid, Reason: models.FlagLowConfidence})
			}

			question++
		}
	}

	return answers, flagged
}
