package omr

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/models"
)

// ProcessBatch runs the pipeline over many sheets in parallel. Each sheet
// is an independent run; a failed sheet is reported in its slot and never
// stops the rest. Results come back in input order. Cancelling ctx stops
// scheduling of remaining sheets; sheets already in flight complete.
func (e *Engine) ProcessBatch(ctx context.Context, sheets []Sheet, workers int) []models.ProcessingResult {
	return e.ProcessBatchFunc(ctx, sheets, workers, nil)
}

// ProcessBatchFunc is ProcessBatch with a per-sheet completion callback,
// used for progress reporting. The callback runs on worker goroutines and
// must be safe for concurrent use; nil disables it.
func (e *Engine) ProcessBatchFunc(ctx context.Context, sheets []Sheet, workers int, done func(models.ProcessingResult)) []models.ProcessingResult {
	results := make([]models.ProcessingResult, len(sheets))
	if len(sheets) == 0 {
		return results
	}

	pool := newWorkerPool(workers)
	pool.start()
	defer pool.close()

	for i, sheet := range sheets {
		if ctx.Err() != nil {
			results[i] = e.cancelled(sheet)
			if done != nil {
				done(results[i])
			}
			continue
		}
		i, sheet := i, sheet
		pool.submit(func() {
			results[i] = e.Process(ctx, sheet)
			if done != nil {
				done(results[i])
			}
		})
	}
	pool.wait()

	logger.WithField("sheets", len(sheets)).Info("batch processing complete")
	return results
}

func (e *Engine) cancelled(sheet Sheet) models.ProcessingResult {
	result := models.ProcessingResult{
		StudentID:    sheet.StudentID,
		SheetVersion: sheet.DeclaredVersion,
		ErrorMessage: "batch cancelled before sheet was scheduled",
	}
	if sheet.Source != "" {
		result.ArtifactPaths = map[string]string{"original": sheet.Source}
	}
	return result
}

// Summary aggregates a batch run for reporting.
type Summary struct {
	TotalSheets  int                       `json:"total_sheets"`
	Successful   int                       `json:"successful_processing"`
	Failed       int                       `json:"failed_processing"`
	AverageScore float64                   `json:"average_score"`
	CommonIssues map[models.FlagReason]int `json:"common_issues,omitempty"`
}

// Summarize builds a batch summary: success/failure counts, the mean
// total score over scored sheets, and a histogram of flag reasons.
func Summarize(results []models.ProcessingResult) Summary {
	summary := Summary{
		TotalSheets:  len(results),
		CommonIssues: make(map[models.FlagReason]int),
	}

	var scores []float64
	for _, r := range results {
		if !r.Success {
			summary.Failed++
			continue
		}
		summary.Successful++
		if r.Scores != nil {
			scores = append(scores, r.Scores.TotalScore)
		}
		for _, flag := range r.FlaggedQuestions {
			summary.CommonIssues[flag.Reason]++
		}
	}

	if len(scores) > 0 {
		summary.AverageScore = stat.Mean(scores, nil)
	}
	return summary
}
