package models

import "time"

// ProcessingResult is the sole object handed back to the surrounding
// system for one sheet. A failed sheet still carries whatever partial
// diagnostics were computed before the failure.
type ProcessingResult struct {
	ID           string `json:"id"`
	Success      bool   `json:"success"`
	StudentID    string `json:"student_id,omitempty"`
	SheetVersion string `json:"sheet_version,omitempty"`

	ProcessingInfo ProcessingInfo `json:"processing_info"`

	Grid           *Grid           `json:"grid,omitempty"`
	Classification *Classification `json:"classification,omitempty"`

	Answers          AnswerMap         `json:"student_answers,omitempty"`
	FlaggedQuestions []FlaggedQuestion `json:"flagged_questions,omitempty"`

	// Scores is nil when scoring was not possible; ScoreError then says why.
	Scores     *ScoreResult `json:"scores,omitempty"`
	ScoreError string       `json:"score_error,omitempty"`

	ConfidenceMetrics *ConfidenceMetrics `json:"confidence_metrics,omitempty"`

	// ArtifactPaths holds sink locators keyed by artifact name
	// ("original", "processed", "overlay").
	ArtifactPaths map[string]string `json:"file_paths,omitempty"`

	// Warnings carries non-fatal diagnostics, e.g. malformed-grid repairs.
	Warnings []string `json:"warnings,omitempty"`

	Timestamp    time.Time        `json:"timestamp"`
	Error        *ProcessingError `json:"error,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// ProcessingError is the structured per-sheet failure payload. It mirrors
// the pipeline error taxonomy so batch callers can branch on Kind without
// parsing messages.
type ProcessingError struct {
	Kind     string `json:"kind"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
	Terminal bool   `json:"terminal"`
}

// DetectionFilter bounds the shapes the detector accepts as bubbles. It is
// the primary false-positive filter against text, staples and noise.
type DetectionFilter struct {
	MinArea   int     `json:"min_area"`
	MaxArea   int     `json:"max_area"`
	MinAspect float64 `json:"min_aspect"`
	MaxAspect float64 `json:"max_aspect"`
}

// ProcessingOptions is the immutable per-call configuration snapshot.
// Concurrent sheet runs share it read-only; live reconfiguration swaps the
// whole value, never individual fields.
type ProcessingOptions struct {
	AutoDetectVersion   bool            `json:"auto_detect_version"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	FillThreshold       float64         `json:"fill_threshold"`
	OptionsPerQuestion  int             `json:"options_per_question"`
	Subjects            []string        `json:"subjects"`
	QuestionsPerSubject int             `json:"questions_per_subject"`
	SubjectMaxScore     float64         `json:"subject_max_score"`
	StrictGrid          bool            `json:"strict_grid"`
	Detection           DetectionFilter `json:"detection"`
}

// DefaultProcessingOptions mirrors the standard 100-question sheet layout:
// five subjects of twenty questions with four options each.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		AutoDetectVersion:   false,
		ConfidenceThreshold: 0.7,
		FillThreshold:       0.5,
		OptionsPerQuestion:  4,
		Subjects:            []string{"Mathematics", "Physics", "Chemistry", "Biology", "English"},
		QuestionsPerSubject: 20,
		SubjectMaxScore:     20,
		StrictGrid:          false,
		Detection: DetectionFilter{
			MinArea:   60,
			MaxArea:   5000,
			MinAspect: 0.6,
			MaxAspect: 1.6,
		},
	}
}

// Normalized returns a copy with unset fields filled from the defaults,
// leaving every field the caller did set untouched. Zero numeric fields
// count as unset.
func (o ProcessingOptions) Normalized() ProcessingOptions {
	defaults := DefaultProcessingOptions()
	if o.OptionsPerQuestion <= 0 {
		o.OptionsPerQuestion = defaults.OptionsPerQuestion
	}
	if o.QuestionsPerSubject <= 0 {
		o.QuestionsPerSubject = defaults.QuestionsPerSubject
	}
	if len(o.Subjects) == 0 {
		o.Subjects = defaults.Subjects
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if o.FillThreshold <= 0 {
		o.FillThreshold = defaults.FillThreshold
	}
	if o.SubjectMaxScore <= 0 {
		o.SubjectMaxScore = defaults.SubjectMaxScore
	}
	if o.Detection == (DetectionFilter{}) {
		o.Detection = defaults.Detection
	}
	return o
}

// TotalQuestions is the number of questions the configured layout expects.
func (o ProcessingOptions) TotalQuestions() int {
	return len(o.Subjects) * o.QuestionsPerSubject
}

// OptionLetter returns the letter for a group position (0 -> "A").
func OptionLetter(position int) string {
	return string(rune('A' + position))
}

// ValidLetters returns the option alphabet for the configured group size.
func (o ProcessingOptions) ValidLetters() []string {
	letters := make([]string, o.OptionsPerQuestion)
	for i := range letters {
		letters[i] = OptionLetter(i)
	}
	return letters
}

// WithConfidenceThreshold returns a copy with an adjusted review threshold.
func (o ProcessingOptions) WithConfidenceThreshold(t float64) ProcessingOptions {
	o.ConfidenceThreshold = t
	return o
}

// WithStrictGrid returns a copy that fails instead of degrading on
// malformed rows.
func (o ProcessingOptions) WithStrictGrid() ProcessingOptions {
	o.StrictGrid = true
	return o
}

// WithLayout returns a copy with a different subject layout.
func (o ProcessingOptions) WithLayout(subjects []string, questionsPerSubject, optionsPerQuestion int) ProcessingOptions {
	o.Subjects = subjects
	o.QuestionsPerSubject = questionsPerSubject
	o.OptionsPerQuestion = optionsPerQuestion
	return o
}
