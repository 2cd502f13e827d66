package keys

import (
	"fmt"
	"sort"
	"strconv"
)

// Issue is one validation finding for an answer key.
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error" or "warning"
}

// ValidationResult aggregates the findings for one key.
type ValidationResult struct {
	Valid              bool           `json:"valid"`
	Errors             []Issue        `json:"errors,omitempty"`
	Warnings           []Issue        `json:"warnings,omitempty"`
	AnswerDistribution map[string]int `json:"answer_distribution,omitempty"`
}

// Validator checks answer keys against the configured sheet layout.
type Validator struct {
	totalQuestions int
	validLetters   map[string]bool
	letterOrder    []string
}

// NewValidator creates a Validator for totalQuestions questions answered
// from the given letter alphabet.
func NewValidator(totalQuestions int, letters []string) *Validator {
	valid := make(map[string]bool, len(letters))
	for _, l := range letters {
		valid[l] = true
	}
	return &Validator{
		totalQuestions: totalQuestions,
		validLetters:   valid,
		letterOrder:    append([]string(nil), letters...),
	}
}

// Validate checks question count, numbering, the answer alphabet and the
// letter distribution. Distribution skew is a warning, everything else an
// error.
func (v *Validator) Validate(key map[string]string) ValidationResult {
	result := ValidationResult{AnswerDistribution: make(map[string]int)}

	if len(key) != v.totalQuestions {
		result.Errors = append(result.Errors, Issue{
			Type:     "question_count",
			Message:  fmt.Sprintf("expected %d answers, got %d", v.totalQuestions, len(key)),
			Severity: "error",
		})
	}

	provided := make(map[int]bool, len(key))
	for q, answer := range key {
		num, err := strconv.Atoi(NormalizeQuestionID(q))
		if err != nil {
			result.Errors = append(result.Errors, Issue{
				Type:     "question_id",
				Message:  fmt.Sprintf("invalid question number format: %q", q),
				Severity: "error",
			})
		} else if num < 1 || num > v.totalQuestions {
			result.Errors = append(result.Errors, Issue{
				Type:     "question_range",
				Message:  fmt.Sprintf("question number %d out of range (1-%d)", num, v.totalQuestions),
				Severity: "error",
			})
		} else {
			provided[num] = true
		}

		if !v.validLetters[answer] {
			result.Errors = append(result.Errors, Issue{
				Type:     "answer_letter",
				Message:  fmt.Sprintf("invalid answer %q for question %s", answer, q),
				Severity: "error",
			})
		} else {
			result.AnswerDistribution[answer]++
		}
	}

	var missing []int
	for i := 1; i <= v.totalQuestions; i++ {
		if !provided[i] {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 && len(key) == v.totalQuestions {
		sort.Ints(missing)
		result.Errors = append(result.Errors, Issue{
			Type:     "missing_questions",
			Message:  fmt.Sprintf("missing answers for questions: %v", missing),
			Severity: "error",
		})
	}

	v.checkDistribution(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

// checkDistribution warns when one letter dominates or nearly vanishes,
// which usually indicates a transcription mistake in the key.
func (v *Validator) checkDistribution(result *ValidationResult) {
	total := 0
	for _, count := range result.AnswerDistribution {
		total += count
	}
	if total == 0 {
		return
	}

	for _, letter := range v.letterOrder {
		count := result.AnswerDistribution[letter]
		percentage := float64(count) / float64(total) * 100
		if percentage > 40 {
			result.Warnings = append(result.Warnings, Issue{
				Type:     "distribution",
				Message:  fmt.Sprintf("answer %q appears %.1f%% of the time (unusually high)", letter, percentage),
				Severity: "warning",
			})
		} else if percentage < 15 {
			result.Warnings = append(result.Warnings, Issue{
				Type:     "distribution",
				Message:  fmt.Sprintf("answer %q appears %.1f%% of the time (unusually low)", letter, percentage),
				Severity: "warning",
			})
		}
	}
}
