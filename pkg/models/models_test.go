package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAnswerMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		answer   Answer
		expected string
	}{
		{"blank", Answer{}, "null"},
		{"single", Answer{Letters: []string{"A"}}, `"A"`},
		{"multiple", Answer{Letters: []string{"A", "C"}}, `["A","C"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.answer)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestAnswerUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"null", "null", nil},
		{"single", `"B"`, []string{"B"}},
		{"multiple", `["B","D"]`, []string{"B", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Answer
			if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(a.Letters, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, a.Letters)
			}
		})
	}
}

func TestAnswerUnmarshalInvalid(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte("42"), &a); err == nil {
		t.Error("Expected error for numeric answer")
	}
}

func TestAnswerStateHelpers(t *testing.T) {
	blank := Answer{}
	if !blank.Blank() || blank.Multiple() {
		t.Error("Expected blank answer state")
	}
	if _, ok := blank.Single(); ok {
		t.Error("Expected no single letter for blank answer")
	}

	single := Answer{Letters: []string{"C"}}
	if letter, ok := single.Single(); !ok || letter != "C" {
		t.Errorf("Expected single C, got %q %v", letter, ok)
	}

	multi := Answer{Letters: []string{"A", "B"}}
	if !multi.Multiple() {
		t.Error("Expected multi-mark state")
	}
}

func TestAnswerMapQuestionsNumericOrder(t *testing.T) {
	m := AnswerMap{
		"10": {}, "2": {}, "1": {}, "100": {},
	}
	got := m.Questions()
	expected := []string{"1", "2", "10", "100"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestOptionLetter(t *testing.T) {
	tests := []struct {
		position int
		expected string
	}{
		{0, "A"}, {1, "B"}, {2, "C"}, {3, "D"}, {25, "Z"},
	}
	for _, tt := range tests {
		if got := OptionLetter(tt.position); got != tt.expected {
			t.Errorf("OptionLetter(%d): expected %s, got %s", tt.position, tt.expected, got)
		}
	}
}

func TestGridQuestionCountSkipsDegradedRows(t *testing.T) {
	grid := &Grid{
		Rows: [][]int{
			make([]int, 8),
			make([]int, 8),
		},
		Diagnostics: GridDiagnostics{DegradedRows: []int{1}},
	}
	if got := grid.QuestionCount(4); got != 2 {
		t.Errorf("Expected 2 questions, got %d", got)
	}
}

func TestGridEmptyAndDegraded(t *testing.T) {
	var nilGrid *Grid
	if !nilGrid.Empty() {
		t.Error("Expected nil grid to be empty")
	}
	if nilGrid.Degraded() {
		t.Error("Expected nil grid not degraded")
	}

	grid := &Grid{Bubbles: []Bubble{{}}}
	if grid.Empty() {
		t.Error("Expected non-empty grid")
	}
}

func TestDefaultProcessingOptionsLayout(t *testing.T) {
	opts := DefaultProcessingOptions()
	if opts.TotalQuestions() != 100 {
		t.Errorf("Expected 100 questions, got %d", opts.TotalQuestions())
	}
	letters := opts.ValidLetters()
	if !reflect.DeepEqual(letters, []string{"A", "B", "C", "D"}) {
		t.Errorf("Expected A-D, got %v", letters)
	}
}

func TestProcessingOptionsWithModifiers(t *testing.T) {
	opts := DefaultProcessingOptions()

	strict := opts.WithStrictGrid()
	if !strict.StrictGrid || opts.StrictGrid {
		t.Error("Expected WithStrictGrid to copy, not mutate")
	}

	tuned := opts.WithConfidenceThreshold(0.9)
	if tuned.ConfidenceThreshold != 0.9 || opts.ConfidenceThreshold == 0.9 {
		t.Error("Expected WithConfidenceThreshold to copy, not mutate")
	}

	custom := opts.WithLayout([]string{"History"}, 10, 5)
	if custom.TotalQuestions() != 10 {
		t.Errorf("Expected 10 questions, got %d", custom.TotalQuestions())
	}
	if letters := custom.ValidLetters(); len(letters) != 5 || letters[4] != "E" {
		t.Errorf("Expected 5 options ending at E, got %v", letters)
	}
}

func TestNormalizedFillsOnlyUnsetFields(t *testing.T) {
	partial := ProcessingOptions{ConfidenceThreshold: 0.9, OptionsPerQuestion: 5}
	got := partial.Normalized()

	if got.ConfidenceThreshold != 0.9 {
		t.Errorf("Expected confidence threshold 0.9 to survive, got %f", got.ConfidenceThreshold)
	}
	if got.OptionsPerQuestion != 5 {
		t.Errorf("Expected 5 options per question to survive, got %d", got.OptionsPerQuestion)
	}
	if got.QuestionsPerSubject != 20 {
		t.Errorf("Expected default questions per subject, got %d", got.QuestionsPerSubject)
	}
	if len(got.Subjects) != 5 {
		t.Errorf("Expected default subjects, got %v", got.Subjects)
	}
	if got.FillThreshold != 0.5 {
		t.Errorf("Expected default fill threshold, got %f", got.FillThreshold)
	}
	if got.Detection.MinArea == 0 {
		t.Error("Expected default detection filter to be filled in")
	}
}

func TestNormalizedKeepsCompleteOptions(t *testing.T) {
	opts := DefaultProcessingOptions().WithConfidenceThreshold(0.55)
	if got := opts.Normalized(); !reflect.DeepEqual(got, opts) {
		t.Errorf("Expected complete options to pass through unchanged, got %+v", got)
	}
}
