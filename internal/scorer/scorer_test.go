package scorer

import (
	"math"
	"strconv"
	"testing"

	"go-omr-engine/pkg/models"
)

var testSubjects = []string{"Mathematics", "Physics", "Chemistry", "Biology", "English"}

func fullKey(letter string) map[string]string {
	key := make(map[string]string, 100)
	for i := 1; i <= 100; i++ {
		key[strconv.Itoa(i)] = letter
	}
	return key
}

func fullAnswers(letter string) models.AnswerMap {
	answers := make(models.AnswerMap, 100)
	for i := 1; i <= 100; i++ {
		answers[strconv.Itoa(i)] = models.Answer{Letters: []string{letter}}
	}
	return answers
}

func TestScoreAllCorrect(t *testing.T) {
	s := New(testSubjects, 20, 20)

	result := s.Score(fullAnswers("B"), fullKey("B"))

	if result.CorrectAnswers != 100 {
		t.Errorf("Expected 100 correct, got %d", result.CorrectAnswers)
	}
	if result.TotalQuestions != 100 {
		t.Errorf("Expected 100 total, got %d", result.TotalQuestions)
	}
	if result.TotalScore != 100 {
		t.Errorf("Expected total score 100, got %f", result.TotalScore)
	}
	for _, subject := range testSubjects {
		breakdown := result.SubjectScores[subject]
		if breakdown.Correct != 20 || breakdown.Score != 20 || breakdown.Percentage != 100 {
			t.Errorf("Subject %s: expected 20/20 at 100%%, got %+v", subject, breakdown)
		}
	}
}

func TestScoreCaseInsensitiveMatch(t *testing.T) {
	s := New(testSubjects, 20, 20)

	answers := models.AnswerMap{"1": {Letters: []string{"a"}}}
	result := s.Score(answers, map[string]string{"1": "A"})

	if result.CorrectAnswers != 1 {
		t.Errorf("Expected lowercase answer to match, got %d correct", result.CorrectAnswers)
	}
}

func TestScoreBlankAndMultiAreIncorrect(t *testing.T) {
	s := New(testSubjects, 20, 20)

	answers := models.AnswerMap{
		"1": {},                               // blank
		"2": {Letters: []string{"A", "B"}},    // multi-mark
		"3": {Letters: []string{"C"}},         // correct
		"4": {Letters: []string{"D"}},         // wrong letter
	}
	key := map[string]string{"1": "A", "2": "A", "3": "C", "4": "A"}

	result := s.Score(answers, key)

	if result.CorrectAnswers != 1 {
		t.Errorf("Expected exactly 1 correct, got %d", result.CorrectAnswers)
	}
	if result.TotalQuestions != 4 {
		t.Errorf("Expected 4 graded questions, got %d", result.TotalQuestions)
	}
}

func TestScoreSubjectPartitioning(t *testing.T) {
	s := New(testSubjects, 20, 20)

	// Question 21 belongs to the second subject.
	answers := models.AnswerMap{"21": {Letters: []string{"A"}}}
	result := s.Score(answers, map[string]string{"21": "A"})

	if result.SubjectScores["Physics"].Correct != 1 {
		t.Errorf("Expected question 21 credited to Physics, got %+v", result.SubjectScores)
	}
	if result.SubjectScores["Mathematics"].Correct != 0 {
		t.Error("Expected no credit in Mathematics")
	}
}

func TestScoreScaledSubjectScore(t *testing.T) {
	s := New(testSubjects, 20, 20)

	// 5 of 20 correct in the first subject scales to 5 points.
	answers := make(models.AnswerMap)
	key := make(map[string]string)
	for i := 1; i <= 20; i++ {
		qid := strconv.Itoa(i)
		key[qid] = "A"
		if i <= 5 {
			answers[qid] = models.Answer{Letters: []string{"A"}}
		} else {
			answers[qid] = models.Answer{Letters: []string{"B"}}
		}
	}

	result := s.Score(answers, key)

	math1 := result.SubjectScores["Mathematics"]
	if math1.Correct != 5 {
		t.Errorf("Expected 5 correct, got %d", math1.Correct)
	}
	if math.Abs(math1.Score-5) > 1e-9 {
		t.Errorf("Expected scaled score 5, got %f", math1.Score)
	}
	if math.Abs(math1.Percentage-25) > 1e-9 {
		t.Errorf("Expected 25%%, got %f", math1.Percentage)
	}
}

func TestScoreIgnoresOutOfRangeQuestions(t *testing.T) {
	s := New(testSubjects, 20, 20)

	answers := models.AnswerMap{"101": {Letters: []string{"A"}}}
	result := s.Score(answers, map[string]string{"101": "A"})

	if result.TotalQuestions != 0 || result.CorrectAnswers != 0 {
		t.Errorf("Expected out-of-range question ignored, got %+v", result)
	}
}

func TestScoreSkipsQuestionsMissingFromKey(t *testing.T) {
	s := New(testSubjects, 20, 20)

	answers := models.AnswerMap{"1": {Letters: []string{"A"}}}
	result := s.Score(answers, map[string]string{})

	if result.TotalQuestions != 0 {
		t.Errorf("Expected no graded questions without key entries, got %d", result.TotalQuestions)
	}
}
