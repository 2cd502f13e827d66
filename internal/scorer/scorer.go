package scorer

import (
	"strconv"
	"strings"

	"go-omr-engine/pkg/models"
)

// Scorer compares mapped answers against an answer key.
type Scorer struct {
	subjects            []string
	questionsPerSubject int
	subjectMaxScore     float64
}

// New creates a Scorer for the given subject layout. Subject i owns
// questions [i*k+1, (i+1)*k] where k is questionsPerSubject.
func New(subjects []string, questionsPerSubject int, subjectMaxScore float64) *Scorer {
	if questionsPerSubject <= 0 {
		questionsPerSubject = 20
	}
	if subjectMaxScore <= 0 {
		subjectMaxScore = 20
	}
	return &Scorer{
		subjects:            subjects,
		questionsPerSubject: questionsPerSubject,
		subjectMaxScore:     subjectMaxScore,
	}
}

// Score grades the answer map. A question counts correct only when the
// mapped answer is a single letter matching the key case-insensitively;
// blank and multi-marked answers are always incorrect, never partially
// credited. Question numbers outside the configured subject span are
// ignored.
func (s *Scorer) Score(answers models.AnswerMap, key map[string]string) *models.ScoreResult {
	result := &models.ScoreResult{
		Subjects:      append([]string(nil), s.subjects...),
		SubjectScores: make(map[string]models.SubjectScore, len(s.subjects)),
	}
	correctBySubject := make(map[string]int, len(s.subjects))
	for _, subject := range s.subjects {
		correctBySubject[subject] = 0
	}

	for qid, answer := range answers {
		correct, ok := key[qid]
		if !ok {
			continue
		}
		questionNum, err := strconv.Atoi(qid)
		if err != nil || questionNum < 1 {
			continue
		}

		subjectIdx := (questionNum - 1) / s.questionsPerSubject
		if subjectIdx >= len(s.subjects) {
			continue
		}
		subject := s.subjects[subjectIdx]
		result.TotalQuestions++

		letter, single := answer.Single()
		if single && strings.EqualFold(letter, correct) {
			correctBySubject[subject]++
			result.CorrectAnswers++
		}
	}

	for _, subject := range s.subjects {
		correct := correctBySubject[subject]
		breakdown := models.SubjectScore{
			Correct: correct,
			Total:   s.questionsPerSubject,
		}
		if breakdown.Total > 0 {
			breakdown.Percentage = float64(correct) / float64(breakdown.Total) * 100
			breakdown.Score = float64(correct) / float64(breakdown.Total) * s.subjectMaxScore
		}
		result.SubjectScores[subject] = breakdown
		result.TotalScore += breakdown.Score
	}

	return result
}
