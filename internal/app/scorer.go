package app

import (
	"math"

	"quiz-assessment-service/internal/domain"
)

// Score computes the result report for a submitted session. It is a pure
// function of the handoff payload: answers are matched to questions by ID and
// compared with exact string equality. An absent selection always scores as
// incorrect; the report keeps UserAnswer nil so the caller can still render
// it as unanswered. An empty question set is rejected outright.
func Score(payload domain.HandoffPayload) (domain.ResultReport, error) {
	if len(payload.Questions) == 0 {
		return domain.ResultReport{}, domain.ErrNoQuestions
	}

	byQuestion := make(map[int]domain.AnswerRecord, len(payload.Answers))
	for _, a := range payload.Answers {
		byQuestion[a.QuestionID] = a
	}

	perQuestion := make([]domain.QuestionResult, 0, len(payload.Questions))
	correct := 0
	for _, q := range payload.Questions {
		answer := byQuestion[q.ID]
		isCorrect := answer.SelectedOption != nil && *answer.SelectedOption == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		perQuestion = append(perQuestion, domain.QuestionResult{
			Question:      q,
			UserAnswer:    answer.SelectedOption,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     isCorrect,
		})
	}

	total := len(payload.Questions)
	return domain.ResultReport{
		Email:            payload.Email,
		PerQuestion:      perQuestion,
		CorrectCount:     correct,
		TotalCount:       total,
		Percentage:       int(math.Round(100 * float64(correct) / float64(total))),
		TimeSpentSeconds: payload.TimeSpent,
	}, nil
}
