package domain

// Question is a single multiple-choice question as presented to the user.
// Options are already shuffled and always contain CorrectAnswer exactly once.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// AnswerRecord tracks the user's selection for one question.
// SelectedOption is nil until the user picks an option.
type AnswerRecord struct {
	QuestionID     int     `json:"questionId"`
	SelectedOption *string `json:"selectedOption"`
}

// HandoffPayload is the frozen snapshot of a submitted session, written once
// to the handoff store and consumed by the scorer.
type HandoffPayload struct {
	Email     string         `json:"email"`
	Answers   []AnswerRecord `json:"answers"`
	Questions []Question     `json:"questions"`
	TimeSpent int            `json:"timeSpent"`
	TotalTime int            `json:"totalTime"`
}

// QuestionResult pairs a question with the user's answer and its verdict.
type QuestionResult struct {
	Question      Question `json:"question"`
	UserAnswer    *string  `json:"userAnswer"`
	CorrectAnswer string   `json:"correctAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
}

// ResultReport is the scored report for one completed session. It is derived
// from a HandoffPayload and never stored.
type ResultReport struct {
	Email            string           `json:"email"`
	PerQuestion      []QuestionResult `json:"perQuestion"`
	CorrectCount     int              `json:"correctCount"`
	TotalCount       int              `json:"totalCount"`
	Percentage       int              `json:"percentage"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
}

// QuestionStatus classifies a question for the navigation grid.
type QuestionStatus string

const (
	StatusAnswered  QuestionStatus = "answered"
	StatusVisited   QuestionStatus = "visited"
	StatusUnvisited QuestionStatus = "unvisited"
)
