package domain

import "errors"

var (
	// ErrInvalidEmail is returned when the supplied email is empty or malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrNoQuestions indicates the question source returned an empty batch.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrResultNotFound indicates no handoff payload exists for the session.
	ErrResultNotFound = errors.New("quiz result not found")
	// ErrTriviaUnavailable indicates the remote trivia service could not serve questions.
	ErrTriviaUnavailable = errors.New("trivia service unavailable")
)
