package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
)

// SessionRepository abstracts how live quiz sessions are tracked.
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionSource fetches a normalized batch of questions (remote trivia
// service, Postgres question bank, etc).
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// HandoffRepository carries the frozen payload of a submitted session from
// the quiz flow to the results flow.
type HandoffRepository interface {
	Put(ctx context.Context, sessionID string, payload domain.HandoffPayload) error
	Peek(ctx context.Context, sessionID string) (domain.HandoffPayload, bool, error)
	Take(ctx context.Context, sessionID string) (domain.HandoffPayload, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// TickSource delivers the once-per-second heartbeat driving a countdown.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct{ ticker *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.ticker.C }
func (w wallTicker) Stop()               { w.ticker.Stop() }

// QuizService contains the quiz use cases: starting an attempt, forwarding
// session events, and producing the scored report.
type QuizService struct {
	sessions  SessionRepository
	source    QuestionSource
	handoff   HandoffRepository
	duration  int
	newTicker func() TickSource
	now       func() time.Time
	newID     func() string
}

func NewQuizService(sessions SessionRepository, source QuestionSource, handoff HandoffRepository, duration time.Duration) *QuizService {
	return &QuizService{
		sessions: sessions,
		source:   source,
		handoff:  handoff,
		duration: int(duration / time.Second),
		newTicker: func() TickSource {
			return wallTicker{ticker: time.NewTicker(time.Second)}
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// NewQuizServiceWithTicker is test-only for driving the countdown manually.
func NewQuizServiceWithTicker(sessions SessionRepository, source QuestionSource, handoff HandoffRepository, duration time.Duration, newTicker func() TickSource, now func() time.Time) *QuizService {
	s := NewQuizService(sessions, source, handoff, duration)
	s.newTicker = newTicker
	s.now = now
	return s
}

// Start validates the email, fetches the question batch, and opens a session
// with its countdown running. The caller shows a loading state until this
// returns; an empty batch is rejected rather than producing a zero-question
// attempt.
func (s *QuizService) Start(ctx context.Context, email string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, domain.ErrInvalidEmail
	}

	questions, err := s.source.FetchQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	id := s.newID()
	state := NewState(email, questions, s.duration, s.now())
	session := NewSession(id, state, s.duration, func(payload domain.HandoffPayload) {
		// Handoff uses a fresh context: the submit may be forced by the
		// ticker long after the originating request context is gone.
		if err := s.handoff.Put(context.Background(), id, payload); err != nil {
			log.Printf("handoff write failed for session %s: %v", id, err)
		}
	})

	s.sessions.Put(session)
	go s.runCountdown(session)
	return session, nil
}

func (s *QuizService) runCountdown(session *Session) {
	ticker := s.newTicker()
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			session.Apply(Tick{})
		case <-session.Done():
			return
		}
	}
}

// Apply forwards one event to a session and returns the resulting snapshot.
func (s *QuizService) Apply(sessionID string, ev Event) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Apply(ev), nil
}

// Subscribe returns a snapshot channel for a session. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Abandon stops the countdown and drops the session. This is the cleanup
// path for clients that disconnect before submitting; an unsubmitted session
// leaves no handoff payload behind.
func (s *QuizService) Abandon(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Abandon()
	s.sessions.Delete(sessionID)
}

// Result scores the handed-off payload for a session. The payload stays in
// the store so the report can be re-read until the user starts over.
func (s *QuizService) Result(ctx context.Context, sessionID string) (domain.ResultReport, error) {
	payload, ok, err := s.handoff.Peek(ctx, sessionID)
	if err != nil {
		return domain.ResultReport{}, err
	}
	if !ok {
		return domain.ResultReport{}, domain.ErrResultNotFound
	}
	return Score(payload)
}

// Restart clears the handoff slot when the user starts a new attempt. A
// still-active session is abandoned first so its countdown cannot expire
// later and repopulate the slot being cleared.
func (s *QuizService) Restart(ctx context.Context, sessionID string) error {
	if session, ok := s.sessions.Get(sessionID); ok {
		session.Abandon()
	}
	s.sessions.Delete(sessionID)
	return s.handoff.Clear(ctx, sessionID)
}
