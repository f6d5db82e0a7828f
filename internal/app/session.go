package app

import (
	"sync"
	"time"

	"quiz-assessment-service/internal/domain"
)

// Event is a discrete input to the session state machine.
type Event interface{ isEvent() }

// SelectAnswer records an option for the question currently on screen.
type SelectAnswer struct{ Option string }

// GoTo navigates directly to a question index.
type GoTo struct{ Index int }

// Next advances to the following question.
type Next struct{}

// Previous returns to the preceding question.
type Previous struct{}

// Tick consumes one second of remaining time.
type Tick struct{}

// Submit finalizes the session.
type Submit struct{}

func (SelectAnswer) isEvent() {}
func (GoTo) isEvent()         {}
func (Next) isEvent()         {}
func (Previous) isEvent()     {}
func (Tick) isEvent()         {}
func (Submit) isEvent()       {}

// State holds everything the state machine tracks for one quiz attempt.
// It is a value: Transition never mutates its input.
type State struct {
	Email         string
	Questions     []domain.Question
	CurrentIndex  int
	Answers       []domain.AnswerRecord
	Visited       map[int]bool
	TimeRemaining int
	Submitted     bool
	StartTime     time.Time
}

// NewState builds the initial Active state for a loaded question set.
// The first question is on screen from the start, so index 0 counts as visited.
func NewState(email string, questions []domain.Question, duration int, start time.Time) State {
	answers := make([]domain.AnswerRecord, len(questions))
	for i, q := range questions {
		answers[i] = domain.AnswerRecord{QuestionID: q.ID}
	}
	return State{
		Email:         email,
		Questions:     questions,
		Answers:       answers,
		Visited:       map[int]bool{0: true},
		TimeRemaining: duration,
		StartTime:     start,
	}
}

// Transition applies one event and returns the resulting state. Once
// Submitted is set the state is terminal and every event is a no-op.
// Out-of-range navigation is rejected silently.
func Transition(s State, ev Event) State {
	if s.Submitted {
		return s
	}
	switch e := ev.(type) {
	case SelectAnswer:
		answers := make([]domain.AnswerRecord, len(s.Answers))
		copy(answers, s.Answers)
		option := e.Option
		answers[s.CurrentIndex].SelectedOption = &option
		s.Answers = answers
	case GoTo:
		s = goTo(s, e.Index)
	case Next:
		s = goTo(s, s.CurrentIndex+1)
	case Previous:
		s = goTo(s, s.CurrentIndex-1)
	case Tick:
		if s.TimeRemaining > 0 {
			s.TimeRemaining--
		}
	case Submit:
		s.Submitted = true
	}
	return s
}

func goTo(s State, index int) State {
	if index < 0 || index >= len(s.Questions) {
		return s
	}
	visited := make(map[int]bool, len(s.Visited)+1)
	for k := range s.Visited {
		visited[k] = true
	}
	visited[index] = true
	s.Visited = visited
	s.CurrentIndex = index
	return s
}

// StatusOf classifies a question index for the navigation grid.
func StatusOf(s State, index int) domain.QuestionStatus {
	if index >= 0 && index < len(s.Answers) && s.Answers[index].SelectedOption != nil {
		return domain.StatusAnswered
	}
	if s.Visited[index] {
		return domain.StatusVisited
	}
	return domain.StatusUnvisited
}

// Snapshot is the broadcast view of a session, pushed to subscribers on
// every state change.
type Snapshot struct {
	CurrentIndex  int                     `json:"currentIndex"`
	TimeRemaining int                     `json:"timeRemaining"`
	Statuses      []domain.QuestionStatus `json:"statuses"`
	Submitted     bool                    `json:"submitted"`
}

// Session wraps a State with locking, subscriber fan-out, lifecycle
// signalling, and the submit-once handoff emit. All mutation goes through
// Apply so the reducer stays the single source of transitions.
type Session struct {
	id        string
	totalTime int
	onSubmit  func(domain.HandoffPayload)

	mu          sync.RWMutex
	state       State
	emitted     bool
	subscribers map[chan Snapshot]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession is exported for infrastructure layers and tests that need to
// seed sessions directly; the service normally builds them itself.
func NewSession(id string, state State, totalTime int, onSubmit func(domain.HandoffPayload)) *Session {
	return &Session{
		id:          id,
		totalTime:   totalTime,
		onSubmit:    onSubmit,
		state:       state,
		subscribers: make(map[chan Snapshot]struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Questions returns the session's question set.
func (s *Session) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Questions
}

// TotalTime returns the configured session duration in seconds.
func (s *Session) TotalTime() int { return s.totalTime }

// Done is closed when the session terminates, by submission or abandonment.
func (s *Session) Done() <-chan struct{} { return s.done }

// Apply runs one event through the reducer and notifies subscribers.
// A tick that exhausts the clock forces the same terminal submit transition
// as a manual submit; the handoff payload is emitted exactly once.
func (s *Session) Apply(ev Event) Snapshot {
	s.mu.Lock()
	s.state = Transition(s.state, ev)
	if _, ok := ev.(Tick); ok && s.state.TimeRemaining == 0 {
		s.state = Transition(s.state, Submit{})
	}

	var payload domain.HandoffPayload
	emit := false
	if s.state.Submitted && !s.emitted {
		s.emitted = true
		emit = true
		payload = s.payloadLocked()
	}
	snap := s.broadcastLocked()
	s.mu.Unlock()

	if emit {
		if s.onSubmit != nil {
			s.onSubmit(payload)
		}
		s.close()
	}
	return snap
}

// Abandon terminates an unsubmitted session so its ticker stops. The state
// itself is discarded by the registry; nothing is emitted.
func (s *Session) Abandon() {
	s.close()
}

func (s *Session) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Snapshot returns the current broadcast view without applying an event.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotOf(s.state)
}

// Subscribe returns a channel receiving state snapshots, starting with the
// current one. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := snapshotOf(s.state)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() Snapshot {
	snap := snapshotOf(s.state)
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow reader never blocks the tick path.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) payloadLocked() domain.HandoffPayload {
	answers := make([]domain.AnswerRecord, len(s.state.Answers))
	copy(answers, s.state.Answers)
	return domain.HandoffPayload{
		Email:     s.state.Email,
		Answers:   answers,
		Questions: s.state.Questions,
		TimeSpent: s.totalTime - s.state.TimeRemaining,
		TotalTime: s.totalTime,
	}
}

func snapshotOf(s State) Snapshot {
	statuses := make([]domain.QuestionStatus, len(s.Questions))
	for i := range s.Questions {
		statuses[i] = StatusOf(s, i)
	}
	return Snapshot{
		CurrentIndex:  s.CurrentIndex,
		TimeRemaining: s.TimeRemaining,
		Statuses:      statuses,
		Submitted:     s.Submitted,
	}
}
