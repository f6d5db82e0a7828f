package memory

import (
	"context"
	"sync"

	"quiz-assessment-service/internal/domain"
)

// HandoffStore is an in-memory implementation of app.HandoffRepository.
// Payloads survive until taken or cleared, never across process restarts.
type HandoffStore struct {
	mu       sync.RWMutex
	payloads map[string]domain.HandoffPayload
}

func NewHandoffStore() *HandoffStore {
	return &HandoffStore{
		payloads: make(map[string]domain.HandoffPayload),
	}
}

// Put overwrites any existing payload for the session unconditionally.
func (s *HandoffStore) Put(_ context.Context, sessionID string, payload domain.HandoffPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[sessionID] = payload
	return nil
}

func (s *HandoffStore) Peek(_ context.Context, sessionID string) (domain.HandoffPayload, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.payloads[sessionID]
	return payload, ok, nil
}

func (s *HandoffStore) Take(_ context.Context, sessionID string) (domain.HandoffPayload, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[sessionID]
	if ok {
		delete(s.payloads, sessionID)
	}
	return payload, ok, nil
}

func (s *HandoffStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, sessionID)
	return nil
}
