package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/domain"
)

// HandoffStore is a Redis-backed implementation of app.HandoffRepository.
// Payloads are stored as JSON blobs with a TTL so abandoned results expire
// on their own even if the user never starts another attempt.
type HandoffStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHandoffStore(client *redis.Client, ttl time.Duration) *HandoffStore {
	return &HandoffStore{client: client, ttl: ttl}
}

func (s *HandoffStore) Put(ctx context.Context, sessionID string, payload domain.HandoffPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal handoff payload: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store handoff payload: %w", err)
	}
	return nil
}

func (s *HandoffStore) Peek(ctx context.Context, sessionID string) (domain.HandoffPayload, bool, error) {
	return s.decode(s.client.Get(ctx, s.key(sessionID)).Bytes())
}

func (s *HandoffStore) Take(ctx context.Context, sessionID string) (domain.HandoffPayload, bool, error) {
	return s.decode(s.client.GetDel(ctx, s.key(sessionID)).Bytes())
}

func (s *HandoffStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *HandoffStore) decode(data []byte, err error) (domain.HandoffPayload, bool, error) {
	if errors.Is(err, redis.Nil) {
		return domain.HandoffPayload{}, false, nil
	}
	if err != nil {
		return domain.HandoffPayload{}, false, fmt.Errorf("load handoff payload: %w", err)
	}
	var payload domain.HandoffPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.HandoffPayload{}, false, fmt.Errorf("unmarshal handoff payload: %w", err)
	}
	return payload, true, nil
}

func (s *HandoffStore) key(sessionID string) string {
	return "quiz:handoff:" + sessionID
}
