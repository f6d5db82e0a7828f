package memory

import (
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()

	state := app.NewState("alice@example.com", nil, 60, time.Now())
	session := app.NewSession("s1", state, 60, nil)

	registry.Put(session)
	if got, ok := registry.Get("s1"); !ok || got.ID() != "s1" {
		t.Fatalf("expected session present, got ok=%v", ok)
	}

	registry.Delete("s1")
	if _, ok := registry.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
