package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/domain"
)

func TestHandoffStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewHandoffStore(client, time.Minute)

	option := "right"
	payload := domain.HandoffPayload{
		Email: "alice@example.com",
		Answers: []domain.AnswerRecord{
			{QuestionID: 1, SelectedOption: &option},
			{QuestionID: 2},
		},
		Questions: []domain.Question{
			{ID: 1, Text: "q1", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
			{ID: 2, Text: "q2", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
		},
		TimeSpent: 120,
		TotalTime: 1800,
	}

	if err := store.Put(ctx, "s1", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("quiz:handoff:s1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:handoff:s1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	got, ok, err := store.Peek(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("peek: ok=%v err=%v", ok, err)
	}
	if got.Email != payload.Email || len(got.Answers) != 2 || got.Answers[1].SelectedOption != nil {
		t.Fatalf("unexpected payload %+v", got)
	}
	if *got.Answers[0].SelectedOption != "right" {
		t.Fatalf("expected selection preserved, got %+v", got.Answers[0])
	}
}

func TestHandoffStoreTakeConsumes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewHandoffStore(client, time.Minute)

	_ = store.Put(ctx, "s1", domain.HandoffPayload{Email: "alice@example.com"})

	if _, ok, err := store.Take(ctx, "s1"); err != nil || !ok {
		t.Fatalf("take: ok=%v err=%v", ok, err)
	}
	if mr.Exists("quiz:handoff:s1") {
		t.Fatalf("expected key removed after take")
	}
	if _, ok, _ := store.Peek(ctx, "s1"); ok {
		t.Fatalf("expected empty slot after take")
	}
}

func TestHandoffStoreClear(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewHandoffStore(client, time.Minute)

	_ = store.Put(ctx, "s1", domain.HandoffPayload{Email: "alice@example.com"})
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz:handoff:s1") {
		t.Fatalf("expected key removed after clear")
	}
}
