package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

type stubSource struct{ questions []domain.Question }

func (s stubSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	return s.questions, nil
}

type idleTicker struct{ ch chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.ch }
func (idleTicker) Stop()                 {}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	questions := []domain.Question{
		{ID: 1, Text: "q1", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
		{ID: 2, Text: "q2", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
	}
	service := app.NewQuizServiceWithTicker(
		memory.NewSessionRegistry(),
		stubSource{questions: questions},
		memory.NewHandoffStore(),
		30*time.Minute,
		func() app.TickSource { return idleTicker{ch: make(chan time.Time)} },
		time.Now,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	mux.Handle("/results", NewResultsHandler(service))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func TestQuizFlowOverWebSocket(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?email=alice@example.com"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sessionID := awaitSessionStart(conn, t)

	writeMsg(conn, t, "select", map[string]any{"option": "right"})
	writeMsg(conn, t, "next", nil)
	writeMsg(conn, t, "submit", nil)

	// Snapshots stream until the terminal one arrives.
	deadline := time.Now().Add(5 * time.Second)
	submitted := false
	for !submitted && time.Now().Before(deadline) {
		typ, payload := readNext(conn, t)
		if typ != "state" {
			continue
		}
		var snap app.Snapshot
		decodePayload(t, payload, &snap)
		submitted = snap.Submitted
	}
	if !submitted {
		t.Fatalf("never saw a submitted snapshot")
	}

	report := fetchReport(t, server.URL, sessionID)
	if report.CorrectCount != 1 || report.TotalCount != 2 || report.Percentage != 50 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Email != "alice@example.com" {
		t.Fatalf("expected email in report, got %q", report.Email)
	}

	// Take another quiz: the slot is cleared and the results view redirects.
	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/results?session="+sessionID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete results: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	if status := resultStatus(t, server.URL, sessionID); status != http.StatusSeeOther {
		t.Fatalf("expected redirect after clear, got %d", status)
	}
}

func TestWSRequiresEmail(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", resp.StatusCode)
	}
}

func TestWSInvalidEmailGetsErrorEvent(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?email=notanemail"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readNext(conn, t)
	if typ != "error" {
		t.Fatalf("expected error event, got %s", typ)
	}
	var errPayload errorPayload
	decodePayload(t, payload, &errPayload)
	if errPayload.Message != domain.ErrInvalidEmail.Error() {
		t.Fatalf("unexpected error message %q", errPayload.Message)
	}
}

func TestWSUnsupportedMessageType(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?email=alice@example.com"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	awaitSessionStart(conn, t)

	writeMsg(conn, t, "bogus", nil)

	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t)
		if typ != "error" {
			continue
		}
		var errPayload errorPayload
		decodePayload(t, payload, &errPayload)
		if errPayload.Message != "unsupported message type" {
			t.Fatalf("unexpected error message %q", errPayload.Message)
		}
		return
	}
	t.Fatalf("never saw the error event")
}

func TestDisconnectAbandonsSession(t *testing.T) {
	server, service := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?email=alice@example.com"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sessionID := awaitSessionStart(conn, t)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := service.Apply(sessionID, app.Next{}); errors.Is(err, domain.ErrSessionNotFound) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected session to be abandoned after disconnect")
}

func TestResultsMissingSessionRedirects(t *testing.T) {
	server, _ := newTestServer(t)
	if status := resultStatus(t, server.URL, "unknown"); status != http.StatusSeeOther {
		t.Fatalf("expected redirect for unknown session, got %d", status)
	}
}

// awaitSessionStart reads until both the session and questions events have
// arrived; their order relative to the first state snapshot is not fixed.
func awaitSessionStart(conn *websocket.Conn, t *testing.T) string {
	t.Helper()
	sessionID := ""
	questionsSeen := false
	for i := 0; i < 10 && (sessionID == "" || !questionsSeen); i++ {
		typ, payload := readNext(conn, t)
		switch typ {
		case "session":
			var sp sessionPayload
			decodePayload(t, payload, &sp)
			sessionID = sp.SessionID
			// The advertised total is the configured duration, independent
			// of any ticks that fired before the event was sent.
			if sp.TotalTime != int((30 * time.Minute).Seconds()) {
				t.Fatalf("expected totalTime 1800, got %d", sp.TotalTime)
			}
		case "questions":
			var questions []domain.Question
			decodePayload(t, payload, &questions)
			if len(questions) != 2 {
				t.Fatalf("expected 2 questions, got %d", len(questions))
			}
			questionsSeen = true
		}
	}
	if sessionID == "" || !questionsSeen {
		t.Fatalf("session start incomplete: id=%q questions=%v", sessionID, questionsSeen)
	}
	return sessionID
}

func writeMsg(conn *websocket.Conn, t *testing.T, typ string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func decodePayload(t *testing.T, payload json.RawMessage, out any) {
	t.Helper()
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

func fetchReport(t *testing.T, baseURL, sessionID string) domain.ResultReport {
	t.Helper()
	resp, err := http.Get(baseURL + "/results?session=" + sessionID)
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var report domain.ResultReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return report
}

func resultStatus(t *testing.T, baseURL, sessionID string) int {
	t.Helper()
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(baseURL + "/results?session=" + sessionID)
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}
