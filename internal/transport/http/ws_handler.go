package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-assessment-service/internal/app"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
	TotalTime int    `json:"totalTime"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one quiz attempt over a websocket. The client supplies its
// email up front, receives the question set and a session id, then drives the
// session with select/goto/next/previous/submit messages while the server
// pushes state snapshots (including every countdown tick). Disconnecting
// before submission abandons the session and stops its ticker.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.Start(r.Context(), email)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()

	updates, cancel, err := h.service.Subscribe(sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer func() {
		// Cleanup contract: a discarded session must not keep ticking.
		if !session.Snapshot().Submitted {
			h.service.Abandon(sessionID)
		}
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; snapshots and replies funnel through send so
	// the connection never sees concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		SessionID: sessionID,
		TotalTime: session.TotalTime(),
	}}
	send <- outboundMessage[any]{Type: "questions", Payload: session.Questions()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ev, ok := h.decodeEvent(inbound)
		if !ok {
			// Guarded send: the writer may already have exited on a write error.
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}:
			case <-writerDone:
			}
			continue
		}
		if _, err := h.service.Apply(sessionID, ev); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) decodeEvent(msg inboundMessage) (app.Event, bool) {
	switch msg.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, false
		}
		return app.SelectAnswer{Option: payload.Option}, true
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, false
		}
		return app.GoTo{Index: payload.Index}, true
	case "next":
		return app.Next{}, true
	case "previous":
		return app.Previous{}, true
	case "submit":
		return app.Submit{}, true
	default:
		return nil, false
	}
}
