package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

// ResultsHandler serves the scored report for a submitted session.
type ResultsHandler struct {
	service *app.QuizService
}

func NewResultsHandler(service *app.QuizService) *ResultsHandler {
	return &ResultsHandler{service: service}
}

// ServeHTTP handles GET (render the report) and DELETE (take another quiz,
// clearing the handoff slot). A missing or unknown session is not an error
// to the user: they are sent back to the start page instead.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		report, err := h.service.Result(r.Context(), sessionID)
		switch {
		case errors.Is(err, domain.ErrResultNotFound):
			http.Redirect(w, r, "/", http.StatusSeeOther)
		case errors.Is(err, domain.ErrNoQuestions):
			http.Error(w, "no questions in submitted session", http.StatusUnprocessableEntity)
		case err != nil:
			log.Printf("result lookup failed for session %s: %v", sessionID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(report)
		}
	case http.MethodDelete:
		if err := h.service.Restart(r.Context(), sessionID); err != nil {
			log.Printf("restart failed for session %s: %v", sessionID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
