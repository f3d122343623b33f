package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/quiz"
)

var (
	errBadRequest = errors.New("bad request")
	// errUpstream marks catalog fetch failures other than a missing document.
	errUpstream = errors.New("catalog unavailable")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrLessonNotFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, catalog.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrLessonLocked):
		return http.StatusForbidden
	case errors.Is(err, errUpstream), errors.Is(err, quiz.ErrEmptyQuiz):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
