// Package api provides the HTTP API handlers for the learning modes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/quiz"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrUnknownSlot),
		errors.Is(err, lang.ErrUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrNoItems):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, quiz.ErrAttemptLocked),
		errors.Is(err, quiz.ErrAlreadyMatched),
		errors.Is(err, quiz.ErrAnswerRevealed),
		errors.Is(err, quiz.ErrFinished),
		errors.Is(err, quiz.ErrClosed),
		errors.Is(err, quiz.ErrNotAnswered),
		errors.Is(err, quiz.ErrStale):
		return http.StatusConflict
	case errors.Is(err, app.ErrCameraUnavailable),
		errors.Is(err, quiz.ErrNoFrame),
		errors.Is(err, capture.ErrCameraNotOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
