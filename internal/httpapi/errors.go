package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chatd/internal/manager"
	"chatd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known manager errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsBudgetExceeded(err):
		return http.StatusInsufficientStorage
	case manager.IsLoadFailure(err):
		return http.StatusBadGateway
	case manager.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsOverloaded(err):
		return http.StatusTooManyRequests
	case manager.IsSwapConflict(err), manager.IsAlreadyResident(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Handlers return early when the client is gone, so a Canceled
		// reaching here was service-initiated (forced drain on swap).
		return http.StatusServiceUnavailable
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeMappedError maps err to a status code, bumps the backpressure
// counter on 429s, and writes the JSON error payload.
func writeMappedError(w http.ResponseWriter, err error) int {
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("admission")
	}
	writeJSONError(w, status, err.Error())
	return status
}
