// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/fsm"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
)

// errBadRequest marks request decoding and argument failures.
var errBadRequest = errors.New("bad request")

// errNotFound marks lookups of things other than queue items.
var errNotFound = errors.New("not found")

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a stable error token.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, token := classify(err)
	if code >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.request_failed").
			Str(log.FieldMethod, r.Method).
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, code, errorResponse{
		Error:     token,
		Detail:    err.Error(),
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNoItem), errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrNotPlayable):
		return http.StatusUnprocessableEntity, "not_playable"
	case errors.Is(err, fsm.ErrInvalidTransition):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrUnknownQuality),
		errors.Is(err, cuepoint.ErrInvalidWindow),
		errors.Is(err, events.ErrInvalidSpec):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, engine.ErrClosed),
		errors.Is(err, loop.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}
