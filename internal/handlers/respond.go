// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the prepstack taxonomy
// API. Handlers are grouped by concern (categories, labels, queries,
// items) and receive their dependencies through the handler struct. They
// decode, delegate to the stores and the engine, and encode — no
// taxonomy rules live here.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"prepstack/internal/models"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// writeError maps a domain error to an HTTP status and encodes it.
// Unrecognized errors become an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrDuplicateCode),
		errors.Is(err, models.ErrDuplicateSibling),
		errors.Is(err, models.ErrHasChildren),
		errors.Is(err, models.ErrAncestryCycle):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrCategoryMismatch),
		errors.Is(err, models.ErrCyclicBatchReference):
		status, message = http.StatusUnprocessableEntity, err.Error()
	default:
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Error: message})
}

// badRequest reports a client mistake the domain never saw, like an
// unreadable body or a failed validation.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decodeBody decodes a JSON request body into dst, rejecting unknown
// fields so typos in payloads fail loudly instead of being ignored.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
