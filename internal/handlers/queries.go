// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"prepstack/internal/taxonomy"
)

// Queries groups the hierarchy read handlers over the taxonomy engine.
type Queries struct {
	engine *taxonomy.Engine
}

// NewQueries creates a new Queries handler group.
func NewQueries(engine *taxonomy.Engine) *Queries {
	return &Queries{engine: engine}
}

// scopeParam reads the ?scope query parameter, defaulting to subtree —
// the common case for navigation and practice-set building.
func scopeParam(r *http.Request) (taxonomy.Scope, bool) {
	raw := r.URL.Query().Get("scope")
	if raw == "" {
		return taxonomy.ScopeSubtree, true
	}
	scope := taxonomy.Scope(raw)
	return scope, scope.Valid()
}

type descendantsResponse struct {
	LabelID string   `json:"label_id"`
	IDs     []string `json:"ids"`
}

// Descendants handles GET /api/labels/{id}/descendants.
func (h *Queries) Descendants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ids, err := h.engine.Descendants(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, descendantsResponse{LabelID: id, IDs: ids})
}

type countResponse struct {
	LabelID string `json:"label_id"`
	Scope   string `json:"scope"`
	Count   int64  `json:"count"`
}

// Count handles GET /api/labels/{id}/count?scope=self|subtree.
func (h *Queries) Count(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(r)
	if !ok {
		badRequest(w, "scope must be \"self\" or \"subtree\".")
		return
	}

	id := chi.URLParam(r, "id")
	n, err := h.engine.ItemCount(r.Context(), id, scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{LabelID: id, Scope: string(scope), Count: n})
}

type sampleResponse struct {
	LabelID string   `json:"label_id"`
	Scope   string   `json:"scope"`
	Items   []string `json:"items"`
}

// Sample handles GET /api/labels/{id}/sample?n=10&scope=self|subtree.
func (h *Queries) Sample(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(r)
	if !ok {
		badRequest(w, "scope must be \"self\" or \"subtree\".")
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(w, "n must be a positive integer.")
			return
		}
		n = parsed
	}
	if n > maxSampleSize {
		badRequest(w, fmt.Sprintf("n is too large (max %d).", maxSampleSize))
		return
	}

	id := chi.URLParam(r, "id")
	items, err := h.engine.RandomSample(r.Context(), id, scope, n)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.String()
	}
	writeJSON(w, http.StatusOK, sampleResponse{LabelID: id, Scope: string(scope), Items: out})
}

// Navigation handles GET /api/labels/{id}/navigation.
func (h *Queries) Navigation(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.NavigationView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
