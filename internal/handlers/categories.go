// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"prepstack/internal/store"
)

// Categories groups the category HTTP handlers and their dependencies.
type Categories struct {
	categories *store.CategoryStore
}

// NewCategories creates a new Categories handler group.
func NewCategories(categories *store.CategoryStore) *Categories {
	return &Categories{categories: categories}
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Create handles POST /api/categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateName(req.Name); msg != "" {
		badRequest(w, msg)
		return
	}
	// An omitted code is derived from the name.
	if req.Code == "" {
		req.Code = req.Name
	}
	if msg := validateCode(req.Code); msg != "" {
		badRequest(w, msg)
		return
	}
	if msg := validateDescription(req.Description); msg != "" {
		badRequest(w, msg)
		return
	}

	category, err := h.categories.Create(r.Context(), strings.TrimSpace(req.Name), req.Code, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// List handles GET /api/categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		results, err := h.categories.Search(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	categories, err := h.categories.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Get handles GET /api/categories/{id}. A code works in place of an id,
// so clients can bookmark the stable human-readable form.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")

	category, err := h.categories.FindByID(r.Context(), key)
	if err != nil {
		category, err = h.categories.FindByCode(r.Context(), key)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PUT /api/categories/{id}/active.
func (h *Categories) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.categories.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.categories.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
