// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prepstack/internal/models"
	"prepstack/internal/store"
	"prepstack/internal/taxonomy"
)

// Labels groups the label HTTP handlers and their dependencies. Bulk
// creation goes through the engine so batches are planned before any
// write happens.
type Labels struct {
	labels *store.LabelStore
	engine *taxonomy.Engine
}

// NewLabels creates a new Labels handler group.
func NewLabels(labels *store.LabelStore, engine *taxonomy.Engine) *Labels {
	return &Labels{labels: labels, engine: engine}
}

type createLabelRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
	ParentID    *string `json:"parent_id"`
}

// Create handles POST /api/labels.
func (h *Labels) Create(w http.ResponseWriter, r *http.Request) {
	var req createLabelRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateName(req.Name); msg != "" {
		badRequest(w, msg)
		return
	}
	if msg := validateDescription(req.Description); msg != "" {
		badRequest(w, msg)
		return
	}
	if req.CategoryID == "" {
		badRequest(w, "category_id is required.")
		return
	}

	label, err := h.labels.Create(r.Context(), store.CreateLabelParams{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

// Get handles GET /api/labels/{id}.
func (h *Labels) Get(w http.ResponseWriter, r *http.Request) {
	label, err := h.labels.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// updateLabelRequest distinguishes absent fields from explicit nulls:
// parent_id stays raw so `"parent_id": null` (make it a root) is not
// confused with leaving the parent alone.
type updateLabelRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Active      *bool           `json:"active"`
	ParentID    json.RawMessage `json:"parent_id"`
}

// Update handles PATCH /api/labels/{id}.
func (h *Labels) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLabelRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Name != nil {
		if msg := validateName(*req.Name); msg != "" {
			badRequest(w, msg)
			return
		}
	}
	if req.Description != nil {
		if msg := validateDescription(*req.Description); msg != "" {
			badRequest(w, msg)
			return
		}
	}

	params := store.UpdateLabelParams{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	}
	if len(req.ParentID) > 0 {
		params.SetParent = true
		if err := json.Unmarshal(req.ParentID, &params.ParentID); err != nil {
			badRequest(w, "parent_id must be a string or null")
			return
		}
	}

	label, err := h.labels.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// Delete handles DELETE /api/labels/{id}.
func (h *Labels) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.labels.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reactivate handles POST /api/labels/{id}/reactivate.
func (h *Labels) Reactivate(w http.ResponseWriter, r *http.Request) {
	label, err := h.labels.Reactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// Children handles GET /api/labels/{id}/children.
func (h *Labels) Children(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.labels.FindByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	children, err := h.labels.Children(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if children == nil {
		children = []models.Label{}
	}
	writeJSON(w, http.StatusOK, children)
}

type bulkSpecRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
	ParentID    *string `json:"parent_id"`
	ParentIndex *int    `json:"parent_index"`
}

type bulkCreateRequest struct {
	Labels []bulkSpecRequest `json:"labels"`
}

// CreateBulk handles POST /api/labels/bulk. The batch may arrive in any
// order; in-batch parents are referenced by index into the labels array.
func (h *Labels) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkCreateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Labels) == 0 {
		badRequest(w, "labels must not be empty.")
		return
	}
	if len(req.Labels) > maxBulkSpecs {
		badRequest(w, fmt.Sprintf("too many labels in one batch (max %d).", maxBulkSpecs))
		return
	}

	specs := make([]store.BulkSpec, len(req.Labels))
	for i, l := range req.Labels {
		if msg := validateName(l.Name); msg != "" {
			badRequest(w, fmt.Sprintf("labels[%d]: %s", i, msg))
			return
		}
		if msg := validateDescription(l.Description); msg != "" {
			badRequest(w, fmt.Sprintf("labels[%d]: %s", i, msg))
			return
		}
		if l.CategoryID == "" {
			badRequest(w, fmt.Sprintf("labels[%d]: category_id is required.", i))
			return
		}
		specs[i] = store.BulkSpec{
			Name:        l.Name,
			Description: l.Description,
			CategoryID:  l.CategoryID,
			ParentID:    l.ParentID,
			ParentIndex: l.ParentIndex,
		}
	}

	created, err := h.engine.CreateBulk(r.Context(), specs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
