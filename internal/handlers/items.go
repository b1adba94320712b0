// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"prepstack/internal/models"
	"prepstack/internal/taxonomy"
)

// Items is the registration surface the question, article and MCQ
// subsystems call to tag and untag their items. Attach and detach go
// through the engine so cached counts are invalidated along the way.
type Items struct {
	engine *taxonomy.Engine
}

// NewItems creates a new Items handler group.
func NewItems(engine *taxonomy.Engine) *Items {
	return &Items{engine: engine}
}

type attachItemRequest struct {
	ItemID   string `json:"item_id"`
	ItemKind string `json:"item_kind"`
}

// validItemKind reports whether a kind names a known item subsystem.
func validItemKind(kind models.ItemKind) bool {
	switch kind {
	case models.ItemKindQuestion, models.ItemKindArticle, models.ItemKindMCQ, models.ItemKindDesign:
		return true
	}
	return false
}

// Attach handles POST /api/labels/{id}/items.
func (h *Items) Attach(w http.ResponseWriter, r *http.Request) {
	var req attachItemRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		badRequest(w, "item_id must be a UUID.")
		return
	}
	kind := models.ItemKind(req.ItemKind)
	if !validItemKind(kind) {
		badRequest(w, "item_kind must be one of: question, article, mcq, design.")
		return
	}

	if err := h.engine.AttachItem(r.Context(), chi.URLParam(r, "id"), itemID, kind); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Detach handles DELETE /api/labels/{id}/items/{itemID}.
func (h *Items) Detach(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		badRequest(w, "item id must be a UUID.")
		return
	}

	if err := h.engine.DetachItem(r.Context(), chi.URLParam(r, "id"), itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
