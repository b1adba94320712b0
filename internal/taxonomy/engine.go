// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package taxonomy holds the logic layered over the label stores: bulk
// batch planning and the hierarchy read side — descendant closures,
// deduplicated item counts, random sampling, and the navigation
// projection used by presentation layers.
package taxonomy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"prepstack/internal/cache"
	"prepstack/internal/models"
	"prepstack/internal/store"
)

// Scope selects whether a count or sample covers a single label or its
// whole subtree.
type Scope string

const (
	ScopeSelf    Scope = "self"
	ScopeSubtree Scope = "subtree"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeSelf || s == ScopeSubtree
}

// Engine answers hierarchy queries and runs bulk creation over the label
// tree. The count cache is optional; without it every count is computed
// from the database.
type Engine struct {
	labels *store.LabelStore
	assocs *store.AssociationStore
	counts *cache.CountCache
}

// NewEngine creates an engine over the given stores. counts may be nil.
func NewEngine(labels *store.LabelStore, assocs *store.AssociationStore, counts *cache.CountCache) *Engine {
	return &Engine{labels: labels, assocs: assocs, counts: counts}
}

// Descendants returns the transitive closure of a label's children,
// including the label itself, as a breadth-first list of ids. A missing
// or deleted label is an error; an existing label always yields at least
// itself.
func (e *Engine) Descendants(ctx context.Context, labelID string) ([]string, error) {
	if _, err := e.labels.FindByID(ctx, labelID); err != nil {
		return nil, err
	}

	closure := []string{labelID}
	queue := []string{labelID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := e.labels.ChildrenIDs(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("descendants of %s: %w", labelID, err)
		}
		closure = append(closure, children...)
		queue = append(queue, children...)
	}
	return closure, nil
}

// scopeIDs resolves the label set a scoped query runs over.
func (e *Engine) scopeIDs(ctx context.Context, labelID string, scope Scope) ([]string, error) {
	switch scope {
	case ScopeSelf:
		if _, err := e.labels.FindByID(ctx, labelID); err != nil {
			return nil, err
		}
		return []string{labelID}, nil
	case ScopeSubtree:
		return e.Descendants(ctx, labelID)
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

// ItemCount counts distinct items associated with the label (ScopeSelf)
// or with any label in its subtree (ScopeSubtree). An item tagged with
// several labels of the subtree counts once. Results may be served from
// the count cache and be slightly stale.
func (e *Engine) ItemCount(ctx context.Context, labelID string, scope Scope) (int64, error) {
	if e.counts != nil {
		if n, ok := e.counts.Get(ctx, labelID, string(scope)); ok {
			return n, nil
		}
	}

	ids, err := e.scopeIDs(ctx, labelID, scope)
	if err != nil {
		return 0, err
	}
	n, err := e.assocs.CountDistinct(ctx, ids)
	if err != nil {
		return 0, err
	}

	if e.counts != nil {
		e.counts.Set(ctx, labelID, string(scope), n)
	}
	return n, nil
}

// RandomSample draws up to n distinct items from the scope's association
// set, uniformly at call time. Fewer qualifying items than n returns all
// of them; the sample is intentionally not deterministic across calls.
func (e *Engine) RandomSample(ctx context.Context, labelID string, scope Scope, n int) ([]uuid.UUID, error) {
	ids, err := e.scopeIDs(ctx, labelID, scope)
	if err != nil {
		return nil, err
	}
	return e.assocs.SampleDistinct(ctx, ids, n)
}

// NavigationCounts carries the two item counts shown next to a label.
type NavigationCounts struct {
	Self    int64 `json:"self"`
	Subtree int64 `json:"subtree"`
}

// NavigationView is the read-only composite handed to presentation
// layers: the label, its surroundings and its counts. Purely a projection
// over the other queries, no invariants of its own.
type NavigationView struct {
	Self        *models.Label    `json:"self"`
	Parent      *models.Label    `json:"parent,omitempty"`
	Children    []models.Label   `json:"children"`
	HasChildren bool             `json:"has_children"`
	IsRoot      bool             `json:"is_root"`
	Counts      NavigationCounts `json:"counts"`
}

// NavigationView assembles the navigation projection for a label.
func (e *Engine) NavigationView(ctx context.Context, labelID string) (*NavigationView, error) {
	self, err := e.labels.FindByID(ctx, labelID)
	if err != nil {
		return nil, err
	}

	view := &NavigationView{Self: self, IsRoot: self.IsRoot()}

	if self.ParentID != nil {
		parent, err := e.labels.FindByID(ctx, *self.ParentID)
		if err != nil {
			return nil, fmt.Errorf("navigation parent: %w", err)
		}
		view.Parent = parent
	}

	children, err := e.labels.Children(ctx, labelID)
	if err != nil {
		return nil, err
	}
	view.Children = children
	view.HasChildren = len(children) > 0

	if view.Counts.Self, err = e.ItemCount(ctx, labelID, ScopeSelf); err != nil {
		return nil, err
	}
	if view.Counts.Subtree, err = e.ItemCount(ctx, labelID, ScopeSubtree); err != nil {
		return nil, err
	}
	return view, nil
}

// CreateBulk materializes an unordered batch of label specs, resolving
// in-batch parent references. The batch is planned first — a cyclic
// reference rejects the whole batch before any write — then persisted
// atomically; the created labels come back in input order.
func (e *Engine) CreateBulk(ctx context.Context, specs []store.BulkSpec) ([]*models.Label, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	order, err := PlanOrder(specs)
	if err != nil {
		return nil, err
	}
	return e.labels.CreateBulk(ctx, specs, order)
}

// AttachItem registers an item association and drops the cached counts of
// the label and every ancestor, whose subtree counts just changed.
func (e *Engine) AttachItem(ctx context.Context, labelID string, itemID uuid.UUID, kind models.ItemKind) error {
	if err := e.assocs.Attach(ctx, labelID, itemID, kind); err != nil {
		return err
	}
	e.invalidateUpward(ctx, labelID)
	return nil
}

// DetachItem removes an item association, invalidating like AttachItem.
func (e *Engine) DetachItem(ctx context.Context, labelID string, itemID uuid.UUID) error {
	if err := e.assocs.Detach(ctx, labelID, itemID); err != nil {
		return err
	}
	e.invalidateUpward(ctx, labelID)
	return nil
}

// invalidateUpward drops cached counts for a label and its ancestors.
// Best effort: a failed walk just leaves counts to expire by TTL, which
// the staleness contract of the read side already allows.
func (e *Engine) invalidateUpward(ctx context.Context, labelID string) {
	if e.counts == nil {
		return
	}
	ids := []string{labelID}
	cursor := labelID
	for {
		l, err := e.labels.FindByID(ctx, cursor)
		if err != nil || l.ParentID == nil {
			break
		}
		ids = append(ids, *l.ParentID)
		cursor = *l.ParentID
	}
	e.counts.Invalidate(ctx, ids...)
}
