// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "errors"

// Error kinds returned by the stores and the taxonomy engine. Callers
// match them with errors.Is; the HTTP layer maps them onto statuses.
var (
	// ErrNotFound reports a missing or soft-deleted entity.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode reports a category code already in use among
	// non-deleted categories, case-insensitively.
	ErrDuplicateCode = errors.New("duplicate category code")

	// ErrDuplicateSibling reports a label name already in use among its
	// non-deleted siblings, case-insensitively.
	ErrDuplicateSibling = errors.New("duplicate sibling label name")

	// ErrCategoryMismatch reports a parent label living in a different
	// category than its would-be child.
	ErrCategoryMismatch = errors.New("parent label in different category")

	// ErrHasChildren reports a delete rejected because non-deleted
	// children or labels still reference the entity.
	ErrHasChildren = errors.New("has dependent children")

	// ErrCyclicBatchReference reports a bulk batch whose in-batch parent
	// references form a cycle.
	ErrCyclicBatchReference = errors.New("cyclic reference in batch")

	// ErrAncestryCycle reports a re-parent that would place a label under
	// its own subtree.
	ErrAncestryCycle = errors.New("re-parent would create a cycle")

	// ErrAllocationExhausted reports identifier allocation giving up
	// after its bounded retries all collided.
	ErrAllocationExhausted = errors.New("identifier allocation exhausted")
)
