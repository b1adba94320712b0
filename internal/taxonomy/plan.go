// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"fmt"

	"prepstack/internal/models"
	"prepstack/internal/store"
)

// PlanOrder computes a processing order for a bulk-create batch such that
// every spec referencing an in-batch parent comes after it. References to
// persisted labels impose no ordering. Independent specs keep their input
// order, which makes batch processing deterministic and failures easier
// to trace. A self- or mutual reference fails with ErrCyclicBatchReference
// before anything touches the database.
func PlanOrder(specs []store.BulkSpec) ([]int, error) {
	for i, spec := range specs {
		if spec.ParentID != nil && spec.ParentIndex != nil {
			return nil, fmt.Errorf("plan batch: spec %d sets both parent id and parent index", i)
		}
		if spec.ParentIndex != nil {
			ref := *spec.ParentIndex
			if ref < 0 || ref >= len(specs) {
				return nil, fmt.Errorf("plan batch: spec %d references index %d out of range", i, ref)
			}
			if ref == i {
				return nil, fmt.Errorf("plan batch: spec %d references itself: %w", i, models.ErrCyclicBatchReference)
			}
		}
	}

	// Repeated input-order sweeps: place every spec whose in-batch parent
	// is already placed. Quadratic in the worst case, but batches are
	// admin-sized and the sweep keeps ties in input order for free.
	order := make([]int, 0, len(specs))
	placed := make([]bool, len(specs))
	for len(order) < len(specs) {
		progressed := false
		for i, spec := range specs {
			if placed[i] {
				continue
			}
			if spec.ParentIndex != nil && !placed[*spec.ParentIndex] {
				continue
			}
			order = append(order, i)
			placed[i] = true
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("plan batch: %w", models.ErrCyclicBatchReference)
		}
	}
	return order, nil
}
