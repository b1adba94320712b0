// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Category is a flat, named grouping that partitions labels into
// independent namespaces (e.g. "Data Structure", "Company"). The code is
// unique among non-deleted categories and immutable after creation.
type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`

	// Virtual field populated by store methods.
	LabelCount int `json:"label_count,omitempty"`
}
