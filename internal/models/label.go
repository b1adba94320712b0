// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Label is a tag, optionally nested under a parent label within the same
// category. The tree edge is stored once, on the child, as ParentID; a
// label's category is immutable after creation.
type Label struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	CategoryID  string     `json:"category_id"`
	ParentID    *string    `json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// IsRoot returns true if the label has no parent.
func (l *Label) IsRoot() bool {
	return l.ParentID == nil
}
