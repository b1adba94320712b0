// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind identifies which external subsystem owns an associated item.
// The taxonomy core never dereferences items; kinds exist so the seed and
// registration surface stay readable.
type ItemKind string

const (
	ItemKindQuestion ItemKind = "question"
	ItemKindArticle  ItemKind = "article"
	ItemKindMCQ      ItemKind = "mcq"
	ItemKindDesign   ItemKind = "design"
)

// Association records that an external item is tagged with a label.
// Rows are written by the item subsystems and only read by the core
// (counts and sampling), keyed by (label_id, item_id).
type Association struct {
	LabelID   string    `json:"label_id"`
	ItemID    uuid.UUID `json:"item_id"`
	ItemKind  ItemKind  `json:"item_kind"`
	CreatedAt time.Time `json:"created_at"`
}
