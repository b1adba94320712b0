// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"prepstack/internal/models"
)

// AssociationStore reads the label-item association table maintained by
// the question, article and MCQ subsystems. The taxonomy core never
// interprets item ids; it only counts and samples them. Attach and Detach
// are the registration surface those subsystems call.
type AssociationStore struct {
	db *sql.DB
}

// NewAssociationStore returns a new AssociationStore.
func NewAssociationStore(db *sql.DB) *AssociationStore {
	return &AssociationStore{db: db}
}

// Attach records that an item is tagged with a label. Attaching the same
// pair twice is a no-op. The label must exist and be non-deleted.
func (s *AssociationStore) Attach(ctx context.Context, labelID string, itemID uuid.UUID, kind models.ItemKind) error {
	var labelOK bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM labels WHERE id = $1 AND `+notDeleted+`)`, labelID,
	).Scan(&labelOK)
	if err != nil {
		return fmt.Errorf("check label: %w", err)
	}
	if !labelOK {
		return fmt.Errorf("label %s: %w", labelID, models.ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO label_items (label_id, item_id, item_kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (label_id, item_id) DO NOTHING
	`, labelID, itemID, kind)
	if err != nil {
		return fmt.Errorf("attach item: %w", err)
	}
	return nil
}

// Detach removes a label-item association. Detaching a pair that does not
// exist is a no-op.
func (s *AssociationStore) Detach(ctx context.Context, labelID string, itemID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM label_items WHERE label_id = $1 AND item_id = $2`, labelID, itemID)
	if err != nil {
		return fmt.Errorf("detach item: %w", err)
	}
	return nil
}

// CountDistinct counts distinct item ids associated with any of the given
// labels. Counting distinct items, not association rows, keeps an item
// tagged with several labels in the set from being counted twice.
func (s *AssociationStore) CountDistinct(ctx context.Context, labelIDs []string) (int64, error) {
	if len(labelIDs) == 0 {
		return 0, nil
	}

	args := make([]any, len(labelIDs))
	for i, id := range labelIDs {
		args[i] = id
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT item_id) FROM label_items WHERE label_id IN (`+inPlaceholders(1, len(labelIDs))+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// SampleDistinct draws up to n distinct item ids from the associations of
// the given labels, uniformly over the qualifying set at call time. Fewer
// than n qualifying items returns all of them.
func (s *AssociationStore) SampleDistinct(ctx context.Context, labelIDs []string, n int) ([]uuid.UUID, error) {
	if len(labelIDs) == 0 || n <= 0 {
		return nil, nil
	}

	args := make([]any, len(labelIDs)+1)
	for i, id := range labelIDs {
		args[i] = id
	}
	args[len(labelIDs)] = n

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id FROM (
			SELECT DISTINCT item_id FROM label_items
			WHERE label_id IN (`+inPlaceholders(1, len(labelIDs))+`)
		) qualifying
		ORDER BY random()
		LIMIT $`+fmt.Sprint(len(labelIDs)+1),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sample items: %w", err)
	}
	defer rows.Close()

	var items []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		items = append(items, id)
	}
	return items, rows.Err()
}
