// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"prepstack/internal/ident"
	"prepstack/internal/models"
)

// LabelStore manages the label tree in the database. Each label belongs
// to exactly one category, forever; a parent, when set, must be a
// non-deleted label in the same category.
type LabelStore struct {
	db *sql.DB
}

// NewLabelStore returns a new LabelStore.
func NewLabelStore(db *sql.DB) *LabelStore {
	return &LabelStore{db: db}
}

const labelColumns = `id, name, description, active, category_id, parent_id, created_at, updated_at, deleted_at`

// scanLabel scans a row into a Label struct.
func scanLabel(scanner interface{ Scan(...any) error }) (*models.Label, error) {
	var l models.Label
	err := scanner.Scan(
		&l.ID, &l.Name, &l.Description, &l.Active,
		&l.CategoryID, &l.ParentID,
		&l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLabelParams carries the inputs for a single label creation.
type CreateLabelParams struct {
	Name        string
	Description string
	CategoryID  string
	ParentID    *string
}

// Create validates and inserts one label, allocating its identifier.
func (s *LabelStore) Create(ctx context.Context, p CreateLabelParams) (*models.Label, error) {
	return createLabelIn(ctx, s.db, p)
}

// createLabelIn runs the full validate-allocate-insert sequence against q,
// which is either the pool or an open bulk transaction.
func createLabelIn(ctx context.Context, q querier, p CreateLabelParams) (*models.Label, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("create label: name is required")
	}

	// The category must exist, be active and not deleted.
	var categoryOK bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories WHERE id = $1 AND active AND `+notDeleted+`
		)`, p.CategoryID,
	).Scan(&categoryOK)
	if err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if !categoryOK {
		return nil, fmt.Errorf("category %s: %w", p.CategoryID, models.ErrNotFound)
	}

	// A parent must exist, be non-deleted, and live in the same category.
	if p.ParentID != nil {
		var parentCategory string
		err := q.QueryRowContext(ctx,
			`SELECT category_id FROM labels WHERE id = $1 AND `+notDeleted,
			*p.ParentID,
		).Scan(&parentCategory)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("parent label %s: %w", *p.ParentID, models.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("check parent label: %w", err)
		}
		if parentCategory != p.CategoryID {
			return nil, fmt.Errorf("parent %s is in category %s: %w",
				*p.ParentID, parentCategory, models.ErrCategoryMismatch)
		}
	}

	taken, err := siblingExists(ctx, q, name, p.CategoryID, p.ParentID, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("label %q: %w", name, models.ErrDuplicateSibling)
	}

	// Identifiers are probed against the full table, deleted rows
	// included, since they are never reused.
	alloc := ident.NewAllocator(func(ctx context.Context, id string) (bool, error) {
		var exists bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM labels WHERE id = $1)`, id,
		).Scan(&exists)
		return exists, err
	})
	id, err := alloc.Allocate(ctx, ident.KindLabel)
	if err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}

	row := q.QueryRowContext(ctx, `
		INSERT INTO labels (id, name, description, category_id, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+labelColumns,
		id, name, p.Description, p.CategoryID, p.ParentID,
	)
	l, err := scanLabel(row)
	if isUniqueViolation(err, "labels_sibling_unique") {
		// A concurrent creator won the race on the same sibling triple.
		return nil, fmt.Errorf("label %q: %w", name, models.ErrDuplicateSibling)
	}
	if err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}
	return l, nil
}

// siblingExists reports whether a non-deleted label other than excludeID
// already uses the name within (categoryID, parentID), case-insensitively.
// Root labels (nil parent) share one bucket per category.
func siblingExists(ctx context.Context, q querier, name, categoryID string, parentID *string, excludeID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM labels
			WHERE LOWER(name) = LOWER($1)
			  AND category_id = $2
			  AND parent_id IS NOT DISTINCT FROM $3
			  AND id <> $4
			  AND `+notDeleted+`
		)`, name, categoryID, parentID, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check sibling name: %w", err)
	}
	return exists, nil
}

// FindByID retrieves a non-deleted label by id.
func (s *LabelStore) FindByID(ctx context.Context, id string) (*models.Label, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE id = $1 AND `+notDeleted, id)
	l, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("label %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find label by id: %w", err)
	}
	return l, nil
}

// FindByNameInScope retrieves the non-deleted label with the given
// case-insensitive name under (categoryID, parentID). Used by the
// uniqueness pre-check's callers and by idempotent bulk imports.
func (s *LabelStore) FindByNameInScope(ctx context.Context, name, categoryID string, parentID *string) (*models.Label, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+labelColumns+` FROM labels
		WHERE LOWER(name) = LOWER($1)
		  AND category_id = $2
		  AND parent_id IS NOT DISTINCT FROM $3
		  AND `+notDeleted,
		name, categoryID, parentID)
	l, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("label %q in scope: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find label in scope: %w", err)
	}
	return l, nil
}

// Children returns the non-deleted children of a label, ordered by name.
func (s *LabelStore) Children(ctx context.Context, id string) ([]models.Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE parent_id = $1 AND `+notDeleted+` ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var items []models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		items = append(items, *l)
	}
	return items, rows.Err()
}

// ChildrenIDs returns the ids of the non-deleted children of a label.
func (s *LabelStore) ChildrenIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM labels WHERE parent_id = $1 AND `+notDeleted+` ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("list child ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var childID string
		if err := rows.Scan(&childID); err != nil {
			return nil, fmt.Errorf("scan child id: %w", err)
		}
		ids = append(ids, childID)
	}
	return ids, rows.Err()
}

// HasChildren reports whether a label has non-deleted children.
func (s *LabelStore) HasChildren(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM labels WHERE parent_id = $1 AND `+notDeleted+`)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check children: %w", err)
	}
	return exists, nil
}

// UpdateLabelParams carries the optional fields of a label update.
// SetParent distinguishes "re-parent to ParentID (nil makes it a root)"
// from "leave the parent alone".
type UpdateLabelParams struct {
	Name        *string
	Description *string
	Active      *bool
	SetParent   bool
	ParentID    *string
}

// Update modifies a non-deleted label. Renaming re-checks sibling
// uniqueness within the (possibly new) parent scope. Re-parenting
// verifies the new parent is in the same category and is not a descendant
// of the label, otherwise ErrAncestryCycle.
func (s *LabelStore) Update(ctx context.Context, id string, p UpdateLabelParams) (*models.Label, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if p.Name != nil {
		name = strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("update label: name cannot be empty")
		}
	}
	description := current.Description
	if p.Description != nil {
		description = *p.Description
	}
	active := current.Active
	if p.Active != nil {
		active = *p.Active
	}

	parentID := current.ParentID
	if p.SetParent {
		parentID = p.ParentID
	}

	reparented := p.SetParent && !sameParent(parentID, current.ParentID)
	if reparented && parentID != nil {
		newParent, err := s.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if newParent.CategoryID != current.CategoryID {
			return nil, fmt.Errorf("parent %s is in category %s: %w",
				newParent.ID, newParent.CategoryID, models.ErrCategoryMismatch)
		}
		if err := s.checkAncestry(ctx, id, *parentID); err != nil {
			return nil, err
		}
	}

	if name != current.Name || reparented {
		taken, err := siblingExists(ctx, s.db, name, current.CategoryID, parentID, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("label %q: %w", name, models.ErrDuplicateSibling)
		}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE labels
		SET name = $1, description = $2, active = $3, parent_id = $4, updated_at = NOW()
		WHERE id = $5 AND `+notDeleted+`
		RETURNING `+labelColumns,
		name, description, active, parentID, id,
	)
	l, err := scanLabel(row)
	if isUniqueViolation(err, "labels_sibling_unique") {
		return nil, fmt.Errorf("label %q: %w", name, models.ErrDuplicateSibling)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("label %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update label: %w", err)
	}
	return l, nil
}

// checkAncestry walks up from newParentID and fails with ErrAncestryCycle
// if it reaches id. The walk is bounded by tree depth; the persisted tree
// is acyclic, so it terminates.
func (s *LabelStore) checkAncestry(ctx context.Context, id, newParentID string) error {
	cursor := newParentID
	for {
		if cursor == id {
			return fmt.Errorf("label %s: %w", id, models.ErrAncestryCycle)
		}
		var parent *string
		err := s.db.QueryRowContext(ctx,
			`SELECT parent_id FROM labels WHERE id = $1 AND `+notDeleted, cursor,
		).Scan(&parent)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walk ancestry: %w", err)
		}
		if parent == nil {
			return nil
		}
		cursor = *parent
	}
}

// sameParent compares two nullable parent ids.
func sameParent(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// Delete soft-deletes a label. Deletion is rejected with ErrHasChildren
// while non-deleted children exist — the caller must delete or re-parent
// them first, rather than have a cascade silently take out a subtree.
func (s *LabelStore) Delete(ctx context.Context, id string) error {
	hasChildren, err := s.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("label %s: %w", id, models.ErrHasChildren)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE labels SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND `+notDeleted, id)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("label %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Reactivate reverses a soft delete. The sibling-uniqueness check runs
// again as if the label were being created, since a sibling with the same
// name may have been created while this one was deleted; the parent must
// also still be alive.
func (s *LabelStore) Reactivate(ctx context.Context, id string) (*models.Label, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE id = $1`, id)
	l, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("label %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reactivate label: %w", err)
	}
	if l.DeletedAt == nil {
		return l, nil
	}

	if l.ParentID != nil {
		if _, err := s.FindByID(ctx, *l.ParentID); err != nil {
			return nil, fmt.Errorf("reactivate label: parent: %w", err)
		}
	}

	taken, err := siblingExists(ctx, s.db, l.Name, l.CategoryID, l.ParentID, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("label %q: %w", l.Name, models.ErrDuplicateSibling)
	}

	row = s.db.QueryRowContext(ctx, `
		UPDATE labels SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING `+labelColumns, id)
	l, err = scanLabel(row)
	if isUniqueViolation(err, "labels_sibling_unique") {
		return nil, fmt.Errorf("label %s: %w", id, models.ErrDuplicateSibling)
	}
	if err != nil {
		return nil, fmt.Errorf("reactivate label: %w", err)
	}
	return l, nil
}

// BulkSpec is one unordered entry of a bulk-create batch. At most one of
// ParentID and ParentIndex may be set: ParentID references an existing
// persisted label, ParentIndex a sibling spec in the same batch.
type BulkSpec struct {
	Name        string
	Description string
	CategoryID  string
	ParentID    *string
	ParentIndex *int
}

// CreateBulk materializes a batch in the given processing order inside a
// single transaction. The order must already satisfy parent-before-child
// for in-batch references (see taxonomy.PlanOrder); in-batch parent
// references are resolved to the identifiers assigned earlier in the same
// transaction. Any failure rolls the whole batch back — later specs may
// depend on earlier ones by identity, so partial taxonomies are never
// committed. Results are returned in input order.
func (s *LabelStore) CreateBulk(ctx context.Context, specs []BulkSpec, order []int) ([]*models.Label, error) {
	if len(order) != len(specs) {
		return nil, fmt.Errorf("create bulk: order covers %d of %d specs", len(order), len(specs))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create bulk: begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]*models.Label, len(specs))
	for _, i := range order {
		spec := specs[i]

		parentID := spec.ParentID
		if spec.ParentIndex != nil {
			ref := *spec.ParentIndex
			if ref < 0 || ref >= len(specs) {
				return nil, fmt.Errorf("create bulk: spec %d references index %d out of range", i, ref)
			}
			parent := created[ref]
			if parent == nil {
				// PlanOrder guarantees the referenced spec was processed
				// first; reaching this means the order was not planned.
				return nil, fmt.Errorf("create bulk: spec %d processed before its parent %d", i, ref)
			}
			parentID = &parent.ID
		}

		l, err := createLabelIn(ctx, tx, CreateLabelParams{
			Name:        spec.Name,
			Description: spec.Description,
			CategoryID:  spec.CategoryID,
			ParentID:    parentID,
		})
		if err != nil {
			return nil, fmt.Errorf("create bulk: spec %d: %w", i, err)
		}
		created[i] = l
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create bulk: commit: %w", err)
	}
	return created, nil
}
