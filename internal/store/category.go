// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"prepstack/internal/ident"
	"prepstack/internal/models"
	"prepstack/internal/slug"
)

// CategoryStore manages label categories in the database.
type CategoryStore struct {
	db    *sql.DB
	alloc *ident.Allocator
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	s := &CategoryStore{db: db}
	s.alloc = ident.NewAllocator(s.idExists)
	return s
}

// idExists probes the full table including soft-deleted rows, because
// identifiers are never reused.
func (s *CategoryStore) idExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

const categoryColumns = `id, name, code, description, active, created_at, updated_at, deleted_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Code, &c.Description, &c.Active,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new category. The code is normalized to a slug and
// must be unique among non-deleted categories, case-insensitively;
// a conflict returns ErrDuplicateCode.
func (s *CategoryStore) Create(ctx context.Context, name, code, description string) (*models.Category, error) {
	code = slug.Generate(code)
	if name == "" || code == "" {
		return nil, fmt.Errorf("create category: name and code are required")
	}

	// Pre-check so the common case fails before allocating an id. The
	// partial unique index catches concurrent creators that slip past.
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE LOWER(code) = LOWER($1) AND `+notDeleted+`
		)`, code,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check category code: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("code %q: %w", code, models.ErrDuplicateCode)
	}

	id, err := s.alloc.Allocate(ctx, ident.KindCategory)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, code, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		id, name, code, description,
	)
	c, err := scanCategory(row)
	if isUniqueViolation(err, "categories_code_unique") {
		return nil, fmt.Errorf("code %q: %w", code, models.ErrDuplicateCode)
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// FindByID retrieves a non-deleted category by id.
func (s *CategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND `+notDeleted, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindByCode retrieves a non-deleted category by its code, case-insensitively.
func (s *CategoryStore) FindByCode(ctx context.Context, code string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE LOWER(code) = LOWER($1) AND `+notDeleted, code)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category code %q: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find category by code: %w", err)
	}
	return c, nil
}

// ListActive returns all active, non-deleted categories ordered by name,
// with the count of non-deleted labels in each.
func (s *CategoryStore) ListActive(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.code, c.description, c.active,
		       c.created_at, c.updated_at, c.deleted_at,
		       COUNT(l.id) AS label_count
		FROM categories c
		LEFT JOIN labels l ON l.category_id = c.id AND l.deleted_at IS NULL
		WHERE c.active AND c.deleted_at IS NULL
		GROUP BY c.id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var c models.Category
		err := rows.Scan(
			&c.ID, &c.Name, &c.Code, &c.Description, &c.Active,
			&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.LabelCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Search returns non-deleted categories whose name contains the given
// substring, case-insensitively, ordered by name.
func (s *CategoryStore) Search(ctx context.Context, nameSubstring string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE name ILIKE '%' || $1 || '%' AND `+notDeleted+`
		 ORDER BY name`, nameSubstring)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// SetActive toggles the reversible visibility flag on a non-deleted category.
func (s *CategoryStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET active = $1, updated_at = NOW()
		WHERE id = $2 AND `+notDeleted,
		active, id)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Delete soft-deletes a category. While any non-deleted label still
// references the category the delete is rejected with ErrHasChildren;
// the caller must delete the labels first.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM labels WHERE category_id = $1 AND `+notDeleted+`
		)`, id,
	).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("check category labels: %w", err)
	}
	if referenced {
		return fmt.Errorf("category %s still has labels: %w", id, models.ErrHasChildren)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND `+notDeleted, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return nil
}
