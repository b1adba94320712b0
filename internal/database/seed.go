package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"prepstack/internal/ident"
)

// Seed populates the database with initial development data: two
// categories, a small label tree, and a handful of tagged items. It is a
// no-op when categories already exist, so it is safe to call on every
// development start.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	dsCat := ident.Generate(ident.KindCategory)
	coCat := ident.Generate(ident.KindCategory)

	for _, c := range []struct{ id, name, code, desc string }{
		{dsCat, "Data Structure", "data-structure", "Topics grouped by the underlying data structure"},
		{coCat, "Company", "company", "Questions reported from company interviews"},
	} {
		_, err := db.Exec(`
			INSERT INTO categories (id, name, code, description)
			VALUES ($1, $2, $3, $4)
		`, c.id, c.name, c.code, c.desc)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", c.code, err)
		}
	}

	// A small tree under Data Structure: Trees has two children.
	arrays := ident.Generate(ident.KindLabel)
	trees := ident.Generate(ident.KindLabel)
	binaryTree := ident.Generate(ident.KindLabel)
	bst := ident.Generate(ident.KindLabel)
	google := ident.Generate(ident.KindLabel)

	labels := []struct {
		id, name, category string
		parent             *string
	}{
		{arrays, "Arrays", dsCat, nil},
		{trees, "Trees", dsCat, nil},
		{binaryTree, "Binary Tree", dsCat, &trees},
		{bst, "Binary Search Tree", dsCat, &trees},
		{google, "Google", coCat, nil},
	}
	for _, l := range labels {
		_, err := db.Exec(`
			INSERT INTO labels (id, name, category_id, parent_id)
			VALUES ($1, $2, $3, $4)
		`, l.id, l.name, l.category, l.parent)
		if err != nil {
			return fmt.Errorf("seed insert label %s: %w", l.name, err)
		}
	}

	// Tag a few items across the tree. One item is tagged with both a
	// parent and its child so subtree counts exercise deduplication.
	shared := uuid.New()
	items := []struct {
		label string
		item  uuid.UUID
		kind  string
	}{
		{arrays, uuid.New(), "question"},
		{arrays, uuid.New(), "article"},
		{trees, shared, "question"},
		{binaryTree, shared, "question"},
		{binaryTree, uuid.New(), "mcq"},
		{bst, uuid.New(), "question"},
		{google, uuid.New(), "design"},
	}
	for _, it := range items {
		_, err := db.Exec(`
			INSERT INTO label_items (label_id, item_id, item_kind)
			VALUES ($1, $2, $3)
		`, it.label, it.item, it.kind)
		if err != nil {
			return fmt.Errorf("seed insert association: %w", err)
		}
	}

	slog.Info("database seeded with development taxonomy",
		"categories", 2,
		"labels", len(labels),
		"associations", len(items),
	)

	return nil
}
