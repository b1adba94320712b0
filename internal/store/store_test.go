// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"prepstack/internal/database"
	"prepstack/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with the same defaults as config.Load.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "prepstack")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "prepstack")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanCategories hard-deletes test categories and everything under them
// (labels and associations). Call in t.Cleanup().
func cleanCategories(t *testing.T, db *sql.DB, codes ...string) {
	t.Helper()
	for _, code := range codes {
		db.Exec(`DELETE FROM label_items WHERE label_id IN
			(SELECT id FROM labels WHERE category_id IN (SELECT id FROM categories WHERE code = $1))`, code)
		// Children reference parents, so peel the tree from the leaves up.
		for i := 0; i < 16; i++ {
			res, err := db.Exec(`DELETE FROM labels WHERE category_id IN
				(SELECT id FROM categories WHERE code = $1)
				AND id NOT IN (SELECT parent_id FROM labels WHERE parent_id IS NOT NULL)`, code)
			if err != nil {
				break
			}
			if n, _ := res.RowsAffected(); n == 0 {
				break
			}
		}
		db.Exec(`DELETE FROM categories WHERE code = $1`, code)
	}
}

// testCode returns a unique category code for a test.
func testCode(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// testCategory creates a category for label tests and registers cleanup.
func testCategory(t *testing.T, db *sql.DB) *models.Category {
	t.Helper()

	code := testCode("test-cat")
	t.Cleanup(func() { cleanCategories(t, db, code) })

	cat, err := NewCategoryStore(db).Create(context.Background(), "Test Category", code, "store test fixture")
	if err != nil {
		t.Fatalf("create test category: %v", err)
	}
	return cat
}
