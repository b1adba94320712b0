// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL is unavailable;
// the count cache is left nil so no Valkey is needed.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"prepstack/internal/database"
	"prepstack/internal/models"
	"prepstack/internal/store"
	"prepstack/internal/taxonomy"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "prepstack")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "prepstack")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testAPI wires the full handler stack over a fresh chi router, without
// the rate limiters and logging the production router adds.
type testAPI struct {
	router   chi.Router
	db       *sql.DB
	category *models.Category
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testDB(t)

	code := "test-api-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanupCategory(db, code) })

	categoryStore := store.NewCategoryStore(db)
	category, err := categoryStore.Create(context.Background(), "API Fixture", code, "")
	if err != nil {
		t.Fatalf("create fixture category: %v", err)
	}

	labelStore := store.NewLabelStore(db)
	assocStore := store.NewAssociationStore(db)
	engine := taxonomy.NewEngine(labelStore, assocStore, nil)

	categories := NewCategories(categoryStore)
	labels := NewLabels(labelStore, engine)
	queries := NewQueries(engine)
	items := NewItems(engine)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Post("/", categories.Create)
			r.Get("/{id}", categories.Get)
			r.Put("/{id}/active", categories.SetActive)
			r.Delete("/{id}", categories.Delete)
		})
		r.Route("/labels", func(r chi.Router) {
			r.Post("/", labels.Create)
			r.Post("/bulk", labels.CreateBulk)
			r.Get("/{id}", labels.Get)
			r.Patch("/{id}", labels.Update)
			r.Delete("/{id}", labels.Delete)
			r.Post("/{id}/reactivate", labels.Reactivate)
			r.Get("/{id}/children", labels.Children)
			r.Get("/{id}/descendants", queries.Descendants)
			r.Get("/{id}/count", queries.Count)
			r.Get("/{id}/sample", queries.Sample)
			r.Get("/{id}/navigation", queries.Navigation)
			r.Post("/{id}/items", items.Attach)
			r.Delete("/{id}/items/{itemID}", items.Detach)
		})
	})

	return &testAPI{router: r, db: db, category: category}
}

// cleanupCategory hard-deletes a fixture category tree.
func cleanupCategory(db *sql.DB, code string) {
	db.Exec(`DELETE FROM label_items WHERE label_id IN
		(SELECT id FROM labels WHERE category_id IN (SELECT id FROM categories WHERE code = $1))`, code)
	for i := 0; i < 16; i++ {
		res, err := db.Exec(`DELETE FROM labels WHERE category_id IN
			(SELECT id FROM categories WHERE code = $1)
			AND id NOT IN (SELECT parent_id FROM labels WHERE parent_id IS NOT NULL)`, code)
		if err != nil {
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			break
		}
	}
	db.Exec(`DELETE FROM categories WHERE code = $1`, code)
}

// do performs a request against the test router and returns the recorder.
func (api *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a recorder body into dst.
func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

// createLabel creates a label through the API and fails the test on error.
func (api *testAPI) createLabel(t *testing.T, name string, parentID *string) *models.Label {
	t.Helper()

	body := map[string]any{"name": name, "category_id": api.category.ID}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	rr := api.do(t, http.MethodPost, "/api/labels", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create label %q: status %d, body %s", name, rr.Code, rr.Body.String())
	}
	var label models.Label
	decode(t, rr, &label)
	return &label
}
