// engine_test.go exercises the hierarchy read side against a real
// database. Tests are skipped if PostgreSQL is not available; the count
// cache is left nil so every count hits the database.
package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"prepstack/internal/database"
	"prepstack/internal/ident"
	"prepstack/internal/models"
	"prepstack/internal/store"
)

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
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// fixture is a small three-level tree with associations:
//
//	root ── mid ── leaf
//
// root carries 1 item, mid 2, leaf 2, with one item shared between mid
// and leaf.
type fixture struct {
	engine           *Engine
	labels           *store.LabelStore
	assocs           *store.AssociationStore
	category         *models.Category
	root, mid, leaf  *models.Label
	rootItem, shared uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()

	code := "test-eng-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		db.Exec(`DELETE FROM label_items WHERE label_id IN
			(SELECT id FROM labels WHERE category_id IN (SELECT id FROM categories WHERE code = $1))`, code)
		for i := 0; i < 8; i++ {
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
	})

	category, err := store.NewCategoryStore(db).Create(ctx, "Engine Fixture", code, "")
	if err != nil {
		t.Fatalf("create fixture category: %v", err)
	}

	labels := store.NewLabelStore(db)
	assocs := store.NewAssociationStore(db)

	root, err := labels.Create(ctx, store.CreateLabelParams{Name: "Root", CategoryID: category.ID})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	mid, err := labels.Create(ctx, store.CreateLabelParams{Name: "Mid", CategoryID: category.ID, ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create mid: %v", err)
	}
	leaf, err := labels.Create(ctx, store.CreateLabelParams{Name: "Leaf", CategoryID: category.ID, ParentID: &mid.ID})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	f := &fixture{
		engine:   NewEngine(labels, assocs, nil),
		labels:   labels,
		assocs:   assocs,
		category: category,
		root:     root, mid: mid, leaf: leaf,
		rootItem: uuid.New(),
		shared:   uuid.New(),
	}

	attach := func(labelID string, item uuid.UUID) {
		if err := assocs.Attach(ctx, labelID, item, models.ItemKindQuestion); err != nil {
			t.Fatalf("attach fixture item: %v", err)
		}
	}
	attach(root.ID, f.rootItem)
	attach(mid.ID, f.shared)
	attach(mid.ID, uuid.New())
	attach(leaf.ID, f.shared) // deduped in subtree counts
	attach(leaf.ID, uuid.New())

	return f
}

func TestEngineDescendants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.engine.Descendants(ctx, f.root.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	// Breadth-first: the label itself comes first, then each level.
	want := []string{f.root.ID, f.mid.ID, f.leaf.ID}
	if len(got) != len(want) {
		t.Fatalf("closure has %d ids, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("closure[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// A leaf's closure is just itself.
	got, err = f.engine.Descendants(ctx, f.leaf.ID)
	if err != nil {
		t.Fatalf("Descendants(leaf): %v", err)
	}
	if len(got) != 1 || got[0] != f.leaf.ID {
		t.Errorf("leaf closure = %v, want just the leaf", got)
	}

	missing := ident.Generate(ident.KindLabel)
	if _, err := f.engine.Descendants(ctx, missing); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Descendants of missing label = %v, want ErrNotFound", err)
	}
}

func TestEngineItemCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		label string
		scope Scope
		want  int64
	}{
		{"root self", f.root.ID, ScopeSelf, 1},
		{"mid self", f.mid.ID, ScopeSelf, 2},
		{"leaf self", f.leaf.ID, ScopeSelf, 2},
		// The shared item counts once per subtree.
		{"mid subtree", f.mid.ID, ScopeSubtree, 3},
		{"root subtree", f.root.ID, ScopeSubtree, 4},
		{"leaf subtree", f.leaf.ID, ScopeSubtree, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.engine.ItemCount(ctx, tc.label, tc.scope)
			if err != nil {
				t.Fatalf("ItemCount: %v", err)
			}
			if got != tc.want {
				t.Errorf("count = %d, want %d", got, tc.want)
			}
		})
	}

	if _, err := f.engine.ItemCount(ctx, f.root.ID, Scope("everything")); err == nil {
		t.Error("unknown scope accepted")
	}
}

func TestEngineRandomSample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	closure, err := f.engine.Descendants(ctx, f.root.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	qualifying := make(map[uuid.UUID]bool)
	for _, id := range closure {
		items, err := f.assocs.SampleDistinct(ctx, []string{id}, 100)
		if err != nil {
			t.Fatalf("enumerate items: %v", err)
		}
		for _, item := range items {
			qualifying[item] = true
		}
	}

	sample, err := f.engine.RandomSample(ctx, f.root.ID, ScopeSubtree, 2)
	if err != nil {
		t.Fatalf("RandomSample: %v", err)
	}
	if len(sample) != 2 {
		t.Fatalf("sample size = %d, want 2", len(sample))
	}
	seen := make(map[uuid.UUID]bool)
	for _, item := range sample {
		if !qualifying[item] {
			t.Errorf("sampled %s outside the subtree's item set", item)
		}
		if seen[item] {
			t.Errorf("item %s sampled twice", item)
		}
		seen[item] = true
	}

	// Requesting more than the whole qualifying set yields exactly the set.
	sample, err = f.engine.RandomSample(ctx, f.root.ID, ScopeSubtree, 100)
	if err != nil {
		t.Fatalf("RandomSample: %v", err)
	}
	if len(sample) != len(qualifying) {
		t.Errorf("oversized sample = %d items, want %d", len(sample), len(qualifying))
	}
}

func TestEngineNavigationView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.engine.NavigationView(ctx, f.mid.ID)
	if err != nil {
		t.Fatalf("NavigationView: %v", err)
	}
	if view.Self.ID != f.mid.ID {
		t.Errorf("self = %q, want %q", view.Self.ID, f.mid.ID)
	}
	if view.Parent == nil || view.Parent.ID != f.root.ID {
		t.Errorf("parent = %v, want %q", view.Parent, f.root.ID)
	}
	if view.IsRoot {
		t.Error("mid reported as root")
	}
	if !view.HasChildren || len(view.Children) != 1 || view.Children[0].ID != f.leaf.ID {
		t.Errorf("children = %v, want just the leaf", view.Children)
	}
	if view.Counts.Self != 2 {
		t.Errorf("self count = %d, want 2", view.Counts.Self)
	}
	if view.Counts.Subtree != 3 {
		t.Errorf("subtree count = %d, want 3", view.Counts.Subtree)
	}

	view, err = f.engine.NavigationView(ctx, f.root.ID)
	if err != nil {
		t.Fatalf("NavigationView(root): %v", err)
	}
	if !view.IsRoot || view.Parent != nil {
		t.Error("root view should have no parent and IsRoot set")
	}

	view, err = f.engine.NavigationView(ctx, f.leaf.ID)
	if err != nil {
		t.Fatalf("NavigationView(leaf): %v", err)
	}
	if view.HasChildren || len(view.Children) != 0 {
		t.Error("leaf view should have no children")
	}
}

func TestEngineAttachDetachItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.engine.ItemCount(ctx, f.root.ID, ScopeSubtree)
	if err != nil {
		t.Fatalf("ItemCount: %v", err)
	}

	item := uuid.New()
	if err := f.engine.AttachItem(ctx, f.leaf.ID, item, models.ItemKindArticle); err != nil {
		t.Fatalf("AttachItem: %v", err)
	}
	after, err := f.engine.ItemCount(ctx, f.root.ID, ScopeSubtree)
	if err != nil {
		t.Fatalf("ItemCount: %v", err)
	}
	if after != before+1 {
		t.Errorf("subtree count after attach = %d, want %d", after, before+1)
	}

	if err := f.engine.DetachItem(ctx, f.leaf.ID, item); err != nil {
		t.Fatalf("DetachItem: %v", err)
	}
	after, err = f.engine.ItemCount(ctx, f.root.ID, ScopeSubtree)
	if err != nil {
		t.Fatalf("ItemCount: %v", err)
	}
	if after != before {
		t.Errorf("subtree count after detach = %d, want %d", after, before)
	}
}

func TestEngineCreateBulkPlansAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unordered input: children appear before the parent they reference.
	specs := []store.BulkSpec{
		{Name: "Child A", CategoryID: f.category.ID, ParentIndex: intPtr(2)},
		{Name: "Child B", CategoryID: f.category.ID, ParentIndex: intPtr(2)},
		{Name: "Bulk Root", CategoryID: f.category.ID, ParentID: &f.root.ID},
	}

	created, err := f.engine.CreateBulk(ctx, specs)
	if err != nil {
		t.Fatalf("CreateBulk: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d labels, want 3", len(created))
	}
	if created[0].ParentID == nil || *created[0].ParentID != created[2].ID {
		t.Errorf("Child A parent = %v, want %q", created[0].ParentID, created[2].ID)
	}

	// A cyclic batch is rejected at planning time, before any write.
	cyclic := []store.BulkSpec{
		{Name: "Cycle A", CategoryID: f.category.ID, ParentIndex: intPtr(1)},
		{Name: "Cycle B", CategoryID: f.category.ID, ParentIndex: intPtr(0)},
	}
	if _, err := f.engine.CreateBulk(ctx, cyclic); !errors.Is(err, models.ErrCyclicBatchReference) {
		t.Fatalf("cyclic batch error = %v, want ErrCyclicBatchReference", err)
	}
	if _, err := f.labels.FindByNameInScope(ctx, "Cycle A", f.category.ID, nil); !errors.Is(err, models.ErrNotFound) {
		t.Error("cyclic batch left a label behind")
	}

	// Empty input is a no-op.
	if created, err := f.engine.CreateBulk(ctx, nil); err != nil || created != nil {
		t.Errorf("empty batch: got (%v, %v), want (nil, nil)", created, err)
	}
}
