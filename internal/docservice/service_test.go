package docservice

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/storage"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.CreateTemp("", "quire-docservice-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := index.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(store, db, index.NewIndexer(db, store, nil, nil))
}

func TestCreateGet(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "a.md", []byte("# Alpha\n\nLinks to [b](b.md).\n"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.Title != "Alpha" || len(doc.Links) != 1 || len(doc.Headings) != 1 {
		t.Errorf("created = %+v", doc)
	}
	if _, err := svc.Create(ctx, "a.md", []byte("again")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}
	if _, err := svc.Create(ctx, "a.txt", []byte("x")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("non-document create err = %v", err)
	}

	if _, err := svc.Create(ctx, "b.md", []byte("# Beta\n")); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, "b.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Backlinks) != 1 || got.Backlinks[0] != "a.md" {
		t.Errorf("backlinks = %v", got.Backlinks)
	}
	if _, err := svc.Get(ctx, "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing get err = %v", err)
	}
}

func TestUpdate_IfMatch(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	doc, _ := svc.Create(ctx, "u.md", []byte("one"))

	if _, err := svc.Update(ctx, "u.md", []byte("two"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v", err)
	}
	updated, err := svc.Update(ctx, "u.md", []byte("# Two"), doc.Checksum)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Text != "# Two" || updated.Title != "Two" {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := svc.Update(ctx, "nope.md", []byte("x"), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing update err = %v", err)
	}
}

func TestDeleteListSearch(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "keep.md", []byte("# Keep\n\nneedle here"))
	_, _ = svc.Create(ctx, "drop.md", []byte("# Drop"))

	if err := svc.Delete(ctx, "drop.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "drop.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	items, total, err := svc.List(ctx, 10, 0, "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Path != "keep.md" || items[0].Title != "Keep" {
		t.Errorf("list = %+v (total %d)", items, total)
	}

	hits, err := svc.Search(ctx, "needle", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "keep.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestOutline(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "o.md", []byte("# A\n\n## B\n"))

	h, err := svc.Outline(ctx, "o.md")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if len(h) != 2 || h[1].Text != "B" || h[1].Level != 2 {
		t.Errorf("outline = %+v", h)
	}
	if _, err := svc.Outline(ctx, "none.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing outline err = %v", err)
	}
}

func TestSave(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	cs, err := svc.Save(ctx, "s.md", []byte("saved"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cs != storage.Checksum([]byte("saved")) {
		t.Errorf("checksum = %q", cs)
	}
	text, err := svc.Read(ctx, "s.md")
	if err != nil || text != "saved" {
		t.Errorf("Read = %q, %v", text, err)
	}
}
