//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "fts.md", "FTS Document", "Quire provides powerful full-text search capabilities.")

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "fts.md" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "gone.md", "", "vanishing content")
	_ = db.DeleteDocument("gone.md")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted document still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "evo.md", "Old", "original text")
	upsert(t, db, "evo.md", "New", "replacement text")

	if results, _ := db.Search("original", 10); len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ := db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_TitleOutranksBody(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "body.md", "Fruit", "a kiwi a day and more words")
	upsert(t, db, "title.md", "Kiwi", "about a green kiwi and more words")

	results, err := db.Search("kiwi", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].Path != "title.md" {
		t.Errorf("results = %+v, want title.md first", results)
	}
}

func TestFTS5_OperatorsSearchedLiterally(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "op.md", "", "apples and pears")

	for _, q := range []string{"apples NOT", `"apples`, "title:apples", "apples)"} {
		if _, err := db.Search(q, 10); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}
}
