//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/quire/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			path UNINDEXED,
			title,
			headings,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsUpsert stores one row per document. The outline goes in as its own
// column so that a word in a heading outranks the same word in the body.
func ftsUpsert(tx *sql.Tx, d DocumentRow, body string, headings []models.Heading) error {
	if _, err := tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	outline := make([]string, len(headings))
	for i, h := range headings {
		outline[i] = h.Text
	}
	_, err := tx.Exec(`INSERT INTO documents_fts (path, title, headings, body, tags) VALUES (?, ?, ?, ?, ?)`,
		d.Path, d.Title, strings.Join(outline, "\n"), body, strings.Join(d.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, path)
}

// Search ranks documents with bm25, weighting title over headings over body,
// and returns each with a highlighted body snippet and the heading of the
// section holding the first match.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	sq := parseQuery(query)
	if sq.empty() {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT documents_fts.path,
		       documents_fts.title,
		       snippet(documents_fts, 3, '<b>', '</b>', '...', 32),
		       documents.body,
		       documents.body_offset
		FROM documents_fts
		JOIN documents ON documents.path = documents_fts.path
		WHERE documents_fts MATCH ?
		ORDER BY bm25(documents_fts, 0.0, 10.0, 4.0, 1.0, 2.0)
		LIMIT ?
	`, sq.match(), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.Path, &h.Title, &h.Snippet, &h.body, &h.bodyOffset); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return db.sections(sq, hits)
}
