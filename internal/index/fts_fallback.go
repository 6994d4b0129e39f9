//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/quire/internal/models"
)

// Without FTS5 the documents table is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _ DocumentRow, _ string, _ []models.Heading) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a case-insensitive LIKE search. Every word must appear in
// the title, a heading or the body; every #tag must be among the tags.
// Documents whose title matches come first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	sq := parseQuery(query)
	if sq.empty() {
		return nil, nil
	}
	var (
		where []string
		args  []any
		first string
	)
	for _, t := range sq.terms {
		like := "%" + escapeLike(t.word) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM headings WHERE headings.path = documents.path AND headings.text LIKE ? ESCAPE '\'))`)
		args = append(args, like, like, like)
		if first == "" {
			first = t.word
		}
	}
	for _, tag := range sq.tags {
		where = append(where, `tags LIKE ? ESCAPE '\'`)
		args = append(args, `%"`+escapeLike(tag)+`"%`)
	}
	titleRank := "0"
	if first != "" {
		titleRank = `CASE WHEN title LIKE ? ESCAPE '\' THEN 0 ELSE 1 END`
		args = append(args, "%"+escapeLike(first)+"%")
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, title, body, body_offset
		FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY `+titleRank+`, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.Path, &h.Title, &h.body, &h.bodyOffset); err != nil {
			rows.Close()
			return nil, err
		}
		h.Snippet = snippet(h.body, first, 64)
		hits = append(hits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return db.sections(sq, hits)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet cuts up to radius bytes of context around the first match of q,
// snapped to rune boundaries.
func snippet(body, q string, radius int) string {
	i := strings.Index(strings.ToLower(body), strings.ToLower(q))
	if i < 0 {
		i = 0
	}
	lo, hi := max(0, i-radius), min(len(body), i+len(q)+radius)
	for lo > 0 && !isRuneStart(body[lo]) {
		lo--
	}
	for hi < len(body) && !isRuneStart(body[hi]) {
		hi++
	}
	out := strings.ReplaceAll(body[lo:hi], "\n", " ")
	if lo > 0 {
		out = "..." + out
	}
	if hi < len(body) {
		out += "..."
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
