package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
	// BodyOffset is where the body starts in the file, past any front matter.
	// Heading offsets count from the start of the file.
	BodyOffset int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
	// Heading is the text of the heading over the first match, if any.
	Heading string
}

// Sort orders accepted by ListDocuments.
const (
	SortPath    = "path"
	SortTitle   = "title"
	SortUpdated = "updated"
)

var sortColumns = map[string]string{
	SortPath:    "path ASC",
	SortTitle:   "title COLLATE NOCASE ASC, path ASC",
	SortUpdated: "updated_at DESC, path ASC",
}

// UpsertDocument replaces a document row together with its outline, links
// and FTS entry in one transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, headings []models.Heading, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.Tags == nil {
		d.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(d.Tags)
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, tags, body, body_offset, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			body        = excluded.body,
			body_offset = excluded.body_offset,
			updated_at  = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, string(tagsJSON), body, d.BodyOffset, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d, body, headings); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM headings WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear headings: %w", err)
	}
	if len(headings) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO headings (path, seq, level, text, byte_offset) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare heading insert: %w", err)
		}
		defer stmt.Close()
		for i, h := range headings {
			if _, err := stmt.Exec(d.Path, i, h.Level, h.Text, h.Offset); err != nil {
				return fmt.Errorf("index: insert heading: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			typ := l.Type
			if typ == "" {
				typ = models.LinkInline
			}
			if _, err := stmt.Exec(d.Path, l.Target, typ); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its outline, FTS entry and
// outgoing links.
func (db *DB) DeleteDocument(p string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, p)
	for _, q := range []string{
		`DELETE FROM headings WHERE path = ?`,
		`DELETE FROM links WHERE source = ?`,
		`DELETE FROM documents WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, p); err != nil {
			return fmt.Errorf("index: delete document: %w", err)
		}
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or an empty string
// if it is not indexed.
func (db *DB) GetChecksum(p string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, p).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetDocument returns the indexed row for path or apperr.ErrNotFound.
func (db *DB) GetDocument(p string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT path, title, checksum, tags, updated_at FROM documents WHERE path = ?`, p)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: get document %s: %w", p, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns one page of documents and the total matching count.
// tag, when non-empty, keeps only documents carrying it.
func (db *DB) ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := sortColumns[sort]
	if !ok {
		order = sortColumns[SortPath]
	}

	where := ""
	var args []any
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT path, title, checksum, tags, updated_at FROM documents `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (DocumentRow, error) {
	var d DocumentRow
	var tags string
	if err := s.Scan(&d.Path, &d.Title, &d.Checksum, &tags, &d.UpdatedAt); err != nil {
		return d, err
	}
	_ = json.Unmarshal([]byte(tags), &d.Tags)
	return d, nil
}

// Outline returns the stored headings of a document in source order.
func (db *DB) Outline(p string) ([]models.Heading, error) {
	rows, err := db.conn.Query(`SELECT level, text, byte_offset FROM headings WHERE path = ? ORDER BY seq`, p)
	if err != nil {
		return nil, fmt.Errorf("index: outline: %w", err)
	}
	defer rows.Close()

	var out []models.Heading
	for rows.Next() {
		var h models.Heading
		if err := rows.Scan(&h.Level, &h.Text, &h.Offset); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Links returns the outgoing links of a document.
func (db *DB) Links(p string) ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT source, target, type FROM links WHERE source = ? ORDER BY rowid`, p)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Source, &l.Target, &l.Type); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the distinct sources linking to target. A link matches
// by full path or by path without its extension (the wikilink form).
func (db *DB) Backlinks(target string) ([]string, error) {
	bare := strings.TrimSuffix(target, path.Ext(target))
	rows, err := db.conn.Query(
		`SELECT DISTINCT source FROM links WHERE target IN (?, ?) AND source <> ? ORDER BY source`,
		target, bare, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
