package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// searchQuery is a user query split into terms. A word written as #tag
// filters on document tags; a trailing '*' makes a word match as a prefix.
type searchQuery struct {
	terms []searchTerm
	tags  []string
}

type searchTerm struct {
	word   string
	prefix bool
}

func parseQuery(q string) searchQuery {
	var sq searchQuery
	for _, f := range strings.Fields(q) {
		if tag, ok := strings.CutPrefix(f, "#"); ok {
			if tag = strings.Trim(tag, "#*"); tag != "" {
				sq.tags = append(sq.tags, tag)
			}
			continue
		}
		word, prefix := strings.CutSuffix(f, "*")
		word = strings.Trim(word, "*")
		if word == "" {
			continue
		}
		sq.terms = append(sq.terms, searchTerm{word: word, prefix: prefix})
	}
	return sq
}

func (sq searchQuery) empty() bool { return len(sq.terms) == 0 && len(sq.tags) == 0 }

// match renders the query in FTS5 syntax. Every word is quoted so that
// operators and column filters typed by the user are searched literally.
func (sq searchQuery) match() string {
	parts := make([]string, 0, len(sq.terms)+len(sq.tags))
	for _, t := range sq.terms {
		s := quoteFTS(t.word)
		if t.prefix {
			s += "*"
		}
		parts = append(parts, s)
	}
	for _, tag := range sq.tags {
		parts = append(parts, "tags : "+quoteFTS(tag))
	}
	return strings.Join(parts, " AND ")
}

func quoteFTS(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// locate returns the byte offset in body of the first query word, or -1.
func (sq searchQuery) locate(body string) int {
	lower := strings.ToLower(body)
	best := -1
	for _, t := range sq.terms {
		if i := strings.Index(lower, strings.ToLower(t.word)); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// hit is a search row before its section heading is known.
type hit struct {
	SearchResult
	body       string
	bodyOffset int
}

// sections fills in the heading above the first match of every hit. Hits
// with no located match, or a match before the first heading, keep an empty
// Heading.
func (db *DB) sections(sq searchQuery, hits []hit) ([]SearchResult, error) {
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = h.SearchResult
		at := sq.locate(h.body)
		if at < 0 {
			continue
		}
		var text string
		err := db.conn.QueryRow(`
			SELECT text FROM headings
			WHERE path = ? AND byte_offset <= ?
			ORDER BY byte_offset DESC
			LIMIT 1
		`, h.Path, h.bodyOffset+at).Scan(&text)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("index: search section: %w", err)
		default:
			out[i].Heading = text
		}
	}
	return out, nil
}
