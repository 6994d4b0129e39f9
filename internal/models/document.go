// Package models defines the domain types shared by quire's services.
package models

import "time"

// Document is a stored markdown document with the metadata derived from its
// parse tree.
type Document struct {
	Path        string         `json:"path"`
	Text        string         `json:"text"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Title       string         `json:"title"`
	Tags        []string       `json:"tags"`
	Headings    []Heading      `json:"headings"`
	Links       []Link         `json:"links"`
	Backlinks   []string       `json:"backlinks"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentMeta is a lightweight representation returned by list operations.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Heading is one entry of a document outline. Offset is the byte offset of
// the heading block in the document text.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Link kinds.
const (
	LinkInline    = "inline"
	LinkReference = "reference"
	LinkAutolink  = "autolink"
	LinkImage     = "image"
	LinkWiki      = "wiki"
)

// Link is an outgoing reference from a document.
type Link struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Type   string `json:"type"`
}
