package index

import "github.com/starford/quire/internal/models"

// DocumentIndex defines the index operations consumers depend on.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, headings []models.Heading, links []models.Link) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Outline(path string) ([]models.Heading, error)
	Links(path string) ([]models.Link, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
