// Package docservice coordinates vault storage and the document index.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// Service coordinates storage and index operations.
type Service struct {
	store   storage.Provider
	db      index.DocumentIndex
	indexer *index.Indexer
}

// New creates a document service. The indexer is used to keep the index in
// step with writes made through the service.
func New(store storage.Provider, db index.DocumentIndex, indexer *index.Indexer) *Service {
	return &Service{store: store, db: db, indexer: indexer}
}

// Get reads a document from storage and enriches it with backlinks.
func (s *Service) Get(_ context.Context, path string) (*models.Document, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.describe(path, data)
}

// Read returns the stored text of a document.
func (s *Service) Read(_ context.Context, path string) (string, error) {
	data, err := s.read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Create writes a new document and indexes it.
func (s *Service) Create(_ context.Context, path string, content []byte) (*models.Document, error) {
	if !s.store.IsDocument(path) {
		return nil, fmt.Errorf("docservice: %s is not a document path: %w", path, apperr.ErrInvalidInput)
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.write(path, content); err != nil {
		return nil, err
	}
	return s.describe(path, content)
}

// Update replaces a document's text. A non-empty ifMatch must equal the
// checksum of the stored text.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*models.Document, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != storage.Checksum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.write(path, content); err != nil {
		return nil, err
	}
	return s.describe(path, content)
}

// Save writes text unconditionally; sessions use it to persist their tree.
func (s *Service) Save(_ context.Context, path string, content []byte) (string, error) {
	if err := s.write(path, content); err != nil {
		return "", err
	}
	return storage.Checksum(content), nil
}

// Delete removes a document from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("docservice: delete: %w", err)
	}
	return s.db.DeleteDocument(path)
}

// List returns one page of indexed documents and the total count.
func (s *Service) List(_ context.Context, limit, offset int, tag, sort string) ([]models.DocumentMeta, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.DocumentMeta, len(rows))
	for i, r := range rows {
		items[i] = models.DocumentMeta{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Outline returns the indexed headings of a document.
func (s *Service) Outline(_ context.Context, path string) ([]models.Heading, error) {
	if _, err := s.db.GetDocument(path); err != nil {
		return nil, err
	}
	return nonNil(s.db.Outline(path))
}

// Backlinks returns the documents linking to path.
func (s *Service) Backlinks(_ context.Context, path string) ([]string, error) {
	return nonNil(s.db.Backlinks(path))
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("docservice: read: %w", err)
	}
	return data, nil
}

func (s *Service) write(path string, content []byte) error {
	if err := s.store.Write(path, content); err != nil {
		return fmt.Errorf("docservice: write: %w", err)
	}
	if err := s.indexer.File(path, content); err != nil {
		return fmt.Errorf("docservice: index: %w", err)
	}
	return nil
}

// describe builds a Document from raw data without re-reading the file.
func (s *Service) describe(path string, data []byte) (*models.Document, error) {
	res := metadata.Parse(data)
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	updated := time.Now().UTC()
	if row, err := s.db.GetDocument(path); err == nil {
		updated = row.UpdatedAt
	}
	return &models.Document{
		Path:        path,
		Text:        string(data),
		Frontmatter: res.Frontmatter,
		Title:       res.Title,
		Tags:        orEmpty(res.Tags),
		Headings:    orEmpty(res.Headings),
		Links:       orEmpty(res.Links),
		Backlinks:   orEmpty(bl),
		Checksum:    storage.Checksum(data),
		UpdatedAt:   updated,
	}, nil
}

func nonNil[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return orEmpty(s), nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
