package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EventCallback is called after an index change driven by the filesystem.
type EventCallback func(kind, path string)

// Indexer keeps a DocumentIndex in step with a storage provider.
type Indexer struct {
	db       DocumentIndex
	store    storage.Provider
	logger   *slog.Logger
	onChange EventCallback
}

// NewIndexer returns an Indexer. onChange may be nil.
func NewIndexer(db DocumentIndex, store storage.Provider, logger *slog.Logger, onChange EventCallback) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, store: store, logger: logger, onChange: onChange}
}

// Sync walks the vault and brings the index up to date: changed documents
// are parsed and upserted, documents gone from disk are removed.
func (ix *Indexer) Sync() error {
	metas, err := ix.store.List("")
	if err != nil {
		return fmt.Errorf("index: sync list: %w", err)
	}
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := ix.store.Read(m.Path)
		if err != nil {
			ix.logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := ix.File(m.Path, data); err != nil {
			ix.logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		ix.logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := ix.db.DeleteDocument(p); err != nil {
			ix.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		ix.logger.Debug("sync: removed stale", slog.String("path", p))
	}
	return nil
}

// File parses data as the document at path and upserts it. Unchanged
// content is skipped.
func (ix *Indexer) File(path string, data []byte) error {
	cs := storage.Checksum(data)
	if old, err := ix.db.GetChecksum(path); err == nil && old == cs {
		return nil
	}
	res := metadata.Parse(data)
	row := DocumentRow{
		Path:       path,
		Title:      res.Title,
		Checksum:   cs,
		Tags:       res.Tags,
		UpdatedAt:  time.Now().UTC(),
		BodyOffset: res.BodyOffset,
	}
	return ix.db.UpsertDocument(row, res.Body, res.Headings, res.Links)
}

// Remove drops path from the index.
func (ix *Indexer) Remove(path string) error {
	return ix.db.DeleteDocument(path)
}

func (ix *Indexer) notify(kind, path string) {
	if ix.onChange != nil {
		ix.onChange(kind, path)
	}
}
