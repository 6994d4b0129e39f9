// Package storage persists document text in a vault directory.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the persistence collaborator of the editor. It only ever sees
// flattened document text.
type Provider interface {
	// List returns metadata for every document under dir (relative to the vault root).
	List(dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// IsDocument reports whether a file name carries a document extension.
	IsDocument(name string) bool
}
