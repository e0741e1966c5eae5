// Package storage defines the file-system abstraction behind the record store.
package storage

import "github.com/starford/faqs/internal/models"

// Provider is the interface for data directory file operations.
// All paths are relative to the provider root.
type Provider interface {
	// List returns metadata for every .json file directly under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error wrapping os.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute path of the provider root.
	Root() string
}
