// Package storage defines the vault file-system abstraction the hierarchy
// engine issues its external calls through.
package storage

import "github.com/starford/eihwaz/internal/models"

// Provider is the interface for vault file operations. One vault is one
// directory scope: List never descends into subdirectories, so documents
// placed in folders are outside the hierarchy.
type Provider interface {
	// List returns metadata for every .md file directly inside the vault.
	List() ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file with the given name.
	Read(name string) ([]byte, error)
	// Write atomically creates or replaces the file with the given name.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
	// Move renames oldName to newName within the vault.
	Move(oldName, newName string) error
}
