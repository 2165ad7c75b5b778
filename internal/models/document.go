// Package models defines the domain types for Eihwaz.
package models

import (
	"time"

	"github.com/starford/eihwaz/internal/levelpath"
)

// Document is a hierarchy member synthesized from a vault file listing.
// The filename doubles as its identity; nothing here persists between
// rebuilds of the tree.
type Document struct {
	// Name is the vault-relative filename, the sole identity handle.
	Name string `json:"name"`
	// Path is the level path parsed from the filename.
	Path levelpath.Path `json:"-"`
	// FileTitle is the title embedded in the filename.
	FileTitle string `json:"file_title"`
	// Title is the display title: frontmatter title when present,
	// otherwise FileTitle.
	Title string `json:"title"`
	// Checksum is the SHA-256 of the file content, as indexed.
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DocumentMetadata is the lightweight representation returned by storage
// listings.
type DocumentMetadata struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
