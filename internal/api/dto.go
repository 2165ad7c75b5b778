package api

import (
	"github.com/starford/eihwaz/internal/hierarchy"
	"github.com/starford/eihwaz/internal/index"
)

// CreateDocumentRequest is the request body for creating a document.
// Parent is the filename of the parent document; empty means a new root
// group.
type CreateDocumentRequest struct {
	Parent string `json:"parent" example:"2. Design.md"`
	Title  string `json:"title" example:"Open Problems" validate:"required"`
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// MoveRequest asks to relocate the subtree anchored at Source relative to
// Target. Mode is one of "child", "before", "after".
type MoveRequest struct {
	Source string `json:"source" example:"1.2. Motivation.md" validate:"required"`
	Target string `json:"target" example:"2. Design.md" validate:"required"`
	Mode   string `json:"mode" example:"child" validate:"required"`
}

// DeletePlanRequest asks which documents a subtree deletion would remove.
type DeletePlanRequest struct {
	Name string `json:"name" example:"2. Design.md" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the
// domain layer).
type DocumentDetail = hierarchy.Detail

// DocumentListResponse wraps paginated flat listings.
type DocumentListResponse struct {
	Documents []index.DocumentRow `json:"documents" validate:"required"`
	Total     int                 `json:"total" example:"42" validate:"required"`
}

// PlanResponse wraps a rename plan preview.
type PlanResponse struct {
	Steps []hierarchy.Rename `json:"steps" validate:"required"`
}

// DeleteResponse reports how many documents a deletion removed.
type DeleteResponse struct {
	Deleted int `json:"deleted" example:"3" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
