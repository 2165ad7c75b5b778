package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/hierarchy"
)

// Handler holds API route handlers.
type Handler struct {
	svc *hierarchy.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *hierarchy.Service) *Handler {
	return &Handler{svc: svc}
}

// docName extracts the document filename from the URL (everything after
// /api/documents/). Names contain spaces and dots, so clients typically
// URL-encode them (e.g. 1.2.%20Motivation.md).
func docName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeHierarchyError maps domain errors onto HTTP statuses.
func writeHierarchyError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidMove):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Tree handles GET /api/tree.
//
//	@Summary		Get the document forest
//	@Tags			tree
//	@Produce		json
//	@Success		200	{object}	hierarchy.Forest
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.svc.Tree(r.Context())
	if err != nil {
		slog.Error("tree failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(name, title, updated_at)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	sort := q.Get("sort")

	items, total, err := h.svc.List(r.Context(), limit, offset, sort)
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by filename
//	@Tags			documents
//	@Produce		json
//	@Param			name	path		string	true	"Document filename"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := docName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	doc, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeHierarchyError(w, err, "get document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document under a parent
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	doc, err := h.svc.Create(r.Context(), req.Parent, req.Title)
	if err != nil {
		writeHierarchyError(w, err, "create document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			name		path	string					true	"Document filename"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"Updated content"
//	@Success		200		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	name := docName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	doc, err := h.svc.Update(r.Context(), name, []byte(req.Content), ifMatch)
	if err != nil {
		writeHierarchyError(w, err, "update document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteSubtree handles DELETE /api/documents/*. The document and its
// whole descendant subtree are removed.
//
//	@Summary		Delete a document and its subtree
//	@Tags			documents
//	@Produce		json
//	@Param			name	path		string	true	"Document filename"
//	@Success		200		{object}	DeleteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{name} [delete]
func (h *Handler) DeleteSubtree(w http.ResponseWriter, r *http.Request) {
	name := docName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	n, err := h.svc.Delete(r.Context(), name)
	if err != nil {
		writeHierarchyError(w, err, "delete subtree")
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: n})
}

// Move handles POST /api/move: plan and apply in one call.
//
//	@Summary		Move a document subtree
//	@Tags			hierarchy
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Move to perform"
//	@Success		200		{object}	PlanResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMoveRequest(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.Move(r.Context(), req.Source, req.Target, hierarchy.Mode(req.Mode))
	if err != nil {
		writeHierarchyError(w, err, "move")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlanMove handles POST /api/plans/move: dry-run preview of a move.
//
//	@Summary		Preview the rename plan for a move
//	@Tags			hierarchy
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Move to preview"
//	@Success		200		{object}	PlanResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/move [post]
func (h *Handler) PlanMove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMoveRequest(w, r)
	if !ok {
		return
	}
	plan, err := h.svc.PlanMove(r.Context(), req.Source, req.Target, hierarchy.Mode(req.Mode))
	if err != nil {
		writeHierarchyError(w, err, "plan move")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func decodeMoveRequest(w http.ResponseWriter, r *http.Request) (MoveRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return req, false
	}
	if !hierarchy.Mode(req.Mode).Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("mode must be child, before or after"))
		return req, false
	}
	return req, true
}

// PlanDelete handles POST /api/plans/delete: lists the documents a subtree
// deletion would remove, for confirmation display.
//
//	@Summary		Preview the affected set of a subtree deletion
//	@Tags			hierarchy
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeletePlanRequest	true	"Deletion to preview"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/delete [post]
func (h *Handler) PlanDelete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DeletePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	affected, err := h.svc.PlanDelete(r.Context(), req.Name)
	if err != nil {
		writeHierarchyError(w, err, "plan delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": affected,
		"total":     len(affected),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
