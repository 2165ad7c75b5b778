package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/checksum"
	"github.com/starford/eihwaz/internal/index"
	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/parser"
	"github.com/starford/eihwaz/internal/storage"
)

// Detail is the full representation of a single document.
type Detail struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	FileTitle   string         `json:"file_title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Service coordinates the hierarchy engine with storage and the index.
// Every mutation works off a fresh scope snapshot; the tree is rebuilt,
// never patched in place.
type Service struct {
	store    storage.Provider
	db       *index.DB
	mutator  *Mutator
	template string // vault-relative template filename, optional
}

// NewService creates a new hierarchy service. template may be empty; when
// set, new documents are seeded from that vault file's content.
func NewService(store storage.Provider, db *index.DB, template string) *Service {
	return &Service{
		store:    store,
		db:       db,
		mutator:  NewMutator(store),
		template: template,
	}
}

// Snapshot lists the vault and decodes every conforming filename into a
// document record. Display titles come from the index's metadata-title
// cache, falling back to the filename title. Foreign files are excluded.
func (s *Service) Snapshot(_ context.Context) ([]models.Document, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, err
	}
	titles, err := s.db.TitleMap()
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	for _, m := range metas {
		path, fileTitle, ok := levelpath.ParseName(m.Name)
		if !ok {
			continue
		}
		title := titles[m.Name]
		if title == "" {
			title = fileTitle
		}
		docs = append(docs, models.Document{
			Name:      m.Name,
			Path:      path,
			FileTitle: fileTitle,
			Title:     title,
			Checksum:  m.Checksum,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return docs, nil
}

// Tree rebuilds and returns the display forest.
func (s *Service) Tree(ctx context.Context) (*Forest, error) {
	docs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Build(docs), nil
}

// PlanMove computes the rename plan for a move without applying it.
func (s *Service) PlanMove(ctx context.Context, sourceName, targetName string, mode Mode) (*Plan, error) {
	docs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return PlanMove(docs, sourceName, targetName, mode)
}

// Move plans and applies a move in one operation, then re-keys the index
// for every applied rename.
func (s *Service) Move(ctx context.Context, sourceName, targetName string, mode Mode) (*Plan, error) {
	docs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := PlanMove(docs, sourceName, targetName, mode)
	if err != nil {
		return nil, err
	}
	if err := s.mutator.Apply(docs, plan); err != nil {
		return nil, err
	}
	for _, step := range plan.Steps {
		path, fileTitle, ok := levelpath.ParseName(step.NewName)
		if !ok {
			continue
		}
		if err := s.db.RenameDocument(step.OldName, step.NewName, path.String(), path.Depth(), fileTitle); err != nil {
			// The watcher's reconciliation pass will repair the index.
			continue
		}
	}
	return plan, nil
}

// PlanDelete returns the full affected set for a subtree deletion, for
// confirmation display before committing.
func (s *Service) PlanDelete(ctx context.Context, name string) ([]models.Document, error) {
	docs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return PlanDelete(docs, name)
}

// Delete removes the subtree anchored at name, deepest document first, and
// returns how many documents were removed.
func (s *Service) Delete(ctx context.Context, name string) (int, error) {
	affected, err := s.PlanDelete(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := s.mutator.DeleteSubtree(affected)
	for _, d := range affected[:n] {
		_ = s.db.DeleteDocument(d.Name)
	}
	return n, err
}

// Create makes a new document under parentName (or a new root group when
// parentName is empty), numbered one past the last existing sibling. The
// title arrives already resolved by the caller; content is duplicated from
// the configured template when present, else a frontmatter stub.
func (s *Service) Create(ctx context.Context, parentName, title string) (*Detail, error) {
	if title == "" {
		return nil, &ValidationError{Reason: "title is required"}
	}
	docs, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	parentPath := levelpath.Path{}
	if parentName != "" {
		parent, ok := findDoc(docs, parentName)
		if !ok {
			return nil, fmt.Errorf("hierarchy: parent %s: %w", parentName, apperr.ErrNotFound)
		}
		parentPath = parent.Path
	}

	next := 1
	for _, d := range docs {
		if d.Path.IsDirectChildOf(parentPath) && d.Path.Last() >= next {
			next = d.Path.Last() + 1
		}
	}
	newPath := parentPath.Child(next)
	newName := newPath.Name(title)

	if _, err := s.store.Read(newName); err == nil {
		return nil, fmt.Errorf("hierarchy: %s: %w", newName, apperr.ErrAlreadyExists)
	}

	content := s.templateContent(title)
	if err := s.store.Write(newName, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(newName, content); err != nil {
		return nil, err
	}
	return s.buildDetail(newName, content)
}

// templateContent returns the seed content for a new document.
func (s *Service) templateContent(title string) []byte {
	if s.template != "" {
		if data, err := s.store.Read(s.template); err == nil {
			return data
		}
	}
	return []byte(fmt.Sprintf("---\ntitle: %s\n---\n\n# %s\n", title, title))
}

// Get reads a document from storage and parses it.
func (s *Service) Get(_ context.Context, name string) (*Detail, error) {
	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(name, data)
}

// Update writes new content with optimistic concurrency: a non-empty
// ifMatch must equal the current content checksum.
func (s *Service) Update(_ context.Context, name string, content []byte, ifMatch string) (*Detail, error) {
	existing, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(name, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(name, content); err != nil {
		return nil, err
	}
	return s.buildDetail(name, content)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// List returns paginated index rows for flat listings.
func (s *Service) List(_ context.Context, limit, offset int, sort string) ([]index.DocumentRow, int, error) {
	return s.db.ListDocuments(limit, offset, sort)
}

// indexFile parses data and upserts it into the index.
func (s *Service) indexFile(name string, data []byte) error {
	path, fileTitle, ok := levelpath.ParseName(name)
	if !ok {
		return nil
	}
	res := parser.Parse(data)
	return s.db.UpsertDocument(index.DocumentRow{
		Name:      name,
		LevelPath: path.String(),
		Depth:     path.Depth(),
		Title:     res.Title,
		FileTitle: fileTitle,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}, res.Body)
}

// buildDetail constructs a Detail from raw data without re-reading the file.
func (s *Service) buildDetail(name string, data []byte) (*Detail, error) {
	path, fileTitle, ok := levelpath.ParseName(name)
	if !ok {
		return nil, fmt.Errorf("hierarchy: %s is not a hierarchy document", name)
	}
	res := parser.Parse(data)
	title := res.Title
	if title == "" {
		title = fileTitle
	}
	return &Detail{
		Name:        name,
		Path:        path.String(),
		Title:       title,
		FileTitle:   fileTitle,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: res.Frontmatter,
		UpdatedAt:   time.Now(),
	}, nil
}
