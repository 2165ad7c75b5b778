package hierarchy

import (
	"fmt"

	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/storage"
)

// Mutator executes computed plans against the storage provider. All
// external calls are strictly sequential; a failure mid-sequence aborts
// the remaining steps and leaves earlier renames in place (no rollback —
// the next refresh shows the actual on-disk state).
type Mutator struct {
	store storage.Provider
}

// NewMutator creates a Mutator issuing calls through store.
func NewMutator(store storage.Provider) *Mutator {
	return &Mutator{store: store}
}

// Apply validates the plan against the current scope listing and then
// issues the renames in order. The conflict simulation walks every step
// before the first external call: a target name occupied by a document
// outside the plan aborts the whole operation with a ConflictError.
func (m *Mutator) Apply(current []models.Document, plan *Plan) error {
	if plan.Empty() {
		return nil
	}

	occupied := make(map[string]bool, len(current))
	for _, d := range current {
		occupied[d.Name] = true
	}
	for _, step := range plan.Steps {
		if !occupied[step.OldName] {
			return fmt.Errorf("hierarchy: plan is stale, %s no longer exists", step.OldName)
		}
		if occupied[step.NewName] {
			return &ConflictError{Name: step.NewName}
		}
		delete(occupied, step.OldName)
		occupied[step.NewName] = true
	}

	for i, step := range plan.Steps {
		if err := m.store.Move(step.OldName, step.NewName); err != nil {
			return fmt.Errorf("hierarchy: apply step %d/%d (%s -> %s): %w",
				i+1, len(plan.Steps), step.OldName, step.NewName, err)
		}
	}
	return nil
}

// DeleteSubtree removes the documents in order (deepest first, anchor
// last, as produced by PlanDelete) and returns how many were removed. A
// storage failure stops the sequence; the count covers only completed
// deletes.
func (m *Mutator) DeleteSubtree(affected []models.Document) (int, error) {
	for i, d := range affected {
		if err := m.store.Delete(d.Name); err != nil {
			return i, fmt.Errorf("hierarchy: delete %s: %w", d.Name, err)
		}
	}
	return len(affected), nil
}
