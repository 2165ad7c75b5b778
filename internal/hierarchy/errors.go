package hierarchy

import (
	"fmt"

	"github.com/starford/eihwaz/internal/apperr"
)

// ValidationError rejects an operation before any external call is issued:
// the requested move would create a cycle, merge root groups, or target an
// invalid position.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "hierarchy: " + e.Reason
}

// Is lets callers match validation failures against apperr.ErrInvalidMove.
func (e *ValidationError) Is(target error) bool {
	return target == apperr.ErrInvalidMove
}

// ConflictError reports that a computed target name is already occupied by
// a document outside the plan. No external call has been made.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hierarchy: target name already occupied: %s", e.Name)
}

// Is lets callers match conflicts against apperr.ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == apperr.ErrConflict
}
