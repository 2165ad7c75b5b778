package hierarchy

import (
	"fmt"
	"sort"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/models"
)

// Mode selects where the moved subtree lands relative to the target.
type Mode string

const (
	// ModeChild appends the source as the last child of the target.
	ModeChild Mode = "child"
	// ModeBefore inserts the source as a sibling before the target.
	ModeBefore Mode = "before"
	// ModeAfter inserts the source as a sibling after the target.
	ModeAfter Mode = "after"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeChild || m == ModeBefore || m == ModeAfter
}

// Rename is one path reassignment. OldName is the filename the document
// carries when this step runs (earlier steps in the same plan may already
// have renamed it, e.g. to a temporary number).
type Rename struct {
	OldName string         `json:"old_name"`
	NewName string         `json:"new_name"`
	From    levelpath.Path `json:"-"`
	To      levelpath.Path `json:"-"`
}

// Plan is an ordered sequence of renames. Applying the steps in order
// keeps every intermediate filesystem state free of name collisions.
type Plan struct {
	Steps []Rename `json:"steps"`
}

// Empty reports whether the plan performs no work (a no-op move).
func (p *Plan) Empty() bool { return len(p.Steps) == 0 }

// planner accumulates rename steps against a working copy of the scope, so
// each step's OldName reflects every step emitted before it.
type planner struct {
	docs  []workingDoc
	steps []Rename
}

type workingDoc struct {
	name      string
	path      levelpath.Path
	fileTitle string
}

func newPlanner(docs []models.Document) *planner {
	pl := &planner{docs: make([]workingDoc, len(docs))}
	for i, d := range docs {
		pl.docs[i] = workingDoc{name: d.Name, path: d.Path, fileTitle: d.FileTitle}
	}
	return pl
}

// moveSubtree emits renames relocating the subtree anchored at from to the
// to path. Members are processed deepest-descendant-first so a subtree's
// internal relative structure is never disturbed mid-plan; every
// descendant is rewritten with Transform off the anchor change.
func (pl *planner) moveSubtree(from, to levelpath.Path) {
	var members []int
	for i, d := range pl.docs {
		if d.path.Equal(from) || from.IsAncestorOf(d.path) {
			members = append(members, i)
		}
	}
	sort.Slice(members, func(a, b int) bool {
		da, db := pl.docs[members[a]].path, pl.docs[members[b]].path
		if da.Depth() != db.Depth() {
			return da.Depth() > db.Depth()
		}
		return levelpath.Compare(da, db) < 0
	})
	for _, i := range members {
		d := &pl.docs[i]
		newPath, ok := d.path.Transform(from, to)
		if !ok {
			continue
		}
		newName := newPath.Name(d.fileTitle)
		pl.steps = append(pl.steps, Rename{
			OldName: d.name,
			NewName: newName,
			From:    d.path,
			To:      newPath,
		})
		d.name = newName
		d.path = newPath
	}
}

// directChildren returns the trailing numbers of every direct child of
// parent, ascending.
func (pl *planner) directChildren(parent levelpath.Path) []int {
	var nums []int
	for _, d := range pl.docs {
		if d.path.IsDirectChildOf(parent) {
			nums = append(nums, d.path.Last())
		}
	}
	sort.Ints(nums)
	return nums
}

// PlanMove computes the rename sequence realizing a move of the subtree
// anchored at sourceName relative to targetName. The snapshot must cover
// the whole scope. A move of a document to its own current position yields
// an empty plan.
func PlanMove(docs []models.Document, sourceName, targetName string, mode Mode) (*Plan, error) {
	if !mode.Valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	source, ok := findDoc(docs, sourceName)
	if !ok {
		return nil, fmt.Errorf("hierarchy: source %s: %w", sourceName, apperr.ErrNotFound)
	}
	target, ok := findDoc(docs, targetName)
	if !ok {
		return nil, fmt.Errorf("hierarchy: target %s: %w", targetName, apperr.ErrNotFound)
	}

	if source.Path.Equal(target.Path) {
		return &Plan{}, nil
	}
	if source.Path.IsAncestorOf(target.Path) {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cannot move %s under its own descendant %s", source.Path, target.Path),
		}
	}

	pl := newPlanner(docs)
	switch mode {
	case ModeChild:
		return pl.planChild(source, target)
	default:
		return pl.planSibling(source, target, mode == ModeBefore)
	}
}

// planChild appends source as the last child of target. Appending under a
// new parent needs no side-effect renumberings; appending under the
// current parent is a same-parent reorder to the final position.
func (pl *planner) planChild(source, target models.Document) (*Plan, error) {
	if source.Path.Depth() == 1 {
		// Re-parenting a whole root group would merge it into another
		// group's namespace.
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cannot merge root group %s under another document", source.Path),
		}
	}

	if source.Path.Parent().Equal(target.Path) {
		return pl.reorderWithinParent(target.Path, source.Path.Last(), -1, false)
	}

	nums := pl.directChildren(target.Path)
	next := 1
	if len(nums) > 0 {
		next = nums[len(nums)-1] + 1
	}
	pl.moveSubtree(source.Path, target.Path.Child(next))
	return &Plan{Steps: pl.steps}, nil
}

// planSibling inserts source before or after target within target's
// sibling set.
func (pl *planner) planSibling(source, target models.Document, before bool) (*Plan, error) {
	parent := target.Path.Parent()

	if source.Path.Depth() == 1 && parent.Depth() > 0 {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cannot merge root group %s into group %s", source.Path, levelpath.Path{target.Path[0]}),
		}
	}

	if source.Path.Parent().Equal(parent) {
		return pl.reorderWithinParent(parent, source.Path.Last(), target.Path.Last(), before)
	}

	// Cross-parent insert: shift every sibling at or past the insertion
	// index up by one, highest trailing number first so no intermediate
	// rename collides, then drop the moving subtree into the gap.
	srcIdx := pl.indexOf(source.Name)
	idx := target.Path.Last()
	if !before {
		idx++
	}
	nums := pl.directChildren(parent)
	for i := len(nums) - 1; i >= 0; i-- {
		if nums[i] < idx {
			break
		}
		from := parent.Child(nums[i])
		pl.moveSubtree(from, parent.Child(nums[i]+1))
	}
	// The shift may have relocated the source itself when it lives under a
	// shifted sibling of the destination parent, so move it from its
	// current working-copy path, not the snapshot one.
	pl.moveSubtree(pl.docs[srcIdx].path, parent.Child(idx))
	return &Plan{Steps: pl.steps}, nil
}

// reorderWithinParent renumbers an unchanged sibling set so that the
// sibling currently numbered moving lands next to anchor (or last when
// anchor < 0). Final numbers are 1..N with no gaps; only siblings whose
// number actually changes are renamed.
//
// Renaming runs in two phases: every changing sibling first moves to a
// temporary number in a range disjoint from both old and new numbers, then
// from the temporary to the final number. The offset is derived from the
// sibling set itself rather than a fixed constant, so it can never collide
// regardless of how many siblings exist.
func (pl *planner) reorderWithinParent(parent levelpath.Path, moving, anchor int, before bool) (*Plan, error) {
	nums := pl.directChildren(parent)

	// Final order: current order with the moving number pulled out and
	// reinserted relative to the anchor.
	order := make([]int, 0, len(nums))
	for _, n := range nums {
		if n != moving {
			order = append(order, n)
		}
	}
	if anchor < 0 {
		order = append(order, moving)
	} else {
		pos := len(order)
		for i, n := range order {
			if n == anchor {
				pos = i
				if !before {
					pos = i + 1
				}
				break
			}
		}
		order = append(order[:pos], append([]int{moving}, order[pos:]...)...)
	}

	// old trailing number -> final number
	final := make(map[int]int, len(order))
	maxNum := len(order)
	for i, n := range order {
		final[n] = i + 1
		if n > maxNum {
			maxNum = n
		}
	}

	var changed []int
	for _, n := range nums {
		if final[n] != n {
			changed = append(changed, n)
		}
	}
	if len(changed) == 0 {
		return &Plan{}, nil
	}

	// Phase 1: park every changing sibling in the temporary range,
	// highest current number first.
	offset := maxNum
	sort.Sort(sort.Reverse(sort.IntSlice(changed)))
	for _, n := range changed {
		pl.moveSubtree(parent.Child(n), parent.Child(offset+final[n]))
	}

	// Phase 2: settle from temporary to final numbers.
	sort.Slice(changed, func(i, j int) bool { return final[changed[i]] < final[changed[j]] })
	for _, n := range changed {
		pl.moveSubtree(parent.Child(offset+final[n]), parent.Child(final[n]))
	}

	return &Plan{Steps: pl.steps}, nil
}

// PlanDelete returns the documents removed by deleting the subtree
// anchored at name, deepest first so no document is orphaned before its
// descendants are gone. The anchor is last.
func PlanDelete(docs []models.Document, name string) ([]models.Document, error) {
	anchor, ok := findDoc(docs, name)
	if !ok {
		return nil, fmt.Errorf("hierarchy: %s: %w", name, apperr.ErrNotFound)
	}
	var affected []models.Document
	for _, d := range docs {
		if anchor.Path.IsAncestorOf(d.Path) {
			affected = append(affected, d)
		}
	}
	sort.Slice(affected, func(i, j int) bool {
		di, dj := affected[i].Path, affected[j].Path
		if di.Depth() != dj.Depth() {
			return di.Depth() > dj.Depth()
		}
		return levelpath.Compare(di, dj) < 0
	})
	affected = append(affected, anchor)
	return affected, nil
}

// indexOf locates a document in the working copy by its snapshot name.
// Callers resolve indices before emitting any step, while names still
// match the snapshot.
func (pl *planner) indexOf(name string) int {
	for i, d := range pl.docs {
		if d.name == name {
			return i
		}
	}
	return -1
}

func findDoc(docs []models.Document, name string) (models.Document, bool) {
	for _, d := range docs {
		if d.Name == name {
			return d, true
		}
	}
	return models.Document{}, false
}
