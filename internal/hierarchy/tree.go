// Package hierarchy implements the level-path hierarchy engine: tree
// assembly from a flat vault listing, renumbering plans for insert, move,
// and delete operations, and the mutator that executes a plan through the
// storage provider one rename at a time.
package hierarchy

import (
	"sort"

	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/models"
)

// Node is a document plus its ordered children. Trees are rebuilt from
// scratch on every refresh; a Node is never mutated after Build returns.
type Node struct {
	Doc      models.Document `json:"document"`
	Children []*Node         `json:"children"`
}

// Forest is the result of a tree build: root groups ordered by root index,
// plus the documents whose ancestor chain is incomplete. Orphans stay on
// disk untouched; they are surfaced so a UI can warn about them.
type Forest struct {
	Roots   []*Node           `json:"roots"`
	Orphans []models.Document `json:"orphans"`
}

// Build assembles the forest from a flat document listing. Root groups
// lacking a depth-1 document are dropped entirely; every member of such a
// group, and every document with a gap in its ancestor chain, is reported
// as an orphan.
func Build(docs []models.Document) *Forest {
	attached := make(map[string]bool, len(docs))
	var roots []*Node
	for _, d := range docs {
		if d.Path.Depth() != 1 {
			continue
		}
		roots = append(roots, buildNode(d, docs, attached))
	}
	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Doc.Path[0] < roots[j].Doc.Path[0]
	})

	f := &Forest{Roots: roots}
	for _, d := range docs {
		if !attached[d.Path.String()] {
			f.Orphans = append(f.Orphans, d)
		}
	}
	sort.Slice(f.Orphans, func(i, j int) bool {
		return levelpath.Compare(f.Orphans[i].Path, f.Orphans[j].Path) < 0
	})
	return f
}

// buildNode attaches every direct child of doc recursively. Recursion
// terminates because path depth strictly increases.
func buildNode(doc models.Document, docs []models.Document, attached map[string]bool) *Node {
	attached[doc.Path.String()] = true
	n := &Node{Doc: doc}
	for _, d := range docs {
		if d.Path.IsDirectChildOf(doc.Path) {
			n.Children = append(n.Children, buildNode(d, docs, attached))
		}
	}
	sort.Slice(n.Children, func(i, j int) bool {
		return levelpath.Compare(n.Children[i].Doc.Path, n.Children[j].Doc.Path) < 0
	})
	return n
}
