// Package levelpath implements the dotted-integer level paths that encode
// the document hierarchy in filenames, e.g. "2.3.1. Title.md" sits under
// "2.3. Parent.md". All operations are pure; a Path is never mutated in place.
package levelpath

import (
	"regexp"
	"strconv"
	"strings"
)

// Extension is the fixed document file extension.
const Extension = ".md"

// nameRe matches "<int>(.<int>)*.<optional space><title>.md".
// Segments must be positive with no leading zeros; anything else is a
// foreign file and decodes to nil. The separator dot may be followed by a
// single space (the encoder always emits one, older names may lack it).
var nameRe = regexp.MustCompile(`^([1-9][0-9]*(?:\.[1-9][0-9]*)*)\. ?(.+)\.md$`)

// Path is an ordered sequence of positive integers identifying a position
// in the hierarchy. The empty path denotes the root scope itself (the
// parent of all depth-1 documents).
type Path []int

// ParseName decodes a filename into its level path and embedded title.
// It returns (nil, "", false) for names that do not follow the convention.
func ParseName(name string) (Path, string, bool) {
	m := nameRe.FindStringSubmatch(name)
	if m == nil {
		return nil, "", false
	}
	segs := strings.Split(m[1], ".")
	p := make(Path, len(segs))
	for i, s := range segs {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, "", false
		}
		p[i] = n
	}
	return p, m[2], true
}

// Name encodes a path and title back into a filename. It is the inverse of
// ParseName for every name this package produces: ParseName(p.Name(t))
// yields (p, t, true) for any non-empty path and title.
func (p Path) Name(title string) string {
	segs := make([]string, len(p))
	for i, n := range p {
		segs[i] = strconv.Itoa(n)
	}
	return strings.Join(segs, ".") + ". " + title + Extension
}

// String renders the path in dotted form without title or extension.
func (p Path) String() string {
	segs := make([]string, len(p))
	for i, n := range p {
		segs[i] = strconv.Itoa(n)
	}
	return strings.Join(segs, ".")
}

// ParseString decodes a dotted form produced by String.
func ParseString(s string) (Path, bool) {
	if s == "" {
		return Path{}, true
	}
	segs := strings.Split(s, ".")
	p := make(Path, len(segs))
	for i, seg := range segs {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 1 || (seg[0] == '0') {
			return nil, false
		}
		p[i] = n
	}
	return p, true
}

// Depth returns the number of segments.
func (p Path) Depth() int { return len(p) }

// Last returns the trailing segment. It panics on the empty path.
func (p Path) Last() int { return p[len(p)-1] }

// Parent returns the path with the trailing segment removed. The parent of
// a depth-1 path is the empty path.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	out := make(Path, len(p)-1)
	copy(out, p[:len(p)-1])
	return out
}

// Child returns a copy of p with n appended.
func (p Path) Child(n int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = n
	return out
}

// Equal reports whether two paths have the same length and segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Compare orders paths lexicographically over their integer segments,
// treating a missing segment as 0 (so a parent sorts before its children).
func Compare(a, b Path) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsAncestorOf reports whether p is a strict ancestor of q: q is deeper and
// has p as an exact prefix. The empty path is an ancestor of every
// non-empty path.
func (p Path) IsAncestorOf(q Path) bool {
	if len(q) <= len(p) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// IsDirectChildOf reports whether p is exactly one level below parent with
// parent as its prefix.
func (p Path) IsDirectChildOf(parent Path) bool {
	return len(p) == len(parent)+1 && parent.IsAncestorOf(p)
}

// Transform rewrites p by replacing its source prefix with target,
// preserving the suffix. p must equal source or lie beneath it; callers
// guarantee this, and ok is false otherwise. Every descendant of a moved
// subtree is rewritten through this rule, never renumbered independently.
func (p Path) Transform(source, target Path) (Path, bool) {
	if !p.Equal(source) && !source.IsAncestorOf(p) {
		return nil, false
	}
	suffix := p[len(source):]
	out := make(Path, 0, len(target)+len(suffix))
	out = append(out, target...)
	out = append(out, suffix...)
	return out, true
}
