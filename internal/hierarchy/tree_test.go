package hierarchy

import (
	"testing"

	"github.com/starford/eihwaz/internal/levelpath"
	"github.com/starford/eihwaz/internal/models"
)

// docsFromNames builds a snapshot from filenames, failing on any name that
// does not decode.
func docsFromNames(t *testing.T, names ...string) []models.Document {
	t.Helper()
	docs := make([]models.Document, 0, len(names))
	for _, n := range names {
		p, title, ok := levelpath.ParseName(n)
		if !ok {
			t.Fatalf("bad test name: %q", n)
		}
		docs = append(docs, models.Document{Name: n, Path: p, FileTitle: title, Title: title})
	}
	return docs
}

func TestBuild_Forest(t *testing.T) {
	docs := docsFromNames(t,
		"2. Related.md",
		"1. Intro.md",
		"1.2. Motivation.md",
		"1.1. Background.md",
		"2.1. ESRGAN.md",
		"2.1.1. Architecture.md",
	)
	f := Build(docs)

	if len(f.Roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(f.Roots))
	}
	if f.Roots[0].Doc.Name != "1. Intro.md" || f.Roots[1].Doc.Name != "2. Related.md" {
		t.Errorf("root order: %s, %s", f.Roots[0].Doc.Name, f.Roots[1].Doc.Name)
	}

	intro := f.Roots[0]
	if len(intro.Children) != 2 {
		t.Fatalf("intro children = %d", len(intro.Children))
	}
	if intro.Children[0].Doc.Name != "1.1. Background.md" || intro.Children[1].Doc.Name != "1.2. Motivation.md" {
		t.Errorf("sibling order: %s, %s", intro.Children[0].Doc.Name, intro.Children[1].Doc.Name)
	}

	related := f.Roots[1]
	if len(related.Children) != 1 || len(related.Children[0].Children) != 1 {
		t.Fatal("nested chain under 2 not assembled")
	}
	if related.Children[0].Children[0].Doc.Name != "2.1.1. Architecture.md" {
		t.Errorf("grandchild = %s", related.Children[0].Children[0].Doc.Name)
	}
	if len(f.Orphans) != 0 {
		t.Errorf("orphans = %v", f.Orphans)
	}
}

func TestBuild_GroupWithoutRootIsDropped(t *testing.T) {
	docs := docsFromNames(t,
		"1. Intro.md",
		"3.1. Lost.md", // no "3. ..." root
		"3.1.1. Deeper.md",
	)
	f := Build(docs)
	if len(f.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(f.Roots))
	}
	if len(f.Orphans) != 2 {
		t.Fatalf("orphans = %d, want 2", len(f.Orphans))
	}
	if f.Orphans[0].Name != "3.1. Lost.md" {
		t.Errorf("orphan order: %v", f.Orphans)
	}
}

func TestBuild_GapInAncestorChain(t *testing.T) {
	docs := docsFromNames(t,
		"1. Intro.md",
		"1.2.1. Stranded.md", // 1.2 missing
	)
	f := Build(docs)
	if len(f.Roots) != 1 || len(f.Roots[0].Children) != 0 {
		t.Error("stranded document must not attach to the tree")
	}
	if len(f.Orphans) != 1 || f.Orphans[0].Name != "1.2.1. Stranded.md" {
		t.Errorf("orphans = %v", f.Orphans)
	}
}

func TestBuild_Empty(t *testing.T) {
	f := Build(nil)
	if len(f.Roots) != 0 || len(f.Orphans) != 0 {
		t.Errorf("empty build: %+v", f)
	}
}
