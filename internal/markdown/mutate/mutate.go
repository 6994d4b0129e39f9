// Package mutate edits a parsed document in place.
//
// Every operation expects a normalized document (texts and positions up to
// date) and returns a Result describing where the caret lands in the edited
// text. Operations rewrite leaf text and re-parse the touched leaves, so the
// tree they leave behind has stale positions; Renormalize re-derives the whole
// tree from its flattened text and carries node ids over by position.
package mutate

import (
	"fmt"

	"github.com/rivo/uniseg"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

// Boundary says which characters at the seam of a merge are deleted.
type Boundary uint8

const (
	// KeepBoth joins the inlines unchanged. The deleted character was the
	// separator between them.
	KeepBoth Boundary = iota
	// DropLeftLast deletes the last character of the left inline.
	DropLeftLast
	// DropLeft deletes the whole left inline.
	DropLeft
	// DropRightFirst deletes the first character of the right inline.
	DropRightFirst
	// DropRight deletes the whole right inline.
	DropRight
)

var boundaryNames = [...]string{
	KeepBoth:       "keepBoth",
	DropLeftLast:   "dropLeftLast",
	DropLeft:       "dropLeft",
	DropRightFirst: "dropRightFirst",
	DropRight:      "dropRight",
}

func (b Boundary) String() string {
	if int(b) < len(boundaryNames) {
		return boundaryNames[b]
	}
	return fmt.Sprintf("Boundary(%d)", uint8(b))
}

func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Boundary) UnmarshalText(text []byte) error {
	for i, name := range boundaryNames {
		if name == string(text) {
			*b = Boundary(i)
			return nil
		}
	}
	return fmt.Errorf("mutate: unknown boundary %q", text)
}

// apply returns the left and right texts with the boundary applied.
func (b Boundary) apply(left, right string) (string, string) {
	switch b {
	case DropLeftLast:
		return dropLast(left), right
	case DropLeft:
		return "", right
	case DropRightFirst:
		return left, dropFirst(right)
	case DropRight:
		return left, ""
	}
	return left, right
}

// Result locates the caret after an edit. Offset is absolute in the
// flattened text of the edited document.
type Result struct {
	Offset   int
	Affinity ast.Affinity
	Removed  []*ast.Block
}

// reparseLeaf replaces leaf b with the parse of text, keeping b's id and the
// ids of inlines outside the changed span.
func reparseLeaf(doc *ast.Document, p *parser.Parser, b *ast.Block, text string) {
	nb := p.ParseLeaf(text)
	carryEdited(b.Inlines, nb.Inlines, b.Text, text)
	id := b.ID
	*b = *nb
	b.ID = id
	doc.Reindex()
}

// locate resolves a point to its leaf and a leaf-relative offset.
func locate(doc *ast.Document, pt ast.Point) (*ast.Block, int, bool) {
	abs, ok := doc.Offset(pt)
	if !ok {
		return nil, 0, false
	}
	leaf := doc.Block(pt.BlockID)
	if pt.InlineID != 0 {
		leaf = doc.Owner(pt.InlineID)
	}
	if leaf == nil {
		return nil, 0, false
	}
	return leaf, abs - leaf.Position.Start, true
}

// findInline returns the inline with id inside b's inline tree.
func findInline(b *ast.Block, id ast.NodeID) *ast.Inline {
	var found *ast.Inline
	ast.WalkInlines(b.Inlines, func(in *ast.Inline) {
		if in.ID == id {
			found = in
		}
	})
	return found
}

// dropLast removes the last grapheme cluster of s.
func dropLast(s string) string {
	if s == "" {
		return s
	}
	last := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		last, _ = g.Positions()
	}
	return s[:last]
}

// dropFirst removes the first grapheme cluster of s.
func dropFirst(s string) string {
	_, rest, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return rest
}
