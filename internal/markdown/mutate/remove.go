package mutate

import (
	"github.com/starford/quire/internal/markdown/ast"
)

// RemoveBlockCascade detaches b, then every ancestor the removal leaves
// empty, stopping at the first ancestor that still has content. It returns
// the removed blocks innermost first.
func RemoveBlockCascade(doc *ast.Document, b *ast.Block) []*ast.Block {
	ancestors := doc.Ancestors(b.ID)
	if !doc.RemoveChild(b.ID) {
		return nil
	}
	removed := []*ast.Block{b}
	for _, a := range ancestors {
		if !a.IsEmpty() {
			break
		}
		doc.RemoveChild(a.ID)
		removed = append(removed, a)
	}
	return removed
}

// RemoveBlock removes the block with id and its emptied ancestors. With
// Forward affinity the caret lands where the block started, on whatever now
// follows; with Backward it lands at the end of what precedes.
func RemoveBlock(doc *ast.Document, id ast.NodeID, aff ast.Affinity) (*Result, bool) {
	b := doc.Block(id)
	if b == nil {
		return nil, false
	}
	off := b.Position.Start
	if aff == ast.Backward && off > 0 {
		off--
	}
	removed := RemoveBlockCascade(doc, b)
	if len(removed) == 0 {
		return nil, false
	}
	return &Result{Offset: off, Affinity: aff, Removed: removed}, true
}

// ClearInlinesUnder empties the inlines of the block with ownerID and of
// every block below it.
func ClearInlinesUnder(doc *ast.Document, ownerID ast.NodeID) {
	owner := doc.Block(ownerID)
	if owner == nil {
		return
	}
	owner.Inlines = nil
	ast.WalkBlocks(owner.Blocks, func(b, _ *ast.Block) bool {
		b.Inlines = nil
		return true
	})
}
