package mutate

import (
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

// MergeInline joins the inline leftID with the later inline rightID and
// drops everything between them. The boundary decides what happens to the
// characters at the seam.
//
// Three cases are handled:
//   - both inlines in one leaf: the leaf is re-parsed in place;
//   - leaves sharing a list or block quote: the owner's text is re-parsed
//     and replaces its children wholesale;
//   - unrelated leaves: the right leaf's tail is spliced onto the left leaf
//     and the right leaf is removed along with any container it empties.
func MergeInline(doc *ast.Document, p *parser.Parser, leftID, rightID ast.NodeID, boundary Boundary) (*Result, bool) {
	l, r := doc.Inline(leftID), doc.Inline(rightID)
	lb, rb := doc.Owner(leftID), doc.Owner(rightID)
	if l == nil || r == nil || lb == nil || rb == nil {
		return nil, false
	}
	lAbs := lb.Position.Start + l.Position.Start
	rAbs := rb.Position.Start + r.Position.Start
	if lAbs+l.Position.Len() > rAbs {
		return nil, false
	}
	lText, rText := boundary.apply(l.Text.Symbolic, r.Text.Symbolic)
	res := &Result{Offset: lAbs + len(lText)}
	seam := lText + rText

	if owner := mergeOwner(doc, lb, rb); lb != rb && owner != nil {
		o := owner.Text
		base := owner.Position.Start
		text := o[:lAbs-base] + seam + o[rAbs+r.Position.Len()-base:]
		ClearInlinesUnder(doc, owner.ID)
		replaceOwner(doc, p, owner, text)
		res.Removed = []*ast.Block{rb}
		return res, true
	}

	res.Removed = joinLeaves(doc, p, lb, l.Position.Start, seam, rb, r.Position.End)
	return res, true
}

// mergeOwner returns the nearest container holding both leaves, when that
// container is a list, list item or block quote.
func mergeOwner(doc *ast.Document, lb, rb *ast.Block) *ast.Block {
	right := map[ast.NodeID]bool{}
	for _, a := range doc.Ancestors(rb.ID) {
		right[a.ID] = true
	}
	for _, a := range doc.Ancestors(lb.ID) {
		if !right[a.ID] {
			continue
		}
		switch a.Kind {
		case ast.List, ast.ListItem, ast.TaskListItem, ast.BlockQuote:
			return a
		}
		return nil
	}
	return nil
}

// replaceOwner re-parses text and puts the result where owner was. The first
// resulting block inherits owner's id.
func replaceOwner(doc *ast.Document, p *parser.Parser, owner *ast.Block, text string) {
	blocks := p.ParseBlocks(text)
	if len(blocks) == 1 && blocks[0].Kind == owner.Kind {
		id := owner.ID
		*owner = *blocks[0]
		owner.ID = id
		doc.Reindex()
		return
	}
	blocks[0].ID = owner.ID
	doc.Replace(owner.ID, blocks...)
}

// leavesBetween returns the leaves strictly between a and b in document
// order.
func leavesBetween(doc *ast.Document, a, b *ast.Block) []*ast.Block {
	var out []*ast.Block
	inside := false
	for _, leaf := range doc.Leaves() {
		switch {
		case leaf == a:
			inside = true
		case leaf == b:
			return out
		case inside:
			out = append(out, leaf)
		}
	}
	return out
}

// joinLeaves keeps a's text up to aEnd, then mid, then b's text from bStart,
// and removes b together with every leaf between them.
func joinLeaves(doc *ast.Document, p *parser.Parser, a *ast.Block, aEnd int, mid string, b *ast.Block, bStart int) []*ast.Block {
	if a == b {
		reparseLeaf(doc, p, a, a.Text[:aEnd]+mid+a.Text[bStart:])
		return nil
	}
	between := leavesBetween(doc, a, b)
	reparseLeaf(doc, p, a, a.Text[:aEnd]+mid+b.Text[bStart:])
	var removed []*ast.Block
	for _, leaf := range append(between, b) {
		removed = append(removed, RemoveBlockCascade(doc, leaf)...)
	}
	return removed
}
