package resolve

import (
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/mutate"
)

// codeContent returns the text inline of a code block and the bounds of the
// editable content inside it. For a fenced block the content starts after
// the newline ending the opening fence and stops before the newline opening
// the closing one; hi < lo means there is none.
func codeContent(leaf *ast.Block) (in *ast.Inline, lo, hi int, ok bool) {
	if leaf.Code == nil || len(leaf.Inlines) == 0 {
		return nil, 0, 0, false
	}
	if !leaf.Code.IsFenced {
		in = leaf.Inlines[0]
		return in, 0, len(in.Text.Symbolic), true
	}
	if len(leaf.Inlines) < 2 {
		return nil, 0, 0, false
	}
	in = leaf.Inlines[1]
	lo, hi = 1, len(in.Text.Symbolic)
	if leaf.Code.Closed && len(leaf.Inlines) > 2 {
		hi--
	}
	return in, lo, hi, true
}

// codeCaret maps a caret anywhere in a code block onto its content. Carets on
// the fences land at the nearest content edge.
func codeCaret(leaf *ast.Block, pt ast.Point, in *ast.Inline, lo, hi int) int {
	switch {
	case hi < lo:
		return lo
	case pt.InlineID == in.ID:
		return max(lo, min(pt.Position, hi))
	case len(leaf.Inlines) > 0 && pt.InlineID == leaf.Inlines[0].ID:
		return lo
	}
	return hi
}

func (r *Resolver) codeInsert(leaf *ast.Block, pt ast.Point, text string) *EditEffect {
	in, lo, hi, ok := codeContent(leaf)
	if !ok {
		return nil
	}
	if hi < lo {
		body := "\n" + text
		if leaf.Code.Closed {
			body += "\n"
		}
		return edits(mutate.Edit{
			Kind:  mutate.KindReplaceText,
			At:    ast.Point{BlockID: leaf.ID, InlineID: in.ID},
			Text:  body,
			Caret: 1 + len(text),
		})
	}
	pos := codeCaret(leaf, pt, in, lo, hi)
	return edits(mutate.Edit{
		Kind:   mutate.KindSplice,
		At:     ast.Point{BlockID: leaf.ID, InlineID: in.ID, Position: pos},
		Insert: text,
	})
}

func (r *Resolver) codeDelete(leaf *ast.Block, pt ast.Point, forward bool) *EditEffect {
	in, lo, hi, ok := codeContent(leaf)
	if !ok {
		return nil
	}
	pos := codeCaret(leaf, pt, in, lo, hi)
	sym := in.Text.Symbolic
	at := ast.Point{BlockID: leaf.ID, InlineID: in.ID}
	switch {
	case forward && (hi < lo || pos >= hi):
		return noop()
	case forward:
		at.Position = pos
		return edits(mutate.Edit{Kind: mutate.KindSplice, At: at, Delete: nextCluster(sym[:hi], pos)})
	case hi < lo || pos <= lo:
		return edits(mutate.Edit{Kind: mutate.KindMergeCodeBlockContent, BlockID: leaf.ID})
	}
	g := prevCluster(sym, pos)
	at.Position = pos - g
	return edits(mutate.Edit{Kind: mutate.KindSplice, At: at, Delete: g})
}
