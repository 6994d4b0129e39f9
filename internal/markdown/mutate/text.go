package mutate

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

// Splice deletes del bytes at the point and inserts text there, then
// re-parses the leaf.
func Splice(doc *ast.Document, p *parser.Parser, at ast.Point, del int, insert string) (*Result, bool) {
	leaf, rel, ok := locate(doc, at)
	if !ok || del < 0 || rel+del > len(leaf.Text) {
		return nil, false
	}
	if at.InlineID != 0 && at.Position+del > len(doc.Inline(at.InlineID).Text.Symbolic) {
		return nil, false
	}
	start := leaf.Position.Start
	t := leaf.Text
	reparseLeaf(doc, p, leaf, t[:rel]+insert+t[rel+del:])
	return &Result{Offset: start + rel + len(insert), Affinity: at.Affinity}, true
}

// ReplaceText sets the symbolic text of the inline with id and puts the caret
// at caret inside the new text.
func ReplaceText(doc *ast.Document, p *parser.Parser, id ast.NodeID, text string, caret int) (*Result, bool) {
	in, leaf := doc.Inline(id), doc.Owner(id)
	if in == nil || leaf == nil || caret < 0 || caret > len(text) {
		return nil, false
	}
	start := leaf.Position.Start + in.Position.Start
	t := leaf.Text
	reparseLeaf(doc, p, leaf, t[:in.Position.Start]+text+t[in.Position.End:])
	return &Result{Offset: start + caret}, true
}

// DeleteRange replaces the text selected by r with insert. A range within
// one leaf is a splice; a range across leaves joins the first and last leaf
// and removes everything between.
func DeleteRange(doc *ast.Document, p *parser.Parser, r ast.Range, insert string) (*Result, bool) {
	sOff, ok1 := doc.Offset(r.Start)
	eOff, ok2 := doc.Offset(r.End)
	if !ok1 || !ok2 {
		return nil, false
	}
	start, end := r.Start, r.End
	if sOff > eOff {
		start, end = end, start
		sOff, eOff = eOff, sOff
	}
	a, aRel, ok1 := locate(doc, start)
	b, bRel, ok2 := locate(doc, end)
	if !ok1 || !ok2 {
		return nil, false
	}
	removed := joinLeaves(doc, p, a, aRel, insert, b, bRel)
	return &Result{Offset: sOff + len(insert), Removed: removed}, true
}

// MergeCodeBlockContent turns the code block with id back into ordinary
// text: the fences go away and the content is re-parsed as markdown.
func MergeCodeBlockContent(doc *ast.Document, p *parser.Parser, id ast.NodeID) (*Result, bool) {
	b := doc.Block(id)
	if b == nil || b.Kind != ast.CodeBlock || b.Code == nil {
		return nil, false
	}
	start := b.Position.Start
	var text string
	lead := 0
	if b.Code.IsFenced {
		if len(b.Inlines) < 2 {
			return nil, false
		}
		open := b.Inlines[0].Text.Symbolic
		prefix := open
		if i := strings.Index(open, strings.Repeat(b.Code.FenceChar, b.Code.FenceLength)); i >= 0 {
			prefix = open[:i]
		}
		body := strings.TrimPrefix(b.Inlines[1].Text.Symbolic, "\n")
		body = strings.TrimSuffix(body, "\n")
		text = body
		if body == "" {
			text = strings.TrimRight(prefix, " \t")
		}
		lead = min(len(prefix), len(text))
	} else {
		text = ast.SemanticText(b.Inlines)
	}
	reparseLeaf(doc, p, b, text)
	return &Result{Offset: start + lead, Affinity: ast.Forward}, true
}
