package mutate

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

// SplitOptions tune a split. RightPrefix is prepended to the right half, for
// example a fresh list bullet or a "> " quote prefix.
type SplitOptions struct {
	RightPrefix string
}

// Split holds the two halves of a split leaf. Left keeps the original id.
type Split struct {
	Left  *ast.Block
	Right *ast.Block
}

// SplitBlock splits leaf b at caret inside the inline with inlineID and
// re-parses both halves. An inlineID of zero addresses b's own text, for
// leaves without inlines. b itself is not modified.
//
// A left half left blank becomes a paragraph whatever it parsed as.
func SplitBlock(p *parser.Parser, b *ast.Block, inlineID ast.NodeID, caret int, opts SplitOptions) (*Split, bool) {
	if b == nil || !b.IsLeaf() {
		return nil, false
	}
	off := caret
	if inlineID != 0 {
		in := findInline(b, inlineID)
		if in == nil || caret < 0 || caret > len(in.Text.Symbolic) {
			return nil, false
		}
		off = in.Position.Start + caret
	}
	if off < 0 || off > len(b.Text) {
		return nil, false
	}

	left := p.ParseLeaf(b.Text[:off])
	left.ID = b.ID
	if strings.TrimSpace(left.Text) == "" && left.Kind != ast.BlockQuote {
		left.Kind = ast.Paragraph
	}
	right := p.ParseLeaf(opts.RightPrefix + b.Text[off:])
	return &Split{Left: left, Right: right}, true
}

// SplitAt splits the leaf blockID in doc and puts both halves in its place.
// The caret lands after the right half's prefix.
func SplitAt(doc *ast.Document, p *parser.Parser, blockID, inlineID ast.NodeID, caret int, opts SplitOptions) (*Result, bool) {
	b := doc.Block(blockID)
	if b == nil {
		return nil, false
	}
	if parent := doc.Parent(blockID); parent != nil && parent.Kind == ast.TableRow {
		return nil, false
	}
	start := b.Position.Start
	s, ok := SplitBlock(p, b, inlineID, caret, opts)
	if !ok {
		return nil, false
	}
	doc.Replace(blockID, s.Left, s.Right)
	return &Result{
		Offset:   start + len(s.Left.Text) + 1 + len(opts.RightPrefix),
		Affinity: ast.Forward,
	}, true
}
