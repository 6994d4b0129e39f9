// Package parser turns markdown text into an ast.Document.
//
// Parsing runs in two passes. The block pass walks lines, keeps a stack of
// open containers and records each leaf's raw lines together with the width
// of the container prefix on every line; it also collects link reference
// definitions. The inline pass then resolves each leaf's text with those
// definitions in hand, so a link may refer to a definition further down.
package parser

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
)

// Parser parses documents and single leaves. It numbers nodes from a shared
// IDGen so that re-parsing during an edit never reuses an id.
type Parser struct {
	ids  *ast.IDGen
	defs map[string]ast.LinkDef
}

// New returns a parser numbering nodes from ids. A nil ids gets a fresh
// generator.
func New(ids *ast.IDGen) *Parser {
	if ids == nil {
		ids = ast.NewIDGen()
	}
	return &Parser{ids: ids, defs: map[string]ast.LinkDef{}}
}

// IDs returns the generator the parser numbers nodes from.
func (p *Parser) IDs() *ast.IDGen { return p.ids }

// Parse builds a normalized document from text. The empty text parses to a
// single empty paragraph.
func (p *Parser) Parse(text string) *ast.Document {
	p.defs = map[string]ast.LinkDef{}
	return p.parse(text)
}

func (p *Parser) parse(text string) *ast.Document {
	doc := &ast.Document{Defs: p.defs}
	if text == "" {
		doc.Blocks = []*ast.Block{{ID: p.ids.Next(), Kind: ast.Paragraph}}
		doc.Normalize()
		return doc
	}
	bb := newBlockBuilder(p, strings.Split(text, "\n"))
	doc.Blocks = bb.build()
	for _, b := range bb.order {
		p.fill(b, bb.src[b])
	}
	doc.Normalize()
	return doc
}

// ParseLeaf re-parses the text of a single leaf, for example one half of a
// split block. When the text does not parse to exactly one leaf it becomes a
// paragraph.
func (p *Parser) ParseLeaf(text string) *ast.Block {
	if text != "" {
		doc := p.parse(text)
		if leaves := doc.Leaves(); len(leaves) == 1 && leaves[0].Text == text {
			leaf := leaves[0]
			ast.NormalizeBlock(leaf, 0)
			return leaf
		}
	}
	b := &ast.Block{ID: p.ids.Next(), Kind: ast.Paragraph}
	if text != "" {
		b.Inlines = p.parseInlines(text, continuationMarkers(text))
	}
	ast.NormalizeBlock(b, 0)
	return b
}

// ParseBlocks parses text as a run of blocks. Unlike Parse it keeps the link
// definitions already known to the parser.
func (p *Parser) ParseBlocks(text string) []*ast.Block {
	return p.parse(text).Blocks
}

// ParseInlines resolves text as inline content with no line prefixes.
func (p *Parser) ParseInlines(text string) []*ast.Inline {
	return p.parseInlines(text, nil)
}

// Defs returns the link reference definitions of the last parse.
func (p *Parser) Defs() map[string]ast.LinkDef { return p.defs }

// continuationMarkers treats indentation and '>' at the start of every line
// after the first as a container prefix.
func continuationMarkers(text string) map[int]int {
	markers := map[int]int{}
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '>') {
			j++
		}
		if j > i+1 {
			markers[i+1] = j - i - 1
		}
	}
	return markers
}
