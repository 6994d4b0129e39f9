package parser

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
)

// inlineParser turns one leaf's text into inline nodes. Markers holds the
// width of the syntax prefix at each line start (keyed by byte offset in the
// leaf text); the marker resolver consumes it before any other resolver runs.
type inlineParser struct {
	ids     *ast.IDGen
	defs    map[string]ast.LinkDef
	markers map[int]int
	base    int

	s         *Stream
	nodes     []*ast.Inline
	delims    []*delimiter
	textStart int
}

func newInlineParser(ids *ast.IDGen, defs map[string]ast.LinkDef, markers map[int]int, src string, base int) *inlineParser {
	return &inlineParser{
		ids:       ids,
		defs:      defs,
		markers:   markers,
		base:      base,
		s:         NewStream(src),
		textStart: -1,
	}
}

// parseInlines resolves src into inlines. markers may be nil.
func (p *Parser) parseInlines(src string, markers map[int]int) []*ast.Inline {
	return newInlineParser(p.ids, p.defs, markers, src, 0).run()
}

func (ip *inlineParser) node(kind ast.InlineKind, symbolic, semantic string) *ast.Inline {
	return &ast.Inline{
		ID:   ip.ids.Next(),
		Kind: kind,
		Text: ast.TextPair{Symbolic: symbolic, Semantic: semantic},
	}
}

func (ip *inlineParser) run() []*ast.Inline {
	s := ip.s
	for !s.End() {
		pos := s.Pos()
		if n := ip.marker(); n != nil {
			ip.flushText(pos)
			ip.nodes = append(ip.nodes, n)
			continue
		}

		var n *ast.Inline
		switch s.Peek() {
		case '\\':
			n = ip.escape()
		case '`':
			n = ip.codeSpan()
			if n == nil {
				if ip.textStart < 0 {
					ip.textStart = pos
				}
				s.ConsumeRun('`')
				continue
			}
		case '<':
			if n = ip.autolink(); n == nil {
				n = ip.rawHTML()
			}
		case '!':
			n = ip.image()
		case '[':
			if n = ip.footnoteRef(); n == nil {
				n = ip.link()
			}
		case '&':
			n = ip.entity()
		case ':':
			n = ip.emoji()
		case '*', '_', '~':
			ip.flushText(pos)
			ip.delimiterRun()
			continue
		case '\n':
			ip.lineBreak()
			continue
		}
		if n != nil {
			ip.flushText(pos)
			ip.nodes = append(ip.nodes, n)
			continue
		}
		if ip.textStart < 0 {
			ip.textStart = pos
		}
		s.Next()
	}
	ip.flushText(s.Pos())
	ip.nodes = resolveEmphasis(ip.ids, ip.nodes, ip.delims)
	return coalesce(ip.nodes)
}

// flushText emits the pending plain text that ends at end.
func (ip *inlineParser) flushText(end int) {
	if ip.textStart < 0 {
		return
	}
	if end > ip.textStart {
		t := ip.s.Slice(ip.textStart, end)
		ip.nodes = append(ip.nodes, ip.node(ast.Text, t, t))
	}
	ip.textStart = -1
}

// marker consumes a line-start prefix. It only applies at offsets the block
// parser recorded.
func (ip *inlineParser) marker() *ast.Inline {
	w, ok := ip.markers[ip.base+ip.s.Pos()]
	if !ok || w <= 0 {
		return nil
	}
	start := ip.s.Pos()
	ip.s.Advance(w)
	return ip.node(ast.Marker, ip.s.Slice(start, ip.s.Pos()), "")
}

// lineBreak handles the '\n' under the cursor: two or more trailing spaces
// make a hard break, anything else is a soft break.
func (ip *inlineParser) lineBreak() {
	pos := ip.s.Pos()
	spaces := 0
	if ip.textStart >= 0 {
		for i := pos - 1; i >= ip.textStart && ip.s.src[i] == ' '; i-- {
			spaces++
		}
	}
	if spaces >= 2 {
		ip.flushText(pos - spaces)
		ip.s.Advance(1)
		ip.nodes = append(ip.nodes, ip.node(ast.HardBreak, ip.s.Slice(pos-spaces, pos+1), "\n"))
		return
	}
	ip.flushText(pos)
	ip.s.Advance(1)
	ip.nodes = append(ip.nodes, ip.node(ast.SoftBreak, "\n", "\n"))
}

// coalesce merges adjacent text nodes, including delimiter runs left over by
// the emphasis pass, and drops empty ones.
func coalesce(nodes []*ast.Inline) []*ast.Inline {
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind == ast.Text && n.Text.Symbolic == "" {
			continue
		}
		if len(n.Children) > 0 {
			n.Children = coalesce(n.Children)
		}
		if n.Kind == ast.Text && len(out) > 0 && out[len(out)-1].Kind == ast.Text {
			last := out[len(out)-1]
			last.Text.Symbolic += n.Text.Symbolic
			last.Text.Semantic += n.Text.Semantic
			continue
		}
		out = append(out, n)
	}
	return out
}

// isASCIIPunct reports whether c may be backslash-escaped.
func isASCIIPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}
