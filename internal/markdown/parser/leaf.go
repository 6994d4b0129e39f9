package parser

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
)

// fill builds the inlines of leaf b from what the block pass recorded.
func (p *Parser) fill(b *ast.Block, src *leafSource) {
	text := src.text()
	switch b.Kind {
	case ast.Paragraph:
		if b.Label != "" && len(src.lines) == 1 {
			b.Inlines = []*ast.Inline{p.marker(text)}
			return
		}
		b.Inlines = p.parseInlines(text, lineMarkers(src))
	case ast.Footnote:
		b.Inlines = p.parseInlines(text, lineMarkers(src))
	case ast.Heading:
		b.Inlines = p.heading(text, src.prefix[0])
	case ast.CodeBlock:
		b.Inlines = p.code(b.Code, src)
	case ast.HTMLBlock:
		b.Inlines = p.withPrefix(text, src.prefix[0], func(rest string) []*ast.Inline {
			return []*ast.Inline{p.inline(ast.RawHTML, rest, stripPrefixes(src, 0))}
		})
	case ast.ThematicBreak, ast.BlankLine:
		if text != "" {
			b.Inlines = []*ast.Inline{p.marker(text)}
		}
	case ast.TableCell, ast.TableHeader:
		if src.cell == nil {
			b.Inlines = []*ast.Inline{p.marker(text)}
			return
		}
		b.Inlines = p.cell(text, src.cell)
	}
}

func (p *Parser) inline(kind ast.InlineKind, symbolic, semantic string) *ast.Inline {
	return &ast.Inline{
		ID:   p.ids.Next(),
		Kind: kind,
		Text: ast.TextPair{Symbolic: symbolic, Semantic: semantic},
	}
}

func (p *Parser) marker(symbolic string) *ast.Inline {
	return p.inline(ast.Marker, symbolic, "")
}

// withPrefix emits a marker for the first prefix bytes of text, if any, and
// hands the remainder to body.
func (p *Parser) withPrefix(text string, prefix int, body func(rest string) []*ast.Inline) []*ast.Inline {
	var out []*ast.Inline
	if prefix > 0 {
		out = append(out, p.marker(text[:prefix]))
	}
	return append(out, body(text[prefix:])...)
}

// lineMarkers maps the start offset of each line to its prefix width.
func lineMarkers(src *leafSource) map[int]int {
	markers := make(map[int]int, len(src.lines))
	off := 0
	for i, line := range src.lines {
		if src.prefix[i] > 0 {
			markers[off] = src.prefix[i]
		}
		off += len(line) + 1
	}
	return markers
}

// stripPrefixes joins the lines from index from on with their prefixes
// removed.
func stripPrefixes(src *leafSource, from int) string {
	parts := make([]string, 0, len(src.lines)-from)
	for i := from; i < len(src.lines); i++ {
		line := src.lines[i]
		w := src.prefix[i]
		if w > len(line) {
			w = len(line)
		}
		parts = append(parts, line[w:])
	}
	return strings.Join(parts, "\n")
}

// heading splits "# Title ##" into the opening marker, the content and the
// optional closing sequence.
func (p *Parser) heading(text string, prefix int) []*ast.Inline {
	_, ws := indentOf(text[prefix:])
	i := prefix + ws
	for i < len(text) && text[i] == '#' {
		i++
	}
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	out := []*ast.Inline{p.marker(text[:i])}
	content := text[i:]

	closing := ""
	trimmed := strings.TrimRight(content, " \t")
	if hashes := strings.TrimRight(trimmed, "#"); len(hashes) < len(trimmed) {
		if hashes == "" {
			closing = content
		} else if last := hashes[len(hashes)-1]; last == ' ' || last == '\t' {
			body := strings.TrimRight(hashes, " \t")
			closing = content[len(body):]
		}
	}
	content = content[:len(content)-len(closing)]
	out = append(out, p.parseInlines(content, nil)...)
	if closing != "" {
		out = append(out, p.marker(closing))
	}
	return out
}

// code builds a code block's inlines. A fenced block always gets a text
// inline between its fences, even an empty one.
func (p *Parser) code(info *ast.CodeInfo, src *leafSource) []*ast.Inline {
	text := src.text()
	if !info.IsFenced {
		var parts []string
		for i, line := range src.lines {
			w := src.prefix[i]
			n, _ := consumeIndent(line[w:], 4)
			parts = append(parts, line[w+n:])
		}
		return []*ast.Inline{p.inline(ast.Text, text, strings.Join(parts, "\n"))}
	}

	open := src.lines[0]
	out := []*ast.Inline{p.marker(open)}
	last := len(src.lines)
	closeLine := ""
	if info.Closed && len(src.lines) > 1 {
		last--
		closeLine = src.lines[last]
	}
	body := text[len(open):]
	body = body[:len(body)-len(closeLine)]

	var sem []string
	for i := 1; i < last; i++ {
		line := src.lines[i]
		w := src.prefix[i]
		rest := line[w:]
		n, _ := consumeIndent(rest, info.OpenIndent)
		sem = append(sem, rest[n:])
	}
	out = append(out, p.inline(ast.Text, body, strings.Join(sem, "\n")))
	if info.Closed && len(src.lines) > 1 {
		out = append(out, p.marker(closeLine))
	}
	return out
}

// cell builds a table cell: pipe and padding markers around inline content.
func (p *Parser) cell(text string, sp *cellSpan) []*ast.Inline {
	var out []*ast.Inline
	if sp.open > 0 {
		out = append(out, p.marker(text[:sp.open]))
	}
	out = append(out, p.parseInlines(text[sp.open:len(text)-sp.close], nil)...)
	if sp.close > 0 {
		out = append(out, p.marker(text[len(text)-sp.close:]))
	}
	return out
}
