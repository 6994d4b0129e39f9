package parser

import (
	"strconv"
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
)

// leafSource is what the block pass records for a leaf: its raw lines and
// the width of the prefix the inline pass must turn into a marker on each.
type leafSource struct {
	lines  []string
	prefix []int
	cell   *cellSpan
}

func (ls *leafSource) text() string { return strings.Join(ls.lines, "\n") }

// openBlock is a container still eligible for continuation.
type openBlock struct {
	block  *ast.Block
	indent int
	bullet byte
}

type blockBuilder struct {
	p     *Parser
	lines []string
	next  int

	root    []*ast.Block
	stack   []*openBlock
	leaf    *ast.Block
	pending []*ast.Block
	tables  []*ast.Block

	src   map[*ast.Block]*leafSource
	order []*ast.Block
}

func newBlockBuilder(p *Parser, lines []string) *blockBuilder {
	return &blockBuilder{p: p, lines: lines, src: map[*ast.Block]*leafSource{}}
}

func (bb *blockBuilder) build() []*ast.Block {
	for bb.next < len(bb.lines) {
		line := bb.lines[bb.next]
		bb.next++
		bb.line(line)
	}
	bb.finish()
	return bb.root
}

func (bb *blockBuilder) line(line string) {
	pos, matched, sibling := bb.match(line)
	rest := line[pos:]

	if bb.leaf != nil && matched == len(bb.stack) {
		switch bb.leaf.Kind {
		case ast.CodeBlock:
			if bb.leaf.Code.IsFenced {
				bb.fenceLine(line, pos)
				return
			}
			if cols, _ := indentOf(rest); cols >= 4 && !isBlank(rest) {
				bb.appendLine(line, pos)
				return
			}
		case ast.HTMLBlock:
			if !isBlank(rest) {
				bb.appendLine(line, pos)
				return
			}
		}
	}
	if bb.leaf != nil && bb.leaf.Kind != ast.Paragraph && bb.leaf.Kind != ast.Footnote {
		bb.leaf = nil
	}

	if matched == len(bb.stack) && matched > 0 && bb.stack[matched-1].block.Kind == ast.Table && !isBlank(rest) {
		bb.tableRow(bb.stack[matched-1].block, line, pos)
		return
	}

	if isBlank(rest) {
		bb.blank(line, matched)
		return
	}

	if bb.leaf != nil && !sibling && !startsBlock(rest) {
		_, ws := indentOf(rest)
		bb.appendLine(line, pos+ws)
		return
	}

	bb.flushPending(matched)
	bb.leaf = nil
	bb.stack = bb.stack[:matched]
	bb.open(line, pos)
}

// match walks the open containers from the outside in and returns the width
// of the prefixes they consumed and how many of them continue. sibling
// reports that the innermost continuing container is a list whose next item
// starts on this line.
func (bb *blockBuilder) match(line string) (pos, matched int, sibling bool) {
	for matched < len(bb.stack) {
		ob := bb.stack[matched]
		rest := line[pos:]
		switch ob.block.Kind {
		case ast.BlockQuote:
			n, ok := quotePrefix(rest)
			if !ok {
				return pos, matched, false
			}
			pos += n
		case ast.List:
			if matched+1 < len(bb.stack) {
				if _, ok := itemContinues(bb.stack[matched+1], rest); ok {
					break
				}
			}
			if m, ok := parseListMarker(rest); ok && m.fits(ob) && !isThematicBreak(rest) {
				return pos, matched + 1, true
			}
			return pos, matched, false
		case ast.ListItem, ast.TaskListItem:
			n, ok := itemContinues(ob, rest)
			if !ok {
				return pos, matched, false
			}
			pos += n
		case ast.Table:
			if isBlank(rest) || !strings.Contains(rest, "|") || startsBlock(rest) {
				return pos, matched, false
			}
		}
		matched++
	}
	return pos, matched, false
}

func itemContinues(ob *openBlock, rest string) (int, bool) {
	if isBlank(rest) {
		n, _ := consumeIndent(rest, ob.indent)
		return n, true
	}
	return consumeIndent(rest, ob.indent)
}

// blank handles a line that is empty after its container prefixes. Inside a
// list the blank line waits until the next line shows which container it
// belongs to.
func (bb *blockBuilder) blank(line string, matched int) {
	bb.leaf = nil
	b := bb.newLeaf(ast.BlankLine, line, len(line))
	if matched > 0 && isListKind(bb.stack[matched-1].block.Kind) {
		bb.stack = bb.stack[:matched]
		bb.pending = append(bb.pending, b)
		return
	}
	bb.flushPending(matched)
	bb.stack = bb.stack[:matched]
	bb.add(b)
}

// flushPending places waiting blank lines in the container that continues
// past them. Lists they end up inside become loose.
func (bb *blockBuilder) flushPending(matched int) {
	if len(bb.pending) == 0 {
		return
	}
	var target *ast.Block
	if matched > 0 {
		target = bb.stack[matched-1].block
		if target.Kind == ast.List && matched < len(bb.stack) {
			target = bb.stack[matched].block
		}
		for _, ob := range bb.stack[:matched] {
			if ob.block.Kind == ast.List {
				ob.block.Tight = false
			}
		}
	}
	for _, b := range bb.pending {
		bb.addTo(target, b)
	}
	bb.pending = nil
}

func (bb *blockBuilder) finish() {
	if len(bb.pending) > 0 {
		m := len(bb.stack)
		for m > 0 && isListKind(bb.stack[m-1].block.Kind) {
			m--
		}
		var target *ast.Block
		if m > 0 {
			target = bb.stack[m-1].block
		}
		for _, b := range bb.pending {
			bb.addTo(target, b)
		}
		bb.pending = nil
	}
	for _, t := range bb.tables {
		normalizeTable(t)
	}
}

// open starts new blocks on the part of the line no container consumed.
func (bb *blockBuilder) open(line string, pos int) {
	for {
		rest := line[pos:]
		cols, ws := indentOf(rest)
		switch {
		case isBlank(rest):
			bb.add(bb.newLeaf(ast.BlankLine, line, len(line)))
			return
		case cols >= 4:
			b := bb.openLeaf(ast.CodeBlock, line, pos)
			b.Code = &ast.CodeInfo{OpenIndent: 4}
			return
		}

		if n, ok := quotePrefix(rest); ok {
			bb.push(&openBlock{block: bb.newBlock(ast.BlockQuote)})
			pos += n
			continue
		}
		if isThematicBreak(rest) {
			bb.openLeaf(ast.ThematicBreak, line, len(line))
			bb.leaf = nil
			return
		}
		if m, ok := parseListMarker(rest); ok {
			bb.openItem(m)
			pos += m.width
			continue
		}
		if level, ok := atxHeading(rest); ok {
			b := bb.openLeaf(ast.Heading, line, pos)
			b.Level = level
			bb.leaf = nil
			return
		}
		if code, ok := parseFence(rest); ok {
			b := bb.openLeaf(ast.CodeBlock, line, pos)
			b.Code = code
			return
		}
		if isHTMLBlockStart(rest) {
			bb.openLeaf(ast.HTMLBlock, line, pos)
			return
		}
		if label, w, ok := parseFootnoteDef(rest); ok {
			b := bb.openLeaf(ast.Footnote, line, pos+w)
			b.Label = label
			return
		}
		if label, dest, title, ok := parseLinkDef(rest); ok {
			if _, dup := bb.p.defs[label]; !dup {
				bb.p.defs[label] = ast.LinkDef{URL: dest, Title: title}
			}
			b := bb.openLeaf(ast.Paragraph, line, len(line))
			b.Label = label
			bb.leaf = nil
			return
		}
		if bb.tableAhead(rest) {
			t := bb.newBlock(ast.Table)
			bb.push(&openBlock{block: t})
			bb.tables = append(bb.tables, t)
			bb.tableRow(t, line, pos)
			return
		}
		bb.openLeaf(ast.Paragraph, line, pos+ws)
		return
	}
}

func (bb *blockBuilder) openItem(m listMarker) {
	top := bb.top()
	if top == nil || top.block.Kind != ast.List || !m.fits(top) {
		list := bb.newBlock(ast.List)
		list.Ordered = m.ordered
		list.Tight = true
		if m.ordered {
			list.ListStart = m.start
		}
		bb.push(&openBlock{block: list, bullet: m.bullet})
	}
	kind := ast.ListItem
	if m.task {
		kind = ast.TaskListItem
	}
	item := bb.newBlock(kind)
	item.Checked = m.checked
	bb.push(&openBlock{block: item, indent: m.indent})
}

func (bb *blockBuilder) fenceLine(line string, pos int) {
	if isFenceClose(line[pos:], bb.leaf.Code) {
		bb.appendLine(line, len(line))
		bb.leaf.Code.Closed = true
		bb.leaf = nil
		return
	}
	bb.appendLine(line, pos)
}

func (bb *blockBuilder) top() *openBlock {
	if len(bb.stack) == 0 {
		return nil
	}
	return bb.stack[len(bb.stack)-1]
}

func (bb *blockBuilder) newBlock(kind ast.BlockKind) *ast.Block {
	return &ast.Block{ID: bb.p.ids.Next(), Kind: kind}
}

// push adds a container to the innermost open one and opens it.
func (bb *blockBuilder) push(ob *openBlock) {
	bb.add(ob.block)
	bb.stack = append(bb.stack, ob)
}

func (bb *blockBuilder) add(b *ast.Block) {
	var parent *ast.Block
	if top := bb.top(); top != nil {
		parent = top.block
	}
	bb.addTo(parent, b)
}

func (bb *blockBuilder) addTo(parent, b *ast.Block) {
	if parent == nil {
		bb.root = append(bb.root, b)
		return
	}
	parent.Blocks = append(parent.Blocks, b)
}

func (bb *blockBuilder) newLeaf(kind ast.BlockKind, line string, prefix int) *ast.Block {
	b := bb.newBlock(kind)
	bb.src[b] = &leafSource{lines: []string{line}, prefix: []int{prefix}}
	bb.order = append(bb.order, b)
	return b
}

func (bb *blockBuilder) openLeaf(kind ast.BlockKind, line string, prefix int) *ast.Block {
	b := bb.newLeaf(kind, line, prefix)
	bb.add(b)
	bb.leaf = b
	return b
}

func (bb *blockBuilder) appendLine(line string, prefix int) {
	src := bb.src[bb.leaf]
	src.lines = append(src.lines, line)
	src.prefix = append(src.prefix, prefix)
}

func isListKind(k ast.BlockKind) bool {
	return k == ast.List || k == ast.ListItem || k == ast.TaskListItem
}

// startsBlock reports whether rest opens a block that can interrupt a
// paragraph.
func startsBlock(rest string) bool {
	if _, ok := quotePrefix(rest); ok {
		return true
	}
	if isThematicBreak(rest) || isHTMLBlockStart(rest) {
		return true
	}
	if _, ok := atxHeading(rest); ok {
		return true
	}
	if _, ok := parseFence(rest); ok {
		return true
	}
	if m, ok := parseListMarker(rest); ok && !m.empty && (!m.ordered || m.start == 1) {
		return true
	}
	return false
}

// indentOf counts leading whitespace in columns (tabs stop every four) and
// bytes.
func indentOf(s string) (cols, n int) {
	for n < len(s) {
		switch s[n] {
		case ' ':
			cols++
		case '\t':
			cols += 4 - cols%4
		default:
			return cols, n
		}
		n++
	}
	return cols, n
}

// consumeIndent consumes whitespace until want columns are covered.
func consumeIndent(s string, want int) (int, bool) {
	cols, n := 0, 0
	for n < len(s) && cols < want {
		switch s[n] {
		case ' ':
			cols++
		case '\t':
			cols += 4 - cols%4
		default:
			return n, false
		}
		n++
	}
	return n, cols >= want
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\r") == ""
}

func quotePrefix(rest string) (int, bool) {
	cols, n := indentOf(rest)
	if cols > 3 || n >= len(rest) || rest[n] != '>' {
		return 0, false
	}
	n++
	if n < len(rest) && (rest[n] == ' ' || rest[n] == '\t') {
		n++
	}
	return n, true
}

func isThematicBreak(rest string) bool {
	cols, n := indentOf(rest)
	if cols > 3 || n >= len(rest) {
		return false
	}
	c := rest[n]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	count := 0
	for i := n; i < len(rest); i++ {
		switch rest[i] {
		case c:
			count++
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return count >= 3
}

func atxHeading(rest string) (int, bool) {
	cols, n := indentOf(rest)
	if cols > 3 {
		return 0, false
	}
	level := 0
	for n+level < len(rest) && rest[n+level] == '#' {
		level++
	}
	if level < 1 || level > 6 {
		return 0, false
	}
	if i := n + level; i < len(rest) && rest[i] != ' ' && rest[i] != '\t' {
		return 0, false
	}
	return level, true
}

func parseFence(rest string) (*ast.CodeInfo, bool) {
	cols, n := indentOf(rest)
	if cols > 3 || n >= len(rest) {
		return nil, false
	}
	c := rest[n]
	if c != '`' && c != '~' {
		return nil, false
	}
	run := 0
	for n+run < len(rest) && rest[n+run] == c {
		run++
	}
	if run < 3 {
		return nil, false
	}
	info := strings.TrimSpace(rest[n+run:])
	if c == '`' && strings.Contains(info, "`") {
		return nil, false
	}
	lang := info
	if i := strings.IndexAny(lang, " \t"); i >= 0 {
		lang = lang[:i]
	}
	return &ast.CodeInfo{
		IsFenced:    true,
		FenceChar:   string(c),
		FenceLength: run,
		OpenIndent:  cols,
		Language:    lang,
	}, true
}

func isFenceClose(rest string, code *ast.CodeInfo) bool {
	cols, n := indentOf(rest)
	if cols > 3 || code.FenceChar == "" {
		return false
	}
	c := code.FenceChar[0]
	run := 0
	for n+run < len(rest) && rest[n+run] == c {
		run++
	}
	return run >= code.FenceLength && isBlank(rest[n+run:])
}

var htmlBlockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"details": true, "dialog": true, "div": true, "dl": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "html": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "script": true, "section": true, "style": true,
	"summary": true, "table": true, "tbody": true, "td": true, "textarea": true,
	"tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

func isHTMLBlockStart(rest string) bool {
	cols, n := indentOf(rest)
	if cols > 3 {
		return false
	}
	s := rest[n:]
	if !strings.HasPrefix(s, "<") {
		return false
	}
	if strings.HasPrefix(s, "<!--") || strings.HasPrefix(s, "<?") || (len(s) > 2 && s[1] == '!' && isLetter(s[2])) {
		return true
	}
	j := 1
	if j < len(s) && s[j] == '/' {
		j++
	}
	k := j
	for k < len(s) && (isLetter(s[k]) || isDigit(s[k])) {
		k++
	}
	if !htmlBlockTags[strings.ToLower(s[j:k])] {
		return false
	}
	return k == len(s) || s[k] == ' ' || s[k] == '\t' || s[k] == '>' || strings.HasPrefix(s[k:], "/>")
}

type listMarker struct {
	ordered bool
	bullet  byte
	start   int
	width   int
	indent  int
	task    bool
	checked bool
	empty   bool
}

// fits reports whether the marker continues the open list ob.
func (m listMarker) fits(ob *openBlock) bool {
	return ob.block.Ordered == m.ordered && ob.bullet == m.bullet
}

// parseListMarker recognizes a bullet or ordinal, the spaces after it and an
// optional task box. width covers all of them; indent is the column content
// lines must reach to continue the item.
func parseListMarker(rest string) (listMarker, bool) {
	var m listMarker
	cols, n := indentOf(rest)
	if cols > 3 || n >= len(rest) {
		return m, false
	}
	j := n
	switch c := rest[j]; {
	case c == '-' || c == '+' || c == '*':
		m.bullet = c
		j++
	case isDigit(c):
		k := j
		for k < len(rest) && isDigit(rest[k]) && k-j < 9 {
			k++
		}
		if k >= len(rest) || (rest[k] != '.' && rest[k] != ')') {
			return m, false
		}
		m.ordered = true
		m.start, _ = strconv.Atoi(rest[j:k])
		m.bullet = rest[k]
		j = k + 1
	default:
		return m, false
	}
	if j < len(rest) && rest[j] != ' ' && rest[j] != '\t' {
		return m, false
	}
	markerCols := cols + (j - n)
	spaces, k := indentOf(rest[j:])
	switch {
	case j+k >= len(rest):
		m.empty = true
		m.width = len(rest)
		m.indent = markerCols + 1
		return m, true
	case spaces > 4:
		m.width = j + 1
		m.indent = markerCols + 1
	default:
		m.width = j + k
		m.indent = markerCols + spaces
	}
	box := rest[m.width:]
	if len(box) >= 3 && box[0] == '[' && box[2] == ']' && strings.IndexByte(" xX", box[1]) >= 0 &&
		(len(box) == 3 || box[3] == ' ' || box[3] == '\t') {
		m.task = true
		m.checked = box[1] != ' '
		m.width += 3
		for m.width < len(rest) && (rest[m.width] == ' ' || rest[m.width] == '\t') {
			m.width++
		}
	}
	return m, true
}
