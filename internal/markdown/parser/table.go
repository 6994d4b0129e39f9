package parser

import (
	"strings"

	"github.com/starford/quire/internal/markdown/ast"
)

// cellSpan is one cell's slice of a row line. open and close are the widths
// of the pipe-and-padding syntax at either end of the segment.
type cellSpan struct {
	start, end  int
	open, close int
}

// tableAhead reports whether rest is a header row: the next line, after the
// same container prefixes, must be a divider with as many cells.
func (bb *blockBuilder) tableAhead(rest string) bool {
	if !strings.Contains(rest, "|") || bb.next >= len(bb.lines) {
		return false
	}
	next := bb.lines[bb.next]
	pos, matched, _ := bb.match(next)
	if matched != len(bb.stack) {
		return false
	}
	n, ok := dividerCells(next[pos:])
	return ok && n == len(splitCells(rest, 0))
}

// tableRow appends the row in line to table t. The second row of a table is
// its divider.
func (bb *blockBuilder) tableRow(t *ast.Block, line string, pos int) {
	row := bb.newBlock(ast.TableRow)
	index := len(t.Blocks)
	t.Blocks = append(t.Blocks, row)

	if index == 1 {
		row.Divider = true
		cell := bb.newLeaf(ast.TableCell, line, len(line))
		row.Blocks = []*ast.Block{cell}
		return
	}
	kind := ast.TableCell
	if index == 0 {
		kind = ast.TableHeader
	}
	for _, sp := range splitCells(line, pos) {
		cell := bb.newLeaf(kind, line[sp.start:sp.end], 0)
		bb.src[cell].cell = &cellSpan{open: sp.open, close: sp.close}
		row.Blocks = append(row.Blocks, cell)
	}
}

// splitCells partitions line into cell segments. Everything before the
// content of the first cell (container prefix, leading pipe, padding) belongs
// to the first segment; the trailing pipe belongs to the last.
func splitCells(line string, pos int) []cellSpan {
	var pipes []int
	for i := pos; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '|':
			pipes = append(pipes, i)
		}
	}
	body := strings.TrimRight(line, " \t\r")
	_, ws := indentOf(line[pos:])
	lead := len(pipes) > 0 && pipes[0] == pos+ws
	trail := len(pipes) > 0 && pipes[len(pipes)-1] == len(body)-1 && !(lead && len(pipes) == 1)

	inner := pipes
	if lead {
		inner = inner[1:]
	}
	if trail {
		inner = inner[:len(inner)-1]
	}

	contentStart := pos
	if lead {
		contentStart = pipes[0] + 1
	}
	spans := make([]cellSpan, 0, len(inner)+1)
	segStart := 0
	for k := 0; k <= len(inner); k++ {
		contentEnd, segEnd := len(line), len(line)
		switch {
		case k < len(inner):
			contentEnd, segEnd = inner[k], inner[k]
		case trail:
			contentEnd = pipes[len(pipes)-1]
		}
		content := line[contentStart:contentEnd]
		lws := len(content) - len(strings.TrimLeft(content, " \t"))
		tws := 0
		if lws < len(content) {
			tws = len(content) - len(strings.TrimRight(content, " \t\r"))
		}
		spans = append(spans, cellSpan{
			start: segStart,
			end:   segEnd,
			open:  contentStart + lws - segStart,
			close: segEnd - (contentEnd - tws),
		})
		segStart = contentEnd
		contentStart = contentEnd + 1
	}
	return spans
}

// dividerCells checks a divider row such as "| --- | :-: |" and returns its
// cell count.
func dividerCells(rest string) (int, bool) {
	if !strings.Contains(rest, "-") {
		return 0, false
	}
	spans := splitCells(rest, 0)
	for _, sp := range spans {
		c := strings.TrimSpace(strings.Trim(rest[sp.start+sp.open:sp.end-sp.close], "|"))
		c = strings.TrimPrefix(strings.TrimSuffix(c, ":"), ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return 0, false
		}
	}
	return len(spans), true
}

// normalizeTable records the widest row and spans a lone cell across it.
func normalizeTable(t *ast.Block) {
	maxCells := 0
	for _, row := range t.Blocks {
		if !row.Divider && len(row.Blocks) > maxCells {
			maxCells = len(row.Blocks)
		}
	}
	t.MaxCells = maxCells
	if maxCells < 2 {
		return
	}
	for _, row := range t.Blocks {
		if !row.Divider && len(row.Blocks) == 1 {
			row.Blocks[0].ColSpan = maxCells
		}
	}
}
