package parser

import (
	"unicode"

	"github.com/starford/quire/internal/markdown/ast"
)

// delimiter is a run of '*', '_' or '~' waiting to be paired. It refers to
// its provisional text node by pointer, so collapsing a range of nodes into a
// wrapper never invalidates the entries that follow.
type delimiter struct {
	node      *ast.Inline
	char      byte
	origLen   int
	remaining int
	canOpen   bool
	canClose  bool
	active    bool
}

// delimiterRun consumes a run under the cursor and records it.
func (ip *inlineParser) delimiterRun() {
	s := ip.s
	c := s.PeekByte(0)
	prev := s.PeekBack()
	start := s.Pos()
	n := s.ConsumeRun(c)
	next := s.Peek()
	run := s.Slice(start, s.Pos())
	node := ip.node(ast.Text, run, run)
	ip.nodes = append(ip.nodes, node)

	if c == '~' && n > 2 {
		return
	}
	canOpen, canClose := flanking(c, prev, next)
	if !canOpen && !canClose {
		return
	}
	ip.delims = append(ip.delims, &delimiter{
		node:      node,
		char:      c,
		origLen:   n,
		remaining: n,
		canOpen:   canOpen,
		canClose:  canClose,
		active:    true,
	})
}

// flanking classifies a run by the runes around it. Start and end of text
// count as whitespace. Underscores inside a word only open or close next to
// punctuation.
func flanking(c byte, prev, next rune) (canOpen, canClose bool) {
	if prev < 0 {
		prev = ' '
	}
	if next < 0 {
		next = ' '
	}
	left := !isUnicodeSpace(next) &&
		(!isUnicodePunct(next) || isUnicodeSpace(prev) || isUnicodePunct(prev))
	right := !isUnicodeSpace(prev) &&
		(!isUnicodePunct(prev) || isUnicodeSpace(next) || isUnicodePunct(next))
	if c != '_' {
		return left, right
	}
	canOpen = left && (!right || isUnicodePunct(prev))
	canClose = right && (!left || isUnicodePunct(next))
	return canOpen, canClose
}

func isUnicodeSpace(r rune) bool { return unicode.IsSpace(r) }

func isUnicodePunct(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }

// resolveEmphasis pairs delimiters left to right and wraps the nodes between
// each pair. A delimiter that is inactive is never looked at again, so
// running the pass twice over the same entries changes nothing.
func resolveEmphasis(ids *ast.IDGen, nodes []*ast.Inline, delims []*delimiter) []*ast.Inline {
	for ci := 0; ci < len(delims); ci++ {
		closer := delims[ci]
		if !closer.active || !closer.canClose || closer.remaining == 0 {
			continue
		}
		oi := findOpener(delims, ci)
		if oi < 0 {
			if !closer.canOpen {
				closer.active = false
			}
			continue
		}
		opener := delims[oi]

		n := consumeCount(opener, closer)
		kind := ast.Emphasis
		switch {
		case closer.char == '~':
			kind = ast.Strikethrough
		case n == 2:
			kind = ast.Strong
		}

		start, end := indexOf(nodes, opener.node), indexOf(nodes, closer.node)
		if start < 0 || end < 0 || end <= start {
			closer.active = false
			continue
		}
		for k := oi + 1; k < ci; k++ {
			delims[k].active = false
		}

		inner := append([]*ast.Inline(nil), nodes[start+1:end]...)
		osym := opener.node.Text.Symbolic
		openChars := osym[len(osym)-n:]
		opener.node.Text.Symbolic = osym[:len(osym)-n]
		opener.node.Text.Semantic = opener.node.Text.Symbolic
		csym := closer.node.Text.Symbolic
		closeChars := csym[:n]
		closer.node.Text.Symbolic = csym[n:]
		closer.node.Text.Semantic = closer.node.Text.Symbolic

		wrap := &ast.Inline{
			ID:       ids.Next(),
			Kind:     kind,
			Open:     n,
			Children: inner,
			Text: ast.TextPair{
				Symbolic: openChars + ast.FlattenInlines(inner) + closeChars,
				Semantic: ast.SemanticText(inner),
			},
		}

		out := make([]*ast.Inline, 0, len(nodes)-len(inner)+1)
		out = append(out, nodes[:start+1]...)
		out = append(out, wrap)
		out = append(out, nodes[end:]...)
		nodes = out

		opener.remaining -= n
		closer.remaining -= n
		if opener.remaining == 0 {
			opener.active = false
			nodes = removeNode(nodes, opener.node)
		}
		if closer.remaining == 0 {
			closer.active = false
			nodes = removeNode(nodes, closer.node)
		} else {
			ci--
		}
	}
	return nodes
}

// findOpener searches backward from the closer at ci for the nearest
// compatible active opener.
func findOpener(delims []*delimiter, ci int) int {
	closer := delims[ci]
	for oi := ci - 1; oi >= 0; oi-- {
		o := delims[oi]
		if !o.active || !o.canOpen || o.remaining == 0 || o.char != closer.char {
			continue
		}
		if closer.char == '~' {
			if o.remaining != closer.remaining {
				continue
			}
			return oi
		}
		if (o.canClose || closer.canOpen) &&
			(o.origLen+closer.origLen)%3 == 0 &&
			!(o.origLen%3 == 0 && closer.origLen%3 == 0) {
			continue
		}
		return oi
	}
	return -1
}

// consumeCount decides how many delimiters a pairing uses. Two odd runs of
// three or more give up one first, so ***x*** nests emphasis inside strong.
func consumeCount(o, c *delimiter) int {
	if c.char == '~' {
		return c.remaining
	}
	if o.remaining >= 3 && c.remaining >= 3 && o.remaining%2 == 1 && c.remaining%2 == 1 {
		return 1
	}
	if o.remaining >= 2 && c.remaining >= 2 {
		return 2
	}
	return 1
}

func indexOf(nodes []*ast.Inline, n *ast.Inline) int {
	for i, x := range nodes {
		if x == n {
			return i
		}
	}
	return -1
}

func removeNode(nodes []*ast.Inline, n *ast.Inline) []*ast.Inline {
	i := indexOf(nodes, n)
	if i < 0 {
		return nodes
	}
	return append(nodes[:i:i], nodes[i+1:]...)
}
