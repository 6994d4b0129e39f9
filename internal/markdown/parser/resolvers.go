package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark-emoji/definition"
	"golang.org/x/net/html"

	"github.com/starford/quire/internal/markdown/ast"
)

var emojis = definition.Github()

// escape resolves a backslash escape. A backslash before a newline is a hard
// break.
func (ip *inlineParser) escape() *ast.Inline {
	s := ip.s
	c := s.PeekByte(1)
	switch {
	case c == '\n':
		start := s.Pos()
		s.Advance(2)
		return ip.node(ast.HardBreak, s.Slice(start, s.Pos()), "\n")
	case c != 0 && isASCIIPunct(c):
		start := s.Pos()
		s.Advance(2)
		return ip.node(ast.Text, s.Slice(start, s.Pos()), string(c))
	}
	return nil
}

// codeSpan resolves a run of N backticks closed by a run of exactly N.
func (ip *inlineParser) codeSpan() *ast.Inline {
	s := ip.s
	cp := s.Checkpoint()
	start := s.Pos()
	n := s.ConsumeRun('`')
	contentStart := s.Pos()
	for !s.End() {
		if s.PeekByte(0) != '`' {
			s.Advance(1)
			continue
		}
		runStart := s.Pos()
		if s.ConsumeRun('`') != n {
			continue
		}
		content := s.Slice(contentStart, runStart)
		content = strings.ReplaceAll(content, "\n", " ")
		if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' &&
			strings.Trim(content, " ") != "" {
			content = content[1 : len(content)-1]
		}
		in := ip.node(ast.CodeSpan, s.Slice(start, s.Pos()), content)
		in.Open = n
		return in
	}
	s.Restore(cp)
	return nil
}

// autolink resolves <scheme:rest> and <user@host>.
func (ip *inlineParser) autolink() *ast.Inline {
	s := ip.s
	rest := s.Rest()
	end := strings.IndexByte(rest, '>')
	if end < 2 {
		return nil
	}
	inner := rest[1:end]
	if strings.ContainsAny(inner, "< \t\n") {
		return nil
	}
	url := inner
	switch {
	case isURIAutolink(inner):
	case isEmailAutolink(inner):
		url = "mailto:" + inner
	default:
		return nil
	}
	start := s.Pos()
	s.Advance(end + 1)
	in := ip.node(ast.Autolink, s.Slice(start, s.Pos()), inner)
	in.Open = 1
	in.URL = url
	return in
}

func isURIAutolink(s string) bool {
	colon := strings.IndexByte(s, ':')
	if colon < 2 || colon > 32 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := s[i]
		switch {
		case isLetter(c):
		case i > 0 && (isDigit(c) || c == '+' || c == '.' || c == '-'):
		default:
			return false
		}
	}
	return true
}

func isEmailAutolink(s string) bool {
	at := strings.IndexByte(s, '@')
	if at < 1 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isLetter(c) || isDigit(c) || strings.IndexByte(".!#$%&'*+/=?^_`{|}~-@", c) >= 0) {
			return false
		}
	}
	return !strings.HasPrefix(s[at+1:], ".") && !strings.HasSuffix(s, ".")
}

// rawHTML resolves an inline tag, closing tag or comment.
func (ip *inlineParser) rawHTML() *ast.Inline {
	s := ip.s
	rest := s.Rest()
	var end int
	switch {
	case strings.HasPrefix(rest, "<!--"):
		i := strings.Index(rest[4:], "-->")
		if i < 0 {
			return nil
		}
		end = 4 + i + 3
	case len(rest) > 2 && rest[1] == '/' && isLetter(rest[2]):
		i := 2
		for i < len(rest) && (isLetter(rest[i]) || isDigit(rest[i]) || rest[i] == '-') {
			i++
		}
		for i < len(rest) && isSpace(rest[i]) {
			i++
		}
		if i >= len(rest) || rest[i] != '>' {
			return nil
		}
		end = i + 1
	case len(rest) > 1 && isLetter(rest[1]):
		i := strings.IndexByte(rest, '>')
		if i < 0 || strings.IndexByte(rest[1:i], '<') >= 0 {
			return nil
		}
		j := 1
		for j < i && (isLetter(rest[j]) || isDigit(rest[j]) || rest[j] == '-') {
			j++
		}
		if j < i && !isSpace(rest[j]) && rest[j] != '/' {
			return nil
		}
		end = i + 1
	default:
		return nil
	}
	start := s.Pos()
	s.Advance(end)
	sym := s.Slice(start, s.Pos())
	return ip.node(ast.RawHTML, sym, sym)
}

// entity resolves a named or numeric character reference.
func (ip *inlineParser) entity() *ast.Inline {
	s := ip.s
	rest := s.Rest()
	semi := strings.IndexByte(rest, ';')
	if semi < 2 || semi > 33 {
		return nil
	}
	body := rest[1:semi]
	if body[0] == '#' {
		digits := body[1:]
		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits = digits[1:]
			if len(digits) == 0 || len(digits) > 6 || !allBytes(digits, isHexDigit) {
				return nil
			}
		} else if len(digits) == 0 || len(digits) > 7 || !allBytes(digits, isDigit) {
			return nil
		}
	} else if !isLetter(body[0]) || !allBytes(body, func(c byte) bool { return isLetter(c) || isDigit(c) }) {
		return nil
	}
	sym := rest[:semi+1]
	decoded := html.UnescapeString(sym)
	// A legacy prefix such as &not in &nope; decodes only part of sym.
	if decoded == sym || utf8.RuneCountInString(decoded) > 2 {
		return nil
	}
	s.Advance(semi + 1)
	in := ip.node(ast.Entity, sym, decoded)
	in.Decoded = decoded
	return in
}

// emoji resolves a :shortcode: known to the GitHub emoji table.
func (ip *inlineParser) emoji() *ast.Inline {
	s := ip.s
	rest := s.Rest()
	end := strings.IndexByte(rest[1:], ':')
	if end < 1 {
		return nil
	}
	name := rest[1 : end+1]
	if !allBytes(name, func(c byte) bool {
		return isLetter(c) || isDigit(c) || c == '_' || c == '+' || c == '-'
	}) {
		return nil
	}
	e, ok := emojis.Get(name)
	if !ok {
		return nil
	}
	s.Advance(end + 2)
	glyph := string(e.Unicode)
	in := ip.node(ast.Emoji, rest[:end+2], glyph)
	in.Name = name
	in.Decoded = glyph
	return in
}

// footnoteRef resolves [^label].
func (ip *inlineParser) footnoteRef() *ast.Inline {
	s := ip.s
	rest := s.Rest()
	if !strings.HasPrefix(rest, "[^") {
		return nil
	}
	end := strings.IndexByte(rest, ']')
	if end < 3 {
		return nil
	}
	label := rest[2:end]
	if strings.ContainsAny(label, " \t\n[") {
		return nil
	}
	s.Advance(end + 1)
	in := ip.node(ast.FootnoteRef, rest[:end+1], label)
	in.Open = 2
	in.Label = normalizeLabel(label)
	return in
}

// image resolves ![alt](dest "title") and its reference forms.
func (ip *inlineParser) image() *ast.Inline {
	if ip.s.PeekByte(1) != '[' {
		return nil
	}
	cp := ip.s.Checkpoint()
	ip.s.Advance(1)
	in := ip.link()
	if in == nil {
		ip.s.Restore(cp)
		return nil
	}
	in.Kind = ast.Image
	in.Text.Symbolic = "!" + in.Text.Symbolic
	in.Alt = in.Text.Semantic
	in.Children = nil
	in.Open = 2
	return in
}

// link resolves [text](dest "title"), [text][label], [text][] and [text].
// Any failure restores the stream: there are no partial links.
func (ip *inlineParser) link() *ast.Inline {
	s := ip.s
	cp := s.Checkpoint()
	start := s.Pos()
	labelEnd, ok := scanLinkLabel(s.Rest())
	if !ok {
		return nil
	}
	textStart := start + 1
	textEnd := start + labelEnd
	s.Advance(labelEnd + 1)

	var url, title, label string
	if dest, t, n, ok := parseInlineDestination(s.Rest()); ok {
		url, title = dest, t
		s.Advance(n)
	} else {
		ref := s.Slice(textStart, textEnd)
		if s.PeekByte(0) == '[' {
			if n, ok := scanLinkLabel(s.Rest()); ok {
				if inner := s.Slice(s.Pos()+1, s.Pos()+n); strings.TrimSpace(inner) != "" {
					ref = inner
				}
				s.Advance(n + 1)
			}
		}
		def, found := ip.defs[normalizeLabel(ref)]
		if !found {
			s.Restore(cp)
			return nil
		}
		url, title, label = def.URL, def.Title, normalizeLabel(ref)
	}

	child := newInlineParser(ip.ids, ip.defs, ip.markers, s.Slice(textStart, textEnd), ip.base+textStart)
	children := child.run()
	in := ip.node(ast.Link, s.Slice(start, s.Pos()), ast.SemanticText(children))
	in.Open = 1
	in.Children = children
	in.URL = url
	in.Title = title
	in.Label = label
	return in
}

// scanLinkLabel returns the index of the ']' matching the '[' at s[0].
func scanLinkLabel(s string) (int, bool) {
	if s == "" || s[0] != '[' {
		return 0, false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parseInlineDestination parses `(dest "title")` at the start of s and
// returns the bytes consumed.
func parseInlineDestination(s string) (dest, title string, n int, ok bool) {
	if s == "" || s[0] != '(' {
		return "", "", 0, false
	}
	i := skipSpace(s, 1)
	if i < len(s) && s[i] == '<' {
		end := strings.IndexAny(s[i+1:], ">\n")
		if end < 0 || s[i+1+end] != '>' {
			return "", "", 0, false
		}
		dest = s[i+1 : i+1+end]
		i += end + 2
	} else {
		begin, depth := i, 0
	loop:
		for ; i < len(s); i++ {
			switch c := s[i]; {
			case c == '\\' && i+1 < len(s):
				i++
			case c == '(':
				depth++
			case c == ')':
				if depth == 0 {
					break loop
				}
				depth--
			case c <= ' ':
				break loop
			}
		}
		dest = s[begin:i]
	}
	j := skipSpace(s, i)
	if j < len(s) && j > i && (s[j] == '"' || s[j] == '\'' || s[j] == '(') {
		closer := s[j]
		if closer == '(' {
			closer = ')'
		}
		end := strings.IndexByte(s[j+1:], closer)
		if end < 0 {
			return "", "", 0, false
		}
		title = s[j+1 : j+1+end]
		j = skipSpace(s, j+end+2)
	}
	if j >= len(s) || s[j] != ')' {
		return "", "", 0, false
	}
	return unescapeBackslashes(dest), html.UnescapeString(title), j + 1, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	return i
}

func unescapeBackslashes(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isLetter(c byte) bool   { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' }
func isSpace(c byte) bool    { return c == ' ' || c == '\t' || c == '\n' }

func allBytes(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}
