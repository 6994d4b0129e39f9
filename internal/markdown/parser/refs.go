package parser

import (
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// normalizeLabel collapses internal whitespace, trims and case-folds a link
// label so that [Foo  Bar] and [foo bar] match.
func normalizeLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return fold.String(s)
		}
	}
	return strings.ToLower(s)
}

// parseLinkDef recognizes a single-line link reference definition:
//
//	[label]: destination "optional title"
func parseLinkDef(line string) (label, dest, title string, ok bool) {
	s := strings.TrimLeft(line, " ")
	if len(line)-len(s) > 3 || !strings.HasPrefix(s, "[") || strings.HasPrefix(s, "[^") {
		return "", "", "", false
	}
	end, found := scanLinkLabel(s)
	if !found || end+1 >= len(s) || s[end+1] != ':' {
		return "", "", "", false
	}
	label = s[1:end]
	if strings.TrimSpace(label) == "" {
		return "", "", "", false
	}
	rest := strings.TrimLeft(s[end+2:], " \t")
	if rest == "" {
		return "", "", "", false
	}
	if rest[0] == '<' {
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			return "", "", "", false
		}
		dest, rest = rest[1:gt], rest[gt+1:]
	} else {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			i = len(rest)
		}
		dest, rest = rest[:i], rest[i:]
	}
	trimmed := strings.TrimSpace(rest)
	if trimmed != "" {
		if len(trimmed) < 2 || rest == trimmed {
			return "", "", "", false
		}
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		switch {
		case first == '"' && last == '"', first == '\'' && last == '\'', first == '(' && last == ')':
			title = trimmed[1 : len(trimmed)-1]
		default:
			return "", "", "", false
		}
	}
	return normalizeLabel(label), unescapeBackslashes(dest), title, true
}

// parseFootnoteDef recognizes "[^label]:" and returns the label and the
// width of the syntax including the spaces after the colon.
func parseFootnoteDef(line string) (label string, width int, ok bool) {
	s := strings.TrimLeft(line, " ")
	indent := len(line) - len(s)
	if indent > 3 || !strings.HasPrefix(s, "[^") {
		return "", 0, false
	}
	end := strings.Index(s, "]:")
	if end < 3 {
		return "", 0, false
	}
	label = s[2:end]
	if strings.ContainsAny(label, " \t[]") {
		return "", 0, false
	}
	width = indent + end + 2
	for width < len(line) && (line[width] == ' ' || line[width] == '\t') {
		width++
	}
	return normalizeLabel(label), width, true
}
