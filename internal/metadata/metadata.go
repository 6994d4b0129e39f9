// Package metadata derives document metadata (frontmatter, title, tags,
// outline, links) from markdown text and its parse tree.
package metadata

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
	"github.com/starford/quire/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds everything derived from one document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	// BodyOffset is the byte offset of Body in the original text.
	BodyOffset int
	Doc        *ast.Document
	Title      string
	Tags       []string
	Headings   []models.Heading
	Links      []models.Link
}

// Parse splits off YAML frontmatter, parses the body and collects metadata
// from the tree. Invalid frontmatter is treated as body text.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	res := &Result{
		Frontmatter: fm,
		Body:        body,
		BodyOffset:  len(data) - len(body),
	}
	return Describe(res, parser.New(nil).Parse(body))
}

// Describe fills the tree-derived fields of res from doc, a parse of
// res.Body.
func Describe(res *Result, doc *ast.Document) *Result {
	res.Doc = doc
	res.Headings = Outline(doc, res.BodyOffset)
	res.Links = extractLinks(doc)
	res.Tags = extractTags(doc, res.Frontmatter)
	res.Title = deriveTitle(res.Frontmatter, res.Headings)
	return res
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter the whole content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	yamlBlock := rest[:idx]
	after := rest[idx+1+len(delim):]
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 && len(bytes.TrimSpace(after[:nl])) == 0 {
		after = after[nl+1:]
	} else if len(bytes.TrimSpace(after)) == 0 {
		after = nil
	} else {
		return nil, string(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, strings.TrimLeft(string(after), "\n\r")
}

// Outline lists the headings of doc. base is added to every offset.
func Outline(doc *ast.Document, base int) []models.Heading {
	var out []models.Heading
	ast.WalkBlocks(doc.Blocks, func(b, _ *ast.Block) bool {
		if b.Kind == ast.Heading {
			out = append(out, models.Heading{
				Level:  b.Level,
				Text:   strings.TrimSpace(ast.SemanticText(b.Inlines)),
				Offset: base + b.Position.Start,
			})
		}
		return true
	})
	return out
}

func extractLinks(doc *ast.Document) []models.Link {
	type key struct{ target, kind string }
	seen := map[key]bool{}
	var out []models.Link
	add := func(target, kind string) {
		target = strings.TrimSpace(target)
		if target == "" || seen[key{target, kind}] {
			return
		}
		seen[key{target, kind}] = true
		out = append(out, models.Link{Target: target, Type: kind})
	}

	for _, leaf := range doc.Leaves() {
		if leaf.Kind == ast.CodeBlock || leaf.Kind == ast.HTMLBlock {
			continue
		}
		ast.WalkInlines(leaf.Inlines, func(in *ast.Inline) {
			switch in.Kind {
			case ast.Link:
				if in.Label != "" {
					add(in.URL, models.LinkReference)
				} else {
					add(in.URL, models.LinkInline)
				}
			case ast.Autolink:
				add(in.URL, models.LinkAutolink)
			case ast.Image:
				add(in.URL, models.LinkImage)
			}
		})
		for _, m := range wikilinkRe.FindAllStringSubmatch(leaf.Text, -1) {
			target, _, _ := strings.Cut(m[1], "|")
			add(target, models.LinkWiki)
		}
	}
	return out
}

// extractTags collects tags from the frontmatter "tags" list and #tags in
// text outside code.
func extractTags(doc *ast.Document, fm map[string]any) []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	for _, leaf := range doc.Leaves() {
		if leaf.Kind == ast.CodeBlock || leaf.Kind == ast.HTMLBlock {
			continue
		}
		ast.WalkInlines(leaf.Inlines, func(in *ast.Inline) {
			if in.Kind != ast.Text {
				return
			}
			for _, m := range tagRe.FindAllStringSubmatch(in.Text.Semantic, -1) {
				add(m[1])
			}
		})
	}
	return out
}

// deriveTitle returns the frontmatter title, else the first level-1
// heading, else the empty string.
func deriveTitle(fm map[string]any, headings []models.Heading) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
