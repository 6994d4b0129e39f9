package metadata

import (
	"testing"

	"github.com/starford/quire/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - quire\n---\n# Heading\n\nBody text.\n")
	r := Parse(input)
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "go" || r.Tags[1] != "quire" {
		t.Errorf("tags = %v, want [go quire]", r.Tags)
	}
	if r.Body != "# Heading\n\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if got := string(input[r.BodyOffset:]); got != r.Body {
		t.Errorf("body offset %d points at %q", r.BodyOffset, got)
	}
	if r.Doc == nil || r.Doc.Text != r.Body {
		t.Error("tree does not cover the body")
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("## Intro\n\n# Just a heading\n\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.BodyOffset != 0 {
		t.Errorf("body offset = %d, want 0", r.BodyOffset)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse([]byte(input))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != input {
		t.Errorf("body = %q, want the whole input", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := "---\ntitle: x\nno closing line"
	if r := Parse([]byte(input)); r.Frontmatter != nil || r.Body != input {
		t.Errorf("frontmatter = %v body = %q", r.Frontmatter, r.Body)
	}
}

func TestOutline(t *testing.T) {
	input := "---\ntitle: T\n---\n# One\n\ntext\n\n## Two *em* ##\n\n> ### Quoted"
	r := Parse([]byte(input))
	want := []models.Heading{
		{Level: 1, Text: "One"},
		{Level: 2, Text: "Two em"},
		{Level: 3, Text: "Quoted"},
	}
	if len(r.Headings) != len(want) {
		t.Fatalf("headings = %+v", r.Headings)
	}
	for i, h := range r.Headings {
		if h.Level != want[i].Level || h.Text != want[i].Text {
			t.Errorf("heading %d = %+v, want %+v", i, h, want[i])
		}
	}
	if off := r.Headings[0].Offset; input[off:off+5] != "# One" {
		t.Errorf("first heading offset %d points at %q", off, input[off:])
	}
}

func TestLinks(t *testing.T) {
	input := "See [a](a.md), ![pic](img.png) and <https://example.com>.\n" +
		"Also [ref][r], [[Wiki Page|alias]] and [a](a.md) again.\n\n" +
		"```\n[[not a link]]\n```\n\n" +
		"[r]: ref.md"
	r := Parse([]byte(input))
	want := []models.Link{
		{Target: "a.md", Type: models.LinkInline},
		{Target: "img.png", Type: models.LinkImage},
		{Target: "https://example.com", Type: models.LinkAutolink},
		{Target: "ref.md", Type: models.LinkReference},
		{Target: "Wiki Page", Type: models.LinkWiki},
	}
	if len(r.Links) != len(want) {
		t.Fatalf("links = %+v, want %+v", r.Links, want)
	}
	for i := range want {
		if r.Links[i] != want[i] {
			t.Errorf("link %d = %+v, want %+v", i, r.Links[i], want[i])
		}
	}
}

func TestTags(t *testing.T) {
	input := "---\ntags: alpha, beta\n---\nText with #gamma and #alpha.\n\n```\n#notatag\n```"
	r := Parse([]byte(input))
	want := []string{"alpha", "beta", "gamma"}
	if len(r.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", r.Tags, want)
	}
	for i := range want {
		if r.Tags[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, r.Tags[i], want[i])
		}
	}
}
