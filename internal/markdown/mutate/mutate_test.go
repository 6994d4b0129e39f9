package mutate

import (
	"encoding/json"
	"testing"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

func setup(t *testing.T, text string) (*ast.Document, *parser.Parser) {
	t.Helper()
	p := parser.New(nil)
	doc := p.Parse(text)
	if doc.Text != text {
		t.Fatalf("parse(%q) flattened to %q", text, doc.Text)
	}
	return doc, p
}

// settle renormalizes doc and checks its invariants.
func settle(t *testing.T, doc *ast.Document, p *parser.Parser) *ast.Document {
	t.Helper()
	out := Renormalize(doc, p)
	if err := out.Check(); err != nil {
		t.Fatalf("Check after renormalize: %v", err)
	}
	return out
}

func TestSplitBlock_Halves(t *testing.T) {
	doc, p := setup(t, "hello world")
	leaf := doc.Leaves()[0]
	in := leaf.Inlines[0]

	s, ok := SplitBlock(p, leaf, in.ID, 5, SplitOptions{})
	if !ok {
		t.Fatal("SplitBlock failed")
	}
	if s.Left.Text != "hello" || s.Right.Text != " world" {
		t.Errorf("halves = %q, %q", s.Left.Text, s.Right.Text)
	}
	if s.Left.ID != leaf.ID {
		t.Errorf("left id = %d, want %d", s.Left.ID, leaf.ID)
	}
	if s.Right.ID == leaf.ID {
		t.Error("right half reused the original id")
	}
	if leaf.Text != "hello world" {
		t.Errorf("original modified: %q", leaf.Text)
	}
}

func TestSplitBlock_BlankLeftBecomesParagraph(t *testing.T) {
	doc, p := setup(t, "    code")
	leaf := doc.Leaves()[0]
	if leaf.Kind != ast.CodeBlock {
		t.Fatalf("kind = %s, want codeBlock", leaf.Kind)
	}
	s, ok := SplitBlock(p, leaf, leaf.Inlines[0].ID, 2, SplitOptions{})
	if !ok {
		t.Fatal("SplitBlock failed")
	}
	if s.Left.Kind != ast.Paragraph {
		t.Errorf("left kind = %s, want paragraph", s.Left.Kind)
	}
}

func TestSplitBlock_UnknownInline(t *testing.T) {
	doc, p := setup(t, "a\n\nb")
	first, second := doc.Leaves()[0], doc.Leaves()[2]
	if _, ok := SplitBlock(p, first, second.Inlines[0].ID, 0, SplitOptions{}); ok {
		t.Error("split with a foreign inline succeeded")
	}
	if _, ok := SplitBlock(p, first, first.Inlines[0].ID, 9, SplitOptions{}); ok {
		t.Error("split past the inline end succeeded")
	}
}

func TestSplitAt_Prefix(t *testing.T) {
	doc, p := setup(t, "- ab")
	leaf := doc.Leaves()[0]
	res, ok := SplitAt(doc, p, leaf.ID, leaf.Inlines[1].ID, 1, SplitOptions{RightPrefix: "- "})
	if !ok {
		t.Fatal("SplitAt failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "- a\n- b" {
		t.Fatalf("text = %q, want %q", doc.Text, "- a\n- b")
	}
	if res.Offset != 6 || res.Affinity != ast.Forward {
		t.Errorf("caret = %d/%s, want 6/forward", res.Offset, res.Affinity)
	}
	if items := doc.Blocks[0].Blocks; len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestSplitMerge_Inverse(t *testing.T) {
	tests := []struct {
		text    string
		atom    int
		caret   int
		keepsID bool
	}{
		{"# Hello world", 1, 5, true},
		{"a *bold* move", 1, 2, true},
		{"- item text", 1, 4, false},
		{"> quoted line", 1, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			doc, p := setup(t, tt.text)
			leaf := doc.Leaves()[0]
			id := leaf.ID
			at := leaf.Atoms()[tt.atom]

			if _, ok := SplitAt(doc, p, leaf.ID, at.ID, tt.caret, SplitOptions{}); !ok {
				t.Fatal("SplitAt failed")
			}
			doc.Normalize()
			leaves := doc.Leaves()
			left, right := leaves[0], leaves[1]
			la := left.Atoms()
			ra := right.Atoms()

			if _, ok := MergeInline(doc, p, la[len(la)-1].ID, ra[0].ID, KeepBoth); !ok {
				t.Fatal("MergeInline failed")
			}
			doc = settle(t, doc, p)
			if doc.Text != tt.text {
				t.Errorf("text = %q, want %q", doc.Text, tt.text)
			}
			if tt.keepsID && doc.Leaves()[0].ID != id {
				t.Errorf("leaf id = %d, want %d", doc.Leaves()[0].ID, id)
			}
		})
	}
}

func TestMergeInline_SameBlockBoundaries(t *testing.T) {
	tests := []struct {
		boundary    Boundary
		left, right int
		want        string
		caret       int
	}{
		{KeepBoth, 0, 1, "x `y` z", 2},
		{DropLeftLast, 0, 1, "x`y` z", 1},
		{DropLeft, 0, 1, "`y` z", 0},
		{DropRightFirst, 1, 2, "x `y`z", 5},
		{DropRight, 0, 1, "x  z", 2},
	}
	for _, tt := range tests {
		t.Run(tt.boundary.String(), func(t *testing.T) {
			doc, p := setup(t, "x `y` z")
			atoms := doc.Leaves()[0].Atoms()
			res, ok := MergeInline(doc, p, atoms[tt.left].ID, atoms[tt.right].ID, tt.boundary)
			if !ok {
				t.Fatal("MergeInline failed")
			}
			doc = settle(t, doc, p)
			if doc.Text != tt.want {
				t.Errorf("text = %q, want %q", doc.Text, tt.want)
			}
			if res.Offset != tt.caret {
				t.Errorf("caret = %d, want %d", res.Offset, tt.caret)
			}
		})
	}
}

func TestMergeInline_RejectsReversedOrder(t *testing.T) {
	doc, p := setup(t, "x `y` z")
	atoms := doc.Leaves()[0].Atoms()
	if _, ok := MergeInline(doc, p, atoms[1].ID, atoms[0].ID, KeepBoth); ok {
		t.Error("merge of reversed inlines succeeded")
	}
	if _, ok := MergeInline(doc, p, 999, atoms[0].ID, KeepBoth); ok {
		t.Error("merge with unknown inline succeeded")
	}
}

func TestMergeInline_CrossBlock(t *testing.T) {
	doc, p := setup(t, "# Title\n\nbody")
	leaves := doc.Leaves()
	heading, blank, body := leaves[0], leaves[1], leaves[2]

	res, ok := MergeInline(doc, p, heading.Inlines[1].ID, body.Inlines[0].ID, KeepBoth)
	if !ok {
		t.Fatal("MergeInline failed")
	}
	if res.Offset != 7 {
		t.Errorf("caret = %d, want 7", res.Offset)
	}
	if len(res.Removed) != 2 || res.Removed[0] != blank || res.Removed[1] != body {
		t.Errorf("removed = %v", res.Removed)
	}
	doc = settle(t, doc, p)
	if doc.Text != "# Titlebody" {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Blocks[0].ID != heading.ID {
		t.Errorf("heading id = %d, want %d", doc.Blocks[0].ID, heading.ID)
	}
}

func TestMergeInline_SharedListOwner(t *testing.T) {
	doc, p := setup(t, "- a\n- b")
	list := doc.Blocks[0]
	leaves := doc.Leaves()
	a, b := leaves[0].Atoms()[1], leaves[1].Atoms()[1]

	res, ok := MergeInline(doc, p, a.ID, b.ID, DropRight)
	if !ok {
		t.Fatal("MergeInline failed")
	}
	if len(res.Removed) != 1 || res.Removed[0] != leaves[1] {
		t.Errorf("removed = %v", res.Removed)
	}
	doc = settle(t, doc, p)
	if doc.Text != "- a" {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Blocks[0].ID != list.ID {
		t.Errorf("list id = %d, want %d", doc.Blocks[0].ID, list.ID)
	}
	if res.Offset != 3 {
		t.Errorf("caret = %d, want 3", res.Offset)
	}
}

func TestRemoveBlockCascade(t *testing.T) {
	t.Run("empties every ancestor", func(t *testing.T) {
		doc, _ := setup(t, "> - only\n\npara")
		removed := RemoveBlockCascade(doc, doc.Leaves()[0])
		want := []ast.BlockKind{ast.Paragraph, ast.ListItem, ast.List, ast.BlockQuote}
		if len(removed) != len(want) {
			t.Fatalf("removed %d blocks, want %d", len(removed), len(want))
		}
		for i, b := range removed {
			if b.Kind != want[i] {
				t.Errorf("removed[%d] = %s, want %s", i, b.Kind, want[i])
			}
		}
		if len(doc.Blocks) != 2 {
			t.Errorf("top level = %d blocks, want 2", len(doc.Blocks))
		}
	})

	t.Run("stops at a non-empty ancestor", func(t *testing.T) {
		doc, _ := setup(t, "- a\n- b")
		removed := RemoveBlockCascade(doc, doc.Leaves()[0])
		if len(removed) != 2 || removed[1].Kind != ast.ListItem {
			t.Fatalf("removed = %v", removed)
		}
		list := doc.Blocks[0]
		if list.Kind != ast.List || len(list.Blocks) != 1 {
			t.Errorf("list = %s with %d items", list.Kind, len(list.Blocks))
		}
		for _, b := range removed {
			if !b.IsLeaf() && len(b.Blocks) > 0 {
				t.Errorf("removed non-empty %s", b.Kind)
			}
		}
	})

	t.Run("unknown block", func(t *testing.T) {
		doc, _ := setup(t, "a")
		if removed := RemoveBlockCascade(doc, &ast.Block{ID: 999}); removed != nil {
			t.Errorf("removed = %v, want nil", removed)
		}
	})
}

func TestRemoveBlock_Caret(t *testing.T) {
	doc, p := setup(t, "a\n\nb")
	blank := doc.Leaves()[1]
	res, ok := RemoveBlock(doc, blank.ID, ast.Backward)
	if !ok {
		t.Fatal("RemoveBlock failed")
	}
	if res.Offset != 1 {
		t.Errorf("caret = %d, want 1", res.Offset)
	}
	doc = settle(t, doc, p)
	if doc.Text != "a\nb" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestClearInlinesUnder(t *testing.T) {
	doc, _ := setup(t, "> a\n>\n> b")
	quote := doc.Blocks[0]
	ClearInlinesUnder(doc, quote.ID)
	ast.WalkBlocks(quote.Blocks, func(b, _ *ast.Block) bool {
		if len(b.Inlines) != 0 {
			t.Errorf("%s %d still has inlines", b.Kind, b.ID)
		}
		return true
	})
}

func TestSplice(t *testing.T) {
	doc, p := setup(t, "hello")
	leaf := doc.Leaves()[0]
	in := leaf.Inlines[0]

	res, ok := Splice(doc, p, ast.Point{BlockID: leaf.ID, InlineID: in.ID, Position: 5}, 0, " world")
	if !ok {
		t.Fatal("Splice failed")
	}
	if res.Offset != 11 {
		t.Errorf("caret = %d, want 11", res.Offset)
	}
	doc = settle(t, doc, p)
	if doc.Text != "hello world" {
		t.Errorf("text = %q", doc.Text)
	}

	leaf = doc.Leaves()[0]
	pt := ast.Point{BlockID: leaf.ID, InlineID: leaf.Inlines[0].ID, Position: 0}
	if _, ok := Splice(doc, p, pt, 1, ""); !ok {
		t.Fatal("delete splice failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "ello world" {
		t.Errorf("text = %q", doc.Text)
	}

	leaf = doc.Leaves()[0]
	pt = ast.Point{BlockID: leaf.ID, InlineID: leaf.Inlines[0].ID, Position: 8}
	if _, ok := Splice(doc, p, pt, 5, ""); ok {
		t.Error("splice past the inline end succeeded")
	}
}

func TestSplice_EmptyParagraph(t *testing.T) {
	doc, p := setup(t, "")
	leaf := doc.Leaves()[0]
	res, ok := Splice(doc, p, ast.Point{BlockID: leaf.ID}, 0, "x")
	if !ok {
		t.Fatal("Splice failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "x" || res.Offset != 1 {
		t.Errorf("text = %q caret %d", doc.Text, res.Offset)
	}
	if doc.Leaves()[0].ID != leaf.ID {
		t.Error("paragraph id not carried")
	}
}

func TestReplaceText(t *testing.T) {
	doc, p := setup(t, "a\u200bb c")
	in := doc.Leaves()[0].Inlines[0]
	res, ok := ReplaceText(doc, p, in.ID, "ab c", 1)
	if !ok {
		t.Fatal("ReplaceText failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "ab c" || res.Offset != 1 {
		t.Errorf("text = %q caret %d", doc.Text, res.Offset)
	}
}

func TestDeleteRange(t *testing.T) {
	point := func(doc *ast.Document, leaf, pos int) ast.Point {
		l := doc.Leaves()[leaf]
		in := l.Atoms()[len(l.Atoms())-1]
		return ast.Point{BlockID: l.ID, InlineID: in.ID, Position: pos}
	}
	tests := []struct {
		name   string
		insert string
		from   [2]int
		to     [2]int
		want   string
		caret  int
	}{
		{"across blocks", "", [2]int{0, 1}, [2]int{2, 4}, "# othree", 3},
		{"paste across blocks", "X", [2]int{0, 1}, [2]int{2, 4}, "# oXthree", 4},
		{"within a leaf", "", [2]int{2, 0}, [2]int{2, 4}, "# one\n\nthree", 7},
		{"reversed", "", [2]int{2, 4}, [2]int{0, 1}, "# othree", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, p := setup(t, "# one\n\ntwo three")
			r := ast.Range{Start: point(doc, tt.from[0], tt.from[1]), End: point(doc, tt.to[0], tt.to[1])}
			res, ok := DeleteRange(doc, p, r, tt.insert)
			if !ok {
				t.Fatal("DeleteRange failed")
			}
			doc = settle(t, doc, p)
			if doc.Text != tt.want {
				t.Errorf("text = %q, want %q", doc.Text, tt.want)
			}
			if res.Offset != tt.caret {
				t.Errorf("caret = %d, want %d", res.Offset, tt.caret)
			}
		})
	}
}

func TestMergeCodeBlockContent(t *testing.T) {
	tests := []struct {
		text  string
		want  string
		caret int
	}{
		{"```go\nfmt\n```\nafter", "fmt\nafter", 0},
		{"> ```\n> x\n> ```", "> x", 2},
		{"```\n```", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			doc, p := setup(t, tt.text)
			var code *ast.Block
			for _, l := range doc.Leaves() {
				if l.Kind == ast.CodeBlock {
					code = l
				}
			}
			if code == nil {
				t.Fatal("no code block")
			}
			res, ok := MergeCodeBlockContent(doc, p, code.ID)
			if !ok {
				t.Fatal("MergeCodeBlockContent failed")
			}
			doc = settle(t, doc, p)
			if doc.Text != tt.want {
				t.Errorf("text = %q, want %q", doc.Text, tt.want)
			}
			if res.Offset != tt.caret {
				t.Errorf("caret = %d, want %d", res.Offset, tt.caret)
			}
		})
	}

	doc, p := setup(t, "para")
	if _, ok := MergeCodeBlockContent(doc, p, doc.Leaves()[0].ID); ok {
		t.Error("unwrapped a paragraph")
	}
}

func TestRenormalize_CarriesIDs(t *testing.T) {
	doc, p := setup(t, "# a\n\nb *c*")
	heading := doc.Blocks[0]
	para := doc.Blocks[2]
	em := para.Inlines[1]
	if em.Kind != ast.Emphasis {
		t.Fatalf("inline = %s, want emphasis", em.Kind)
	}

	pt := ast.Point{BlockID: heading.ID, InlineID: heading.Inlines[1].ID, Position: 1}
	if _, ok := Splice(doc, p, pt, 0, "bc"); !ok {
		t.Fatal("Splice failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "# abc\n\nb *c*" {
		t.Fatalf("text = %q", doc.Text)
	}
	if doc.Blocks[0].ID != heading.ID || doc.Blocks[2].ID != para.ID {
		t.Errorf("block ids = %d,%d want %d,%d", doc.Blocks[0].ID, doc.Blocks[2].ID, heading.ID, para.ID)
	}
	if got := doc.Blocks[2].Inlines[1]; got.ID != em.ID {
		t.Errorf("emphasis id = %d, want %d", got.ID, em.ID)
	}
	if got := doc.Inline(em.ID); got == nil || doc.Owner(em.ID) != doc.Blocks[2] {
		t.Error("lookup of carried inline failed")
	}
}

func TestSplice_KeepsInlineIDsOfEditedLeaf(t *testing.T) {
	cases := []struct {
		name string
		pos  int
		want string
	}{
		{"inside text", 2, "heXllo *world*"},
		{"before emphasis", 6, "hello X*world*"},
		{"at start", 0, "Xhello *world*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, p := setup(t, "hello *world*")
			leaf := doc.Blocks[0]
			text, em := leaf.Inlines[0], leaf.Inlines[1]
			if text.Kind != ast.Text || em.Kind != ast.Emphasis {
				t.Fatalf("inlines = %s,%s want text,emphasis", text.Kind, em.Kind)
			}
			inner := em.Children[0]

			pt := ast.Point{BlockID: leaf.ID, InlineID: text.ID, Position: tc.pos}
			if _, ok := Splice(doc, p, pt, 0, "X"); !ok {
				t.Fatal("Splice failed")
			}
			got := doc.Blocks[0].Inlines
			if got[0].ID != text.ID {
				t.Errorf("text id = %d, want %d", got[0].ID, text.ID)
			}
			if got[1].ID != em.ID || got[1].Children[0].ID != inner.ID {
				t.Errorf("emphasis ids = %d,%d want %d,%d", got[1].ID, got[1].Children[0].ID, em.ID, inner.ID)
			}
			if doc.Inline(em.ID) != got[1] {
				t.Error("lookup returned a stale emphasis")
			}

			doc = settle(t, doc, p)
			if doc.Text != tc.want {
				t.Fatalf("text = %q, want %q", doc.Text, tc.want)
			}
			if doc.Inline(text.ID) == nil || doc.Inline(em.ID) == nil || doc.Inline(inner.ID) == nil {
				t.Error("ids lost after renormalize")
			}
		})
	}
}

func TestApply(t *testing.T) {
	doc, p := setup(t, "x `y` z")
	atoms := doc.Leaves()[0].Atoms()
	e := Edit{Kind: KindMergeInline, Left: atoms[0].ID, Right: atoms[1].ID, Boundary: DropRight}
	if _, ok := Apply(doc, p, e); !ok {
		t.Fatal("Apply failed")
	}
	doc = settle(t, doc, p)
	if doc.Text != "x  z" {
		t.Errorf("text = %q", doc.Text)
	}

	for _, bad := range []Edit{{Kind: "bogus"}, {Kind: KindDeleteMultiBlock}, {Kind: KindRemoveBlock, BlockID: 999}} {
		if _, ok := Apply(doc, p, bad); ok {
			t.Errorf("Apply(%s) succeeded", bad.Kind)
		}
	}
}

func TestEdit_JSON(t *testing.T) {
	e := Edit{Kind: KindMergeInline, Left: 1, Right: 2, Boundary: DropLeftLast}
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var back Edit
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Boundary != DropLeftLast || back.Kind != KindMergeInline {
		t.Errorf("round trip = %+v", back)
	}
}
