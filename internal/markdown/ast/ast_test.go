package ast

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func text(id NodeID, kind InlineKind, s string) *Inline {
	return &Inline{ID: id, Kind: kind, Text: TextPair{Symbolic: s, Semantic: s}}
}

// sampleDoc builds "# Hi\n> a **b**" by hand.
func sampleDoc() *Document {
	strong := &Inline{
		ID: 7, Kind: Strong, Open: 2,
		Text:     TextPair{Symbolic: "**b**", Semantic: "b"},
		Children: []*Inline{text(8, Text, "b")},
	}
	doc := &Document{Blocks: []*Block{
		{ID: 1, Kind: Heading, Level: 1, Inlines: []*Inline{
			text(2, Marker, "# "),
			text(3, Text, "Hi"),
		}},
		{ID: 4, Kind: BlockQuote, Blocks: []*Block{
			{ID: 5, Kind: Paragraph, Inlines: []*Inline{
				text(6, Marker, "> "),
				text(9, Text, "a "),
				strong,
			}},
		}},
	}}
	doc.Normalize()
	return doc
}

func TestNormalize(t *testing.T) {
	doc := sampleDoc()
	if doc.Text != "# Hi\n> a **b**" {
		t.Fatalf("text = %q", doc.Text)
	}
	if err := doc.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	quote := doc.Block(4)
	if quote.Position != (Position{Start: 5, End: 14}) {
		t.Errorf("quote position = %+v", quote.Position)
	}
	inner := doc.Inline(8)
	if inner.Position != (Position{Start: 6, End: 7}) {
		t.Errorf("nested inline position = %+v", inner.Position)
	}
	if inner.BlockID != 5 {
		t.Errorf("nested inline block = %d", inner.BlockID)
	}
	if p := doc.Parent(5); p == nil || p.ID != 4 {
		t.Errorf("parent of 5 = %v", p)
	}
	if doc.Parent(1) != nil {
		t.Error("top-level block has a parent")
	}
	if got := doc.Owner(8); got == nil || got.ID != 5 {
		t.Errorf("owner of 8 = %v", got)
	}
}

func TestCheckDetectsDuplicateIDs(t *testing.T) {
	doc := sampleDoc()
	doc.Block(5).Inlines[1].ID = 3
	err := doc.Check()
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("Check = %v, want ErrInconsistent", err)
	}
}

func TestCheckDetectsStaleText(t *testing.T) {
	doc := sampleDoc()
	doc.Block(1).Inlines[1].Text.Symbolic = "Hello"
	if err := doc.Check(); err == nil {
		t.Fatal("Check accepted stale text")
	}
	doc.Normalize()
	if err := doc.Check(); err != nil {
		t.Fatalf("Check after Normalize: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDoc()
	cp := doc.Clone()
	cp.Block(5).Inlines[2].Children[0].Text.Symbolic = "changed"
	if doc.Inline(8).Text.Symbolic != "b" {
		t.Fatal("clone shares inlines with the original")
	}
}

func TestPointAtAndOffset(t *testing.T) {
	doc := sampleDoc()

	tests := []struct {
		name     string
		offset   int
		aff      Affinity
		inlineID NodeID
		pos      int
	}{
		{"marker start", 0, Backward, 2, 0},
		{"boundary backward", 2, Backward, 2, 2},
		{"boundary forward", 2, Forward, 3, 0},
		{"heading end", 4, Backward, 3, 2},
		{"separator forward", 4, Forward, 3, 2},
		{"inside strong delimiter", 10, Backward, 9, 2},
		{"inside strong", 12, Backward, 8, 1},
		{"past end", 99, Backward, 8, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := doc.PointAt(tt.offset, tt.aff)
			if p.InlineID != tt.inlineID || p.Position != tt.pos {
				t.Fatalf("PointAt(%d) = inline %d pos %d, want %d/%d", tt.offset, p.InlineID, p.Position, tt.inlineID, tt.pos)
			}
			off, ok := doc.Offset(p)
			if !ok {
				t.Fatal("Offset rejected PointAt result")
			}
			back := doc.PointAt(off, tt.aff)
			if back != p {
				t.Errorf("round trip %+v -> %d -> %+v", p, off, back)
			}
		})
	}
}

func TestOffsetRejectsStalePoints(t *testing.T) {
	doc := sampleDoc()
	if _, ok := doc.Offset(Point{BlockID: 1, InlineID: 99}); ok {
		t.Error("unknown inline accepted")
	}
	if _, ok := doc.Offset(Point{BlockID: 1, InlineID: 3, Position: 5}); ok {
		t.Error("out of range position accepted")
	}
	if _, ok := doc.Offset(Point{BlockID: 5, InlineID: 3}); ok {
		t.Error("mismatched block accepted")
	}
}

func TestRemoveAndReplace(t *testing.T) {
	doc := sampleDoc()
	if !doc.RemoveChild(5) {
		t.Fatal("RemoveChild(5) = false")
	}
	if !doc.Block(4).IsEmpty() {
		t.Error("quote should be empty")
	}
	if doc.Inline(8) != nil {
		t.Error("removed inline still indexed")
	}
	repl := &Block{ID: 20, Kind: Paragraph, Inlines: []*Inline{text(21, Text, "x")}}
	if !doc.Replace(4, repl) {
		t.Fatal("Replace(4) = false")
	}
	doc.Normalize()
	if doc.Text != "# Hi\nx" {
		t.Fatalf("text = %q", doc.Text)
	}
}

func TestKindsMarshalByName(t *testing.T) {
	b, err := json.Marshal(&Block{ID: 1, Kind: TaskListItem})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"type":"taskListItem"`) {
		t.Fatalf("json = %s", b)
	}
	var k InlineKind
	if err := k.UnmarshalText([]byte("footnoteRef")); err != nil || k != FootnoteRef {
		t.Fatalf("UnmarshalText = %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("nope")); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestIDGenNeverReuses(t *testing.T) {
	g := NewIDGen()
	a := g.Next()
	g.Observe(10)
	b := g.Next()
	g.Observe(3)
	c := g.Next()
	if a != 1 || b != 11 || c != 12 {
		t.Fatalf("ids = %d %d %d", a, b, c)
	}
}
