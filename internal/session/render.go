package session

import "github.com/starford/quire/internal/markdown/ast"

// Insertion anchors of a render effect.
const (
	AtCurrent  = "current"
	AtPrevious = "previous"
	AtNext     = "next"
)

// RenderInsert places Current relative to the block Target: replacing it
// (current), before it (previous) or after it (next).
type RenderInsert struct {
	At      string     `json:"at"`
	Target  ast.NodeID `json:"target"`
	Current *ast.Block `json:"current"`
}

// Render is the set of top-level block changes a display must apply.
type Render struct {
	Insert []RenderInsert `json:"insert"`
	Remove []*ast.Block   `json:"remove"`
}

// RenderEffect tells a display surface what to redraw.
type RenderEffect struct {
	Type   string  `json:"type"`
	Render *Render `json:"render"`
}

// CaretEffect tells a display surface where the caret lands.
type CaretEffect struct {
	Type  string    `json:"type"`
	Caret ast.Point `json:"caret"`
}

func restoreCaret(p ast.Point) *CaretEffect {
	return &CaretEffect{Type: "restore", Caret: p}
}

// diffBlocks compares the top-level blocks of two trees. Surviving blocks
// whose content changed are replaced in place, new blocks are anchored to
// their predecessor in the new tree, and vanished blocks are removed. When
// the first block is new and the old first block is gone, it takes the old
// block's place.
func diffBlocks(prev, next *ast.Document) *RenderEffect {
	old := make(map[ast.NodeID]*ast.Block, len(prev.Blocks))
	for _, b := range prev.Blocks {
		old[b.ID] = b
	}
	kept := make(map[ast.NodeID]bool, len(next.Blocks))
	for _, b := range next.Blocks {
		if _, ok := old[b.ID]; ok {
			kept[b.ID] = true
		}
	}

	r := &Render{Insert: []RenderInsert{}, Remove: []*ast.Block{}}
	replaced := ast.NodeID(0)
	for i, b := range next.Blocks {
		if ob, ok := old[b.ID]; ok {
			if !sameBlock(ob, b) {
				r.Insert = append(r.Insert, RenderInsert{At: AtCurrent, Target: b.ID, Current: b.Clone()})
			}
			continue
		}
		switch {
		case i > 0:
			r.Insert = append(r.Insert, RenderInsert{At: AtNext, Target: next.Blocks[i-1].ID, Current: b.Clone()})
		case len(prev.Blocks) > 0 && !kept[prev.Blocks[0].ID]:
			replaced = prev.Blocks[0].ID
			r.Insert = append(r.Insert, RenderInsert{At: AtCurrent, Target: replaced, Current: b.Clone()})
		case len(prev.Blocks) > 0:
			r.Insert = append(r.Insert, RenderInsert{At: AtPrevious, Target: prev.Blocks[0].ID, Current: b.Clone()})
		default:
			r.Insert = append(r.Insert, RenderInsert{At: AtNext, Current: b.Clone()})
		}
	}
	for _, b := range prev.Blocks {
		if !kept[b.ID] && b.ID != replaced {
			r.Remove = append(r.Remove, b.Clone())
		}
	}
	return &RenderEffect{Type: "update", Render: r}
}

// Empty reports whether the render changes nothing.
func (r *Render) Empty() bool {
	return len(r.Insert) == 0 && len(r.Remove) == 0
}

// sameBlock compares content and identity, ignoring absolute positions.
func sameBlock(a, b *ast.Block) bool {
	if a.ID != b.ID || a.Kind != b.Kind || a.Text != b.Text ||
		len(a.Blocks) != len(b.Blocks) || len(a.Inlines) != len(b.Inlines) {
		return false
	}
	for i := range a.Blocks {
		if !sameBlock(a.Blocks[i], b.Blocks[i]) {
			return false
		}
	}
	return sameInlines(a.Inlines, b.Inlines)
}

func sameInlines(a, b []*ast.Inline) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Kind != y.Kind || x.Text != y.Text || !sameInlines(x.Children, y.Children) {
			return false
		}
	}
	return true
}
