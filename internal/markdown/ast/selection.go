package ast

import "fmt"

// Affinity breaks ties when an offset sits on the boundary of two inlines.
type Affinity uint8

const (
	Backward Affinity = iota
	Forward
)

func (a Affinity) String() string {
	if a == Forward {
		return "forward"
	}
	return "backward"
}

// MarshalText encodes the affinity by name.
func (a Affinity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an affinity name. The empty string means backward.
func (a *Affinity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "backward":
		*a = Backward
	case "forward":
		*a = Forward
	default:
		return fmt.Errorf("ast: unknown affinity %q", b)
	}
	return nil
}

// Point is a caret location. Position is relative to the inline's symbolic
// text, or to the block's text when InlineID is zero (leaves without
// inlines).
type Point struct {
	BlockID  NodeID   `json:"blockId"`
	InlineID NodeID   `json:"inlineId"`
	Position int      `json:"position"`
	Affinity Affinity `json:"affinity"`
}

// Direction is the direction a selection was made in.
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirNone     Direction = "none"
)

// Range is a selection. Start precedes End in document order.
type Range struct {
	Start     Point     `json:"start"`
	End       Point     `json:"end"`
	Direction Direction `json:"direction,omitempty"`
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start.BlockID == r.End.BlockID &&
		r.Start.InlineID == r.End.InlineID &&
		r.Start.Position == r.End.Position
}

// Caret returns a collapsed range at p.
func Caret(p Point) Range {
	return Range{Start: p, End: p, Direction: DirNone}
}

// Offset converts p to an absolute document offset. It reports false when
// p names a node that no longer exists or a position outside it.
func (d *Document) Offset(p Point) (int, bool) {
	if p.InlineID == 0 {
		b := d.Block(p.BlockID)
		if b == nil || !b.IsLeaf() || p.Position < 0 || p.Position > len(b.Text) {
			return 0, false
		}
		return b.Position.Start + p.Position, true
	}
	in := d.Inline(p.InlineID)
	if in == nil {
		return 0, false
	}
	owner := d.Owner(p.InlineID)
	if owner == nil || (p.BlockID != 0 && owner.ID != p.BlockID) {
		return 0, false
	}
	if p.Position < 0 || p.Position > len(in.Text.Symbolic) {
		return 0, false
	}
	return owner.Position.Start + in.Position.Start + p.Position, true
}

// PointAt converts an absolute offset to a point in the innermost inline
// covering it. Offsets on a separator between leaves resolve to the end of
// the previous leaf for Backward affinity and the start of the next leaf
// otherwise.
func (d *Document) PointAt(offset int, aff Affinity) Point {
	leaves := d.Leaves()
	if len(leaves) == 0 {
		return Point{Affinity: aff}
	}
	if offset < 0 {
		offset = 0
	}
	var leaf *Block
	for i, l := range leaves {
		if offset < l.Position.Start {
			if i > 0 && aff == Backward {
				leaf = leaves[i-1]
				offset = leaf.Position.End
			} else {
				leaf = l
				offset = l.Position.Start
			}
			break
		}
		if offset <= l.Position.End {
			if offset == l.Position.End && aff == Forward && i+1 < len(leaves) &&
				leaves[i+1].Position.Start == offset {
				continue
			}
			leaf = l
			break
		}
	}
	if leaf == nil {
		leaf = leaves[len(leaves)-1]
		offset = leaf.Position.End
	}
	return LeafPoint(leaf, offset-leaf.Position.Start, aff)
}

// LeafPoint resolves a leaf-relative offset to a point.
func LeafPoint(leaf *Block, rel int, aff Affinity) Point {
	atoms := leaf.Atoms()
	if len(atoms) == 0 {
		if rel > len(leaf.Text) {
			rel = len(leaf.Text)
		}
		return Point{BlockID: leaf.ID, Position: rel, Affinity: aff}
	}
	at := func(in *Inline, pos int) Point {
		return Point{BlockID: leaf.ID, InlineID: in.ID, Position: pos, Affinity: aff}
	}
	for _, in := range atoms {
		s, e := in.Position.Start, in.Position.End
		switch {
		case rel > s && rel < e:
			return at(in, rel-s)
		case rel == e && aff == Backward:
			return at(in, e-s)
		case rel == s && aff == Forward:
			return at(in, 0)
		}
	}
	// Tie broken the other way, or an offset inside a wrapper's delimiters.
	for i, in := range atoms {
		if rel <= in.Position.Start {
			if aff == Backward && i > 0 {
				prev := atoms[i-1]
				return at(prev, prev.Position.Len())
			}
			return at(in, 0)
		}
	}
	last := atoms[len(atoms)-1]
	return at(last, last.Position.Len())
}
