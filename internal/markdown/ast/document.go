package ast

import "strings"

// LinkDef is a resolved link reference definition.
type LinkDef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Document is the root of the tree. Text is the top-level blocks joined with
// "\n".
type Document struct {
	Text   string             `json:"text"`
	Blocks []*Block           `json:"blocks"`
	Defs   map[string]LinkDef `json:"-"`

	idx *lookup
}

type lookup struct {
	blocks  map[NodeID]*Block
	parents map[NodeID]*Block
	inlines map[NodeID]*Inline
	owners  map[NodeID]*Block
}

// Clone returns a deep copy. The copy has its own lookup tables.
func (d *Document) Clone() *Document {
	out := &Document{Text: d.Text}
	out.Blocks = CloneBlocks(d.Blocks)
	if d.Defs != nil {
		out.Defs = make(map[string]LinkDef, len(d.Defs))
		for k, v := range d.Defs {
			out.Defs[k] = v
		}
	}
	return out
}

// CloneBlocks deep-copies a block slice.
func CloneBlocks(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// Normalize recomputes every text and position bottom-up from the inlines,
// re-points Inline.BlockID at the owning leaf and rebuilds the lookup tables.
func (d *Document) Normalize() {
	off := 0
	parts := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		if i > 0 {
			off++
		}
		normalizeBlock(b, off)
		parts[i] = b.Text
		off += len(b.Text)
	}
	d.Text = strings.Join(parts, "\n")
	d.Reindex()
}

// NormalizeBlock recomputes the texts and positions of b's subtree as if b
// started at offset start.
func NormalizeBlock(b *Block, start int) {
	normalizeBlock(b, start)
}

func normalizeBlock(b *Block, start int) {
	b.Position.Start = start
	if b.IsLeaf() {
		off := 0
		for _, in := range b.Inlines {
			normalizeInline(in, b.ID, off)
			off += len(in.Text.Symbolic)
		}
		b.Text = FlattenInlines(b.Inlines)
		b.Position.End = start + len(b.Text)
		return
	}
	sep := b.Separator()
	parts := make([]string, len(b.Blocks))
	off := start
	for i, c := range b.Blocks {
		if i > 0 {
			off += len(sep)
		}
		normalizeBlock(c, off)
		parts[i] = c.Text
		off += len(c.Text)
	}
	b.Text = strings.Join(parts, sep)
	b.Position.End = start + len(b.Text)
}

func normalizeInline(in *Inline, blockID NodeID, start int) {
	in.BlockID = blockID
	in.Position.Start = start
	in.Position.End = start + len(in.Text.Symbolic)
	off := start + in.Open
	for _, c := range in.Children {
		normalizeInline(c, blockID, off)
		off += len(c.Text.Symbolic)
	}
}

// Reindex rebuilds the id lookup tables without touching text or positions.
func (d *Document) Reindex() {
	idx := &lookup{
		blocks:  make(map[NodeID]*Block),
		parents: make(map[NodeID]*Block),
		inlines: make(map[NodeID]*Inline),
		owners:  make(map[NodeID]*Block),
	}
	var walkInlines func(ins []*Inline, owner *Block)
	walkInlines = func(ins []*Inline, owner *Block) {
		for _, in := range ins {
			idx.inlines[in.ID] = in
			idx.owners[in.ID] = owner
			walkInlines(in.Children, owner)
		}
	}
	WalkBlocks(d.Blocks, func(b, parent *Block) bool {
		idx.blocks[b.ID] = b
		if parent != nil {
			idx.parents[b.ID] = parent
		}
		walkInlines(b.Inlines, b)
		return true
	})
	d.idx = idx
}

func (d *Document) index() *lookup {
	if d.idx == nil {
		d.Reindex()
	}
	return d.idx
}

// Block returns the block with id, or nil.
func (d *Document) Block(id NodeID) *Block {
	return d.index().blocks[id]
}

// Inline returns the inline with id, or nil.
func (d *Document) Inline(id NodeID) *Inline {
	return d.index().inlines[id]
}

// Owner returns the leaf block that owns the inline with id.
func (d *Document) Owner(inlineID NodeID) *Block {
	return d.index().owners[inlineID]
}

// Parent returns the container holding the block with id. Top-level blocks
// have no parent.
func (d *Document) Parent(id NodeID) *Block {
	return d.index().parents[id]
}

// Ancestors returns the containers above id, innermost first.
func (d *Document) Ancestors(id NodeID) []*Block {
	var out []*Block
	for p := d.Parent(id); p != nil; p = d.Parent(p.ID) {
		out = append(out, p)
	}
	return out
}

// Siblings returns the slice that holds the block with id: its parent's
// Blocks, or the document's top-level list.
func (d *Document) Siblings(id NodeID) []*Block {
	if p := d.Parent(id); p != nil {
		return p.Blocks
	}
	return d.Blocks
}

// TopLevel returns the top-level block that contains the block with id.
func (d *Document) TopLevel(id NodeID) *Block {
	b := d.Block(id)
	for b != nil {
		p := d.Parent(b.ID)
		if p == nil {
			return b
		}
		b = p
	}
	return nil
}

// Leaves returns every leaf block in document order.
func (d *Document) Leaves() []*Block {
	var out []*Block
	WalkBlocks(d.Blocks, func(b, _ *Block) bool {
		if b.IsLeaf() {
			out = append(out, b)
		}
		return true
	})
	return out
}

// WalkBlocks visits blocks depth-first in document order. Returning false
// from fn skips the block's children.
func WalkBlocks(blocks []*Block, fn func(b, parent *Block) bool) {
	var walk func(bs []*Block, parent *Block)
	walk = func(bs []*Block, parent *Block) {
		for _, b := range bs {
			if fn(b, parent) {
				walk(b.Blocks, b)
			}
		}
	}
	walk(blocks, nil)
}

// WalkInlines visits inlines depth-first in source order.
func WalkInlines(ins []*Inline, fn func(in *Inline)) {
	for _, in := range ins {
		fn(in)
		WalkInlines(in.Children, fn)
	}
}

// RemoveChild detaches the child with id from the slice that holds it and
// reports whether it was found.
func (d *Document) RemoveChild(id NodeID) bool {
	parent := d.Parent(id)
	list := d.Blocks
	if parent != nil {
		list = parent.Blocks
	}
	for i, b := range list {
		if b.ID != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if parent != nil {
			parent.Blocks = list
		} else {
			d.Blocks = list
		}
		d.Reindex()
		return true
	}
	return false
}

// Replace swaps the block with id for the given blocks in place.
func (d *Document) Replace(id NodeID, with ...*Block) bool {
	parent := d.Parent(id)
	list := d.Blocks
	if parent != nil {
		list = parent.Blocks
	}
	for i, b := range list {
		if b.ID != id {
			continue
		}
		out := make([]*Block, 0, len(list)-1+len(with))
		out = append(out, list[:i]...)
		out = append(out, with...)
		out = append(out, list[i+1:]...)
		if parent != nil {
			parent.Blocks = out
		} else {
			d.Blocks = out
		}
		d.Reindex()
		return true
	}
	return false
}

// Index returns the position of the block with id among its siblings, or -1.
func (d *Document) Index(id NodeID) int {
	for i, b := range d.Siblings(id) {
		if b.ID == id {
			return i
		}
	}
	return -1
}
