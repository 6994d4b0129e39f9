package ast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistent is wrapped by every error Check returns.
var ErrInconsistent = errors.New("ast: inconsistent tree")

// Check verifies the structural invariants of d: unique ids, every inline
// pointing at its owning leaf, texts that flatten consistently and positions
// that match them.
func (d *Document) Check() error {
	seen := make(map[NodeID]string)
	claim := func(id NodeID, what string) error {
		if id == 0 {
			return fmt.Errorf("%w: %s has zero id", ErrInconsistent, what)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: id %d used by %s and %s", ErrInconsistent, id, prev, what)
		}
		seen[id] = what
		return nil
	}

	var checkInline func(in *Inline, owner *Block) error
	checkInline = func(in *Inline, owner *Block) error {
		if err := claim(in.ID, "inline "+in.Kind.String()); err != nil {
			return err
		}
		if in.BlockID != owner.ID {
			return fmt.Errorf("%w: inline %d points at block %d, owned by %d", ErrInconsistent, in.ID, in.BlockID, owner.ID)
		}
		if in.Position.Len() != len(in.Text.Symbolic) {
			return fmt.Errorf("%w: inline %d position %v does not span %q", ErrInconsistent, in.ID, in.Position, in.Text.Symbolic)
		}
		if len(in.Children) == 0 {
			return nil
		}
		inner := FlattenInlines(in.Children)
		if !strings.Contains(in.Text.Symbolic, inner) {
			return fmt.Errorf("%w: inline %d children %q outside %q", ErrInconsistent, in.ID, inner, in.Text.Symbolic)
		}
		for _, c := range in.Children {
			if err := checkInline(c, owner); err != nil {
				return err
			}
		}
		return nil
	}

	var checkBlock func(b *Block, start int) error
	checkBlock = func(b *Block, start int) error {
		if err := claim(b.ID, "block "+b.Kind.String()); err != nil {
			return err
		}
		if b.Position.Start != start || b.Position.Len() != len(b.Text) {
			return fmt.Errorf("%w: block %d position %v, want start %d len %d", ErrInconsistent, b.ID, b.Position, start, len(b.Text))
		}
		if b.IsLeaf() {
			if len(b.Blocks) > 0 {
				return fmt.Errorf("%w: leaf %d owns blocks", ErrInconsistent, b.ID)
			}
			if got := FlattenInlines(b.Inlines); got != b.Text {
				return fmt.Errorf("%w: leaf %d text %q, inlines %q", ErrInconsistent, b.ID, b.Text, got)
			}
			off := 0
			for _, in := range b.Inlines {
				if in.Position.Start != off {
					return fmt.Errorf("%w: inline %d starts at %d, want %d", ErrInconsistent, in.ID, in.Position.Start, off)
				}
				if err := checkInline(in, b); err != nil {
					return err
				}
				off = in.Position.End
			}
			return nil
		}
		if len(b.Inlines) > 0 {
			return fmt.Errorf("%w: container %d owns inlines", ErrInconsistent, b.ID)
		}
		sep := b.Separator()
		parts := make([]string, len(b.Blocks))
		off := start
		for i, c := range b.Blocks {
			if i > 0 {
				off += len(sep)
			}
			if err := checkBlock(c, off); err != nil {
				return err
			}
			parts[i] = c.Text
			off += len(c.Text)
		}
		if got := strings.Join(parts, sep); got != b.Text {
			return fmt.Errorf("%w: container %d text %q, children %q", ErrInconsistent, b.ID, b.Text, got)
		}
		return nil
	}

	parts := make([]string, len(d.Blocks))
	off := 0
	for i, b := range d.Blocks {
		if i > 0 {
			off++
		}
		if err := checkBlock(b, off); err != nil {
			return err
		}
		parts[i] = b.Text
		off += len(b.Text)
	}
	if got := strings.Join(parts, "\n"); got != d.Text {
		return fmt.Errorf("%w: document text %q, blocks %q", ErrInconsistent, d.Text, got)
	}
	return nil
}
