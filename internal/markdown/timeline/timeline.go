// Package timeline keeps linear undo/redo history over whole-document
// snapshots.
package timeline

import (
	"errors"

	"github.com/starford/quire/internal/markdown/ast"
)

var (
	ErrNothingToUndo = errors.New("timeline: nothing to undo")
	ErrNothingToRedo = errors.New("timeline: nothing to redo")
)

// Entry is one snapshot: a document and the caret inside it. Stored entries
// are private copies; nothing handed out aliases them.
type Entry struct {
	Doc   *ast.Document
	Caret ast.Point
}

func (e Entry) clone() Entry {
	out := Entry{Caret: e.Caret}
	if e.Doc != nil {
		out.Doc = e.Doc.Clone()
	}
	return out
}

// Timeline is a branch-discarding undo history. It is not safe for
// concurrent use; the owning session serializes access.
type Timeline struct {
	limit   int
	restore func(Entry)

	current *Entry
	undo    []Entry
	redo    []Entry
}

// New returns an empty timeline keeping at most limit undo steps (no bound
// when limit <= 0). restore, if non-nil, receives a fresh copy of every
// snapshot moved to by Undo or Redo.
func New(limit int, restore func(Entry)) *Timeline {
	return &Timeline{limit: limit, restore: restore}
}

// Reset drops all history and makes e the baseline.
func (t *Timeline) Reset(e Entry) {
	c := e.clone()
	t.current = &c
	t.undo = nil
	t.redo = nil
}

// Push records e as a new step. The previous snapshot becomes undoable and
// the redo stack is cleared.
func (t *Timeline) Push(e Entry) {
	if t.current != nil {
		t.undo = append(t.undo, *t.current)
		if t.limit > 0 && len(t.undo) > t.limit {
			t.undo = append(t.undo[:0:0], t.undo[len(t.undo)-t.limit:]...)
		}
	}
	c := e.clone()
	t.current = &c
	t.redo = nil
}

// UpdateEvent replaces the current snapshot without touching either stack.
func (t *Timeline) UpdateEvent(e Entry) {
	c := e.clone()
	t.current = &c
}

// Undo steps back one snapshot.
func (t *Timeline) Undo() (Entry, error) {
	if len(t.undo) == 0 || t.current == nil {
		return Entry{}, ErrNothingToUndo
	}
	t.redo = append(t.redo, *t.current)
	prev := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	return t.moveTo(prev), nil
}

// Redo re-applies the most recently undone snapshot.
func (t *Timeline) Redo() (Entry, error) {
	if len(t.redo) == 0 || t.current == nil {
		return Entry{}, ErrNothingToRedo
	}
	t.undo = append(t.undo, *t.current)
	next := t.redo[len(t.redo)-1]
	t.redo = t.redo[:len(t.redo)-1]
	return t.moveTo(next), nil
}

func (t *Timeline) moveTo(e Entry) Entry {
	t.current = &e
	out := e.clone()
	if t.restore != nil {
		t.restore(e.clone())
	}
	return out
}

// Current returns a copy of the current snapshot.
func (t *Timeline) Current() (Entry, bool) {
	if t.current == nil {
		return Entry{}, false
	}
	return t.current.clone(), true
}

func (t *Timeline) CanUndo() bool { return len(t.undo) > 0 }
func (t *Timeline) CanRedo() bool { return len(t.redo) > 0 }

// Len returns the number of undo and redo steps held.
func (t *Timeline) Len() (undo, redo int) { return len(t.undo), len(t.redo) }
