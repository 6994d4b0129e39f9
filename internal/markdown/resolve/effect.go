// Package resolve maps input events and the current selection to structured
// mutation requests.
package resolve

import (
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/mutate"
)

// InputEvent is an editing event from a display surface. Type starts with
// "insert" or "delete"; a "Forward" suffix selects the delete direction.
type InputEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// EditEffect is the resolver's answer to an event. PreventDefault alone
// consumes the event without changing anything.
type EditEffect struct {
	PreventDefault bool          `json:"preventDefault,omitempty"`
	AST            []mutate.Edit `json:"ast,omitempty"`
}

// Selection supplies the current selection and the structural paste of text
// over it.
type Selection interface {
	ResolveRange() (ast.Range, bool)
	Paste(text string) *EditEffect
}

// StaticSelection is a Selection fixed up front, such as one sent by a
// client along with its event.
type StaticSelection struct {
	Range ast.Range
}

// ResolveRange returns the fixed range. A range naming no block does not
// resolve.
func (s StaticSelection) ResolveRange() (ast.Range, bool) {
	if s.Range.Start.BlockID == 0 && s.Range.Start.InlineID == 0 {
		return ast.Range{}, false
	}
	return s.Range, true
}

// Paste replaces the range with text.
func (s StaticSelection) Paste(text string) *EditEffect {
	r := s.Range
	return edits(mutate.Edit{Kind: mutate.KindPasteMultiBlock, Range: &r, Text: text})
}

func edits(e ...mutate.Edit) *EditEffect {
	return &EditEffect{PreventDefault: true, AST: e}
}

func noop() *EditEffect {
	return &EditEffect{PreventDefault: true}
}
