package mutate

import (
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

// Kind names a structured mutation request.
type Kind string

const (
	KindSplice                Kind = "splice"
	KindReplaceText           Kind = "replaceText"
	KindMergeInline           Kind = "mergeInline"
	KindSplitBlock            Kind = "splitBlock"
	KindRemoveBlock           Kind = "removeBlock"
	KindDeleteMultiBlock      Kind = "deleteMultiBlock"
	KindPasteMultiBlock       Kind = "pasteMultiBlock"
	KindMergeCodeBlockContent Kind = "mergeCodeBlockContent"
)

// Edit is one mutation request produced by the edit resolver. Which fields
// matter depends on Kind:
//
//	splice                 At, Delete, Insert
//	replaceText            At.InlineID, Text, Caret
//	mergeInline            Left, Right, Boundary
//	splitBlock             At, Prefix
//	removeBlock            BlockID, Affinity
//	deleteMultiBlock       Range
//	pasteMultiBlock        Range, Text
//	mergeCodeBlockContent  BlockID
type Edit struct {
	Kind     Kind         `json:"type"`
	At       ast.Point    `json:"at"`
	Delete   int          `json:"delete,omitempty"`
	Insert   string       `json:"insert,omitempty"`
	Text     string       `json:"text,omitempty"`
	Caret    int          `json:"caret,omitempty"`
	Left     ast.NodeID   `json:"left,omitempty"`
	Right    ast.NodeID   `json:"right,omitempty"`
	Boundary Boundary     `json:"boundary"`
	BlockID  ast.NodeID   `json:"blockId,omitempty"`
	Affinity ast.Affinity `json:"affinity"`
	Range    *ast.Range   `json:"range,omitempty"`
	Prefix   string       `json:"prefix,omitempty"`
}

// Apply performs e on doc. It reports false, leaving doc untouched, when e
// names nodes that do not exist.
func Apply(doc *ast.Document, p *parser.Parser, e Edit) (*Result, bool) {
	switch e.Kind {
	case KindSplice:
		return Splice(doc, p, e.At, e.Delete, e.Insert)
	case KindReplaceText:
		return ReplaceText(doc, p, e.At.InlineID, e.Text, e.Caret)
	case KindMergeInline:
		return MergeInline(doc, p, e.Left, e.Right, e.Boundary)
	case KindSplitBlock:
		return SplitAt(doc, p, e.At.BlockID, e.At.InlineID, e.At.Position, SplitOptions{RightPrefix: e.Prefix})
	case KindRemoveBlock:
		return RemoveBlock(doc, e.BlockID, e.Affinity)
	case KindDeleteMultiBlock:
		if e.Range == nil {
			return nil, false
		}
		return DeleteRange(doc, p, *e.Range, "")
	case KindPasteMultiBlock:
		if e.Range == nil {
			return nil, false
		}
		return DeleteRange(doc, p, *e.Range, e.Text)
	case KindMergeCodeBlockContent:
		return MergeCodeBlockContent(doc, p, e.BlockID)
	}
	return nil, false
}
