// Package ast defines the document tree shared by the parser, the mutation
// engine and the edit resolver.
//
// Every node carries both its literal source (symbolic text) and its
// user-facing content (semantic text). Leaf blocks own inlines, container
// blocks own blocks; nothing is owned twice. Inline.BlockID is a lookup key,
// not an ownership edge.
package ast

import (
	"fmt"
)

// NodeID identifies a block or inline for the lifetime of an editing session.
// Zero means "no node".
type NodeID uint64

// IDGen hands out node ids. Ids are never reused, so a generator must outlive
// every tree (and every snapshot of a tree) it has numbered.
type IDGen struct {
	last NodeID
}

// NewIDGen returns a generator whose first id is 1.
func NewIDGen() *IDGen {
	return &IDGen{}
}

// Next returns a fresh id.
func (g *IDGen) Next() NodeID {
	g.last++
	return g.last
}

// Observe moves the generator past id so that it is never handed out again.
func (g *IDGen) Observe(id NodeID) {
	if id > g.last {
		g.last = id
	}
}

// BlockKind is the closed set of block types.
type BlockKind uint8

const (
	Paragraph BlockKind = iota + 1
	Heading
	CodeBlock
	ThematicBreak
	HTMLBlock
	BlankLine
	Footnote
	BlockQuote
	List
	ListItem
	TaskListItem
	Table
	TableRow
	TableCell
	TableHeader
)

var blockKindNames = [...]string{
	Paragraph:     "paragraph",
	Heading:       "heading",
	CodeBlock:     "codeBlock",
	ThematicBreak: "thematicBreak",
	HTMLBlock:     "htmlBlock",
	BlankLine:     "blankLine",
	Footnote:      "footnote",
	BlockQuote:    "blockQuote",
	List:          "list",
	ListItem:      "listItem",
	TaskListItem:  "taskListItem",
	Table:         "table",
	TableRow:      "tableRow",
	TableCell:     "tableCell",
	TableHeader:   "tableHeader",
}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) && blockKindNames[k] != "" {
		return blockKindNames[k]
	}
	return fmt.Sprintf("BlockKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *BlockKind) UnmarshalText(b []byte) error {
	for i, name := range blockKindNames {
		if name != "" && name == string(b) {
			*k = BlockKind(i)
			return nil
		}
	}
	return fmt.Errorf("ast: unknown block kind %q", b)
}

// IsContainer reports whether blocks of this kind own child blocks rather
// than inlines. Table cells hold a single line of inline content and are
// leaves.
func (k BlockKind) IsContainer() bool {
	switch k {
	case BlockQuote, List, ListItem, TaskListItem, Table, TableRow:
		return true
	case Paragraph, Heading, CodeBlock, ThematicBreak, HTMLBlock, BlankLine, Footnote, TableCell, TableHeader:
		return false
	}
	return false
}

// InlineKind is the closed set of inline types.
type InlineKind uint8

const (
	Marker InlineKind = iota + 1
	Text
	Emphasis
	Strong
	CodeSpan
	Link
	Autolink
	Image
	Strikethrough
	FootnoteRef
	Emoji
	SoftBreak
	HardBreak
	RawHTML
	Entity
)

var inlineKindNames = [...]string{
	Marker:        "marker",
	Text:          "text",
	Emphasis:      "emphasis",
	Strong:        "strong",
	CodeSpan:      "codeSpan",
	Link:          "link",
	Autolink:      "autolink",
	Image:         "image",
	Strikethrough: "strikethrough",
	FootnoteRef:   "footnoteRef",
	Emoji:         "emoji",
	SoftBreak:     "softBreak",
	HardBreak:     "hardBreak",
	RawHTML:       "rawHTML",
	Entity:        "entity",
}

func (k InlineKind) String() string {
	if int(k) < len(inlineKindNames) && inlineKindNames[k] != "" {
		return inlineKindNames[k]
	}
	return fmt.Sprintf("InlineKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k InlineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *InlineKind) UnmarshalText(b []byte) error {
	for i, name := range inlineKindNames {
		if name != "" && name == string(b) {
			*k = InlineKind(i)
			return nil
		}
	}
	return fmt.Errorf("ast: unknown inline kind %q", b)
}

// TextPair is the dual representation every node carries.
type TextPair struct {
	Symbolic string `json:"symbolic"`
	Semantic string `json:"semantic"`
}

// Position is a half-open byte range.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the width of the range.
func (p Position) Len() int { return p.End - p.Start }

// Inline is a span inside a leaf block. Position is relative to the owning
// leaf's text, for nested inlines too.
type Inline struct {
	ID       NodeID     `json:"id"`
	BlockID  NodeID     `json:"blockId"`
	Kind     InlineKind `json:"type"`
	Text     TextPair   `json:"text"`
	Position Position   `json:"position"`
	Children []*Inline  `json:"children,omitempty"`

	// Open is the width of the syntax that precedes Children in
	// Text.Symbolic ("**" for strong, "[" for a link).
	Open int `json:"-"`

	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Label   string `json:"label,omitempty"`
	Name    string `json:"name,omitempty"`
	Decoded string `json:"decoded,omitempty"`
}

// Clone returns a deep copy.
func (in *Inline) Clone() *Inline {
	if in == nil {
		return nil
	}
	out := *in
	if in.Children != nil {
		out.Children = make([]*Inline, len(in.Children))
		for i, c := range in.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// CodeInfo is the fence metadata of a code block.
type CodeInfo struct {
	IsFenced    bool   `json:"isFenced"`
	FenceChar   string `json:"fenceChar,omitempty"`
	FenceLength int    `json:"fenceLength,omitempty"`
	OpenIndent  int    `json:"openIndent"`
	Language    string `json:"language,omitempty"`
	Closed      bool   `json:"closed"`
}

// Block is a leaf (Inlines) or container (Blocks) node. Position is absolute
// in the document text.
type Block struct {
	ID       NodeID    `json:"id"`
	Kind     BlockKind `json:"type"`
	Text     string    `json:"text"`
	Position Position  `json:"position"`
	Inlines  []*Inline `json:"inlines,omitempty"`
	Blocks   []*Block  `json:"blocks,omitempty"`

	Level     int       `json:"level,omitempty"`
	Ordered   bool      `json:"ordered,omitempty"`
	ListStart int       `json:"listStart,omitempty"`
	Tight     bool      `json:"tight,omitempty"`
	Code      *CodeInfo `json:"code,omitempty"`
	Checked   bool      `json:"checked,omitempty"`
	Label     string    `json:"label,omitempty"`
	MaxCells  int       `json:"maxCells,omitempty"`
	ColSpan   int       `json:"colSpan,omitempty"`
	Divider   bool      `json:"divider,omitempty"`
}

// IsLeaf reports whether b owns inlines.
func (b *Block) IsLeaf() bool {
	return !b.Kind.IsContainer()
}

// Separator is the string placed between consecutive children of b when its
// text is flattened.
func (b *Block) Separator() string {
	if b.Kind == TableRow {
		return ""
	}
	return "\n"
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	if b.Code != nil {
		code := *b.Code
		out.Code = &code
	}
	if b.Inlines != nil {
		out.Inlines = make([]*Inline, len(b.Inlines))
		for i, in := range b.Inlines {
			out.Inlines[i] = in.Clone()
		}
	}
	if b.Blocks != nil {
		out.Blocks = make([]*Block, len(b.Blocks))
		for i, c := range b.Blocks {
			out.Blocks[i] = c.Clone()
		}
	}
	return &out
}

// IsEmpty applies the per-kind emptiness rule used by cascading removal.
func (b *Block) IsEmpty() bool {
	switch b.Kind {
	case ListItem, TaskListItem, List, BlockQuote, Table, TableRow:
		return len(b.Blocks) == 0
	case Paragraph, Heading:
		return len(b.Inlines) == 0
	}
	return len(b.Blocks) == 0 && len(b.Inlines) == 0
}

// Atoms returns the innermost inlines of b in source order: the ones a caret
// can sit in.
func (b *Block) Atoms() []*Inline {
	var out []*Inline
	var walk func([]*Inline)
	walk = func(ins []*Inline) {
		for _, in := range ins {
			if len(in.Children) == 0 {
				out = append(out, in)
				continue
			}
			walk(in.Children)
		}
	}
	walk(b.Inlines)
	return out
}

// FlattenInlines concatenates the symbolic text of inlines.
func FlattenInlines(ins []*Inline) string {
	n := 0
	for _, in := range ins {
		n += len(in.Text.Symbolic)
	}
	buf := make([]byte, 0, n)
	for _, in := range ins {
		buf = append(buf, in.Text.Symbolic...)
	}
	return string(buf)
}

// SemanticText concatenates the semantic text of inlines.
func SemanticText(ins []*Inline) string {
	var buf []byte
	for _, in := range ins {
		buf = append(buf, in.Text.Semantic...)
	}
	return string(buf)
}
