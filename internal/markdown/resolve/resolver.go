package resolve

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/mutate"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithStripZeroWidth controls whether deletions first strip zero-width
// characters and a trailing carriage return from the target inline. It is on
// by default.
func WithStripZeroWidth(on bool) Option {
	return func(r *Resolver) {
		r.stripZeroWidth = on
	}
}

// Resolver turns input events into edit effects against one document. It
// reads the document and never changes it.
type Resolver struct {
	doc            *ast.Document
	sel            Selection
	stripZeroWidth bool
	leaves         []*ast.Block
}

// New returns a resolver for doc reading the selection from sel.
func New(doc *ast.Document, sel Selection, opts ...Option) *Resolver {
	r := &Resolver{doc: doc, sel: sel, stripZeroWidth: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveEffect maps ev to an effect. It returns nil when the event is not an
// edit or the selection does not resolve against the document.
func (r *Resolver) ResolveEffect(ev InputEvent) *EditEffect {
	insert := strings.HasPrefix(ev.Type, "insert")
	if !insert && !strings.HasPrefix(ev.Type, "delete") {
		return nil
	}
	rng, ok := r.sel.ResolveRange()
	if !ok {
		return nil
	}
	start, ok := r.doc.Offset(rng.Start)
	if !ok {
		return nil
	}
	end, ok := r.doc.Offset(rng.End)
	if !ok {
		return nil
	}
	if start > end {
		rng.Start, rng.End = rng.End, rng.Start
	}

	if start == end {
		switch {
		case ev.Type == "insertParagraph":
			return r.split(rng.Start)
		case ev.Type == "insertLineBreak":
			return r.lineBreak(rng.Start)
		case insert && ev.Text == "":
			return noop()
		case insert:
			return r.insert(rng.Start, ev.Text)
		}
		return r.deleteAt(rng.Start, strings.HasSuffix(ev.Type, "Forward"))
	}

	text := ev.Text
	if ev.Type == "insertParagraph" || ev.Type == "insertLineBreak" {
		text = "\n"
	}
	if insert && text != "" {
		return r.sel.Paste(text)
	}
	return r.deleteRange(rng)
}

func (r *Resolver) leafOf(pt ast.Point) *ast.Block {
	if pt.InlineID != 0 {
		return r.doc.Owner(pt.InlineID)
	}
	if b := r.doc.Block(pt.BlockID); b != nil && b.IsLeaf() {
		return b
	}
	return nil
}

func (r *Resolver) insert(pt ast.Point, text string) *EditEffect {
	leaf := r.leafOf(pt)
	if leaf == nil {
		return nil
	}
	if leaf.Kind == ast.CodeBlock {
		return r.codeInsert(leaf, pt, text)
	}
	pt.BlockID = leaf.ID
	return edits(mutate.Edit{Kind: mutate.KindSplice, At: pt, Insert: text})
}

func (r *Resolver) lineBreak(pt ast.Point) *EditEffect {
	leaf := r.leafOf(pt)
	if leaf == nil {
		return nil
	}
	if leaf.Kind == ast.CodeBlock {
		return r.codeInsert(leaf, pt, "\n")
	}
	return r.insert(pt, "  \n")
}

func (r *Resolver) deleteRange(rng ast.Range) *EditEffect {
	s, e := rng.Start, rng.End
	sameInline := s.InlineID != 0 && s.InlineID == e.InlineID
	sameEmpty := s.InlineID == 0 && e.InlineID == 0 && s.BlockID == e.BlockID
	if sameInline || sameEmpty {
		return edits(mutate.Edit{Kind: mutate.KindSplice, At: s, Delete: e.Position - s.Position})
	}
	return edits(mutate.Edit{Kind: mutate.KindDeleteMultiBlock, Range: &rng})
}

// split handles insertParagraph on a caret.
func (r *Resolver) split(pt ast.Point) *EditEffect {
	leaf := r.leafOf(pt)
	if leaf == nil {
		return nil
	}
	switch leaf.Kind {
	case ast.CodeBlock:
		return r.codeInsert(leaf, pt, "\n")
	case ast.TableCell, ast.TableHeader:
		return noop()
	}
	pt.BlockID = leaf.ID

	atoms := leaf.Atoms()
	marker := ""
	if len(atoms) > 0 && isLeading(atoms[0]) {
		marker = atoms[0].Text.Symbolic
	}
	quote, rest := splitMarker(marker)
	item := ""
	if r.inListItem(leaf) {
		item = listContinuation(rest)
	}
	if item != "" && !hasContent(leaf) {
		// Enter on an empty item leaves the list.
		return edits(mutate.Edit{
			Kind:  mutate.KindReplaceText,
			At:    ast.Point{BlockID: leaf.ID, InlineID: atoms[0].ID},
			Text:  quote,
			Caret: len(quote),
		})
	}
	if marker != "" && pt.InlineID == atoms[0].ID {
		pt.Position = len(marker)
	}

	prefix := quote
	switch {
	case item != "":
		prefix = quote + item
	case leaf.Kind == ast.Paragraph:
		prefix = strings.TrimRight(quote, " \t") + "\n" + quote
	}
	return edits(mutate.Edit{Kind: mutate.KindSplitBlock, At: pt, Prefix: prefix})
}

func (r *Resolver) deleteAt(pt ast.Point, forward bool) *EditEffect {
	leaf := r.leafOf(pt)
	if leaf == nil {
		return nil
	}
	if leaf.Kind == ast.CodeBlock {
		return r.codeDelete(leaf, pt, forward)
	}
	atoms := leaf.Atoms()
	if pt.InlineID == 0 || len(atoms) == 0 {
		return r.deleteEmpty(leaf, forward)
	}
	i := atomIndex(atoms, pt.InlineID)
	if i < 0 {
		return nil
	}
	pos := pt.Position

	if i == 0 && pos == 0 && isLeading(atoms[0]) && !isCell(leaf) {
		// The caret sits before the block's marker.
		if !forward {
			return r.joinPrevious(leaf, atoms[0])
		}
		if hasContent(leaf) {
			sym := atoms[0].Text.Symbolic
			return edits(mutate.Edit{
				Kind: mutate.KindReplaceText,
				At:   ast.Point{BlockID: leaf.ID, InlineID: atoms[0].ID},
				Text: sym[nextCluster(sym, 0):],
			})
		}
	}

	if isLeading(atoms[i]) {
		if !hasContent(leaf) {
			if isCell(leaf) {
				return noop()
			}
			return edits(mutate.Edit{
				Kind: mutate.KindReplaceText,
				At:   ast.Point{BlockID: leaf.ID, InlineID: atoms[i].ID},
			})
		}
		i++
		pos = 0
	}

	sym := atoms[i].Text.Symbolic
	dirty := false
	if r.stripZeroWidth {
		var cleaned string
		cleaned, pos = clean(sym, pos)
		dirty = cleaned != sym
		sym = cleaned
	}
	if forward {
		return r.deleteForward(leaf, atoms, i, sym, pos, dirty)
	}
	return r.deleteBackward(leaf, atoms, i, sym, pos, dirty)
}

func (r *Resolver) deleteBackward(leaf *ast.Block, atoms []*ast.Inline, i int, sym string, pos int, dirty bool) *EditEffect {
	x := atoms[i]
	if pos > 0 {
		g := prevCluster(sym, pos)
		return r.removeCluster(leaf, atoms, i, sym, pos-g, g, dirty)
	}
	if i > 0 {
		p := atoms[i-1]
		switch {
		case p.Kind == ast.Marker && isCell(leaf):
			return noop()
		case isLeading(p):
			return merge(p, x, mutate.DropLeft)
		case p.Kind == ast.Marker && i > 1:
			// A continuation prefix: drop it with the line break before it.
			return merge(atoms[i-2], x, mutate.DropLeft)
		case p.Kind == ast.Marker:
			return merge(p, x, mutate.DropLeft)
		}
		return merge(p, x, mutate.DropLeftLast)
	}
	if isCell(leaf) {
		return noop()
	}
	return r.joinPrevious(leaf, x)
}

// joinPrevious handles a backward delete at the very start of leaf, whose
// first atom is x: the leaf is joined onto the previous leaf, or an empty
// previous leaf is removed. At the start of the document nothing happens.
func (r *Resolver) joinPrevious(leaf *ast.Block, x *ast.Inline) *EditEffect {
	prev := r.prevLeaf(leaf)
	switch {
	case prev == nil, prev.Kind == ast.CodeBlock, isCell(prev):
		return noop()
	case !hasContent(prev):
		return edits(mutate.Edit{Kind: mutate.KindRemoveBlock, BlockID: prev.ID, Affinity: ast.Forward})
	}
	pa := prev.Atoms()
	return merge(pa[len(pa)-1], x, mutate.KeepBoth)
}

func (r *Resolver) deleteForward(leaf *ast.Block, atoms []*ast.Inline, i int, sym string, pos int, dirty bool) *EditEffect {
	x := atoms[i]
	if pos < len(sym) {
		g := nextCluster(sym, pos)
		return r.removeCluster(leaf, atoms, i, sym, pos, g, dirty)
	}
	if i+1 < len(atoms) {
		n := atoms[i+1]
		switch {
		case n.Kind == ast.Marker && isCell(leaf):
			return noop()
		case isBreak(n) && i+2 < len(atoms) && atoms[i+2].Kind == ast.Marker:
			if i+3 < len(atoms) {
				return merge(x, atoms[i+3], mutate.KeepBoth)
			}
			return merge(x, atoms[i+2], mutate.DropRight)
		}
		return merge(x, n, mutate.DropRightFirst)
	}
	if isCell(leaf) {
		return noop()
	}
	next := r.nextLeaf(leaf)
	switch {
	case next == nil, next.Kind == ast.CodeBlock, isCell(next):
		return noop()
	case !hasContent(next):
		return edits(mutate.Edit{Kind: mutate.KindRemoveBlock, BlockID: next.ID, Affinity: ast.Backward})
	}
	return merge(x, firstContent(next), mutate.KeepBoth)
}

// removeCluster deletes g bytes at at from the (cleaned) text of atom i. An
// inline left empty is merged away into its predecessor instead.
func (r *Resolver) removeCluster(leaf *ast.Block, atoms []*ast.Inline, i int, sym string, at, g int, dirty bool) *EditEffect {
	x := atoms[i]
	out := sym[:at] + sym[at+g:]
	if out == "" {
		if p := r.predecessor(leaf, atoms, i); p != nil {
			return merge(p, x, mutate.DropRight)
		}
	}
	pt := ast.Point{BlockID: leaf.ID, InlineID: x.ID, Position: at}
	if dirty {
		return edits(mutate.Edit{Kind: mutate.KindReplaceText, At: pt, Text: out, Caret: at})
	}
	return edits(mutate.Edit{Kind: mutate.KindSplice, At: pt, Delete: g})
}

// predecessor finds the inline before atom i. Inside a tight list with
// several items the item's own bullet is skipped, so the previous item is
// found instead.
func (r *Resolver) predecessor(leaf *ast.Block, atoms []*ast.Inline, i int) *ast.Inline {
	if i > 0 {
		p := atoms[i-1]
		if !isLeading(p) || !r.inTightList(leaf) {
			return p
		}
	}
	if isCell(leaf) {
		return nil
	}
	for l := r.prevLeaf(leaf); l != nil; l = r.prevLeaf(l) {
		if isCell(l) {
			return nil
		}
		if a := l.Atoms(); len(a) > 0 {
			return a[len(a)-1]
		}
	}
	return nil
}

func (r *Resolver) deleteEmpty(leaf *ast.Block, forward bool) *EditEffect {
	if forward {
		if r.nextLeaf(leaf) == nil {
			return noop()
		}
		return edits(mutate.Edit{Kind: mutate.KindRemoveBlock, BlockID: leaf.ID, Affinity: ast.Forward})
	}
	if r.prevLeaf(leaf) == nil {
		return noop()
	}
	return edits(mutate.Edit{Kind: mutate.KindRemoveBlock, BlockID: leaf.ID, Affinity: ast.Backward})
}

func (r *Resolver) inListItem(leaf *ast.Block) bool {
	p := r.doc.Parent(leaf.ID)
	return p != nil && (p.Kind == ast.ListItem || p.Kind == ast.TaskListItem)
}

func (r *Resolver) inTightList(leaf *ast.Block) bool {
	if !r.inListItem(leaf) {
		return false
	}
	list := r.doc.Parent(r.doc.Parent(leaf.ID).ID)
	return list != nil && list.Tight && len(list.Blocks) > 1
}

func (r *Resolver) leafIndex(leaf *ast.Block) int {
	if r.leaves == nil {
		r.leaves = r.doc.Leaves()
	}
	for i, l := range r.leaves {
		if l == leaf {
			return i
		}
	}
	return -1
}

func (r *Resolver) prevLeaf(leaf *ast.Block) *ast.Block {
	if i := r.leafIndex(leaf); i > 0 {
		return r.leaves[i-1]
	}
	return nil
}

func (r *Resolver) nextLeaf(leaf *ast.Block) *ast.Block {
	if i := r.leafIndex(leaf); i >= 0 && i+1 < len(r.leaves) {
		return r.leaves[i+1]
	}
	return nil
}

func merge(left, right *ast.Inline, b mutate.Boundary) *EditEffect {
	return edits(mutate.Edit{Kind: mutate.KindMergeInline, Left: left.ID, Right: right.ID, Boundary: b})
}

func atomIndex(atoms []*ast.Inline, id ast.NodeID) int {
	for i, a := range atoms {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// isLeading reports whether in is the syntax prefix of its leaf's first line.
func isLeading(in *ast.Inline) bool {
	return in.Kind == ast.Marker && in.Position.Start == 0
}

func isBreak(in *ast.Inline) bool {
	return in.Kind == ast.SoftBreak || in.Kind == ast.HardBreak
}

func isCell(b *ast.Block) bool {
	return b.Kind == ast.TableCell || b.Kind == ast.TableHeader
}

func hasContent(leaf *ast.Block) bool {
	return firstContent(leaf) != nil
}

func firstContent(leaf *ast.Block) *ast.Inline {
	for _, a := range leaf.Atoms() {
		if a.Kind != ast.Marker {
			return a
		}
	}
	return nil
}

// splitMarker separates a leading marker into its container part
// (indentation and '>') and the rest (bullet, heading hashes).
func splitMarker(m string) (quote, rest string) {
	i := 0
	for i < len(m) && (m[i] == ' ' || m[i] == '\t' || m[i] == '>') {
		i++
	}
	return m[:i], m[i:]
}

// listContinuation returns the marker for the item after one whose marker
// starts rest: the same bullet, the next ordinal, an unchecked task box.
func listContinuation(rest string) string {
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	var bullet string
	switch {
	case i > 0 && i < len(rest) && (rest[i] == '.' || rest[i] == ')'):
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return ""
		}
		bullet = strconv.Itoa(n+1) + rest[i:i+1]
		i++
	case i == 0 && rest != "" && strings.IndexByte("-+*", rest[0]) >= 0:
		bullet = rest[:1]
		i = 1
	default:
		return ""
	}
	tail := strings.TrimLeft(rest[i:], " \t")
	for _, box := range []string{"[ ]", "[x]", "[X]"} {
		if strings.HasPrefix(tail, box) {
			return bullet + " [ ] "
		}
	}
	return bullet + " "
}

func isZeroWidth(r rune) bool {
	return (r >= 0x200B && r <= 0x200D) || r == 0xFEFF
}

// clean strips zero-width characters and a trailing carriage return from s
// and maps pos into the cleaned text.
func clean(s string, pos int) (string, int) {
	var b strings.Builder
	np := pos
	for i, c := range s {
		if isZeroWidth(c) {
			if i < pos {
				np -= utf8.RuneLen(c)
			}
			continue
		}
		b.WriteRune(c)
	}
	out := b.String()
	if strings.HasSuffix(out, "\r") {
		out = out[:len(out)-1]
		np = min(np, len(out))
	}
	return out, np
}

// prevCluster returns the byte length of the grapheme cluster ending at pos.
func prevCluster(s string, pos int) int {
	last := 0
	g := uniseg.NewGraphemes(s[:pos])
	for g.Next() {
		last, _ = g.Positions()
	}
	return pos - last
}

// nextCluster returns the byte length of the grapheme cluster starting at
// pos.
func nextCluster(s string, pos int) int {
	c, _, _, _ := uniseg.FirstGraphemeClusterInString(s[pos:], -1)
	return len(c)
}
