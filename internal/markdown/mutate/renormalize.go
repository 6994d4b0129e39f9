package mutate

import (
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
)

type blockKey struct {
	start int
	kind  ast.BlockKind
	depth int
}

type inlineKey struct {
	start int
	kind  ast.InlineKind
	depth int
}

// Renormalize flattens doc, parses the text afresh and carries node ids from
// doc over to the new tree: leaves by absolute start, containers by start,
// kind and nesting depth, and inlines of a carried leaf by relative start,
// kind and depth. Nodes without a counterpart keep their fresh ids.
func Renormalize(doc *ast.Document, p *parser.Parser) *ast.Document {
	doc.Normalize()
	fresh := p.Parse(doc.Text)
	carryIDs(doc, fresh)
	fresh.Normalize()
	return fresh
}

func carryIDs(old, fresh *ast.Document) {
	leaves := map[int]*ast.Block{}
	containers := map[blockKey]ast.NodeID{}
	walkDepth(old.Blocks, 0, func(b *ast.Block, depth int) {
		if b.IsLeaf() {
			if _, dup := leaves[b.Position.Start]; !dup {
				leaves[b.Position.Start] = b
			}
			return
		}
		k := blockKey{b.Position.Start, b.Kind, depth}
		if _, dup := containers[k]; !dup {
			containers[k] = b.ID
		}
	})

	used := map[ast.NodeID]bool{}
	walkDepth(fresh.Blocks, 0, func(b *ast.Block, depth int) {
		if !b.IsLeaf() {
			if id, ok := containers[blockKey{b.Position.Start, b.Kind, depth}]; ok && !used[id] {
				used[id] = true
				b.ID = id
			}
			return
		}
		prev, ok := leaves[b.Position.Start]
		if !ok || used[prev.ID] {
			return
		}
		used[prev.ID] = true
		b.ID = prev.ID
		carryInlines(prev.Inlines, b.Inlines, used)
	})
}

func carryInlines(old, fresh []*ast.Inline, used map[ast.NodeID]bool) {
	ids := indexInlines(old, func(start int) []int { return []int{start} })
	assignInlines(fresh, ids, used)
}

// carryEdited moves inline ids from old onto fresh, the inlines of a leaf
// whose text went from was to now. An inline starting in the unchanged head
// keeps its start; one starting in the unchanged tail moved by the change in
// length.
func carryEdited(old, fresh []*ast.Inline, was, now string) {
	pre := 0
	for pre < len(was) && pre < len(now) && was[pre] == now[pre] {
		pre++
	}
	suf := 0
	for suf < len(was)-pre && suf < len(now)-pre && was[len(was)-1-suf] == now[len(now)-1-suf] {
		suf++
	}
	delta := len(now) - len(was)
	tail := len(was) - suf
	ids := indexInlines(old, func(start int) []int {
		var keys []int
		if start >= tail {
			keys = append(keys, start+delta)
		}
		if start <= pre {
			keys = append(keys, start)
		}
		return keys
	})
	assignInlines(fresh, ids, map[ast.NodeID]bool{})
}

// indexInlines keys every inline of the tree by each start that keys
// reports for it. The first inline claiming a key wins.
func indexInlines(ins []*ast.Inline, keys func(start int) []int) map[inlineKey]ast.NodeID {
	ids := map[inlineKey]ast.NodeID{}
	var index func(ins []*ast.Inline, depth int)
	index = func(ins []*ast.Inline, depth int) {
		for _, in := range ins {
			for _, start := range keys(in.Position.Start) {
				k := inlineKey{start, in.Kind, depth}
				if _, dup := ids[k]; !dup {
					ids[k] = in.ID
				}
			}
			index(in.Children, depth+1)
		}
	}
	index(ins, 0)
	return ids
}

func assignInlines(ins []*ast.Inline, ids map[inlineKey]ast.NodeID, used map[ast.NodeID]bool) {
	var assign func(ins []*ast.Inline, depth int)
	assign = func(ins []*ast.Inline, depth int) {
		for _, in := range ins {
			if id, ok := ids[inlineKey{in.Position.Start, in.Kind, depth}]; ok && !used[id] {
				used[id] = true
				in.ID = id
			}
			assign(in.Children, depth+1)
		}
	}
	assign(ins, 0)
}

func walkDepth(blocks []*ast.Block, depth int, fn func(b *ast.Block, depth int)) {
	for _, b := range blocks {
		fn(b, depth)
		walkDepth(b.Blocks, depth+1, fn)
	}
}
