package session

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
	"github.com/starford/quire/internal/markdown/resolve"
)

var sequenceDocs = []string{
	"# Title\n\nSome *emphasis* and `code`.\n\n- one\n- two\n  - nested\n\n> quote\n> more",
	"```go\nfunc main() {}\n```\n\ntext after\n\n1. first\n2. second",
	"| a | b |\n| --- | --- |\n| 1 | 2 |\n\npara **strong** [link](x)",
	"- [ ] task\n- [x] done\n\n---\n\n> - quoted item\n>\n> para",
}

var sequenceInserts = []string{"x", "*", "`", "# ", "- ", "> ", "|", "é", "a b", "\n", "1. ", "```"}

// TestSession_RandomEditSequences drives mixed input, undo and redo over
// several documents and checks after every step that the tree is consistent
// and that its text parses back to itself.
func TestSession_RandomEditSequences(t *testing.T) {
	const rounds, steps = 25, 40
	for d, text := range sequenceDocs {
		t.Run(fmt.Sprintf("doc%d", d), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(d), 7))
			for round := range rounds {
				s, _, _, _ := open(t, text)
				var trail []string
				for step := range steps {
					op := randomStep(t, s, rng)
					trail = append(trail, op)
					st := s.State()
					if err := st.Document.Check(); err != nil {
						t.Fatalf("round %d step %d: Check: %v\nops: %q\ntext: %q", round, step, err, trail, st.Document.Text)
					}
					if got := parser.New(nil).Parse(st.Document.Text).Text; got != st.Document.Text {
						t.Fatalf("round %d step %d: reparse = %q, want %q\nops: %q", round, step, got, st.Document.Text, trail)
					}
				}
			}
		})
	}
}

// randomStep applies one random operation to s and describes it.
func randomStep(t *testing.T, s *Session, rng *rand.Rand) string {
	t.Helper()
	st := s.State()
	switch n := rng.IntN(10); {
	case n == 0 && st.CanUndo:
		if _, err := s.Undo(); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		return "undo"
	case n == 1 && st.CanRedo:
		if _, err := s.Redo(); err != nil {
			t.Fatalf("Redo: %v", err)
		}
		return "redo"
	}

	doc := st.Document
	size := len(doc.Text)
	a := randomPoint(doc, rng.IntN(size+1), rng)
	b := a
	if rng.IntN(4) == 0 {
		b = randomPoint(doc, rng.IntN(size+1), rng)
	}
	ev := randomEvent(rng)
	sel := resolve.StaticSelection{Range: ast.Range{Start: a, End: b}}
	if _, err := s.Input(ev, sel); err != nil {
		t.Fatalf("Input(%+v): %v", ev, err)
	}
	as, _ := doc.Offset(a)
	bs, _ := doc.Offset(b)
	return fmt.Sprintf("%s%q@%d-%d", ev.Type, ev.Text, as, bs)
}

func randomPoint(doc *ast.Document, off int, rng *rand.Rand) ast.Point {
	aff := ast.Backward
	if rng.IntN(2) == 0 {
		aff = ast.Forward
	}
	return doc.PointAt(off, aff)
}

func randomEvent(rng *rand.Rand) resolve.InputEvent {
	switch rng.IntN(6) {
	case 0:
		return resolve.InputEvent{Type: "insertParagraph"}
	case 1:
		return resolve.InputEvent{Type: "insertLineBreak"}
	case 2:
		return resolve.InputEvent{Type: "deleteContentBackward"}
	case 3:
		return resolve.InputEvent{Type: "deleteContentForward"}
	}
	return resolve.InputEvent{Type: "insertText", Text: sequenceInserts[rng.IntN(len(sequenceInserts))]}
}
