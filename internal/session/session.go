// Package session hosts editing sessions: one live document tree per
// session, driven by input events and backed by the undo timeline.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	diff "github.com/shogoki/gotextdiff"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/mutate"
	"github.com/starford/quire/internal/markdown/parser"
	"github.com/starford/quire/internal/markdown/resolve"
	"github.com/starford/quire/internal/markdown/timeline"
	"github.com/starford/quire/internal/metadata"
)

// Store loads and persists the flattened text of documents.
type Store interface {
	Read(ctx context.Context, path string) (string, error)
	Save(ctx context.Context, path string, content []byte) (string, error)
}

// Publisher receives every update a session produces.
type Publisher interface {
	PublishSessionEffect(session string, effect any)
}

var preview = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote, emoji.Emoji),
)

// Update is the answer to an input, undo, redo or reload: the edits that were
// applied, what to redraw and where the caret lands. PreventDefault without
// Render means the event was consumed without a change; an Update with
// neither means the event was not understood.
type Update struct {
	PreventDefault bool          `json:"preventDefault"`
	Edits          []mutate.Edit `json:"ast,omitempty"`
	Render         *RenderEffect `json:"render,omitempty"`
	Caret          *CaretEffect  `json:"caret,omitempty"`
}

// State is a point-in-time copy of a session.
type State struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Document *ast.Document `json:"document"`
	Caret    ast.Point     `json:"caret"`
	Dirty    bool          `json:"dirty"`
	CanUndo  bool          `json:"canUndo"`
	CanRedo  bool          `json:"canRedo"`
}

// Session owns one document tree. Its methods are safe for concurrent use;
// edits are applied one at a time.
type Session struct {
	mu sync.Mutex

	id     string
	path   string
	store  Store
	pub    Publisher
	logger *slog.Logger

	stripZeroWidth bool

	parser  *parser.Parser
	doc     *ast.Document
	caret   ast.Point
	saved   string
	history *timeline.Timeline
	closed  bool
}

func newSession(id, path, text string, m *Manager) *Session {
	s := &Session{
		id:             id,
		path:           path,
		store:          m.store,
		pub:            m.pub,
		logger:         m.logger.With(slog.String("session", id), slog.String("path", path)),
		stripZeroWidth: m.stripZeroWidth,
		parser:         parser.New(nil),
	}
	s.history = timeline.New(m.historyLimit, func(e timeline.Entry) {
		s.doc, s.caret = e.Doc, e.Caret
	})
	s.load(text)
	return s
}

// load replaces the tree with the parse of text and makes it the saved
// baseline.
func (s *Session) load(text string) {
	s.doc = s.parser.Parse(text)
	s.caret = s.doc.PointAt(0, ast.Backward)
	s.saved = text
	s.history.Reset(timeline.Entry{Doc: s.doc, Caret: s.caret})
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Path() string { return s.path }

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:       s.id,
		Path:     s.path,
		Document: s.doc.Clone(),
		Caret:    s.caret,
		Dirty:    s.doc.Text != s.saved,
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
	}
}

// Text returns the flattened text of the live tree.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Text
}

// Dirty reports whether the tree differs from the saved text.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Text != s.saved
}

// Input resolves ev against sel (the current caret when sel is nil) and
// applies the resulting edits. Edits are applied to a copy of the tree; if
// any of them does not apply the tree is left as it was.
func (s *Session) Input(ev resolve.InputEvent, sel resolve.Selection) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperr.ErrSessionClosed
	}
	if sel == nil {
		sel = resolve.StaticSelection{Range: ast.Caret(s.caret)}
	}

	effect := resolve.New(s.doc, sel, resolve.WithStripZeroWidth(s.stripZeroWidth)).ResolveEffect(ev)
	if effect == nil {
		s.logger.Warn("session: input not resolved", slog.String("type", ev.Type))
		return &Update{}, nil
	}
	if len(effect.AST) == 0 {
		return &Update{PreventDefault: effect.PreventDefault}, nil
	}

	work := s.doc.Clone()
	var last *mutate.Result
	for _, e := range effect.AST {
		res, ok := mutate.Apply(work, s.parser, e)
		if !ok {
			s.logger.Warn("session: edit did not apply", slog.String("kind", string(e.Kind)))
			return &Update{PreventDefault: true}, nil
		}
		work = mutate.Renormalize(work, s.parser)
		last = res
	}
	caret := work.PointAt(last.Offset, last.Affinity)

	u := &Update{
		PreventDefault: true,
		Edits:          effect.AST,
		Render:         diffBlocks(s.doc, work),
		Caret:          restoreCaret(caret),
	}
	s.doc, s.caret = work, caret
	s.history.Push(timeline.Entry{Doc: work, Caret: caret})
	s.logger.Debug("session: applied", slog.String("type", ev.Type), slog.Int("edits", len(effect.AST)))
	s.publish(u)
	return u, nil
}

// MoveCaret records a caret position without editing. It fails with
// apperr.ErrInvalidInput when p does not name a position in the tree.
func (s *Session) MoveCaret(p ast.Point) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperr.ErrSessionClosed
	}
	if _, ok := s.doc.Offset(p); !ok {
		return nil, fmt.Errorf("session: caret outside document: %w", apperr.ErrInvalidInput)
	}
	s.caret = p
	s.history.UpdateEvent(timeline.Entry{Doc: s.doc, Caret: p})
	return &Update{Caret: restoreCaret(p)}, nil
}

// Undo restores the previous snapshot.
func (s *Session) Undo() (*Update, error) {
	return s.step(s.history.Undo)
}

// Redo re-applies the most recently undone snapshot.
func (s *Session) Redo() (*Update, error) {
	return s.step(s.history.Redo)
}

func (s *Session) step(move func() (timeline.Entry, error)) (*Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperr.ErrSessionClosed
	}
	prev := s.doc
	if _, err := move(); err != nil {
		return nil, err
	}
	u := &Update{
		PreventDefault: true,
		Render:         diffBlocks(prev, s.doc),
		Caret:          restoreCaret(s.caret),
	}
	s.publish(u)
	return u, nil
}

// Save writes the flattened text through the store and returns its checksum.
func (s *Session) Save(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", apperr.ErrSessionClosed
	}
	text := s.doc.Text
	sum, err := s.store.Save(ctx, s.path, []byte(text))
	if err != nil {
		return "", fmt.Errorf("session: save %s: %w", s.path, err)
	}
	s.saved = text
	s.logger.Info("session: saved")
	return sum, nil
}

// Diff returns a unified diff from the saved text to the live text, empty
// when they are equal.
func (s *Session) Diff() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == s.doc.Text {
		return ""
	}
	return string(diff.Diff("a/"+s.path, []byte(s.saved), "b/"+s.path, []byte(s.doc.Text)))
}

// Preview renders the live text, without frontmatter, as HTML.
func (s *Session) Preview() (string, error) {
	s.mu.Lock()
	body := metadata.Parse([]byte(s.doc.Text)).Body
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := preview.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("session: preview: %w", err)
	}
	return buf.String(), nil
}

// Reload replaces the tree with text from outside the session and clears
// the history. It does nothing when text equals the saved baseline.
func (s *Session) Reload(text string) (*Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || text == s.saved {
		return nil, false
	}
	prev := s.doc
	s.load(text)
	u := &Update{
		PreventDefault: true,
		Render:         diffBlocks(prev, s.doc),
		Caret:          restoreCaret(s.caret),
	}
	s.logger.Info("session: reloaded")
	s.publish(u)
	return u, true
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) publish(u *Update) {
	if s.pub != nil {
		s.pub.PublishSessionEffect(s.id, u)
	}
}
