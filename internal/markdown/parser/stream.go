package parser

import (
	"strings"
	"unicode/utf8"
)

// Stream is a cursor over a block's raw text. Resolvers take a Checkpoint
// before consuming and Restore it when they decline, so the next resolver
// starts from the same place.
type Stream struct {
	src string
	pos int
}

// Checkpoint is an opaque stream position.
type Checkpoint int

// NewStream returns a stream positioned at the start of src.
func NewStream(src string) *Stream {
	return &Stream{src: src}
}

func (s *Stream) Checkpoint() Checkpoint { return Checkpoint(s.pos) }

func (s *Stream) Restore(c Checkpoint) { s.pos = int(c) }

// Pos is the byte offset of the cursor.
func (s *Stream) Pos() int { return s.pos }

// Peek returns the next rune without consuming it, or -1 at the end.
func (s *Stream) Peek() rune {
	if s.pos >= len(s.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return r
}

// PeekByte returns the byte n bytes ahead of the cursor, or 0 past the end.
func (s *Stream) PeekByte(n int) byte {
	if s.pos+n < 0 || s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

// PeekBack returns the rune before the cursor, or -1 at the start.
func (s *Stream) PeekBack() rune {
	if s.pos == 0 {
		return -1
	}
	r, _ := utf8.DecodeLastRuneInString(s.src[:s.pos])
	return r
}

// Next consumes one rune and returns it, or -1 at the end.
func (s *Stream) Next() rune {
	if s.pos >= len(s.src) {
		return -1
	}
	r, n := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += n
	return r
}

// Consume advances past r if it is the next rune.
func (s *Stream) Consume(r rune) bool {
	if s.Peek() != r {
		return false
	}
	s.Next()
	return true
}

// ConsumeString advances past prefix if the remaining text starts with it.
func (s *Stream) ConsumeString(prefix string) bool {
	if !strings.HasPrefix(s.src[s.pos:], prefix) {
		return false
	}
	s.pos += len(prefix)
	return true
}

// ConsumeRun advances past every consecutive b and returns how many there
// were.
func (s *Stream) ConsumeRun(b byte) int {
	n := 0
	for s.pos < len(s.src) && s.src[s.pos] == b {
		s.pos++
		n++
	}
	return n
}

// Advance moves the cursor n bytes, clamped to the text.
func (s *Stream) Advance(n int) {
	s.pos += n
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
	if s.pos < 0 {
		s.pos = 0
	}
}

func (s *Stream) Slice(from, to int) string { return s.src[from:to] }

// Rest returns the unconsumed text.
func (s *Stream) Rest() string { return s.src[s.pos:] }

func (s *Stream) Len() int { return len(s.src) }

func (s *Stream) End() bool { return s.pos >= len(s.src) }
