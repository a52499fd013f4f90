package canonical

import (
	"fmt"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

// Buffer is an editable text view of one scene. HasChanges and HasError are
// independent: text can be edited and broken at the same time. A failed
// parse never replaces the last good scene.
type Buffer struct {
	base  string
	text  string
	last  *scene.Scene
	error error
}

// NewBuffer opens a buffer on the canonical text of s.
func NewBuffer(s *scene.Scene) (*Buffer, error) {
	text, err := Text(s)
	if err != nil {
		return nil, err
	}
	return &Buffer{base: text, text: text, last: s.Clone()}, nil
}

// SetText replaces the buffer text and parses it. On failure the returned
// *ParseError is also kept for Err.
func (b *Buffer) SetText(text string) error {
	b.text = text
	s, err := FromText(text)
	if err != nil {
		b.error = err
		return err
	}
	b.error = nil
	b.last = s
	return nil
}

// Text returns the current text.
func (b *Buffer) Text() string { return b.text }

// Scene returns a copy of the last successfully parsed scene.
func (b *Buffer) Scene() *scene.Scene { return b.last.Clone() }

// HasChanges reports whether the text differs from the text the buffer was
// opened or last reset with.
func (b *Buffer) HasChanges() bool { return b.text != b.base }

// HasError reports whether the current text fails to parse.
func (b *Buffer) HasError() bool { return b.error != nil }

// Err returns the current parse error, if any.
func (b *Buffer) Err() error { return b.error }

// Commit returns the parsed scene when the text is valid. The buffer is
// rebased on the committed scene's canonical text.
func (b *Buffer) Commit() (*scene.Scene, error) {
	if b.error != nil {
		return nil, fmt.Errorf("cannot commit invalid text: %w", b.error)
	}
	if err := b.Reset(b.last); err != nil {
		return nil, err
	}
	return b.last.Clone(), nil
}

// Reset discards edits and reopens the buffer on s.
func (b *Buffer) Reset(s *scene.Scene) error {
	text, err := Text(s)
	if err != nil {
		return err
	}
	b.base, b.text, b.last, b.error = text, text, s.Clone(), nil
	return nil
}
