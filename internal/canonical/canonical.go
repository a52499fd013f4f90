// Package canonical produces the deterministic text form of a scene used for
// the text editor view, diffing and change detection.
//
// The canonical form is two-space indented JSON with a trailing newline.
// Object fields appear in a fixed order and map keys are sorted. Editor-only
// node keys (selected, dragging, positionAbsolute, resizing, style,
// dragHandle) are never written, and an edge's type is always derived from
// its handles. Empty config objects and empty collections parse back as nil.
package canonical

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

// ErrParse marks text that could not be parsed into a scene.
var ErrParse = errors.New("parse error")

// ParseError locates a parse failure in the text. Line and Column are
// 1-based; both are zero when the failure has no position.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d, column %d: %s", ErrParse.Error(), e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Msg)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// Text returns the canonical text of s.
func Text(s *scene.Scene) (string, error) {
	if s == nil {
		return "", errors.New("nil scene")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("failed to encode scene %s: %w", s.ID, err)
	}
	return buf.String(), nil
}

// FromText parses canonical (or hand-edited) text into a scene. Failures
// are returned as *ParseError.
func FromText(text string) (*scene.Scene, error) {
	data := []byte(text)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Msg: "empty document"}
	}
	if trimmed[0] != '{' {
		return nil, &ParseError{Line: 1, Column: 1, Msg: "expected a scene object"}
	}

	var s scene.Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, toParseError(data, err)
	}
	return &s, nil
}

// Fingerprint returns the BLAKE3 digest of the canonical text, hex encoded.
func Fingerprint(s *scene.Scene) (string, error) {
	text, err := Text(s)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}

// Equal reports whether a and b have the same canonical text. Scenes that
// cannot be encoded are never equal.
func Equal(a, b *scene.Scene) bool {
	ta, err := Text(a)
	if err != nil {
		return false
	}
	tb, err := Text(b)
	if err != nil {
		return false
	}
	return ta == tb
}

func toParseError(data []byte, err error) *ParseError {
	pe := &ParseError{Msg: err.Error(), Err: err}

	var decodeErr *scene.DecodeError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &decodeErr):
		// Offsets inside a node's data are relative to that node; the
		// message names the node instead.
	case errors.As(err, &syntaxErr):
		pe.Line, pe.Column = position(data, syntaxErr.Offset)
	case errors.As(err, &typeErr):
		pe.Line, pe.Column = position(data, typeErr.Offset)
	}
	return pe
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
