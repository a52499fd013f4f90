package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural marks hard failures: duplicate ids, dangling edges,
	// payloads that do not fit their node kind.
	ErrStructural = errors.New("structural error")

	// ErrDecode marks a scene document that cannot be decoded.
	ErrDecode = errors.New("decode error")
)

// Kinds of structural violation.
const (
	ViolationDuplicateNode    = "duplicate_node"
	ViolationDuplicateEdge    = "duplicate_edge"
	ViolationDuplicateScene   = "duplicate_scene"
	ViolationDuplicateDefault = "duplicate_default"
	ViolationDanglingEdge     = "dangling_edge"
	ViolationUnknownScene     = "unknown_scene"
	ViolationNodeNotFound     = "node_not_found"
)

// StructuralError describes one structural violation in a scene.
// Wraps ErrStructural for errors.Is().
type StructuralError struct {
	Kind    string
	SceneID string
	Msg     string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.SceneID != "" {
		return fmt.Sprintf("%s: scene %s: %s", ErrStructural.Error(), e.SceneID, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrStructural.Error(), e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// DecodeError reports a document that is valid JSON but not a valid scene,
// for example a node without a type or a payload of the wrong shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrDecode.Error(), e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDecode.Error(), e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}
