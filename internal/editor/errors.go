package editor

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/FrameScene/internal/scene"
)

var (
	// ErrValidation marks a rejected edit. The scene passed in is unchanged.
	ErrValidation = errors.New("validation error")

	// ErrIDsExhausted is returned when the id generator keeps producing ids
	// the scene already uses.
	ErrIDsExhausted = errors.New("id generator exhausted")
)

// Code classifies a ValidationError.
type Code string

const (
	UnknownApp          Code = "UnknownApp"
	UnknownEvent        Code = "UnknownEvent"
	UnknownField        Code = "UnknownField"
	IncompatibleHandles Code = "IncompatibleHandles"
	InvalidPayload      Code = "InvalidPayload"
)

// ValidationError reports a referential or semantic problem with an edit.
// Wraps ErrValidation for errors.Is().
type ValidationError struct {
	Code   Code
	NodeID string
	Msg    string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s: node %s: %s", ErrValidation.Error(), e.Code, e.NodeID, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Code, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(code Code, nodeID, format string, args ...any) error {
	return &ValidationError{Code: code, NodeID: nodeID, Msg: fmt.Sprintf(format, args...)}
}

func nodeNotFound(sceneID, nodeID string) error {
	return &scene.StructuralError{
		Kind:    scene.ViolationNodeNotFound,
		SceneID: sceneID,
		Msg:     fmt.Sprintf("node %q not found", nodeID),
	}
}

// CodeOf returns the code of a ValidationError in err's chain.
func CodeOf(err error) (Code, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code, true
	}
	return "", false
}
