package scene

import "strings"

// Handle names are a string contract shared with the renderer and the
// device runtime's importer.
const (
	HandleNext        = "next"
	HandlePrev        = "prev"
	HandleFieldOutput = "fieldOutput"
	HandleStateOutput = "stateOutput"

	fieldInputPrefix = "fieldInput/"
	fieldPathPrefix  = "field/"
)

// EdgeKind is the renderer's edge type, derived from the handles.
type EdgeKind string

const (
	EdgeExecution EdgeKind = "appNodeEdge"
	EdgeData      EdgeKind = "codeNodeEdge"
)

// Edge connects a source handle to a target handle.
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	SourceHandle string   `json:"sourceHandle"`
	Target       string   `json:"target"`
	TargetHandle string   `json:"targetHandle"`
	Kind         EdgeKind `json:"type,omitempty"`
}

// IsExecution reports whether e orders the run chain (next -> prev).
func (e Edge) IsExecution() bool {
	return e.SourceHandle == HandleNext && e.TargetHandle == HandlePrev
}

// Touches reports whether nodeID is either endpoint of e.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// KindForHandles returns the edge kind implied by a pair of handles. Any
// edge touching next or prev is drawn as an execution edge.
func KindForHandles(sourceHandle, targetHandle string) EdgeKind {
	if sourceHandle == HandleNext || targetHandle == HandlePrev {
		return EdgeExecution
	}
	return EdgeData
}

// FieldInputHandle builds the target handle for a named input slot.
func FieldInputHandle(name string) string {
	return fieldInputPrefix + name
}

// FieldInputName extracts the slot name from a fieldInput/<name> handle.
func FieldInputName(handle string) (string, bool) {
	if !strings.HasPrefix(handle, fieldInputPrefix) {
		return "", false
	}
	return strings.TrimPrefix(handle, fieldInputPrefix), true
}

// FieldPathHandle builds the source handle for a field path.
func FieldPathHandle(name string) string {
	return fieldPathPrefix + name
}

// FieldPathName returns the path of a field/<path> handle.
func FieldPathName(handle string) (string, bool) {
	if !strings.HasPrefix(handle, fieldPathPrefix) {
		return "", false
	}
	return strings.TrimPrefix(handle, fieldPathPrefix), true
}

// IsFieldPathHandle reports whether handle has the field/<name> form.
func IsFieldPathHandle(handle string) bool {
	return strings.HasPrefix(handle, fieldPathPrefix)
}

// IsFieldInputHandle reports whether handle has the fieldInput/<name> form.
func IsFieldInputHandle(handle string) bool {
	return strings.HasPrefix(handle, fieldInputPrefix)
}
