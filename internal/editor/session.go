package editor

import (
	"sync"

	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// MaxHistory bounds the undo history.
const MaxHistory = 100

// Session holds the one scene open for editing together with the last
// saved version. Edits replace the current scene atomically; readers never
// see a half-applied edit.
type Session struct {
	svc *Service

	mu      sync.Mutex
	current *scene.Scene
	saved   *scene.Scene
	past    []*scene.Scene
	future  []*scene.Scene
}

// NewSession opens s for editing. s is treated as the saved version.
func NewSession(svc *Service, s *scene.Scene) *Session {
	return &Session{svc: svc, current: s.Clone(), saved: s.Clone()}
}

// Current returns a copy of the scene being edited.
func (ss *Session) Current() *scene.Scene {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.current.Clone()
}

// Saved returns a copy of the last saved scene.
func (ss *Session) Saved() *scene.Scene {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.saved.Clone()
}

// Dirty reports whether the current scene has unsaved changes.
func (ss *Session) Dirty() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return IsDirty(ss.current, ss.saved)
}

// Op is an edit applied to the current scene.
type Op func(s *scene.Scene) (*scene.Scene, error)

// Apply runs op on the current scene and, on success, makes its result the
// current scene and emits event with fields. A failed op leaves the
// session unchanged and emits scene.edit_rejected.
func (ss *Session) Apply(event string, fields map[string]interface{}, op Op) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	next, err := op(ss.current)
	if err != nil {
		f := map[string]interface{}{"scene_id": ss.current.ID, "error": err.Error()}
		if code, ok := CodeOf(err); ok {
			f["code"] = string(code)
		}
		events.Emit("warn", "scene.edit_rejected", "", f)
		return err
	}

	if IsDirty(next, ss.current) {
		ss.past = append(ss.past, ss.current)
		if len(ss.past) > MaxHistory {
			ss.past = ss.past[len(ss.past)-MaxHistory:]
		}
		ss.future = nil
	}
	ss.current = next

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["scene_id"] = next.ID
	events.Emit("info", event, "", fields)
	return nil
}

// AddNode adds a node to the current scene.
func (ss *Session) AddNode(kind scene.NodeKind, pos scene.Position, payload scene.Payload) (string, error) {
	var id string
	err := ss.Apply("scene.node_added", map[string]interface{}{"kind": string(kind)}, func(s *scene.Scene) (*scene.Scene, error) {
		out, nodeID, err := ss.svc.AddNode(s, kind, pos, payload)
		id = nodeID
		return out, err
	})
	return id, err
}

// DropAt inserts a palette node into the current scene.
func (ss *Session) DropAt(kind scene.NodeKind, keyword string, pos scene.Position) (string, error) {
	var id string
	fields := map[string]interface{}{"kind": string(kind), "keyword": keyword}
	err := ss.Apply("scene.node_added", fields, func(s *scene.Scene) (*scene.Scene, error) {
		out, nodeID, err := ss.svc.DropAt(s, kind, keyword, pos)
		id = nodeID
		return out, err
	})
	return id, err
}

// RemoveNode removes a node and its edges from the current scene.
func (ss *Session) RemoveNode(nodeID string) {
	ss.Apply("scene.node_removed", map[string]interface{}{"node_id": nodeID}, func(s *scene.Scene) (*scene.Scene, error) {
		return ss.svc.RemoveNode(s, nodeID), nil
	})
}

// AddEdge connects two handles in the current scene.
func (ss *Session) AddEdge(source, sourceHandle, target, targetHandle string) (string, error) {
	var id string
	fields := map[string]interface{}{"source": source, "source_handle": sourceHandle, "target": target, "target_handle": targetHandle}
	err := ss.Apply("scene.edge_added", fields, func(s *scene.Scene) (*scene.Scene, error) {
		out, edgeID, err := ss.svc.AddEdge(s, source, sourceHandle, target, targetHandle)
		id = edgeID
		return out, err
	})
	return id, err
}

// RemoveEdge removes an edge from the current scene.
func (ss *Session) RemoveEdge(edgeID string) {
	ss.Apply("scene.edge_removed", map[string]interface{}{"edge_id": edgeID}, func(s *scene.Scene) (*scene.Scene, error) {
		return ss.svc.RemoveEdge(s, edgeID), nil
	})
}

// UpdateNodePayload patches a node of the current scene.
func (ss *Session) UpdateNodePayload(nodeID string, patch map[string]any) error {
	return ss.Apply("scene.node_updated", map[string]interface{}{"node_id": nodeID}, func(s *scene.Scene) (*scene.Scene, error) {
		return ss.svc.UpdateNodePayload(s, nodeID, patch)
	})
}

// Replace swaps in a scene produced elsewhere, such as an auto-arranged
// layout or a committed text edit. It is recorded in history like any edit.
func (ss *Session) Replace(event string, s *scene.Scene) error {
	return ss.Apply(event, nil, func(*scene.Scene) (*scene.Scene, error) {
		return s.Clone(), nil
	})
}

// Undo restores the scene before the last edit. It reports false when
// there is nothing to undo.
func (ss *Session) Undo() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if len(ss.past) == 0 {
		return false
	}
	prev := ss.past[len(ss.past)-1]
	ss.past = ss.past[:len(ss.past)-1]
	ss.future = append([]*scene.Scene{ss.current}, ss.future...)
	ss.current = prev

	events.Emit("info", "history.undo", "", map[string]interface{}{"scene_id": prev.ID, "remaining": len(ss.past)})
	return true
}

// Redo re-applies the last undone edit.
func (ss *Session) Redo() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if len(ss.future) == 0 {
		return false
	}
	next := ss.future[0]
	ss.future = ss.future[1:]
	ss.past = append(ss.past, ss.current)
	ss.current = next

	events.Emit("info", "history.redo", "", map[string]interface{}{"scene_id": next.ID, "remaining": len(ss.future)})
	return true
}

// CanUndo reports whether Undo would change the scene.
func (ss *Session) CanUndo() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.past) > 0
}

// CanRedo reports whether Redo would change the scene.
func (ss *Session) CanRedo() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.future) > 0
}

// MarkSaved records the current scene as saved.
func (ss *Session) MarkSaved() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.markSaved(ss.current)
}

// MarkSavedAs records s, a scene taken from Current before a save, as
// saved. Edits made while the save ran stay dirty.
func (ss *Session) MarkSavedAs(s *scene.Scene) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.markSaved(s)
}

func (ss *Session) markSaved(s *scene.Scene) {
	ss.saved = s.Clone()
	events.Emit("info", "session.saved", "", map[string]interface{}{"scene_id": ss.saved.ID})
}

// Reload supersedes the session with a scene fresh from the store. History
// is discarded.
func (ss *Session) Reload(s *scene.Scene) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.current = s.Clone()
	ss.saved = s.Clone()
	ss.past = nil
	ss.future = nil
	events.Emit("info", "session.reloaded", "", map[string]interface{}{"scene_id": s.ID})
}
