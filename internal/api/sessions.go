package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/AaronLay10/FrameScene/internal/editor"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/storage"
)

var errNoSession = errors.New("no editing session")

// SessionState is the view of an editing session returned by every
// /sessions call.
type SessionState struct {
	Scene   *scene.Scene `json:"scene"`
	Dirty   bool         `json:"dirty"`
	CanUndo bool         `json:"can_undo"`
	CanRedo bool         `json:"can_redo"`
}

func stateOf(ss *editor.Session) SessionState {
	return SessionState{
		Scene:   ss.Current(),
		Dirty:   ss.Dirty(),
		CanUndo: ss.CanUndo(),
		CanRedo: ss.CanRedo(),
	}
}

// EditRequest is one edit of an open scene. Which fields apply depends on
// Op.
type EditRequest struct {
	Op string `json:"op" validate:"required,oneof=add_node drop_node remove_node add_edge remove_edge update_node"`

	// add_node, drop_node
	Kind     scene.NodeKind  `json:"kind,omitempty"`
	Position scene.Position  `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
	Keyword  string          `json:"keyword,omitempty"`

	// remove_node, update_node
	NodeID string         `json:"node_id,omitempty"`
	Patch  map[string]any `json:"patch,omitempty"`

	// add_edge
	Source       string `json:"source,omitempty"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`

	// remove_edge
	EdgeID string `json:"edge_id,omitempty"`
}

type EditResponse struct {
	// ID is the id of the node or edge an add created.
	ID string `json:"id,omitempty"`
	SessionState
}

type SaveSessionResponse struct {
	Changed bool            `json:"changed"`
	Summary storage.Summary `json:"summary"`
	SessionState
}

func (s *Server) session(id string) (*editor.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w for scene %s", errNoSession, id)
	}
	return ss, nil
}

// openSessionHandler opens the stored scene for editing. Opening a scene
// that is already open reloads it from the store and drops its history.
func (s *Server) openSessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	id := r.PathValue("id")
	sc, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.sessMu.Lock()
	ss, ok := s.sessions[id]
	if ok {
		ss.Reload(sc)
	} else {
		ss = editor.NewSession(s.editor, sc)
		s.sessions[id] = ss
	}
	s.sessMu.Unlock()

	writeJSON(w, http.StatusOK, stateOf(ss))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(ss))
}

func (s *Server) closeSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.sessMu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.sessMu.Unlock()
	if !ok {
		writeError(w, r, fmt.Errorf("%w for scene %s", errNoSession, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) editSessionHandler(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req EditRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var id string
	switch req.Op {
	case "add_node":
		var p scene.Payload
		p, err = scene.DecodePayload(req.Kind, req.Data)
		if err != nil {
			err = fmt.Errorf("%w: data does not fit a %s node: %v", errBadRequest, req.Kind, err)
			break
		}
		id, err = ss.AddNode(req.Kind, req.Position, p)
	case "drop_node":
		id, err = ss.DropAt(req.Kind, req.Keyword, req.Position)
	case "remove_node":
		ss.RemoveNode(req.NodeID)
	case "update_node":
		err = ss.UpdateNodePayload(req.NodeID, req.Patch)
	case "add_edge":
		id, err = ss.AddEdge(req.Source, req.SourceHandle, req.Target, req.TargetHandle)
	case "remove_edge":
		ss.RemoveEdge(req.EdgeID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EditResponse{ID: id, SessionState: stateOf(ss)})
}

func (s *Server) undoSessionHandler(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ss.Undo()
	writeJSON(w, http.StatusOK, stateOf(ss))
}

func (s *Server) redoSessionHandler(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ss.Redo()
	writeJSON(w, http.StatusOK, stateOf(ss))
}

// saveSessionHandler stores the session's current scene and marks it
// saved. A refused save leaves the session dirty.
func (s *Server) saveSessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	ss, err := s.session(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	current := ss.Current()
	sum, changed, err := s.saveScene(r.Context(), current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ss.MarkSavedAs(current)
	writeJSON(w, http.StatusOK, SaveSessionResponse{Changed: changed, Summary: sum, SessionState: stateOf(ss)})
}
