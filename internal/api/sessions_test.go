package api

import (
	"net/http"
	"testing"

	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

func sessionState(t *testing.T, h http.Handler, method, path string, body interface{}) EditResponse {
	t.Helper()
	w := do(t, h, method, path, body)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: expected 200, got %d: %s", method, path, w.Code, w.Body.String())
	}
	var resp EditResponse
	decodeBody(t, w, &resp)
	return resp
}

func TestSessionEditing(t *testing.T) {
	h := newTestServer(t, true)
	if w := do(t, h, "PUT", "/scenes/clock", textScene("clock")); w.Code != http.StatusOK {
		t.Fatalf("put failed: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, "GET", "/sessions/clock", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before opening, got %d", w.Code)
	}

	st := sessionState(t, h, "POST", "/sessions/clock", nil)
	if st.Dirty || st.CanUndo || len(st.Scene.Nodes) != 3 {
		t.Fatalf("unexpected opened state %+v", st)
	}

	events.Clear()
	st = sessionState(t, h, "POST", "/sessions/clock/edits", EditRequest{
		Op: "drop_node", Kind: scene.KindApp, Keyword: "render/text", Position: scene.Position{X: 10, Y: 20},
	})
	if st.ID != "new-1" || !st.Dirty || !st.CanUndo || len(st.Scene.Nodes) != 4 {
		t.Fatalf("unexpected state after drop %+v", st)
	}

	st = sessionState(t, h, "POST", "/sessions/clock/edits", EditRequest{
		Op: "add_edge", Source: "txt", SourceHandle: scene.HandleNext, Target: "new-1", TargetHandle: scene.HandlePrev,
	})
	if st.ID != "new-2" || len(st.Scene.Edges) != 3 {
		t.Fatalf("unexpected state after add_edge %+v", st)
	}

	if w := do(t, h, "POST", "/sessions/clock/edits", EditRequest{Op: "update_node", NodeID: "ghost", Patch: map[string]any{"keyword": "x"}}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a missing node, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/sessions/clock/edits", EditRequest{Op: "rename"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown op, got %d", w.Code)
	}

	st = sessionState(t, h, "POST", "/sessions/clock/undo", nil)
	if len(st.Scene.Edges) != 2 || !st.CanRedo {
		t.Errorf("undo should drop the edge, got %+v", st)
	}
	st = sessionState(t, h, "POST", "/sessions/clock/redo", nil)
	if len(st.Scene.Edges) != 3 || st.CanRedo {
		t.Errorf("redo should restore the edge, got %+v", st)
	}

	w := do(t, h, "POST", "/sessions/clock/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}
	var saved SaveSessionResponse
	decodeBody(t, w, &saved)
	if !saved.Changed || saved.Dirty || saved.Summary.ID != "clock" {
		t.Errorf("unexpected save response %+v", saved)
	}
	var stored scene.Scene
	decodeBody(t, do(t, h, "GET", "/scenes/clock", nil), &stored)
	if len(stored.Nodes) != 4 || len(stored.Edges) != 3 {
		t.Errorf("store should hold the edited scene, got %d nodes %d edges", len(stored.Nodes), len(stored.Edges))
	}

	st = sessionState(t, h, "POST", "/sessions/clock/edits", EditRequest{
		Op: "add_node", Kind: scene.KindEvent, Data: []byte(`{"keyword":"render"}`),
	})
	if !st.Dirty {
		t.Error("expected unsaved changes after add_node")
	}
	// Reopening reloads the stored scene.
	st = sessionState(t, h, "POST", "/sessions/clock", nil)
	if st.Dirty || st.CanUndo || len(st.Scene.Nodes) != 4 {
		t.Errorf("unexpected reloaded state %+v", st)
	}

	var names []string
	for _, e := range events.RecentEvents(0, "scene.", "history.", "session.") {
		names = append(names, e.Name)
	}
	for _, want := range []string{"scene.node_added", "scene.edge_added", "scene.edit_rejected", "history.undo", "history.redo", "session.saved", "session.reloaded"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("expected %s among %v", want, names)
		}
	}

	if w := do(t, h, "DELETE", "/sessions/clock", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 on close, got %d", w.Code)
	}
	if w := do(t, h, "DELETE", "/sessions/clock", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second close, got %d", w.Code)
	}
}

func TestSessionSaveBesideDefault(t *testing.T) {
	h := newTestServer(t, true)
	home := textScene("home")
	home.IsDefault = true
	do(t, h, "PUT", "/scenes/home", home)
	other := textScene("other")
	do(t, h, "PUT", "/scenes/other", other)

	sessionState(t, h, "POST", "/sessions/other", nil)
	sessionState(t, h, "POST", "/sessions/other/edits", EditRequest{Op: "remove_node", NodeID: "clock"})

	// A frame keeps a single default.
	other.IsDefault = true
	if w := do(t, h, "PUT", "/scenes/other", other); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected a second default to be refused, got %d", w.Code)
	}

	w := do(t, h, "POST", "/sessions/other/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}

	st := sessionState(t, h, "GET", "/sessions/other", nil)
	if st.Dirty {
		t.Error("expected a clean session after save")
	}
}

func TestSessionsWithoutStore(t *testing.T) {
	h := newTestServer(t, false)
	if w := do(t, h, "POST", "/sessions/clock", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
