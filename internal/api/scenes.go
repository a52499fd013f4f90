package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AaronLay10/FrameScene/internal/compat"
	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/storage"
)

func (s *Server) listScenesHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getSceneHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	sc, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type PutSceneResponse struct {
	OK      bool            `json:"ok"`
	Changed bool            `json:"changed"`
	Scene   storage.Summary `json:"scene"`
}

// putSceneHandler saves a scene. Saving never depends on the interpreter
// check, except when the save switches the scene to interpreted mode.
func (s *Server) putSceneHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	id := r.PathValue("id")

	var sc scene.Scene
	if err := decode(w, r, &sc); err != nil {
		writeError(w, r, err)
		return
	}
	if sc.ID == "" {
		sc.ID = id
	}
	if sc.ID != id {
		writeError(w, r, fmt.Errorf("%w: scene id %q does not match path %q", errBadRequest, sc.ID, id))
		return
	}

	sum, changed, err := s.saveScene(r.Context(), &sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PutSceneResponse{OK: true, Changed: changed, Scene: sum})
}

// saveScene stores sc. Switching a scene to interpreted mode is refused
// when the scene cannot run there.
func (s *Server) saveScene(ctx context.Context, sc *scene.Scene) (storage.Summary, bool, error) {
	prevMode := scene.ExecutionMode("")
	prev, err := s.store.Get(ctx, sc.ID)
	switch {
	case err == nil:
		prevMode = prev.Settings.ExecutionMode
	case !errors.Is(err, storage.ErrNotFound):
		return storage.Summary{}, false, err
	}

	next := sc
	mode := sc.Settings.ExecutionMode
	modeChanged := mode != prevMode && mode != ""
	if modeChanged {
		next, err = compat.SelectExecutionMode(sc, mode, s.registry)
		if err != nil {
			return storage.Summary{}, false, err
		}
	}

	sum, changed, err := s.store.Put(ctx, next)
	if err != nil {
		return storage.Summary{}, false, err
	}
	if modeChanged {
		events.Emit("info", "scene.mode_changed", "", map[string]interface{}{
			"scene_id": sc.ID,
			"from":     string(prevMode),
			"to":       string(mode),
		})
	}
	if changed {
		events.Emit("info", "store.saved", "", map[string]interface{}{
			"scene_id":    sum.ID,
			"fingerprint": sum.Fingerprint,
		})
	}
	return sum, changed, nil
}

func (s *Server) deleteSceneHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errNoStore)
		return
	}
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	events.Emit("info", "store.deleted", "", map[string]interface{}{"scene_id": id})
	w.WriteHeader(http.StatusNoContent)
}
