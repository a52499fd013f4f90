package api

import (
	"errors"
	"net/http"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/clone"
	"github.com/AaronLay10/FrameScene/internal/compat"
	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/layout"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

type SceneRequest struct {
	Scene *scene.Scene `json:"scene" validate:"required"`
}

type ValidateRequest struct {
	Scene *scene.Scene `json:"scene" validate:"required"`
	// Scenes is the rest of the frame's working set; when given, scene
	// references are resolved against it.
	Scenes []scene.Scene `json:"scenes,omitempty"`
}

type ValidateResponse struct {
	// OK is false when the scene is structurally broken. The interpreted
	// check is advisory and does not affect it.
	OK          bool          `json:"ok"`
	Structural  []string      `json:"structural"`
	Interpreted compat.Result `json:"interpreted"`
	Fingerprint string        `json:"fingerprint,omitempty"`
}

func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var structural error
	if req.Scenes != nil {
		set := []scene.Scene{*req.Scene}
		for _, other := range req.Scenes {
			if other.ID != req.Scene.ID {
				set = append(set, other)
			}
		}
		structural = scene.CheckReferences(set, s.registry)
	} else {
		structural = req.Scene.Check()
	}

	resp := ValidateResponse{
		OK:          structural == nil,
		Structural:  messages(structural),
		Interpreted: compat.CheckInterpreted(req.Scene, s.registry),
	}
	if resp.OK {
		resp.Fingerprint, _ = canonical.Fingerprint(req.Scene)
	}
	validationsTotal.WithLabelValues(resultLabel(resp.OK), resultLabel(resp.Interpreted.OK)).Inc()

	events.Emit("info", "scene.validated", "", map[string]interface{}{
		"scene_id":       req.Scene.ID,
		"ok":             resp.OK,
		"interpreted_ok": resp.Interpreted.OK,
	})
	writeJSON(w, http.StatusOK, resp)
}

// messages flattens a joined error into its messages.
func messages(err error) []string {
	out := []string{}
	if err == nil {
		return out
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, messages(e)...)
		}
		return out
	}
	return append(out, err.Error())
}

func resultLabel(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func (s *Server) arrangeHandler(w http.ResponseWriter, r *http.Request) {
	var req SceneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out := layout.ArrangeScene(req.Scene)
	events.Emit("info", "scene.arranged", "", map[string]interface{}{
		"scene_id": out.ID,
		"nodes":    len(out.Nodes),
	})
	writeJSON(w, http.StatusOK, SceneRequest{Scene: out})
}

type DuplicateRequest struct {
	Scenes []scene.Scene `json:"scenes" validate:"required,min=1"`
}

type DuplicateResponse struct {
	Scenes []scene.Scene `json:"scenes"`
}

func (s *Server) duplicateHandler(w http.ResponseWriter, r *http.Request) {
	var req DuplicateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := clone.Duplicate(req.Scenes, s.ids, s.registry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range out {
		events.Emit("info", "scene.duplicated", "", map[string]interface{}{
			"scene_id":  out[i].ID,
			"source_id": req.Scenes[i].ID,
		})
	}
	writeJSON(w, http.StatusOK, DuplicateResponse{Scenes: out})
}

// CanonicalRequest carries either a scene or its text form.
type CanonicalRequest struct {
	Scene *scene.Scene `json:"scene,omitempty" validate:"required_without=Text,excluded_with=Text"`
	Text  *string      `json:"text,omitempty" validate:"required_without=Scene"`
}

type CanonicalResponse struct {
	Text        string       `json:"text"`
	Fingerprint string       `json:"fingerprint"`
	Scene       *scene.Scene `json:"scene"`
}

func (s *Server) canonicalHandler(w http.ResponseWriter, r *http.Request) {
	var req CanonicalRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sc := req.Scene
	if req.Text != nil {
		parsed, err := canonical.FromText(*req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sc = parsed
	}
	if sc == nil {
		writeError(w, r, errors.New("no scene"))
		return
	}

	text, err := canonical.Text(sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fp, err := canonical.Fingerprint(sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CanonicalResponse{Text: text, Fingerprint: fp, Scene: sc})
}
