package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/clone"
	"github.com/AaronLay10/FrameScene/internal/compat"
	"github.com/AaronLay10/FrameScene/internal/editor"
	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/idgen"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/storage"
	"github.com/AaronLay10/FrameScene/internal/version"
)

// maxBodyBytes bounds request documents.
const maxBodyBytes = 8 << 20

var requestValidate = validator.New()

// Server serves the scene engine over HTTP.
type Server struct {
	store    storage.SceneStore
	registry *registry.Registry
	ids      idgen.Generator
	frameID  string
	editor   *editor.Service

	sessMu   sync.Mutex
	sessions map[string]*editor.Session
}

// Options configure a Server. Store may be nil, in which case the
// /scenes store endpoints answer 503.
type Options struct {
	Store    storage.SceneStore
	Registry *registry.Registry
	IDs      idgen.Generator
	FrameID  string
}

// NewServer creates a server. A nil registry means registry.Default() and
// nil ids means random UUIDs.
func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.IDs == nil {
		opts.IDs = idgen.UUID{}
	}
	return &Server{
		store:    opts.Store,
		registry: opts.Registry,
		ids:      opts.IDs,
		frameID:  opts.FrameID,
		editor:   editor.New(opts.IDs, opts.Registry),
		sessions: make(map[string]*editor.Session),
	}
}

// Handler returns the routed handler with request metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	route("GET /health", s.healthHandler)
	route("GET /events", eventsHandler)
	mux.HandleFunc("GET /ws/events", wsEventsHandler)
	mux.Handle("GET /metrics", metricsHandler())

	route("POST /scenes/validate", s.validateHandler)
	route("POST /scenes/arrange", s.arrangeHandler)
	route("POST /scenes/duplicate", s.duplicateHandler)
	route("POST /scenes/canonical", s.canonicalHandler)

	route("GET /scenes", s.listScenesHandler)
	route("GET /scenes/{id}", s.getSceneHandler)
	route("PUT /scenes/{id}", s.putSceneHandler)
	route("DELETE /scenes/{id}", s.deleteSceneHandler)

	route("POST /sessions/{id}", s.openSessionHandler)
	route("GET /sessions/{id}", s.getSessionHandler)
	route("DELETE /sessions/{id}", s.closeSessionHandler)
	route("POST /sessions/{id}/edits", s.editSessionHandler)
	route("POST /sessions/{id}/undo", s.undoSessionHandler)
	route("POST /sessions/{id}/redo", s.redoSessionHandler)
	route("POST /sessions/{id}/save", s.saveSessionHandler)
	return mux
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Frame     string `json:"frame,omitempty"`
	Store     bool   `json:"store"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "framescene-api",
		Version:   version.Version,
		Frame:     s.frameID,
		Store:     s.store != nil,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK     bool           `json:"ok"`
	Error  string         `json:"error"`
	Code   string         `json:"code,omitempty"`
	Line   int            `json:"line,omitempty"`
	Column int            `json:"column,omitempty"`
	Result *compat.Result `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var parseErr *canonical.ParseError
	var inel *compat.IneligibleError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &parseErr):
		status = http.StatusBadRequest
		resp.Code = "parse_error"
		resp.Line, resp.Column = parseErr.Line, parseErr.Column
	case errors.As(err, &verrs), errors.Is(err, scene.ErrDecode), errors.Is(err, errBadRequest), errors.Is(err, compat.ErrUnknownMode):
		status = http.StatusBadRequest
		resp.Code = "bad_request"
	case errors.As(err, &inel):
		status = http.StatusConflict
		resp.Code = "ineligible"
		resp.Result = &inel.Result
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, errNoSession):
		status = http.StatusNotFound
		resp.Code = "not_found"
	case errors.Is(err, clone.ErrUnclonableNodeKind):
		status = http.StatusUnprocessableEntity
		resp.Code = "unclonable_node_kind"
	case errors.Is(err, scene.ErrStructural):
		status = http.StatusUnprocessableEntity
		resp.Code = "structural"
	case errors.Is(err, editor.ErrValidation):
		status = http.StatusUnprocessableEntity
		if code, ok := editor.CodeOf(err); ok {
			resp.Code = string(code)
		}
	case errors.Is(err, errNoStore):
		status = http.StatusServiceUnavailable
		resp.Code = "no_store"
	}

	if status >= http.StatusInternalServerError {
		events.Emit("error", "api.request_failed", err.Error(), map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
			"status": status,
		})
	}
	writeJSON(w, status, resp)
}

var (
	errBadRequest = errors.New("bad request")
	errNoStore    = errors.New("no scene store configured")
)

// decode reads a JSON request body into v and validates its tags.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var decErr *scene.DecodeError
		if errors.As(err, &decErr) {
			return err
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return requestValidate.Struct(v)
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. TLS is used when tlsCfg is non-nil.
func (s *Server) ListenAndServe(ctx context.Context, port int, tlsCfg *TLSConfig) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if tlsCfg != nil {
		cfg, err := tlsCfg.Load()
		if err != nil {
			return err
		}
		srv.TLSConfig = cfg
	}

	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			log.Printf("API listening on %s (TLS)", srv.Addr)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		log.Printf("API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events.CloseAllSubscribers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
