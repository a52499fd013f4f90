// Package compat checks whether a scene can run on the device's
// interpreter instead of being compiled.
//
// The interpreter supports a subset of what the compiled runtime does:
// fewer node kinds, fewer wiring patterns, only the apps built into it and
// no expression-based caches. CheckInterpreted is advisory; a scene that
// fails it can still be saved. It only gates SelectExecutionMode.
package compat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// Result is the outcome of CheckInterpreted. OK is true iff Errors is
// empty; warnings never affect it.
type Result struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Details  Details  `json:"details"`
}

// Details lists the offending ids per rule.
type Details struct {
	UnsupportedNodes         []string `json:"unsupportedNodes"`
	UnsupportedEdges         []string `json:"unsupportedEdges"`
	UnknownApps              []string `json:"unknownApps"`
	DataAppsInRunChain       []string `json:"dataAppsInRunChain"`
	CacheFeaturesUnsupported []string `json:"cacheFeaturesUnsupported"`
}

func newResult() *Result {
	return &Result{
		Errors:   []string{},
		Warnings: []string{},
		Details: Details{
			UnsupportedNodes:         []string{},
			UnsupportedEdges:         []string{},
			UnknownApps:              []string{},
			DataAppsInRunChain:       []string{},
			CacheFeaturesUnsupported: []string{},
		},
	}
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// allowedKinds are the node kinds the interpreter can execute.
var allowedKinds = map[scene.NodeKind]bool{
	scene.KindApp:   true,
	scene.KindEvent: true,
	scene.KindState: true,
	scene.KindScene: true,
}

// edgePattern is one wiring pattern the interpreter accepts. A nil
// sources set accepts any source, including a missing one.
type edgePattern struct {
	name    string
	match   func(sh, th string) bool
	sources map[scene.NodeKind]bool
	// reject formats the error for a source of the wrong kind.
	reject string
}

var edgePatterns = []edgePattern{
	{
		name:  "execution",
		match: func(sh, th string) bool { return sh == scene.HandleNext && th == scene.HandlePrev },
	},
	{
		name:  "field path",
		match: func(sh, th string) bool { return scene.IsFieldPathHandle(sh) && th == scene.HandlePrev },
	},
	{
		name:    "fieldOutput",
		match:   func(sh, th string) bool { return sh == scene.HandleFieldOutput && scene.IsFieldInputHandle(th) },
		sources: map[scene.NodeKind]bool{scene.KindApp: true, scene.KindState: true},
		reject:  "'fieldOutput→fieldInput' must originate from app or state; found %s.",
	},
	{
		name:    "stateOutput",
		match:   func(sh, th string) bool { return sh == scene.HandleStateOutput && scene.IsFieldInputHandle(th) },
		sources: map[scene.NodeKind]bool{scene.KindState: true},
		reject:  "'stateOutput→fieldInput' requires a state node source; found %s.",
	},
}

type checker struct {
	s        *scene.Scene
	nodes    map[string]*scene.Node
	category map[string]registry.Category
}

// rules run in order; each appends to the result and none stops the
// others.
var rules = []func(c *checker, r *Result){
	(*checker).nodeKinds,
	(*checker).apps,
	(*checker).edges,
	(*checker).runChain,
	(*checker).caches,
}

// CheckInterpreted runs every interpreter rule against s. The registry's
// interpreter-enabled apps decide which app keywords are available; a nil
// registry means registry.Default(). s is not modified.
func CheckInterpreted(s *scene.Scene, reg *registry.Registry) Result {
	if reg == nil {
		reg = registry.Default()
	}
	c := &checker{s: s, nodes: s.NodeIndex(), category: map[string]registry.Category{}}
	for cat, keywords := range reg.InterpretedByCategory() {
		for _, k := range keywords {
			c.category[k] = cat
		}
	}

	r := newResult()
	for _, rule := range rules {
		rule(c, r)
	}
	r.OK = len(r.Errors) == 0
	return *r
}

func (c *checker) nodeKinds(r *Result) {
	for _, n := range c.s.Nodes {
		if !allowedKinds[n.Kind()] {
			r.Details.UnsupportedNodes = append(r.Details.UnsupportedNodes, n.ID)
		}
	}
	if len(r.Details.UnsupportedNodes) > 0 {
		r.errorf("Unsupported node types for interpreted scenes (allowed: app, event, state, scene): %s.",
			strings.Join(r.Details.UnsupportedNodes, ", "))
	}
}

func (c *checker) apps(r *Result) {
	for _, n := range c.s.Nodes {
		switch p := n.Payload.(type) {
		case scene.AppPayload:
			if _, ok := c.category[p.AppKeyword]; ok {
				continue
			}
			keyword := p.AppKeyword
			if keyword == "" {
				keyword = "(missing)"
			}
			r.Details.UnknownApps = append(r.Details.UnknownApps, n.ID+":"+keyword)
		case scene.CodePayload:
			if p.SourceByLanguage[scene.LangNim] != "" && p.SourceByLanguage[scene.LangJS] == "" {
				r.errorf("Code node %s has Nim code but no JS code", n.ID)
			}
		}
	}
	if len(r.Details.UnknownApps) > 0 {
		r.errorf("Unknown/uncompiled apps: %s.", strings.Join(r.Details.UnknownApps, ", "))
	}
}

func (c *checker) edges(r *Result) {
	for _, e := range c.s.Edges {
		p, ok := matchPattern(e.SourceHandle, e.TargetHandle)
		if !ok {
			r.Details.UnsupportedEdges = append(r.Details.UnsupportedEdges, e.ID)
			r.errorf("Edge %s: unsupported connection (%s→%s, type=%s).", e.ID, e.SourceHandle, e.TargetHandle, e.Kind)
			continue
		}
		if p.sources == nil {
			continue
		}
		src, ok := c.nodes[e.Source]
		if !ok {
			r.warnf("Edge %s: source node %s missing.", e.ID, e.Source)
			continue
		}
		if !p.sources[src.Kind()] {
			r.Details.UnsupportedEdges = append(r.Details.UnsupportedEdges, e.ID)
			r.errorf("Edge %s: "+p.reject, e.ID, src.Kind())
		}
	}
}

func matchPattern(sh, th string) (edgePattern, bool) {
	for _, p := range edgePatterns {
		if p.match(sh, th) {
			return p, true
		}
	}
	return edgePattern{}, false
}

func (c *checker) runChain(r *Result) {
	seen := map[string]bool{}
	for _, e := range c.s.Edges {
		if !e.IsExecution() || seen[e.Target] {
			continue
		}
		seen[e.Target] = true
		n, ok := c.nodes[e.Target]
		if !ok {
			continue
		}
		if p, ok := n.Payload.(scene.AppPayload); ok && c.category[p.AppKeyword] == registry.CategoryData {
			r.Details.DataAppsInRunChain = append(r.Details.DataAppsInRunChain, n.ID)
		}
	}
	if len(r.Details.DataAppsInRunChain) > 0 {
		r.errorf("Data apps cannot be chained via next→prev: %s.", strings.Join(r.Details.DataAppsInRunChain, ", "))
	}
}

func (c *checker) caches(r *Result) {
	for _, n := range c.s.Nodes {
		if cache := scene.CacheOf(n); cache != nil && cache.ExpressionEnabled {
			r.Details.CacheFeaturesUnsupported = append(r.Details.CacheFeaturesUnsupported, n.ID)
		}
	}
	if len(r.Details.CacheFeaturesUnsupported) > 0 {
		r.errorf("Cache 'expression*' options are not supported by the interpreter (supported: enabled, inputEnabled, durationEnabled, duration). Nodes: %s.",
			strings.Join(r.Details.CacheFeaturesUnsupported, ", "))
	}
}

var (
	// ErrIneligible is returned when a scene cannot switch to the
	// interpreted execution mode.
	ErrIneligible = errors.New("scene cannot run interpreted")

	// ErrUnknownMode is returned for an execution mode that is neither
	// compiled nor interpreted.
	ErrUnknownMode = errors.New("unknown execution mode")
)

// IneligibleError carries the failed check. Wraps ErrIneligible for
// errors.Is().
type IneligibleError struct {
	SceneID string
	Result  Result
}

func (e *IneligibleError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %s", ErrIneligible.Error(), e.SceneID, strings.Join(e.Result.Errors, " "))
}

func (e *IneligibleError) Unwrap() error { return ErrIneligible }

// SelectExecutionMode returns a copy of s running in mode. Switching to
// interpreted requires CheckInterpreted to pass; compiled is always
// allowed.
func SelectExecutionMode(s *scene.Scene, mode scene.ExecutionMode, reg *registry.Registry) (*scene.Scene, error) {
	switch mode {
	case scene.ExecutionCompiled:
	case scene.ExecutionInterpreted:
		if res := CheckInterpreted(s, reg); !res.OK {
			return nil, &IneligibleError{SceneID: s.ID, Result: res}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	out := s.Clone()
	out.Settings.ExecutionMode = mode
	return out, nil
}
