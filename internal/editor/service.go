// Package editor applies validated edits to scenes. Every operation takes a
// scene and returns a new one; the input is never modified.
package editor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronLay10/FrameScene/internal/canonical"
	"github.com/AaronLay10/FrameScene/internal/idgen"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// Service edits scenes against one registry snapshot.
type Service struct {
	ids idgen.Generator
	reg *registry.Registry
}

// New returns a Service. A nil registry means the built-in catalog.
func New(ids idgen.Generator, reg *registry.Registry) *Service {
	if ids == nil {
		ids = idgen.UUID{}
	}
	if reg == nil {
		reg = registry.Default()
	}
	return &Service{ids: ids, reg: reg}
}

// Registry returns the snapshot the service validates against.
func (svc *Service) Registry() *registry.Registry { return svc.reg }

// AddNode inserts a node with a fresh id.
func (svc *Service) AddNode(s *scene.Scene, kind scene.NodeKind, pos scene.Position, payload scene.Payload) (*scene.Scene, string, error) {
	if payload == nil {
		return nil, "", invalid(InvalidPayload, "", "missing payload for %s node", kind)
	}
	if payload.Kind() != kind {
		return nil, "", invalid(InvalidPayload, "", "payload of kind %s does not fit a %s node", payload.Kind(), kind)
	}
	if err := svc.checkPayload(s, "", payload); err != nil {
		return nil, "", err
	}

	id, err := svc.freshID(func(id string) bool {
		_, taken := s.FindNode(id)
		return taken
	})
	if err != nil {
		return nil, "", err
	}
	out := s.Clone()
	out.Nodes = append(out.Nodes, scene.Node{
		ID:       id,
		Position: pos,
		Payload:  scene.ClonePayload(payload),
	})
	return out, id, nil
}

// maxIDDraws bounds how often the generator is asked for an unused id.
const maxIDDraws = 64

// freshID draws ids until one is not taken.
func (svc *Service) freshID(taken func(string) bool) (string, error) {
	for i := 0; i < maxIDDraws; i++ {
		if id := svc.ids.NewID(); id != "" && !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no unused id after %d draws", ErrIDsExhausted, maxIDDraws)
}

func (svc *Service) checkPayload(s *scene.Scene, nodeID string, payload scene.Payload) error {
	switch p := payload.(type) {
	case scene.AppPayload:
		if _, ok := svc.reg.App(p.AppKeyword); !ok && p.Schema == nil {
			return invalid(UnknownApp, nodeID, "app %q is not in the registry", p.AppKeyword)
		}
	case scene.DispatchPayload:
		if ev, ok := svc.reg.Event(p.EventKeyword); !ok || !ev.CanDispatch {
			return invalid(UnknownEvent, nodeID, "event %q cannot be dispatched", p.EventKeyword)
		}
	case scene.EventPayload:
		if ev, ok := svc.reg.Event(p.TriggerKeyword); !ok || !ev.CanListen {
			return invalid(UnknownEvent, nodeID, "event %q cannot trigger a scene", p.TriggerKeyword)
		}
	case scene.StatePayload:
		if _, ok := s.Field(p.FieldName); !ok {
			return invalid(UnknownField, nodeID, "scene has no state field %q", p.FieldName)
		}
	case scene.CodePayload, scene.SceneRefPayload:
	case scene.UnknownPayload:
		return invalid(InvalidPayload, nodeID, "node kind %q is not supported", p.Type)
	default:
		return invalid(InvalidPayload, nodeID, "unsupported payload %T", p)
	}
	return nil
}

// RemoveNode deletes a node and every edge touching it. Removing a missing
// node returns an unchanged copy.
func (svc *Service) RemoveNode(s *scene.Scene, nodeID string) *scene.Scene {
	out := s.Clone()
	out.Nodes = out.Nodes[:0:0]
	for _, n := range s.Nodes {
		if n.ID != nodeID {
			out.Nodes = append(out.Nodes, n.Clone())
		}
	}
	out.Edges = out.Edges[:0:0]
	for _, e := range s.Edges {
		if !e.Touches(nodeID) {
			out.Edges = append(out.Edges, e)
		}
	}
	if len(out.Nodes) == 0 {
		out.Nodes = nil
	}
	if len(out.Edges) == 0 {
		out.Edges = nil
	}
	return out
}

// AddEdge connects two handles. An execution edge replaces the target's
// previous incoming execution edge and the source's previous outgoing one,
// keeping run order a chain. Adding an edge that already exists returns the
// existing id.
func (svc *Service) AddEdge(s *scene.Scene, source, sourceHandle, target, targetHandle string) (*scene.Scene, string, error) {
	src, ok := s.FindNode(source)
	if !ok {
		return nil, "", nodeNotFound(s.ID, source)
	}
	tgt, ok := s.FindNode(target)
	if !ok {
		return nil, "", nodeNotFound(s.ID, target)
	}

	rule, ok := matchRule(sourceHandle, targetHandle)
	if !ok {
		return nil, "", invalid(IncompatibleHandles, "", "no connection pattern for %s→%s", sourceHandle, targetHandle)
	}
	if !rule.sources.has(src.Kind()) {
		return nil, "", invalid(IncompatibleHandles, src.ID,
			"%s connections must start at one of [%s], not %s", rule.name, rule.sources, src.Kind())
	}
	if !rule.targets.has(tgt.Kind()) {
		return nil, "", invalid(IncompatibleHandles, tgt.ID,
			"%s connections must end at one of [%s], not %s", rule.name, rule.targets, tgt.Kind())
	}

	if name, ok := scene.FieldInputName(targetHandle); ok {
		if err := svc.checkInput(s, *tgt, name); err != nil {
			return nil, "", err
		}
	}
	if path, ok := scene.FieldPathName(sourceHandle); ok {
		if err := svc.checkFieldPath(*src, path); err != nil {
			return nil, "", err
		}
	}

	for _, e := range s.Edges {
		if e.Source == source && e.SourceHandle == sourceHandle && e.Target == target && e.TargetHandle == targetHandle {
			return s.Clone(), e.ID, nil
		}
	}

	edgeID, err := svc.freshID(func(id string) bool {
		_, taken := s.FindEdge(id)
		return taken
	})
	if err != nil {
		return nil, "", err
	}
	edge := scene.Edge{
		ID:           edgeID,
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
		Kind:         scene.KindForHandles(sourceHandle, targetHandle),
	}

	out := s.Clone()
	if edge.IsExecution() {
		kept := out.Edges[:0:0]
		for _, e := range out.Edges {
			if e.IsExecution() && (e.Target == target || e.Source == source) {
				continue
			}
			kept = append(kept, e)
		}
		out.Edges = kept
	}
	out.Edges = append(out.Edges, edge)
	return out, edge.ID, nil
}

// checkInput verifies that a node declares the input slot name.
func (svc *Service) checkInput(s *scene.Scene, n scene.Node, name string) error {
	if name == "" {
		return invalid(UnknownField, n.ID, "empty input name")
	}
	switch p := n.Payload.(type) {
	case scene.AppPayload:
		if p.Schema != nil {
			if _, ok := p.Schema.Field(name); ok {
				return nil
			}
			return invalid(UnknownField, n.ID, "app %q declares no field %q", p.AppKeyword, name)
		}
		fields, ok := svc.reg.AppFields(p.AppKeyword)
		if !ok {
			return invalid(UnknownApp, n.ID, "app %q is not in the registry", p.AppKeyword)
		}
		if !registry.HasField(fields, name) {
			return invalid(UnknownField, n.ID, "app %q declares no field %q", p.AppKeyword, name)
		}
	case scene.DispatchPayload:
		fields, ok := svc.reg.EventFields(p.EventKeyword)
		if !ok {
			return invalid(UnknownEvent, n.ID, "event %q is not in the registry", p.EventKeyword)
		}
		if registry.HasField(fields, name) {
			return nil
		}
		// setSceneState writes the scene's own state fields.
		if p.EventKeyword == "setSceneState" {
			if _, ok := s.Field(name); ok {
				return nil
			}
		}
		return invalid(UnknownField, n.ID, "event %q declares no field %q", p.EventKeyword, name)
	case scene.CodePayload:
		for _, a := range p.Args {
			if a.Name == name {
				return nil
			}
		}
		return invalid(UnknownField, n.ID, "code node declares no argument %q", name)
	case scene.SceneRefPayload:
		// The referenced scene is not part of the snapshot; any name goes.
		return nil
	default:
		return invalid(IncompatibleHandles, n.ID, "%s nodes have no inputs", n.Kind())
	}
	return nil
}

// checkFieldPath verifies the field/<name> handle of an app. Indexed paths
// such as render_functions[0][1] are checked by their base name.
func (svc *Service) checkFieldPath(n scene.Node, path string) error {
	base := path
	if i := strings.IndexByte(base, '['); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		return invalid(UnknownField, n.ID, "empty field path")
	}
	p, ok := n.Payload.(scene.AppPayload)
	if !ok {
		return nil
	}
	if p.Schema != nil {
		if _, ok := p.Schema.Field(base); ok {
			return nil
		}
	} else if fields, ok := svc.reg.AppFields(p.AppKeyword); ok && registry.HasField(fields, base) {
		return nil
	}
	return invalid(UnknownField, n.ID, "app %q declares no field %q", p.AppKeyword, base)
}

// RemoveEdge deletes an edge. Removing a missing edge returns an unchanged
// copy.
func (svc *Service) RemoveEdge(s *scene.Scene, edgeID string) *scene.Scene {
	out := s.Clone()
	out.Edges = out.Edges[:0:0]
	for _, e := range s.Edges {
		if e.ID != edgeID {
			out.Edges = append(out.Edges, e)
		}
	}
	if len(out.Edges) == 0 {
		out.Edges = nil
	}
	return out
}

// UpdateNodePayload merges patch into the node's document data. Top-level
// keys are replaced, config objects merge key by key, and a nil value
// deletes a key. The result must still decode as the node's kind.
func (svc *Service) UpdateNodePayload(s *scene.Scene, nodeID string, patch map[string]any) (*scene.Scene, error) {
	n, ok := s.FindNode(nodeID)
	if !ok {
		return nil, nodeNotFound(s.ID, nodeID)
	}

	raw, err := scene.EncodePayload(n.Payload)
	if err != nil {
		return nil, invalid(InvalidPayload, nodeID, "%v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, invalid(InvalidPayload, nodeID, "%v", err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	for k, v := range patch {
		if k == "config" {
			if next, ok := v.(map[string]any); ok {
				cur, _ := data[k].(map[string]any)
				data[k] = mergeConfig(cur, next)
				continue
			}
		}
		if v == nil {
			delete(data, k)
			continue
		}
		data[k] = v
	}

	merged, err := json.Marshal(data)
	if err != nil {
		return nil, invalid(InvalidPayload, nodeID, "%v", err)
	}
	p, err := scene.DecodePayload(n.Kind(), merged)
	if err != nil {
		return nil, invalid(InvalidPayload, nodeID, "patch does not fit a %s node: %v", n.Kind(), err)
	}

	out := s.Clone()
	target, _ := out.FindNode(nodeID)
	target.Payload = p
	return out, nil
}

func mergeConfig(cur, next map[string]any) map[string]any {
	out := make(map[string]any, len(cur)+len(next))
	for k, v := range cur {
		out[k] = v
	}
	for k, v := range next {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// DropAt inserts a node from the palette at pos. Apps start with an empty
// config and the registry's default cache; code nodes start with keyword as
// their source.
func (svc *Service) DropAt(s *scene.Scene, kind scene.NodeKind, keyword string, pos scene.Position) (*scene.Scene, string, error) {
	var p scene.Payload
	switch kind {
	case scene.KindApp:
		app, ok := svc.reg.App(keyword)
		if !ok {
			return nil, "", invalid(UnknownApp, "", "app %q is not in the registry", keyword)
		}
		ap := scene.AppPayload{AppKeyword: keyword}
		if app.Cache != nil {
			c := *app.Cache
			ap.Cache = &c
		}
		p = ap
	case scene.KindDispatch:
		p = scene.DispatchPayload{EventKeyword: keyword}
	case scene.KindEvent:
		p = scene.EventPayload{TriggerKeyword: keyword}
	case scene.KindState:
		p = scene.StatePayload{FieldName: keyword}
	case scene.KindScene:
		p = scene.SceneRefPayload{TargetSceneID: keyword}
	case scene.KindCode:
		p = scene.CodePayload{SourceByLanguage: map[string]string{scene.LangNim: keyword}}
	default:
		return nil, "", invalid(InvalidPayload, "", "cannot drop a %q node", kind)
	}
	return svc.AddNode(s, kind, pos, p)
}

// IsDirty reports whether s differs from saved in canonical form.
func IsDirty(s, saved *scene.Scene) bool {
	if s == saved {
		return false
	}
	return !canonical.Equal(s, saved)
}

// IsDirty reports whether s differs from saved in canonical form.
func (svc *Service) IsDirty(s, saved *scene.Scene) bool {
	return IsDirty(s, saved)
}
