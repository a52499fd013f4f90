// Package clone duplicates a batch of scenes under fresh ids.
//
// Every scene in the batch gets a new id and every reference to a scene of
// the batch is rewritten to the new id, so that a set of scenes pointing at
// each other stays consistent after the copy. References to scenes outside
// the batch are left alone.
package clone

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AaronLay10/FrameScene/internal/idgen"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

// ErrUnclonableNodeKind is returned for a node whose kind the cloner does
// not know how to rewrite.
var ErrUnclonableNodeKind = errors.New("unclonable node kind")

// UnclonableNodeKindError names the node that stopped a duplicate. Wraps
// ErrUnclonableNodeKind and scene.ErrStructural for errors.Is().
type UnclonableNodeKindError struct {
	SceneID string
	NodeID  string
	Kind    scene.NodeKind
}

func (e *UnclonableNodeKindError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q: scene %s node %s", ErrUnclonableNodeKind.Error(), e.Kind, e.SceneID, e.NodeID)
}

func (e *UnclonableNodeKindError) Unwrap() []error {
	return []error{ErrUnclonableNodeKind, scene.ErrStructural}
}

// remap is the old id -> new id table of one Duplicate call. It only
// holds the ids of the batch.
type remap map[string]string

// id returns the new id for old, or old itself when it is not part of
// the batch.
func (m remap) id(old string) string {
	if nw, ok := m[old]; ok {
		return nw
	}
	return old
}

func (m remap) value(v any) any {
	if s, ok := v.(string); ok && s != "" {
		return m.id(s)
	}
	return v
}

// Duplicate returns deep copies of scenes with new ids from ids. Scene
// references held by scene nodes, scene-typed state fields, scene-typed
// config values of apps and dispatches, and scene-typed values of embedded
// schemas are rewritten through one table shared by the whole batch. Source
// nodes, whose schema travels as the config.json text of their data, are
// rewritten the same way. Copies are never the frame's default scene. The
// registry supplies app and event schemas; nil means registry.Default().
// The input is not modified.
func Duplicate(scenes []scene.Scene, ids idgen.Generator, reg *registry.Registry) ([]scene.Scene, error) {
	if ids == nil {
		ids = idgen.UUID{}
	}
	if reg == nil {
		reg = registry.Default()
	}

	table := make(remap, len(scenes))
	for _, s := range scenes {
		if _, dup := table[s.ID]; dup {
			return nil, &scene.StructuralError{
				Kind:    scene.ViolationDuplicateScene,
				SceneID: s.ID,
				Msg:     fmt.Sprintf("scene %q appears twice in the batch", s.ID),
			}
		}
		table[s.ID] = ids.NewID()
	}

	out := make([]scene.Scene, len(scenes))
	for i := range scenes {
		c, err := duplicate(&scenes[i], table, reg)
		if err != nil {
			return nil, err
		}
		out[i] = *c
	}
	return out, nil
}

func duplicate(s *scene.Scene, table remap, reg *registry.Registry) (*scene.Scene, error) {
	c := s.Clone()
	c.ID = table.id(s.ID)
	c.IsDefault = false

	for i := range c.Fields {
		if c.Fields[i].Type == scene.FieldScene && c.Fields[i].Value != "" {
			c.Fields[i].Value = table.id(c.Fields[i].Value)
		}
	}

	for i := range c.Nodes {
		n := &c.Nodes[i]
		switch p := n.Payload.(type) {
		case scene.EventPayload, scene.StatePayload, scene.CodePayload:
		case scene.SceneRefPayload:
			if p.TargetSceneID != "" {
				p.TargetSceneID = table.id(p.TargetSceneID)
			}
			n.Payload = p
		case scene.AppPayload:
			for _, key := range scene.SceneConfigKeys(*n, reg) {
				if v, ok := p.Config[key]; ok {
					p.Config[key] = table.value(v)
				}
			}
			if p.Schema != nil {
				for j, f := range p.Schema.Fields {
					if f.Type == scene.FieldScene {
						p.Schema.Fields[j].Value = table.value(f.Value)
					}
				}
			}
			n.Payload = p
		case scene.DispatchPayload:
			for _, key := range scene.SceneConfigKeys(*n, reg) {
				if v, ok := p.Config[key]; ok {
					p.Config[key] = table.value(v)
				}
			}
			n.Payload = p
		case scene.UnknownPayload:
			if n.Kind() != KindSource {
				return nil, &UnclonableNodeKindError{SceneID: s.ID, NodeID: n.ID, Kind: n.Kind()}
			}
			n.Payload = remapSource(p, table)
		default:
			return nil, &UnclonableNodeKindError{SceneID: s.ID, NodeID: n.ID, Kind: n.Kind()}
		}
	}
	return c, nil
}

// KindSource is the node kind of an app whose code is edited inside the
// scene. Its data holds the files under "sources"; "config.json" among
// them declares the fields.
const KindSource scene.NodeKind = "source"

// remapSource rewrites the scene-typed fields declared by a source node's
// config.json, both in the node config and in the declared values. A node
// whose config.json is missing or unreadable is copied as is.
func remapSource(p scene.UnknownPayload, table remap) scene.UnknownPayload {
	var data map[string]any
	if err := decode(p.Data, &data); err != nil {
		return p
	}
	sources, _ := data["sources"].(map[string]any)
	text, _ := sources["config.json"].(string)
	if text == "" {
		return p
	}
	var cfg map[string]any
	if err := decode([]byte(text), &cfg); err != nil {
		return p
	}

	fields, _ := cfg["fields"].([]any)
	config, _ := data["config"].(map[string]any)
	touched := false
	for _, f := range fields {
		field, ok := f.(map[string]any)
		if !ok || field["type"] != string(scene.FieldScene) {
			continue
		}
		touched = true
		name, _ := field["name"].(string)
		if v, ok := config[name]; ok {
			config[name] = table.value(v)
		}
		if v, ok := field["value"]; ok {
			field["value"] = table.value(v)
		}
	}
	if !touched {
		return p
	}

	rewritten, err := encode(cfg, "  ")
	if err != nil {
		return p
	}
	sources["config.json"] = string(rewritten)
	out, err := encode(data, "")
	if err != nil {
		return p
	}
	return scene.UnknownPayload{Type: p.Type, Data: out}
}

// decode keeps numbers as written so untouched values survive the copy.
func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
