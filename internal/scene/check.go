package scene

import (
	"errors"
	"fmt"
)

// SchemaSource resolves the field schemas of apps and events. The registry
// snapshot implements it; scene does not import the registry.
type SchemaSource interface {
	AppFields(keyword string) ([]FieldSchema, bool)
	EventFields(keyword string) ([]FieldSchema, bool)
}

// Check reports duplicate node ids, duplicate edge ids and edges whose
// endpoints are missing. All violations are joined into one error.
func (s *Scene) Check() error {
	var errs []error
	seen := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if _, dup := seen[n.ID]; dup {
			errs = append(errs, &StructuralError{
				Kind:    ViolationDuplicateNode,
				SceneID: s.ID,
				Msg:     fmt.Sprintf("duplicate node id %q", n.ID),
			})
			continue
		}
		seen[n.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		if _, dup := edgeIDs[e.ID]; dup {
			errs = append(errs, &StructuralError{
				Kind:    ViolationDuplicateEdge,
				SceneID: s.ID,
				Msg:     fmt.Sprintf("duplicate edge id %q", e.ID),
			})
		}
		edgeIDs[e.ID] = struct{}{}

		for _, end := range []string{e.Source, e.Target} {
			if _, ok := seen[end]; !ok {
				errs = append(errs, &StructuralError{
					Kind:    ViolationDanglingEdge,
					SceneID: s.ID,
					Msg:     fmt.Sprintf("edge %s references missing node %q", e.ID, end),
				})
			}
		}
	}
	return errors.Join(errs...)
}

// CheckReferences checks a working set of scenes: scene ids are unique, at
// most one scene is the default, each scene passes Check, and every scene
// reference names a scene in the set.
// Empty references are allowed. src may be nil, in which case only scene
// nodes, embedded schemas and state fields are inspected.
func CheckReferences(scenes []Scene, src SchemaSource) error {
	var errs []error
	known := make(map[string]struct{}, len(scenes))
	for _, s := range scenes {
		if _, dup := known[s.ID]; dup {
			errs = append(errs, &StructuralError{
				Kind: ViolationDuplicateScene,
				Msg:  fmt.Sprintf("duplicate scene id %q", s.ID),
			})
		}
		known[s.ID] = struct{}{}
	}

	defaultID := ""
	for _, s := range scenes {
		if !s.IsDefault {
			continue
		}
		if defaultID != "" {
			errs = append(errs, &StructuralError{
				Kind:    ViolationDuplicateDefault,
				SceneID: s.ID,
				Msg:     fmt.Sprintf("scene %q is already the default", defaultID),
			})
			continue
		}
		defaultID = s.ID
	}

	for i := range scenes {
		s := &scenes[i]
		if err := s.Check(); err != nil {
			errs = append(errs, err)
		}
		for _, ref := range SceneReferences(s, src) {
			if ref.Value == "" {
				continue
			}
			if _, ok := known[ref.Value]; !ok {
				errs = append(errs, &StructuralError{
					Kind:    ViolationUnknownScene,
					SceneID: s.ID,
					Msg:     fmt.Sprintf("%s references unknown scene %q", ref.Where, ref.Value),
				})
			}
		}
	}
	return errors.Join(errs...)
}

// Reference is one place in a scene holding another scene's id.
type Reference struct {
	Where string
	Value string
}

// SceneReferences lists every scene id held by s, in document order.
func SceneReferences(s *Scene, src SchemaSource) []Reference {
	var refs []Reference
	for _, f := range s.Fields {
		if f.Type == FieldScene {
			refs = append(refs, Reference{Where: "field " + f.Name, Value: f.Value})
		}
	}
	for _, n := range s.Nodes {
		where := "node " + n.ID
		switch p := n.Payload.(type) {
		case SceneRefPayload:
			refs = append(refs, Reference{Where: where, Value: p.TargetSceneID})
		case AppPayload:
			for _, name := range SceneConfigKeys(n, src) {
				if v, ok := p.Config[name].(string); ok {
					refs = append(refs, Reference{Where: where + " config " + name, Value: v})
				}
			}
			if p.Schema != nil {
				for _, f := range p.Schema.Fields {
					if v, ok := f.Value.(string); ok && f.Type == FieldScene {
						refs = append(refs, Reference{Where: where + " schema " + f.Name, Value: v})
					}
				}
			}
		case DispatchPayload:
			for _, name := range SceneConfigKeys(n, src) {
				if v, ok := p.Config[name].(string); ok {
					refs = append(refs, Reference{Where: where + " config " + name, Value: v})
				}
			}
		}
	}
	return refs
}

// SceneConfigKeys returns the config keys of an app or dispatch node whose
// schema declares them scene-typed. An embedded schema takes precedence
// over the registry for apps.
func SceneConfigKeys(n Node, src SchemaSource) []string {
	var fields []FieldSchema
	switch p := n.Payload.(type) {
	case AppPayload:
		if p.Schema != nil {
			fields = p.Schema.Fields
		} else if src != nil {
			fields, _ = src.AppFields(p.AppKeyword)
		}
	case DispatchPayload:
		if src != nil {
			fields, _ = src.EventFields(p.EventKeyword)
		}
	}
	var keys []string
	for _, f := range fields {
		if f.Type == FieldScene {
			keys = append(keys, f.Name)
		}
	}
	return keys
}
