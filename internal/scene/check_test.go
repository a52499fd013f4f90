package scene

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func node(id string, p Payload) Node {
	return Node{ID: id, Payload: p}
}

type fakeSchemas struct{}

func (fakeSchemas) AppFields(keyword string) ([]FieldSchema, bool) {
	if keyword == "logic/goto" {
		return []FieldSchema{{Name: "target", Type: FieldScene}}, true
	}
	return nil, false
}

func (fakeSchemas) EventFields(keyword string) ([]FieldSchema, bool) {
	if keyword == "setCurrentScene" {
		return []FieldSchema{{Name: "sceneId", Type: FieldScene}}, true
	}
	return nil, false
}

func TestCheckWellFormed(t *testing.T) {
	s := &Scene{
		ID: "s1",
		Nodes: []Node{
			node("e1", EventPayload{TriggerKeyword: "render"}),
			node("a1", AppPayload{AppKeyword: "render/text"}),
		},
		Edges: []Edge{{ID: "x", Source: "e1", SourceHandle: HandleNext, Target: "a1", TargetHandle: HandlePrev}},
	}
	require.NoError(t, s.Check())
}

func TestCheckViolations(t *testing.T) {
	s := &Scene{
		ID: "s1",
		Nodes: []Node{
			node("a1", AppPayload{AppKeyword: "render/text"}),
			node("a1", AppPayload{AppKeyword: "render/text"}),
		},
		Edges: []Edge{
			{ID: "x", Source: "a1", SourceHandle: HandleNext, Target: "gone", TargetHandle: HandlePrev},
			{ID: "x", Source: "a1", SourceHandle: HandleNext, Target: "a1", TargetHandle: HandlePrev},
		},
	}
	err := s.Check()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrStructural)

	kinds := map[string]int{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var se *StructuralError
		require.True(t, errors.As(e, &se))
		kinds[se.Kind]++
	}
	require.Equal(t, map[string]int{
		ViolationDuplicateNode: 1,
		ViolationDuplicateEdge: 1,
		ViolationDanglingEdge:  1,
	}, kinds)
}

// Random edge sets: Check accepts exactly those whose endpoints all exist.
func TestCheckRandomEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"n0", "n1", "n2", "n3", "missing"}

	for round := 0; round < 200; round++ {
		s := &Scene{ID: "s"}
		for i := 0; i < 4; i++ {
			s.Nodes = append(s.Nodes, node(fmt.Sprintf("n%d", i), StatePayload{FieldName: "f"}))
		}
		dangling := false
		for i := 0; i < rng.Intn(6); i++ {
			src, tgt := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]
			if src == "missing" || tgt == "missing" {
				dangling = true
			}
			s.Edges = append(s.Edges, Edge{ID: fmt.Sprintf("e%d", i), Source: src, Target: tgt})
		}

		err := s.Check()
		if dangling {
			require.ErrorIs(t, err, ErrStructural, "round %d", round)
		} else {
			require.NoError(t, err, "round %d", round)
		}
	}
}

func TestCheckReferences(t *testing.T) {
	scenes := []Scene{
		{
			ID:     "a",
			Fields: []StateField{{Name: "other", Type: FieldScene, Value: "b"}},
			Nodes: []Node{
				node("ref", SceneRefPayload{TargetSceneID: "b"}),
				node("d", DispatchPayload{EventKeyword: "setCurrentScene", Config: map[string]any{"sceneId": "b"}}),
				node("empty", SceneRefPayload{}),
			},
		},
		{ID: "b"},
	}
	require.NoError(t, CheckReferences(scenes, fakeSchemas{}))

	scenes[0].Nodes[1] = node("d", DispatchPayload{EventKeyword: "setCurrentScene", Config: map[string]any{"sceneId": "zzz"}})
	err := CheckReferences(scenes, fakeSchemas{})
	require.ErrorIs(t, err, ErrStructural)
	require.Contains(t, err.Error(), `node d config sceneId references unknown scene "zzz"`)
}

func TestCheckReferencesDuplicateScene(t *testing.T) {
	err := CheckReferences([]Scene{{ID: "a"}, {ID: "a"}}, nil)
	require.ErrorIs(t, err, ErrStructural)
	require.Contains(t, err.Error(), "duplicate scene id")
}

func TestCheckReferencesSingleDefault(t *testing.T) {
	require.NoError(t, CheckReferences([]Scene{{ID: "a", IsDefault: true}, {ID: "b"}}, nil))

	err := CheckReferences([]Scene{{ID: "a", IsDefault: true}, {ID: "b", IsDefault: true}, {ID: "c", IsDefault: true}}, nil)
	require.ErrorIs(t, err, ErrStructural)

	var kinds []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var se *StructuralError
		require.True(t, errors.As(e, &se))
		kinds = append(kinds, se.Kind+":"+se.SceneID)
	}
	require.Equal(t, []string{"duplicate_default:b", "duplicate_default:c"}, kinds)
	require.Contains(t, err.Error(), `scene "a" is already the default`)
}

func TestSceneReferencesEmbeddedSchema(t *testing.T) {
	s := &Scene{
		ID: "a",
		Nodes: []Node{node("src", AppPayload{
			AppKeyword: "custom",
			Config:     map[string]any{"goto": "b"},
			Schema: &EmbeddedSchema{Fields: []FieldSchema{
				{Name: "goto", Type: FieldScene, Value: "c"},
				{Name: "label", Type: FieldString, Value: "c"},
			}},
		})},
	}
	refs := SceneReferences(s, nil)
	require.Equal(t, []Reference{
		{Where: "node src config goto", Value: "b"},
		{Where: "node src schema goto", Value: "c"},
	}, refs)
}

func TestSceneConfigKeysFromRegistry(t *testing.T) {
	n := node("g", AppPayload{AppKeyword: "logic/goto"})
	require.Equal(t, []string{"target"}, SceneConfigKeys(n, fakeSchemas{}))
	require.Nil(t, SceneConfigKeys(n, nil))
}
