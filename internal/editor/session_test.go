package editor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
)

func TestSessionEditsAndDirty(t *testing.T) {
	ss := NewSession(newService(), baseScene())
	require.False(t, ss.Dirty())

	id, err := ss.DropAt(scene.KindApp, "render/color", scene.Position{X: 1, Y: 1})
	require.NoError(t, err)
	require.True(t, ss.Dirty())

	_, err = ss.AddEdge("ev", scene.HandleNext, id, scene.HandlePrev)
	require.NoError(t, err)

	ss.MarkSaved()
	require.False(t, ss.Dirty())

	ss.RemoveNode(id)
	require.True(t, ss.Dirty())
	_, ok := ss.Current().FindNode(id)
	require.False(t, ok)
}

func TestSessionMarkSavedAsKeepsLaterEdits(t *testing.T) {
	ss := NewSession(newService(), baseScene())
	_, err := ss.DropAt(scene.KindApp, "render/color", scene.Position{})
	require.NoError(t, err)
	stored := ss.Current()

	// An edit lands while stored is being written.
	_, err = ss.DropAt(scene.KindApp, "render/image", scene.Position{})
	require.NoError(t, err)

	ss.MarkSavedAs(stored)
	require.True(t, ss.Dirty())

	ss.Undo()
	require.False(t, ss.Dirty())
}

func TestSessionRejectedEditLeavesSceneUnchanged(t *testing.T) {
	events.Clear()
	ss := NewSession(newService(), baseScene())
	before := ss.Current()

	_, err := ss.AddEdge("code", scene.HandleFieldOutput, "text", "fieldInput/text")
	requireCode(t, err, IncompatibleHandles)
	require.Equal(t, before, ss.Current())
	require.False(t, ss.CanUndo())

	found := false
	for _, e := range events.Snapshot() {
		if e.Name == "scene.edit_rejected" && e.Fields["code"] == string(IncompatibleHandles) {
			found = true
		}
	}
	require.True(t, found, "expected scene.edit_rejected event")
}

func TestSessionUndoRedo(t *testing.T) {
	ss := NewSession(newService(), baseScene())
	require.False(t, ss.Undo())
	require.False(t, ss.Redo())

	original := ss.Current()
	id, err := ss.AddNode(scene.KindApp, scene.Position{}, scene.AppPayload{AppKeyword: "render/image"})
	require.NoError(t, err)
	require.NoError(t, ss.UpdateNodePayload(id, map[string]any{"config": map[string]any{"placement": "contain"}}))
	edited := ss.Current()

	require.True(t, ss.Undo())
	require.True(t, ss.Undo())
	require.Equal(t, original, ss.Current())
	require.False(t, ss.CanUndo())

	require.True(t, ss.Redo())
	require.True(t, ss.Redo())
	require.Equal(t, edited, ss.Current())
	require.False(t, ss.CanRedo())

	// A new edit after undo drops the redo branch.
	require.True(t, ss.Undo())
	ss.RemoveEdge("nothing-to-remove")
	require.True(t, ss.CanRedo(), "a no-op edit keeps history")
	ss.RemoveNode(id)
	require.False(t, ss.CanRedo())
}

func TestSessionHistoryIsBounded(t *testing.T) {
	ss := NewSession(newService(), baseScene())
	for i := 0; i < MaxHistory+20; i++ {
		_, err := ss.DropAt(scene.KindState, "greeting", scene.Position{X: float64(i)})
		require.NoError(t, err)
	}
	undone := 0
	for ss.Undo() {
		undone++
	}
	require.Equal(t, MaxHistory, undone)
}

func TestSessionReplaceAndReload(t *testing.T) {
	ss := NewSession(newService(), baseScene())

	arranged := ss.Current()
	arranged.Nodes[0].Position = scene.Position{X: 100, Y: 50}
	require.NoError(t, ss.Replace("scene.arranged", arranged))
	require.True(t, ss.Dirty())
	require.True(t, ss.CanUndo())

	fresh := baseScene()
	fresh.Name = "From store"
	ss.Reload(fresh)
	require.False(t, ss.Dirty())
	require.False(t, ss.CanUndo())
	require.Equal(t, "From store", ss.Saved().Name)
}

func TestSessionApplyCustomOp(t *testing.T) {
	ss := NewSession(newService(), baseScene())
	boom := errors.New("boom")
	err := ss.Apply("scene.replaced", nil, func(*scene.Scene) (*scene.Scene, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestSessionConcurrentEdits(t *testing.T) {
	ss := NewSession(newService(), baseScene())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := ss.DropAt(scene.KindApp, "render/color", scene.Position{X: float64(i)}); err != nil {
				t.Errorf("drop %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, ss.Current().Nodes, len(baseScene().Nodes)+20)
	require.NoError(t, ss.Current().Check())
}
