package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/scene"
	"github.com/AaronLay10/FrameScene/internal/storage"
)

func openStore(t *testing.T, frameID string) *storage.Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scenes.db"), frameID)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func weather() *scene.Scene {
	return &scene.Scene{
		ID:   "weather",
		Name: "Weather",
		Nodes: []scene.Node{
			{ID: "ev", Payload: scene.EventPayload{TriggerKeyword: "render"}},
			{ID: "txt", Payload: scene.AppPayload{AppKeyword: "render/text", Config: map[string]any{"text": "sunny"}}},
		},
		Edges: []scene.Edge{
			{ID: "e1", Source: "ev", SourceHandle: scene.HandleNext, Target: "txt", TargetHandle: scene.HandlePrev, Kind: scene.EdgeExecution},
		},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "kitchen")
	require.Equal(t, "sqlite", store.Dialect())

	sum, changed, err := store.Put(ctx, weather())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "weather", sum.ID)
	require.Len(t, sum.Fingerprint, 64)

	got, err := store.Get(ctx, "weather")
	require.NoError(t, err)
	require.Equal(t, weather(), got)
}

func TestPutUnchangedIsNoop(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "kitchen")

	first, changed, err := store.Put(ctx, weather())
	require.NoError(t, err)
	require.True(t, changed)

	again, changed, err := store.Put(ctx, weather())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, first.Fingerprint, again.Fingerprint)

	edited := weather()
	edited.Name = "Weather (rainy)"
	edited.Nodes[1].Payload = scene.AppPayload{AppKeyword: "render/text", Config: map[string]any{"text": "rain"}}
	updated, changed, err := store.Put(ctx, edited)
	require.NoError(t, err)
	require.True(t, changed)
	require.NotEqual(t, first.Fingerprint, updated.Fingerprint)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Weather (rainy)", list[0].Name)
}

func TestPutRejectsBrokenScene(t *testing.T) {
	store := openStore(t, "kitchen")
	broken := weather()
	broken.Edges = append(broken.Edges, scene.Edge{ID: "e2", Source: "txt", SourceHandle: scene.HandleNext, Target: "ghost", TargetHandle: scene.HandlePrev})

	_, _, err := store.Put(context.Background(), broken)
	require.ErrorIs(t, err, scene.ErrStructural)

	_, _, err = store.Put(context.Background(), &scene.Scene{})
	require.Error(t, err)
}

func TestPutSingleDefaultPerFrame(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	store, err := Open(path, "kitchen")
	require.NoError(t, err)
	defer store.Close()

	first := weather()
	first.IsDefault = true
	_, _, err = store.Put(ctx, first)
	require.NoError(t, err)

	// Re-saving the default itself is fine.
	first.Name = "Weather now"
	_, changed, err := store.Put(ctx, first)
	require.NoError(t, err)
	require.True(t, changed)

	second := weather()
	second.ID = "clock"
	second.IsDefault = true
	_, _, err = store.Put(ctx, second)
	var se *scene.StructuralError
	require.ErrorAs(t, err, &se)
	require.Equal(t, scene.ViolationDuplicateDefault, se.Kind)
	require.Contains(t, err.Error(), `scene "weather" is already the default of frame kitchen`)
	_, err = store.Get(ctx, "clock")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Handing the role over takes two saves.
	first.IsDefault = false
	_, _, err = store.Put(ctx, first)
	require.NoError(t, err)
	_, _, err = store.Put(ctx, second)
	require.NoError(t, err)

	// Another frame in the same database has its own default.
	require.NoError(t, store.Close())
	hall, err := Open(path, "hall")
	require.NoError(t, err)
	defer hall.Close()
	third := weather()
	third.IsDefault = true
	_, _, err = hall.Put(ctx, third)
	require.NoError(t, err)
}

func TestScenesAreScopedByFrame(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	kitchen, err := Open(path, "kitchen")
	require.NoError(t, err)
	defer kitchen.Close()

	_, _, err = kitchen.Put(ctx, weather())
	require.NoError(t, err)
	require.NoError(t, kitchen.Close())

	hall, err := Open(path, "hall")
	require.NoError(t, err)
	defer hall.Close()

	list, err := hall.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	_, err = hall.Get(ctx, "weather")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "kitchen")
	_, _, err := store.Put(ctx, weather())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "weather"))
	require.ErrorIs(t, store.Delete(ctx, "weather"), storage.ErrNotFound)
	_, err = store.Get(ctx, "weather")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "kitchen")

	require.NoError(t, store.Append(events.Event{
		Timestamp: "2026-01-02T03:04:05Z",
		Level:     "info",
		Name:      "store.saved",
		Fields:    map[string]interface{}{"scene_id": "weather"},
	}))
	require.NoError(t, store.Append(events.Event{
		Timestamp: "2026-01-02T03:04:06Z",
		Level:     "warn",
		Name:      "scene.edit_rejected",
		Message:   "bad edge",
	}))

	rows, err := store.Events(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "scene.edit_rejected", rows[0].Event)
	require.NotNil(t, rows[0].Message)
	require.Equal(t, "bad edge", *rows[0].Message)
	require.Nil(t, rows[0].Fields)
	require.Equal(t, "weather", rows[1].Fields["scene_id"])
	require.Equal(t, "kitchen", rows[1].FrameID)
	require.Equal(t, 2026, rows[1].Timestamp.Year())
}

var _ storage.SceneStore = (*storage.Store)(nil)
var _ events.Sink = (*storage.Store)(nil)
