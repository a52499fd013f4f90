package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/FrameScene/internal/events"
)

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func dialEvents(t *testing.T, query string) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to connect: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var e events.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	return e
}

func TestWebSocketReceivesRecentEvents(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "scene.node_added", "", map[string]interface{}{"i": i})
	}

	conn, cleanup := dialEvents(t, "")
	defer cleanup()

	for i := 0; i < 5; i++ {
		if e := readEvent(t, conn); e.Name != "scene.node_added" {
			t.Errorf("expected 'scene.node_added', got '%s'", e.Name)
		}
	}
}

func TestWebSocketRecentLimit(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "scene.node_added", "", map[string]interface{}{"i": i})
	}

	conn, cleanup := dialEvents(t, "?recent=2")
	defer cleanup()

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	if first.Fields["i"] != float64(3) || second.Fields["i"] != float64(4) {
		t.Errorf("expected the two newest events, got %v and %v", first.Fields["i"], second.Fields["i"])
	}
}

func TestWebSocketReceivesNewEvents(t *testing.T) {
	events.Clear()

	conn, cleanup := dialEvents(t, "")
	defer cleanup()

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "store.saved", "", map[string]interface{}{"scene_id": "weather"})
	}()

	e := readEvent(t, conn)
	if e.Name != "store.saved" {
		t.Errorf("expected 'store.saved', got '%s'", e.Name)
	}
	if e.Fields["scene_id"] != "weather" {
		t.Errorf("expected scene_id 'weather', got '%v'", e.Fields["scene_id"])
	}
}

func TestWebSocketPrefixFilter(t *testing.T) {
	events.Clear()
	events.Emit("info", "store.saved", "", nil)
	events.Emit("info", "history.undo", "", nil)

	conn, cleanup := dialEvents(t, "?prefix=history.,session.")
	defer cleanup()

	if e := readEvent(t, conn); e.Name != "history.undo" {
		t.Errorf("expected recent 'history.undo', got '%s'", e.Name)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "scene.arranged", "", nil)
		events.Emit("info", "session.saved", "", nil)
	}()

	if e := readEvent(t, conn); e.Name != "session.saved" {
		t.Errorf("expected 'session.saved', got '%s'", e.Name)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()

	conn, cleanup := dialEvents(t, "?recent=0")
	defer cleanup()

	go func() {
		time.Sleep(20 * time.Millisecond)
		events.Emit("info", "scene.replaced", "", nil)
	}()
	if e := readEvent(t, conn); e.Name != "scene.replaced" {
		t.Errorf("expected 'scene.replaced', got '%s'", e.Name)
	}

	conn.Close()
	for i := 0; i < 5; i++ {
		events.Emit("info", "scene.replaced", "", nil)
		time.Sleep(50 * time.Millisecond)
	}

	waitFor(t, 5*time.Second, func() bool {
		return events.SubscriberCount() == 0
	}, "subscriber count to return to 0 after close")
}

func TestParseStreamFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/events?prefix=scene.,%20store.&recent=-3", nil)
	f := parseStreamFilter(r)
	if len(f.prefixes) != 2 || f.prefixes[1] != "store." {
		t.Errorf("unexpected prefixes %v", f.prefixes)
	}
	if f.recent != defaultRecentEvents {
		t.Errorf("negative recent should keep the default, got %d", f.recent)
	}
	if !events.MatchesPrefix("store.saved", f.prefixes) || events.MatchesPrefix("history.undo", f.prefixes) {
		t.Error("unexpected match result")
	}
}
