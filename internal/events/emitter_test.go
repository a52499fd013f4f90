package events

import (
	"errors"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Append(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	if _, err := Emit("info", "scene.rendered", "", nil); err == nil {
		t.Error("expected unknown event to be rejected")
	}
}

func TestEmitReturnsJSON(t *testing.T) {
	b, err := Emit("info", "scene.edge_added", "connected", map[string]interface{}{"edge_id": "e1"})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(b) == 0 || b[0] != '{' {
		t.Errorf("expected JSON object, got %s", b)
	}
}

func TestSinkReceivesEvents(t *testing.T) {
	sink := &recordingSink{}
	AddSink("test", sink)
	defer RemoveSink("test")

	Emit("info", "store.saved", "", map[string]interface{}{"scene_id": "s1"})
	Emit("info", "store.deleted", "", map[string]interface{}{"scene_id": "s1"})

	if sink.count() != 2 {
		t.Errorf("expected 2 events in sink, got %d", sink.count())
	}
}

func TestFailingSinkReportedOnce(t *testing.T) {
	Clear()
	sink := &recordingSink{err: errors.New("broker down")}
	AddSink("failing", sink)
	defer RemoveSink("failing")

	for i := 0; i < 3; i++ {
		Emit("info", "scene.replaced", "", nil)
	}

	errorsSeen := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			errorsSeen++
			if e.Message != "failing append failed" {
				t.Errorf("unexpected message %q", e.Message)
			}
		}
	}
	if errorsSeen != 1 {
		t.Errorf("expected 1 system.error event, got %d", errorsSeen)
	}
	if sink.count() != 3 {
		t.Errorf("expected sink to keep receiving events, got %d", sink.count())
	}
}

func TestTotalCountSurvivesWraparound(t *testing.T) {
	Clear()
	for i := 0; i < 300; i++ {
		Emit("debug", "scene.node_updated", "", nil)
	}
	if got := len(Snapshot()); got != 256 {
		t.Errorf("expected ring buffer to hold 256 events, got %d", got)
	}
	if got := TotalCount(); got != 300 {
		t.Errorf("expected total count 300, got %d", got)
	}
}
