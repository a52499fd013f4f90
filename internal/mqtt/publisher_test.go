package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/AaronLay10/FrameScene/internal/events"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// MockConn records publishes instead of talking to a broker.
type MockConn struct {
	mu        sync.Mutex
	messages  []published
	connected bool
	err       error
}

func NewMockConn() *MockConn {
	return &MockConn{connected: true}
}

func (m *MockConn) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (m *MockConn) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockConn) Messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.messages...)
}

func TestPublisherTopics(t *testing.T) {
	p := NewPublisher(NewMockConn(), "home/frames/", "kitchen")
	if got := p.EventTopic("scene.node_added"); got != "home/frames/kitchen/events/scene/node_added" {
		t.Errorf("EventTopic = %q", got)
	}
	if got := p.SceneTopic("weather"); got != "home/frames/kitchen/scenes/weather" {
		t.Errorf("SceneTopic = %q", got)
	}
	if got := StatusTopic("home/frames/", "kitchen"); got != "home/frames/kitchen/status" {
		t.Errorf("StatusTopic = %q", got)
	}
}

func TestPublisherPublishesEvent(t *testing.T) {
	conn := NewMockConn()
	p := NewPublisher(conn, "framescene", "kitchen")

	e := events.Event{Timestamp: "2026-01-01T00:00:00Z", Level: "info", Name: "scene.edge_added", Fields: map[string]interface{}{"edge_id": "e1"}}
	if err := p.Append(e); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	msgs := conn.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].topic != "framescene/kitchen/events/scene/edge_added" || msgs[0].retained {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	var decoded events.Event
	if err := json.Unmarshal(msgs[0].payload, &decoded); err != nil {
		t.Fatalf("payload is not an event: %v", err)
	}
	if decoded.Name != "scene.edge_added" || decoded.Fields["edge_id"] != "e1" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestPublisherRetainsSceneFingerprint(t *testing.T) {
	conn := NewMockConn()
	p := NewPublisher(conn, "framescene", "kitchen")

	p.Append(events.Event{Name: "store.saved", Fields: map[string]interface{}{"scene_id": "weather", "fingerprint": "abc"}})
	p.Append(events.Event{Name: "store.deleted", Fields: map[string]interface{}{"scene_id": "weather"}})

	msgs := conn.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	saved := msgs[1]
	if saved.topic != "framescene/kitchen/scenes/weather" || !saved.retained || string(saved.payload) != "abc" {
		t.Errorf("unexpected retained save %+v", saved)
	}
	cleared := msgs[3]
	if cleared.topic != "framescene/kitchen/scenes/weather" || !cleared.retained || len(cleared.payload) != 0 {
		t.Errorf("unexpected retained clear %+v", cleared)
	}
}

func TestPublisherErrors(t *testing.T) {
	conn := NewMockConn()
	conn.connected = false
	p := NewPublisher(conn, "framescene", "kitchen")

	if err := p.Append(events.Event{Name: "store.saved"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	conn.connected = true
	conn.err = &TimeoutError{Op: "publish", Topic: "x"}
	err := p.Append(events.Event{Name: "store.saved"})
	var timeout *TimeoutError
	if !errors.As(err, &timeout) || timeout.Op != "publish" {
		t.Errorf("expected publish timeout, got %v", err)
	}
	if len(conn.Messages()) != 0 {
		t.Error("nothing should have been published")
	}
}

var _ events.Sink = (*Publisher)(nil)
var _ Conn = (*Client)(nil)
