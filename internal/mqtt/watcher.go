package mqtt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/FrameScene/internal/events"
)

// Subscriber is the part of Client the watcher needs.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Update is one message seen by a Watcher. Event is set for messages on
// the events tree; SceneID and Fingerprint for the retained scene topics,
// where an empty Fingerprint means the scene was deleted. Presence is set
// for the frame's status topic.
type Update struct {
	Topic       string
	Event       *events.Event
	SceneID     string
	Fingerprint string
	Presence    string
}

// Watcher follows the topics a Publisher writes for one frame.
// Subscriptions are tracked so that Watch is idempotent across reconnects.
type Watcher struct {
	mu         sync.RWMutex
	sub        Subscriber
	prefix     string
	frameID    string
	handle     func(Update)
	subscribed map[string]bool
}

// NewWatcher creates a watcher that calls handle for every message.
func NewWatcher(sub Subscriber, prefix, frameID string, handle func(Update)) *Watcher {
	return &Watcher{
		sub:        sub,
		prefix:     strings.TrimSuffix(prefix, "/"),
		frameID:    frameID,
		handle:     handle,
		subscribed: make(map[string]bool),
	}
}

// Topics returns the wildcard topics the watcher subscribes to.
func (w *Watcher) Topics() []string {
	return []string{
		fmt.Sprintf("%s/%s/events/#", w.prefix, w.frameID),
		fmt.Sprintf("%s/%s/scenes/+", w.prefix, w.frameID),
		StatusTopic(w.prefix, w.frameID),
	}
}

// Watch subscribes to every topic not yet subscribed.
func (w *Watcher) Watch() error {
	for _, topic := range w.Topics() {
		if w.IsSubscribed(topic) {
			continue
		}
		if err := w.sub.Subscribe(topic, w.onMessage); err != nil {
			return err
		}
		w.mu.Lock()
		w.subscribed[topic] = true
		w.mu.Unlock()
	}
	return nil
}

func (w *Watcher) onMessage(_ paho.Client, msg paho.Message) {
	u, ok := w.decode(msg.Topic(), msg.Payload())
	if ok {
		w.handle(u)
	}
}

// decode turns a message into an Update. Messages that are not valid
// events are dropped.
func (w *Watcher) decode(topic string, payload []byte) (Update, bool) {
	if topic == StatusTopic(w.prefix, w.frameID) {
		if len(payload) == 0 {
			return Update{}, false
		}
		return Update{Topic: topic, Presence: string(payload)}, true
	}
	scenes := fmt.Sprintf("%s/%s/scenes/", w.prefix, w.frameID)
	if id, ok := strings.CutPrefix(topic, scenes); ok {
		return Update{Topic: topic, SceneID: id, Fingerprint: string(payload)}, true
	}

	var e events.Event
	if err := json.Unmarshal(payload, &e); err != nil || e.Name == "" {
		return Update{}, false
	}
	return Update{Topic: topic, Event: &e}, true
}

// IsSubscribed returns true if the topic is already subscribed.
func (w *Watcher) IsSubscribed(topic string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.subscribed[topic]
}

// SubscribedTopics returns the subscribed topics in sorted order.
func (w *Watcher) SubscribedTopics() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	topics := make([]string, 0, len(w.subscribed))
	for topic := range w.subscribed {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// ClearSubscriptions forgets the subscriptions. Call this on disconnect
// so that the next Watch subscribes again.
func (w *Watcher) ClearSubscriptions() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribed = make(map[string]bool)
}
