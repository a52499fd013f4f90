// Package mqtt publishes editor events to an MQTT broker, so that other
// tools can follow scene edits and saves without polling the API.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/FrameScene/internal/events"
)

// ErrNotConnected is returned by Append while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt not connected")

// Conn is the part of Client the publisher needs.
type Conn interface {
	Publish(topic string, payload []byte, retained bool) error
	IsConnected() bool
}

// Publisher is an events.Sink. Every event goes to
// <prefix>/<frame>/events/<name with dots as slashes>. store.saved and
// store.deleted also update the retained <prefix>/<frame>/scenes/<id>
// topic, which holds the scene's fingerprint or is cleared.
type Publisher struct {
	conn    Conn
	prefix  string
	frameID string
}

// NewPublisher returns a publisher for one frame.
func NewPublisher(conn Conn, prefix, frameID string) *Publisher {
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "/"), frameID: frameID}
}

// EventTopic returns the topic an event is published on.
func (p *Publisher) EventTopic(name string) string {
	return fmt.Sprintf("%s/%s/events/%s", p.prefix, p.frameID, strings.ReplaceAll(name, ".", "/"))
}

// SceneTopic returns the retained topic of a scene.
func (p *Publisher) SceneTopic(sceneID string) string {
	return fmt.Sprintf("%s/%s/scenes/%s", p.prefix, p.frameID, sceneID)
}

// Append publishes e.
func (p *Publisher) Append(e events.Event) error {
	if !p.conn.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.EventTopic(e.Name), payload, false); err != nil {
		return err
	}

	sceneID, _ := e.Fields["scene_id"].(string)
	if sceneID == "" {
		return nil
	}
	switch e.Name {
	case "store.saved":
		fp, _ := e.Fields["fingerprint"].(string)
		return p.conn.Publish(p.SceneTopic(sceneID), []byte(fp), true)
	case "store.deleted":
		// An empty retained message clears the topic.
		return p.conn.Publish(p.SceneTopic(sceneID), nil, true)
	}
	return nil
}
