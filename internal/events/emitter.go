package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

// Sink receives every emitted event, for example a database event log or
// a message broker.
type Sink interface {
	Append(e Event) error
}

type sinkEntry struct {
	name        string
	sink        Sink
	errorLogged bool
}

var (
	sinks   []*sinkEntry
	sinksMu sync.RWMutex
)

// AddSink registers a sink under name, replacing any sink with that name.
func AddSink(name string, s Sink) {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	for _, e := range sinks {
		if e.name == name {
			e.sink = s
			e.errorLogged = false
			return
		}
	}
	sinks = append(sinks, &sinkEntry{name: name, sink: s})
}

// RemoveSink unregisters the sink with the given name.
func RemoveSink(name string) {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	for i, e := range sinks {
		if e.name == name {
			sinks = append(sinks[:i], sinks[i+1:]...)
			return
		}
	}
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Time parses the event timestamp.
func (e Event) Time() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, e.Timestamp)
	return t
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	sinksMu.RLock()
	current := append([]*sinkEntry(nil), sinks...)
	sinksMu.RUnlock()

	for _, entry := range current {
		if err := entry.sink.Append(e); err != nil {
			// Report once per sink. The error event goes straight to the
			// ring buffer so a failing sink cannot recurse through Emit.
			sinksMu.Lock()
			first := !entry.errorLogged
			entry.errorLogged = true
			sinksMu.Unlock()
			if first {
				buffer.Add(Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   entry.name + " append failed",
					Fields: map[string]interface{}{
						"error": err.Error(),
					},
				})
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since start or Clear.
func TotalCount() int64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
