package events

import (
	"strings"
	"sync"
)

// subscriberBuffer is the channel capacity of a subscriber. Emit never
// blocks; a subscriber that falls this far behind loses events.
const subscriberBuffer = 64

// Subscriber receives the events its subscription matches.
type Subscriber chan Event

type subscription struct {
	prefixes []string
	dropped  int64
}

var hub = struct {
	mu      sync.RWMutex
	subs    map[Subscriber]*subscription
	dropped int64
}{subs: make(map[Subscriber]*subscription)}

// MatchesPrefix reports whether an event name starts with one of prefixes.
// No prefixes match every name.
func MatchesPrefix(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Subscribe registers a subscriber for events whose names start with one
// of prefixes, or for every event when none are given.
func Subscribe(prefixes ...string) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	hub.mu.Lock()
	hub.subs[ch] = &subscription{prefixes: append([]string(nil), prefixes...)}
	hub.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unsubscribing
// twice, or after CloseAllSubscribers, is a no-op.
func Unsubscribe(sub Subscriber) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.subs[sub]; !ok {
		return
	}
	delete(hub.subs, sub)
	close(sub)
}

func broadcast(e Event) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch, s := range hub.subs {
		if !MatchesPrefix(e.Name, s.prefixes) {
			continue
		}
		select {
		case ch <- e:
		default:
			s.dropped++
			hub.dropped++
		}
	}
}

// CloseAllSubscribers removes and closes every subscriber. Called on
// shutdown so websocket writers can exit.
func CloseAllSubscribers() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for ch := range hub.subs {
		delete(hub.subs, ch)
		close(ch)
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs)
}

// Dropped returns how many events sub missed because its buffer was full.
func Dropped(sub Subscriber) int64 {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if s, ok := hub.subs[sub]; ok {
		return s.dropped
	}
	return 0
}

// DroppedTotal returns the number of events lost by slow subscribers since
// startup, including subscribers that are gone.
func DroppedTotal() int64 {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return hub.dropped
}

// RecentEvents returns up to n of the newest buffered events matching
// prefixes, oldest first. n <= 0 returns every match.
func RecentEvents(n int, prefixes ...string) []Event {
	return buffer.Last(n, func(e Event) bool {
		return MatchesPrefix(e.Name, prefixes)
	})
}
