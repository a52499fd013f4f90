package events

import "sync"

// RingBuffer keeps the newest events in emission order, overwriting the
// oldest once full.
type RingBuffer struct {
	mu    sync.RWMutex
	buf   []Event
	start int
	n     int
	total int64
}

// NewRingBuffer returns a buffer holding at most size events.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{buf: make([]Event, size)}
}

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.n < len(rb.buf) {
		rb.buf[(rb.start+rb.n)%len(rb.buf)] = e
		rb.n++
	} else {
		rb.buf[rb.start] = e
		rb.start = (rb.start + 1) % len(rb.buf)
	}
	rb.total++
}

// at returns the i-th held event, 0 being the oldest.
func (rb *RingBuffer) at(i int) Event {
	return rb.buf[(rb.start+i)%len(rb.buf)]
}

// Snapshot returns every held event, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	return rb.Last(0, nil)
}

// Last returns up to n of the newest events accepted by keep, oldest
// first. n <= 0 means no limit; a nil keep accepts everything.
func (rb *RingBuffer) Last(n int, keep func(Event) bool) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var newestFirst []Event
	for i := rb.n - 1; i >= 0; i-- {
		e := rb.at(i)
		if keep != nil && !keep(e) {
			continue
		}
		newestFirst = append(newestFirst, e)
		if n > 0 && len(newestFirst) == n {
			break
		}
	}

	out := make([]Event, len(newestFirst))
	for i, e := range newestFirst {
		out[len(out)-1-i] = e
	}
	return out
}

// Len returns the number of held events.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}

// Total returns the number of events ever added, including overwritten ones.
func (rb *RingBuffer) Total() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf = make([]Event, len(rb.buf))
	rb.start, rb.n, rb.total = 0, 0, 0
}
