// Package idgen supplies identifiers for new nodes, edges and scenes.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator returns a fresh identifier on every call.
type Generator interface {
	NewID() string
}

// UUID generates random v4 UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates prefix-1, prefix-2, ... and is meant for tests and
// reproducible fixtures.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewSequence returns a sequence starting at prefix-1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}
