// Package testutil provides deterministic clocks and identifier
// generators for tests that compare stored timestamps and ids exactly.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns strictly increasing timestamps from a fixed base, one
// step apart. Injected wherever production code defaults to time.Now, so
// creation-time ordering in tests is exact and repeatable.
type Clock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewClock creates a clock starting at base, advancing by step per call.
func NewClock(base time.Time, step time.Duration) *Clock {
	return &Clock{next: base, step: step}
}

// Now returns the current tick and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// IDGen returns sequential ids with a fixed prefix: prefix-001,
// prefix-002, ... Sequential ids sort in generation order, matching the
// UUIDv7 property the production generator relies on.
type IDGen struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDGen creates a generator with the given prefix.
func NewIDGen(prefix string) *IDGen {
	return &IDGen{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGen) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
