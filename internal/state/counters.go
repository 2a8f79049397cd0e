package state

import (
	"sync"
	"time"

	"potato-guard/internal/detect"
	"potato-guard/internal/logging"
)

// Counters is the per-kind actor occurrence map backing the fixed-window
// rate heuristics. Counts only ever grow; the sole reset is the global
// clear on a timer. Restarting the process drops all risk state, which is
// accepted for a transient heuristic.
type Counters struct {
	mu     sync.Mutex
	counts map[detect.Kind]map[string]uint32
	stop   chan struct{}
	once   sync.Once
}

func NewCounters() *Counters {
	return &Counters{
		counts: make(map[detect.Kind]map[string]uint32),
		stop:   make(chan struct{}),
	}
}

// Increment bumps the counter for (kind, key) by one and returns the new
// count. Keys are actor IDs, except webhook spam which counts per webhook.
func (c *Counters) Increment(kind detect.Kind, key string) uint32 {
	return c.Add(kind, key, 1)
}

// Add bumps the counter by an arbitrary weight. A zero weight reads the
// current count without materializing an entry (absence means zero).
func (c *Counters) Add(kind detect.Kind, key string, weight uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if weight == 0 {
		return c.counts[kind][key]
	}

	byActor := c.counts[kind]
	if byActor == nil {
		byActor = make(map[string]uint32)
		c.counts[kind] = byActor
	}

	byActor[key] += weight
	return byActor[key]
}

// Get returns the current count without modifying it.
func (c *Counters) Get(kind detect.Kind, key string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind][key]
}

// ClearAll wipes every counter for every kind at once. There is no
// per-actor removal; an actor's effective risk resets only here.
func (c *Counters) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[detect.Kind]map[string]uint32)
}

// Size returns the number of tracked (kind, key) entries.
func (c *Counters) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, byActor := range c.counts {
		n += len(byActor)
	}
	return n
}

// StartSweeper runs the periodic global clear until StopSweeper is called.
func (c *Counters) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.ClearAll()
				logging.Debug("[STATE] Counter window cleared")
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Counters) StopSweeper() {
	c.once.Do(func() { close(c.stop) })
}
