package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"potato-guard/internal/detect"
)

func TestCountersIncrement(t *testing.T) {
	c := NewCounters()

	assert.Equal(t, uint32(1), c.Increment(detect.KindMassBan, "actor"))
	assert.Equal(t, uint32(2), c.Increment(detect.KindMassBan, "actor"))

	// Kinds are independent counters for the same actor.
	assert.Equal(t, uint32(1), c.Increment(detect.KindMassKick, "actor"))
	assert.Equal(t, uint32(2), c.Get(detect.KindMassBan, "actor"))
}

func TestCountersAddWeight(t *testing.T) {
	c := NewCounters()

	assert.Equal(t, uint32(12), c.Add(detect.KindWebhookSpam, "hook", 12))
	assert.Equal(t, uint32(13), c.Add(detect.KindWebhookSpam, "hook", 1))

	// Zero weight reads without materializing an entry.
	assert.Equal(t, uint32(0), c.Add(detect.KindWebhookSpam, "other", 0))
	assert.Equal(t, 1, c.Size())
}

func TestCountersClearAll(t *testing.T) {
	c := NewCounters()
	c.Increment(detect.KindMassBan, "a")
	c.Increment(detect.KindMassDelete, "b")
	assert.Equal(t, 2, c.Size())

	c.ClearAll()

	assert.Equal(t, 0, c.Size())
	assert.Equal(t, uint32(0), c.Get(detect.KindMassBan, "a"))
	// Counting resumes from zero after the window clear.
	assert.Equal(t, uint32(1), c.Increment(detect.KindMassBan, "a"))
}

func TestCountersConcurrentIncrements(t *testing.T) {
	c := NewCounters()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				c.Increment(detect.KindMassPing, "actor")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(800), c.Get(detect.KindMassPing, "actor"))
}
