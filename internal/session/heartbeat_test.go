package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shehryarbajwa/deckard-mini/internal/clock"
)

func TestHeartbeatTicksEveryPeriod(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	ticks := 0
	h := NewHeartbeat(c, time.Second, func() { ticks++ })

	assert.False(t, h.Running())
	h.Start()
	assert.True(t, h.Running())

	c.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, ticks)
	c.Advance(time.Millisecond)
	assert.Equal(t, 1, ticks)
	c.Advance(3 * time.Second)
	assert.Equal(t, 4, ticks)
}

func TestHeartbeatRestartKeepsOneSchedule(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	ticks := 0
	h := NewHeartbeat(c, time.Second, func() { ticks++ })

	h.Start()
	c.Advance(500 * time.Millisecond)
	h.Start()
	h.Start()
	assert.Equal(t, 1, c.Pending())

	c.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, ticks)
	c.Advance(time.Millisecond)
	assert.Equal(t, 1, ticks)
}

func TestHeartbeatStopFromTick(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	ticks := 0
	var h *Heartbeat
	h = NewHeartbeat(c, time.Second, func() {
		ticks++
		h.Stop()
	})

	h.Start()
	c.Advance(10 * time.Second)
	assert.Equal(t, 1, ticks)
	assert.False(t, h.Running())
	assert.Equal(t, 0, c.Pending())

	h.Stop()
	assert.False(t, h.Running())
}
