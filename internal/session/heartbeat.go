package session

import (
	"sync"
	"time"

	"github.com/shehryarbajwa/deckard-mini/internal/clock"
)

// Heartbeat calls tick every period until stopped. At most one schedule
// exists: Start cancels the previous one before arming a new one.
type Heartbeat struct {
	clock  clock.Clock
	period time.Duration
	tick   func()

	mu    sync.Mutex
	timer clock.Timer
	epoch uint64
}

// NewHeartbeat creates a stopped heartbeat
func NewHeartbeat(c clock.Clock, period time.Duration, tick func()) *Heartbeat {
	return &Heartbeat{clock: c, period: period, tick: tick}
}

// Start (re)arms the schedule
func (h *Heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	epoch := h.epoch
	h.timer = h.clock.AfterFunc(h.period, func() { h.fire(epoch) })
}

// Stop cancels the schedule; it is safe to call when stopped
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

// Running reports whether a schedule is armed
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timer != nil
}

func (h *Heartbeat) fire(epoch uint64) {
	h.mu.Lock()
	if epoch != h.epoch || h.timer == nil {
		h.mu.Unlock()
		return
	}
	h.timer = h.clock.AfterFunc(h.period, func() { h.fire(epoch) })
	h.mu.Unlock()

	h.tick()
}

func (h *Heartbeat) stopLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.epoch++
}
