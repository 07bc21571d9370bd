package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var fired []string

	c.AfterFunc(1700*time.Millisecond, func() { fired = append(fired, "cold") })
	c.AfterFunc(700*time.Millisecond, func() { fired = append(fired, "warm") })

	c.Advance(699 * time.Millisecond)
	assert.Empty(t, fired)

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"warm"}, fired)

	c.Advance(time.Second)
	assert.Equal(t, []string{"warm", "cold"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeRearmDuringAdvance(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(2*time.Second, tick)
	}
	c.AfterFunc(2*time.Second, tick)

	c.Advance(7 * time.Second)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, time.Unix(7, 0), c.Now())
}
