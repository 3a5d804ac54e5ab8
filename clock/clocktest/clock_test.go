package clocktest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	c := New(epoch)
	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(time.Second, func() { order = append(order, "late") })

	c.Advance(500 * time.Millisecond)

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(500*time.Millisecond), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestCallbackSeesDeadlineAndCanReschedule(t *testing.T) {
	c := New(epoch)
	var seen []time.Duration
	var tick func()
	tick = func() {
		seen = append(seen, c.Now().Sub(epoch))
		if len(seen) < 3 {
			c.AfterFunc(200*time.Millisecond, tick)
		}
	}
	c.AfterFunc(200*time.Millisecond, tick)

	c.Advance(time.Second)

	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond}, seen)
}

func TestStop(t *testing.T) {
	c := New(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestStopAfterFire(t *testing.T) {
	c := New(epoch)
	tm := c.AfterFunc(0, func() {})
	c.Advance(0)
	assert.False(t, tm.Stop())
}
