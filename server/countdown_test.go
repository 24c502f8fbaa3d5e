package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownFiresAfterTicks(t *testing.T) {
	sched := &manualScheduler{}
	calls := 0
	c := NewCountdown(sched, "ready", 5, time.Second, func() { calls++ })

	sched.advance(4 * time.Second)
	assert.Equal(t, 0, calls)
	assert.False(t, c.Fired())

	sched.advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.True(t, c.Fired())

	sched.advance(time.Hour)
	assert.Equal(t, 1, calls, "one-shot")
}

func TestCountdownCancelBeforeFire(t *testing.T) {
	sched := &manualScheduler{}
	calls := 0
	c := NewCountdown(sched, "phase", 3, time.Second, func() { calls++ })

	c.Cancel()
	c.Cancel()
	assert.True(t, c.Cancelled())
	assert.Equal(t, 0, sched.pending())

	sched.advance(time.Minute)
	assert.Equal(t, 0, calls)
}

func TestCountdownCancelAfterFireIsNoop(t *testing.T) {
	sched := &manualScheduler{}
	c := NewCountdown(sched, "phase", 1, time.Second, func() {})
	sched.advance(time.Second)
	require.True(t, c.Fired())

	c.Cancel()
	assert.False(t, c.Cancelled())
}

// 定时器已经触发但回调还没拿到锁时取消，回调不能再执行
type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

type leakyScheduler struct{ f func() }

func (s *leakyScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.f = f
	return leakyTimer{}
}

func TestCountdownCancelWinsOverStoppedTimer(t *testing.T) {
	sched := &leakyScheduler{}
	calls := 0
	c := NewCountdown(sched, "ready", 1, time.Second, func() { calls++ })
	c.Cancel()
	sched.f()
	assert.Equal(t, 0, calls)
	assert.False(t, c.Fired())
}
