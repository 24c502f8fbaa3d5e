package server

import (
	"sync"
	"time"
)

// Timer 可取消的一次性定时器
type Timer interface {
	Stop() bool
}

// Scheduler 定时回调的来源；测试中可替换为手动触发
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler 基于 time.AfterFunc
var RealScheduler Scheduler = realScheduler{}

// Countdown 一次性倒计时：ticks 个 tick 后调用回调，触发前可随时取消
type Countdown struct {
	Name  string
	Ticks int

	mu        sync.Mutex
	timer     Timer
	cancelled bool
	fired     bool
}

// NewCountdown 创建并立即开始计时
func NewCountdown(s Scheduler, name string, ticks int, tick time.Duration, fn func()) *Countdown {
	c := &Countdown{Name: name, Ticks: ticks}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = s.AfterFunc(time.Duration(ticks)*tick, func() {
		c.mu.Lock()
		if c.cancelled || c.fired {
			c.mu.Unlock()
			return
		}
		c.fired = true
		c.mu.Unlock()
		fn()
	})
	return c
}

// Cancel 幂等，可在任意 goroutine 调用；已触发的倒计时取消无效果
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled || c.fired {
		return
	}
	c.cancelled = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Fired 回调是否已开始执行
func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Cancelled 是否在触发前被取消
func (c *Countdown) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
