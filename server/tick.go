package server

import (
	"time"

	"battleroom/protocol"
)

const (
	// TicksPerSecond 默认移动更新频率（20 TPS）
	TicksPerSecond = 20
)

// StartTicker 启动房间的更新循环：按朝向移动玩家，每 SyncEvery 帧同步一次有变化的位置
func (r *Room) StartTicker() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil || r.name == "" || r.frames.TicksPerSecond <= 0 {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	interval := time.Second / time.Duration(r.frames.TicksPerSecond)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				start := time.Now()
				r.Step()
				r.metrics.AddFrame(time.Since(start).Nanoseconds())
			}
		}
	}()
}

func (r *Room) stopTickerLocked() {
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// Step 推进一帧；更新循环调用，测试也可直接驱动
func (r *Room) Step() {
	r.mu.Lock()
	defer r.unlock()
	if r.name == "" {
		return
	}
	r.frame++
	area := r.area()
	for _, cp := range r.clients {
		cp.Player.Move(r.frames.Speed, area)
	}
	if r.frames.SyncEvery <= 0 || r.frame%int64(r.frames.SyncEvery) != 0 {
		return
	}
	for _, cp := range r.clients {
		if cp.Player.TakeMoved() {
			r.broadcastLocked(protocol.KindPosition, protocol.Position{ClientID: cp.Session.ID(), Point: cp.Player.Position})
		}
	}
}
