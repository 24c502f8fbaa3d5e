package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	FrameCount       int64 // 更新循环执行次数
	CommandsAccepted int64 // 被执行的游戏指令
	CommandsRejected int64 // 因阶段 / 身份不符被忽略的指令
	Evictions        int64 // 发送失败被移出名单的成员
	GamesStarted     int64
	GamesFinished    int64
	ShipsPlaced      int64
	Attacks          int64
	Hits             int64
	TotalFrameNs     int64 // 更新循环累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted() { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *RoomMetrics) IncRejected() { atomic.AddInt64(&m.CommandsRejected, 1) }
func (m *RoomMetrics) IncEvictions() { atomic.AddInt64(&m.Evictions, 1) }
func (m *RoomMetrics) IncGamesStarted() { atomic.AddInt64(&m.GamesStarted, 1) }
func (m *RoomMetrics) IncGamesFinished() { atomic.AddInt64(&m.GamesFinished, 1) }
func (m *RoomMetrics) IncShipsPlaced() { atomic.AddInt64(&m.ShipsPlaced, 1) }
func (m *RoomMetrics) IncAttacks() { atomic.AddInt64(&m.Attacks, 1) }
func (m *RoomMetrics) IncHits() { atomic.AddInt64(&m.Hits, 1) }
func (m *RoomMetrics) AddFrame(ns int64) {
	atomic.AddInt64(&m.FrameCount, 1)
	atomic.AddInt64(&m.TotalFrameNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	frames := atomic.LoadInt64(&m.FrameCount)
	total := atomic.LoadInt64(&m.TotalFrameNs)
	var avgMs float64
	if frames > 0 {
		avgMs = float64(total) / float64(frames) / 1e6
	}
	return map[string]any{
		"frame_count":       frames,
		"commands_accepted": atomic.LoadInt64(&m.CommandsAccepted),
		"commands_rejected": atomic.LoadInt64(&m.CommandsRejected),
		"evictions":         atomic.LoadInt64(&m.Evictions),
		"games_started":     atomic.LoadInt64(&m.GamesStarted),
		"games_finished":    atomic.LoadInt64(&m.GamesFinished),
		"ships_placed":      atomic.LoadInt64(&m.ShipsPlaced),
		"attacks":           atomic.LoadInt64(&m.Attacks),
		"hits":              atomic.LoadInt64(&m.Hits),
		"avg_frame_ms":      avgMs,
	}
}
