package server

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Sender 传输层的发送端；websocket 连接和测试替身都实现它
type Sender interface {
	Send(b []byte) error
	Close() error
}

// Session 一个已接入的客户端：身份、存活标记、发送能力和当前房间
type Session struct {
	id    int64
	name  string
	out   Sender
	alive atomic.Bool
	mutes *MuteList

	mu   sync.Mutex
	room *Room

	// move 串行化同一连接的跨房间移动（切换房间、关闭迁移、断开）；先于任何房间锁获取
	move sync.Mutex
}

// NewSession 创建存活状态的会话
func NewSession(id int64, name string, out Sender) *Session {
	s := &Session{id: id, name: name, out: out, mutes: NewMuteList()}
	s.alive.Store(true)
	return s
}

func (s *Session) ID() int64 { return s.id }
func (s *Session) Name() string { return s.name }
func (s *Session) Alive() bool { return s.alive.Load() }
func (s *Session) Mutes() *MuteList { return s.mutes }
func (s *Session) String() string { return fmt.Sprintf("%s#%d", s.name, s.id) }

// Send 发送失败即视为对端已断开，之后的发送都会返回 ErrSessionClosed
func (s *Session) Send(b []byte) error {
	if !s.alive.Load() {
		return ErrSessionClosed
	}
	if err := s.out.Send(b); err != nil {
		s.alive.Store(false)
		// 关闭底层连接，读协程随之退出并走断开流程
		_ = s.out.Close()
		return fmt.Errorf("send to %s: %w", s, err)
	}
	return nil
}

// Close 标记断开并关闭底层连接
func (s *Session) Close() error {
	if !s.alive.Swap(false) {
		return nil
	}
	return s.out.Close()
}

// Room 当前所在房间，可能为 nil
func (s *Session) Room() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// attach 当前没有房间或已经是 r 时设置为 r；连接已属于其他房间时返回 false
func (s *Session) attach(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil && s.room != r {
		return false
	}
	s.room = r
	return true
}

// detach 仅当当前房间仍是 r 时清空，避免覆盖已迁移到的新房间；返回是否清空
func (s *Session) detach(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != r {
		return false
	}
	s.room = nil
	return true
}
