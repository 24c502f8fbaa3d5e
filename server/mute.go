package server

import (
	"fmt"
	"sync"
)

// MutedUser 被屏蔽用户的简要信息
type MutedUser struct {
	ID   int64
	Name string
}

// MuteList 每个连接自己的屏蔽名单；只作为提示数据返回客户端，不拦截投递
type MuteList struct {
	mu      sync.Mutex
	entries map[int64]MutedUser
}

// NewMuteList 创建空的屏蔽名单
func NewMuteList() *MuteList {
	return &MuteList{entries: make(map[int64]MutedUser)}
}

// Mute 返回确认文本；屏蔽自己返回 ok=false
func (m *MuteList) Mute(self int64, target MutedUser) (string, bool) {
	if self == target.ID {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[target.ID]; exists {
		return fmt.Sprintf("User %s is already muted.", target.Name), true
	}
	m.entries[target.ID] = target
	return fmt.Sprintf("User %s has been muted.", target.Name), true
}

// Unmute 与 Mute 对称
func (m *MuteList) Unmute(self int64, target MutedUser) (string, bool) {
	if self == target.ID {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[target.ID]; !exists {
		return fmt.Sprintf("User %s was never muted.", target.Name), true
	}
	delete(m.entries, target.ID)
	return fmt.Sprintf("User %s has been unmuted.", target.Name), true
}

// IsMuted 是否已屏蔽 id
func (m *MuteList) IsMuted(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}

// Len 屏蔽人数
func (m *MuteList) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
