package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"battleroom/protocol"
)

const (
	// ListLimitMax LIST_ROOMS 单次最多返回的房间数
	ListLimitMax = 100
	// ListLimitDefault 未指定 limit 时使用
	ListLimitDefault = 10
)

// Directory 管理房间的生命周期：按名字查找、创建、移除，并持有常驻的大厅
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	lobby *Room

	cfg    *Config
	sched  Scheduler
	nextID atomic.Int64
}

// NewDirectory 创建目录并启动大厅
func NewDirectory(cfg *Config, sched Scheduler) *Directory {
	if sched == nil {
		sched = RealScheduler
	}
	d := &Directory{rooms: make(map[string]*Room), cfg: cfg, sched: sched}
	d.lobby = NewRoom(cfg.Lobby.Name, d, RoomOptions{
		Lobby:     true,
		Rules:     cfg.Game,
		Frames:    cfg.Frames,
		Scheduler: sched,
	})
	d.rooms[d.lobby.key] = d.lobby
	d.lobby.StartTicker()
	Log.Infof("directory: lobby %q ready", cfg.Lobby.Name)
	return d
}

// Lobby 常驻大厅
func (d *Directory) Lobby() *Room { return d.lobby }

// NewSession 分配连接 id
func (d *Directory) NewSession(name string, out Sender) *Session {
	return NewSession(d.nextID.Add(1), name, out)
}

// Get 按名字（不区分大小写）查找房间
func (d *Directory) Get(name string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomKey(name)]
	return r, ok
}

func (d *Directory) create(name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRoomName
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := roomKey(name)
	if _, ok := d.rooms[key]; ok {
		return nil, fmt.Errorf("create %s: %w", name, ErrRoomExists)
	}
	r := NewRoom(name, d, RoomOptions{
		Game:      true,
		Rules:     d.cfg.Game,
		Frames:    d.cfg.Frames,
		Scheduler: d.sched,
	})
	d.rooms[key] = r
	r.StartTicker()
	Log.Infof("directory: created room %s (%d rooms)", name, len(d.rooms))
	return r, nil
}

// CreateRoom 创建房间后把发起者移入；重名时通知发起者
func (d *Directory) CreateRoom(name string, s *Session) error {
	r, err := d.create(name)
	if err != nil {
		Log.Infof("directory: %s create %q: %v", s, name, err)
		if errors.Is(err, ErrInvalidRoomName) {
			d.notify(s, "Room name must not be empty")
		} else {
			d.notify(s, fmt.Sprintf("Room %s already exists", name))
		}
		return err
	}
	d.notify(s, fmt.Sprintf("Created a new room %s", strings.TrimSpace(name)))
	if err := d.move(s, r); err != nil {
		r.CloseIfUnused()
		return err
	}
	return nil
}

// JoinRoom 名字为空时回到大厅；房间不存在时通知发起者
func (d *Directory) JoinRoom(name string, s *Session) error {
	if strings.TrimSpace(name) == "" {
		return d.move(s, d.lobby)
	}
	r, ok := d.Get(name)
	if !ok {
		d.notify(s, fmt.Sprintf("Room %s doesn't exist", name))
		return fmt.Errorf("join %s: %w", name, ErrRoomNotFound)
	}
	return d.move(s, r)
}

// move 先离开当前房间再加入目标房间，两个房间的锁不会同时持有；
// 持有连接的 move 锁，与关闭迁移、断开互斥
func (d *Directory) move(s *Session, target *Room) error {
	s.move.Lock()
	defer s.move.Unlock()
	cur := s.Room()
	if cur == target {
		return target.Join(s)
	}
	if cur != nil {
		cur.Leave(s)
		// 已关闭的房间不会再 detach，这里补上
		s.detach(cur)
	}
	if err := target.Join(s); err != nil {
		// 目标在我们离开旧房间的间隙关闭了
		Log.Warnf("directory: %s join %s: %v, falling back to lobby", s, target.key, err)
		if target == d.lobby {
			return err
		}
		if lerr := d.lobby.Join(s); lerr != nil {
			return lerr
		}
		return err
	}
	return nil
}

// RemoveRoom 房间关闭后回调；只删除仍指向 r 的条目，大厅永不移除
func (d *Directory) RemoveRoom(r *Room) {
	if r == d.lobby {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.rooms[r.key]; ok && cur == r {
		delete(d.rooms, r.key)
		Log.Infof("directory: removed room %s (%d rooms)", r.key, len(d.rooms))
	}
}

// ListRooms 名字包含 search（不区分大小写）的房间，按名字排序，最多 limit 个
func (d *Directory) ListRooms(search string, limit int) ([]string, error) {
	if limit < 1 || limit > ListLimitMax {
		return nil, ErrInvalidLimit
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()

	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		name := r.Name()
		if name == "" {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(name), needle) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	if len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// Disconnect 连接断开：离开当前房间并关闭会话
func (d *Directory) Disconnect(s *Session) {
	s.move.Lock()
	if r := s.Room(); r != nil {
		r.Leave(s)
		s.detach(r)
	}
	_ = s.Close()
	s.move.Unlock()
	Log.Infof("directory: %s disconnected", s)
}

// CloseRoom 管理接口关闭房间，成员迁往大厅
func (d *Directory) CloseRoom(name string) error {
	r, ok := d.Get(name)
	if !ok {
		return fmt.Errorf("close %s: %w", name, ErrRoomNotFound)
	}
	if r == d.lobby {
		return fmt.Errorf("close %s: lobby cannot be closed", name)
	}
	if !r.Close() {
		return fmt.Errorf("close %s: %w", name, ErrRoomClosed)
	}
	return nil
}

// Rooms 所有房间的概况，按名字排序
func (d *Directory) Rooms() []RoomInfo {
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if info := r.Info(); info.Name != "" {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown 停止所有房间的更新循环和倒计时
func (d *Directory) Shutdown() {
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.RUnlock()
	for _, r := range rooms {
		r.Stop()
	}
	Log.Infof("directory: stopped %d rooms", len(rooms))
}

// notify 以 [Announcer] 身份单独发给 s，不经过任何房间
func (d *Directory) notify(s *Session, text string) {
	b, err := protocol.Encode(protocol.KindMessage, protocol.Chat{
		ClientID: DefaultClientID, ClientName: announcerName, Text: text,
	})
	if err != nil {
		Log.Errorf("directory: encode notice: %v", err)
		return
	}
	if err := s.Send(b); err != nil {
		Log.Warnf("directory: notify %s: %v", s, err)
	}
}
