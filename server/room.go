package server

import (
	"strings"
	"sync"

	"battleroom/protocol"
)

const (
	// DefaultClientID 系统消息的发送者 id
	DefaultClientID int64 = -1
	announcerName         = "[Announcer]"
)

// Host 房间需要的目录服务能力：大厅、跨房间移动与移除
type Host interface {
	Lobby() *Room
	JoinRoom(name string, s *Session) error
	CreateRoom(name string, s *Session) error
	RemoveRoom(r *Room)
}

// RoomOptions 创建房间的参数
type RoomOptions struct {
	Lobby     bool // 大厅不会因为空而关闭
	Game      bool // 是否承载对战
	Rules     GameRules
	Frames    FrameConfig
	Scheduler Scheduler
}

// Room 房间：名单、船只、阶段与倒计时都由 mu 保护，同一房间的修改互斥
type Room struct {
	key  string // 目录中的键（小写名），创建后不变
	host Host

	mu         sync.Mutex
	name       string // 关闭后为空
	lobby      bool
	game       bool
	rules      GameRules
	frames     FrameConfig
	sched      Scheduler
	clients    []*ClientPlayer
	ships      []*Ship
	nextShipID int
	state      GameState
	turn       int
	countdowns map[countdownKind]*Countdown

	evicted      []*Session // 本次临界区内因发送失败被移出的成员
	removed      bool       // 本次临界区内有成员被移出；只有这时变空才关闭
	attackerLeft bool

	stop  chan struct{}
	frame int64

	metrics *RoomMetrics
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(name string, host Host, opts RoomOptions) *Room {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler
	}
	return &Room{
		key:        roomKey(name),
		host:       host,
		name:       name,
		lobby:      opts.Lobby,
		game:       opts.Game,
		rules:      opts.Rules,
		frames:     opts.Frames,
		sched:      opts.Scheduler,
		state:      StateLobby,
		turn:       -1,
		countdowns: make(map[countdownKind]*Countdown),
		metrics:    &RoomMetrics{},
	}
}

func roomKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Name 房间名；已关闭返回空串
func (r *Room) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Closed 是否已关闭
func (r *Room) Closed() bool { return r.Name() == "" }

// IsLobby 是否为常驻大厅
func (r *Room) IsLobby() bool { return r.lobby }

// Metrics 房间运行指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// State 当前阶段
func (r *Room) State() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Members 名单快照（按加入顺序）
func (r *Room) Members() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.clients))
	for _, cp := range r.clients {
		out = append(out, cp.Session)
	}
	return out
}

// PlayerOf 返回成员玩家状态的副本
func (r *Room) PlayerOf(s *Session) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := r.find(s)
	if cp == nil {
		return Player{}, false
	}
	return *cp.Player, true
}

// Ships 船只快照
func (r *Room) Ships() []Ship {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Ship, 0, len(r.ships))
	for _, s := range r.ships {
		out = append(out, *s)
	}
	return out
}

// RoomInfo 管理接口输出
type RoomInfo struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Members int    `json:"members"`
	Ships   int    `json:"ships"`
	Game    bool   `json:"game"`
}

// Info 房间概况快照
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{Name: r.name, State: r.state.String(), Members: len(r.clients), Ships: len(r.ships), Game: r.game}
}

// Rules 当前规则副本
func (r *Room) Rules() GameRules {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules
}

// UpdateRules 热更新规则，校验失败时保持原值
func (r *Room) UpdateRules(fn func(*GameRules)) error {
	r.mu.Lock()
	defer r.unlock()
	next := r.rules
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	r.rules = next
	return nil
}

func (r *Room) area() protocol.GameArea {
	return protocol.GameArea{Width: r.rules.AreaWidth, Height: r.rules.AreaHeight}
}

// Join 将连接加入房间；已在名单中的连接只重新同步，不重建玩家
func (r *Room) Join(s *Session) error {
	r.mu.Lock()
	defer r.unlock()
	if r.name == "" {
		return ErrRoomClosed
	}
	if !s.attach(r) {
		Log.Warnf("room %s: %s is still in another room", r.name, s)
		return ErrInOtherRoom
	}
	if cp := r.find(s); cp != nil {
		Log.Infof("room %s: %s already in roster, resyncing", r.name, s)
		r.syncLocked(cp)
		return nil
	}
	cp := &ClientPlayer{Session: s, Player: &Player{}}
	r.clients = append(r.clients, cp)
	Log.Infof("room %s: %s joined (%d members)", r.name, s, len(r.clients))
	r.syncLocked(cp)
	return nil
}

// syncLocked 向新成员补发房间现状，并把它的出生点告诉所有人
func (r *Room) syncLocked(cp *ClientPlayer) {
	s := cp.Session
	r.sendLocked(s, protocol.KindJoinRoom, protocol.JoinedRoom{Name: r.name})
	for _, other := range r.clients {
		if other != cp {
			r.sendLocked(s, protocol.KindConnectionStatus, protocol.ConnectionStatus{
				ClientID: other.Session.ID(), ClientName: other.Session.Name(), Connected: true,
			})
		}
	}
	r.broadcastLocked(protocol.KindConnectionStatus, protocol.ConnectionStatus{
		ClientID: s.ID(), ClientName: s.Name(), Connected: true, Message: "joined the room " + r.name,
	})
	cp.Player.Position = randomPosition(r.area())
	r.broadcastLocked(protocol.KindPosition, protocol.Position{ClientID: s.ID(), Point: cp.Player.Position})
	for _, other := range r.clients {
		if other != cp {
			r.sendLocked(s, protocol.KindDirection, protocol.Position{ClientID: other.Session.ID(), Point: other.Player.Direction})
			r.sendLocked(s, protocol.KindPosition, protocol.Position{ClientID: other.Session.ID(), Point: other.Player.Position})
		}
	}
	r.sendLocked(s, protocol.KindGameArea, r.area())
	r.sendLocked(s, protocol.KindPhase, protocol.Phase{State: r.state.String()})
}

// Leave 移出名单；房间变空时自行关闭并交还目录
func (r *Room) Leave(s *Session) {
	r.mu.Lock()
	defer r.unlock()
	i := r.indexOf(s)
	if i < 0 {
		Log.Warnf("room %s: leave for %s, not in roster", r.name, s)
		return
	}
	r.removeAtLocked(i)
	Log.Infof("room %s: %s left (%d members)", r.name, s, len(r.clients))
	if len(r.clients) > 0 {
		r.broadcastLocked(protocol.KindConnectionStatus, protocol.ConnectionStatus{
			ClientID: s.ID(), ClientName: s.Name(), Connected: false, Message: "left the room " + r.name,
		})
		r.checkPlayersLocked()
	}
}

// Close 把剩余成员迁移到大厅，从目录移除并停止更新循环；大厅和已关闭的房间返回 false
func (r *Room) Close() bool {
	r.mu.Lock()
	if r.lobby || r.name == "" {
		r.mu.Unlock()
		return false
	}
	members := r.clients
	r.clients = nil
	name := r.name
	r.shutdownLocked()
	r.mu.Unlock()

	// 不持有本房间锁时再进入大厅；成员若已自行移到别处则跳过
	if len(members) > 0 {
		Log.Infof("room %s: migrating %d members to lobby", name, len(members))
		lobby := r.host.Lobby()
		for _, cp := range members {
			r.migrate(cp.Session, lobby)
		}
	}
	r.host.RemoveRoom(r)
	Log.Infof("room %s: closed", name)
	return true
}

func (r *Room) migrate(s *Session, lobby *Room) {
	s.move.Lock()
	defer s.move.Unlock()
	if !s.detach(r) {
		Log.Infof("room %s: %s already moved on, skipping migration", r.key, s)
		return
	}
	if !s.Alive() {
		return
	}
	if err := lobby.Join(s); err != nil {
		Log.Errorf("room %s: migrate %s: %v", r.key, s, err)
	}
}

// Stop 停止更新循环和倒计时，用于进程退出
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAllCountdownsLocked()
	r.stopTickerLocked()
}

// shutdownLocked 关闭标记：名字置空防止重复关闭
func (r *Room) shutdownLocked() {
	r.cancelAllCountdownsLocked()
	r.ships = nil
	r.name = ""
	r.stopTickerLocked()
}

// unlock 结束一次临界区：先处理本次被驱逐的成员，再判断是否因空而关闭，最后才释放锁并通知目录
func (r *Room) unlock() {
	for len(r.evicted) > 0 && r.name != "" {
		gone := r.evicted
		r.evicted = nil
		for _, s := range gone {
			r.broadcastLocked(protocol.KindConnectionStatus, protocol.ConnectionStatus{
				ClientID: s.ID(), ClientName: s.Name(), Connected: false, Message: "disconnected",
			})
		}
		r.checkPlayersLocked()
	}
	r.evicted = nil
	cleanup := r.removed && r.closeIfEmptyLocked()
	r.removed = false
	r.mu.Unlock()
	if cleanup {
		r.host.RemoveRoom(r)
	}
}

// CloseIfUnused 从未有人加入（或已全部离开）的房间直接关闭，返回是否关闭
func (r *Room) CloseIfUnused() bool {
	r.mu.Lock()
	cleanup := r.closeIfEmptyLocked()
	r.mu.Unlock()
	if cleanup {
		r.host.RemoveRoom(r)
	}
	return cleanup
}

func (r *Room) closeIfEmptyLocked() bool {
	if r.lobby || r.name == "" || len(r.clients) > 0 {
		return false
	}
	Log.Infof("room %s: closing empty room", r.name)
	r.shutdownLocked()
	return true
}

// removeAtLocked 生成新切片而不是原地删除，正在遍历旧切片的调用方不受影响
func (r *Room) removeAtLocked(i int) {
	cp := r.clients[i]
	r.removed = true
	next := make([]*ClientPlayer, 0, len(r.clients)-1)
	next = append(next, r.clients[:i]...)
	next = append(next, r.clients[i+1:]...)
	r.clients = next

	ships := r.ships[:0:0]
	for _, sh := range r.ships {
		if sh.Owner != cp.Session.ID() {
			ships = append(ships, sh)
		}
	}
	r.ships = ships

	switch {
	case i < r.turn:
		r.turn--
	case i == r.turn:
		r.turn--
		if r.state == StateTurns {
			r.attackerLeft = true
		}
	}
	cp.Session.detach(r)
}

func (r *Room) evictLocked(s *Session) {
	i := r.indexOf(s)
	if i < 0 {
		return
	}
	r.removeAtLocked(i)
	r.evicted = append(r.evicted, s)
	r.metrics.IncEvictions()
	Log.Warnf("room %s: evicted %s after failed delivery", r.name, s)
}

func (r *Room) indexOf(s *Session) int {
	for i, cp := range r.clients {
		if cp.Session == s {
			return i
		}
	}
	return -1
}

func (r *Room) find(s *Session) *ClientPlayer {
	if i := r.indexOf(s); i >= 0 {
		return r.clients[i]
	}
	return nil
}

func (r *Room) findByID(id int64) *ClientPlayer {
	for _, cp := range r.clients {
		if cp.Session.ID() == id {
			return cp
		}
	}
	return nil
}

func (r *Room) findByName(name string) *ClientPlayer {
	for _, cp := range r.clients {
		if strings.EqualFold(cp.Session.Name(), name) {
			return cp
		}
	}
	return nil
}

// sendLocked 单播；失败的成员在同一临界区内被移出
func (r *Room) sendLocked(s *Session, kind protocol.Kind, payload any) {
	b, err := protocol.Encode(kind, payload)
	if err != nil {
		Log.Errorf("room %s: encode %s: %v", r.name, kind, err)
		return
	}
	if err := s.Send(b); err != nil {
		r.evictLocked(s)
	}
}

// broadcastLocked 编码一次，发给所有成员
func (r *Room) broadcastLocked(kind protocol.Kind, payload any) {
	b, err := protocol.Encode(kind, payload)
	if err != nil {
		Log.Errorf("room %s: encode %s: %v", r.name, kind, err)
		return
	}
	var failed []*Session
	for _, cp := range r.clients {
		if err := cp.Session.Send(b); err != nil {
			failed = append(failed, cp.Session)
		}
	}
	for _, s := range failed {
		r.evictLocked(s)
	}
}

// systemLocked 以 [Announcer] 身份发送；target 为 nil 时广播
func (r *Room) systemLocked(target *Session, text string) {
	msg := protocol.Chat{ClientID: DefaultClientID, ClientName: announcerName, Text: text}
	if target == nil {
		r.broadcastLocked(protocol.KindMessage, msg)
		return
	}
	r.sendLocked(target, protocol.KindMessage, msg)
}
