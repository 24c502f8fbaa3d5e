package server

import (
	"fmt"
	"math/rand"

	"battleroom/protocol"
)

type countdownKind string

const (
	countdownReady   countdownKind = "ready"
	countdownSession countdownKind = "session"
	countdownPhase   countdownKind = "phase"
)

// 回合轮转至少需要两名仍有船的玩家
const minContenders = 2

const drawWinner = "[Draw]"

// Ready 在 LOBBY 阶段标记准备；大厅不是对战房间
func (r *Room) Ready(s *Session) bool {
	r.mu.Lock()
	defer r.unlock()
	if !r.game {
		r.systemLocked(s, "You can only use the /ready command in a GameRoom and not the Lobby")
		return false
	}
	cp := r.find(s)
	if cp == nil {
		Log.Warnf("room %s: ready from %s, not in roster", r.name, s)
		return false
	}
	if r.state != StateLobby {
		Log.Debugf("room %s: ready from %s ignored in %s", r.name, s, r.state)
		r.metrics.IncRejected()
		r.systemLocked(s, "You can only ready up while the room is in the lobby phase")
		return false
	}
	cp.Player.Ready = true
	r.metrics.IncAccepted()
	r.broadcastLocked(protocol.KindReady, protocol.ReadyStatus{ClientID: s.ID(), Ready: true})
	r.readyCheckLocked()
	return true
}

func (r *Room) readyCountLocked() int {
	n := 0
	for _, cp := range r.clients {
		if cp.Player.Ready {
			n++
		}
	}
	return n
}

// readyCheckLocked 准备人数达到下限时（重新）开始准备倒计时
func (r *Room) readyCheckLocked() {
	ready := r.readyCountLocked()
	if ready < r.rules.MinPlayers {
		return
	}
	Log.Infof("room %s: %d players ready, starting countdown", r.name, ready)
	r.startCountdownLocked(countdownReady, r.rules.ReadyTicks, r.beginGameLocked)
}

func (r *Room) beginGameLocked() {
	if r.state != StateLobby || r.readyCountLocked() < r.rules.MinPlayers {
		return
	}
	r.startCountdownLocked(countdownSession, r.rules.SessionTicks, func() {
		r.systemLocked(nil, "Game Ending due to extensive duration")
		r.endGameLocked()
	})
	r.metrics.IncGamesStarted()
	r.systemLocked(nil, "Commencing Game...")
	r.moveToPlacementLocked()
}

func (r *Room) moveToPlacementLocked() {
	r.setStateLocked(StatePlacement)
	r.startCountdownLocked(countdownPhase, r.rules.PlacementTicks, r.moveToTurnsLocked)
}

func (r *Room) moveToTurnsLocked() {
	if r.state != StatePlacement {
		return
	}
	r.setStateLocked(StateTurns)
	// 起始偏移落在 [-1, n-2]，advanceTurnLocked 会先加一
	r.turn = -1
	if n := len(r.clients); n > 1 {
		r.turn = rand.Intn(n-1) - 1
	}
	r.advanceTurnLocked()
}

// advanceTurnLocked 指针前移并跳过没有船的玩家；最多走一圈，找不到两名竞争者就结束游戏
func (r *Room) advanceTurnLocked() {
	r.attackerLeft = false
	if r.state != StateTurns {
		return
	}
	if r.contendersLocked() < minContenders {
		Log.Infof("room %s: not enough players with ships, ending game", r.name)
		r.endGameLocked()
		return
	}
	n := len(r.clients)
	for i := 0; i < n; i++ {
		r.turn++
		if r.turn >= n {
			r.turn = 0
		}
		if r.clients[r.turn].Player.Ships > 0 {
			break
		}
	}
	attacker := r.clients[r.turn]
	for _, cp := range r.clients {
		if cp.Player.Ships <= 0 {
			cp.Player.Attacks = 0
			continue
		}
		attacks := 0
		if cp == attacker {
			attacks = 1
		}
		cp.Player.Attacks = attacks
		r.broadcastLocked(protocol.KindCanAttack, protocol.CanAttack{ClientID: cp.Session.ID(), Attacks: attacks})
	}
}

func (r *Room) contendersLocked() int {
	n := 0
	for _, cp := range r.clients {
		if cp.Player.Ships > 0 {
			n++
		}
	}
	return n
}

// activePlayersLocked 放置阶段算准备的玩家，回合阶段还要求仍有船
func (r *Room) activePlayersLocked() int {
	n := 0
	for _, cp := range r.clients {
		if !cp.Player.Ready {
			continue
		}
		if r.state == StateTurns && cp.Player.Ships <= 0 {
			continue
		}
		n++
	}
	return n
}

// checkPlayersLocked 成员离开后重新评估：人数不足则结束对局，攻击者离开则轮到下一位
func (r *Room) checkPlayersLocked() {
	switch {
	case r.state == StateLobby:
		if r.readyCountLocked() < r.rules.MinPlayers {
			r.cancelCountdownLocked(countdownReady)
		}
	case r.state.InProgress():
		if r.activePlayersLocked() < r.rules.MinPlayers {
			r.systemLocked(nil, "Battle Over, not enough players. Restarting session")
			r.endGameLocked()
			return
		}
		if r.state == StateTurns && r.attackerLeft {
			r.advanceTurnLocked()
		}
	}
}

// endGameLocked 取消倒计时、清空船只、重置玩家、宣布胜者，并在倒计时后回到 LOBBY
func (r *Room) endGameLocked() {
	r.cancelAllCountdownsLocked()

	winner := drawWinner
	var alive []*ClientPlayer
	for _, cp := range r.clients {
		if cp.Player.Ships > 0 {
			alive = append(alive, cp)
		}
	}
	if len(alive) == 1 {
		winner = alive[0].Session.Name()
	}

	r.ships = nil
	r.turn = -1
	r.attackerLeft = false
	for _, cp := range r.clients {
		cp.Player.Reset(randomPosition(r.area()))
	}
	r.metrics.IncGamesFinished()
	Log.Infof("room %s: game over, winner %s", r.name, winner)
	r.broadcastLocked(protocol.KindReset, protocol.Reset{Winner: winner})
	r.setStateLocked(StatePostGame)
	r.startCountdownLocked(countdownPhase, r.rules.PostGameTicks, func() {
		r.setStateLocked(StateLobby)
	})
}

func (r *Room) setStateLocked(st GameState) {
	Log.Infof("room %s: %s -> %s", r.name, r.state, st)
	r.state = st
	r.broadcastLocked(protocol.KindPhase, protocol.Phase{State: st.String()})
}

// PlaceShip 放置阶段由已准备的玩家在边界内放船，超过上限或观战者会被拒绝
func (r *Room) PlaceShip(s *Session, at Point) bool {
	r.mu.Lock()
	defer r.unlock()
	if r.state != StatePlacement {
		Log.Debugf("room %s: placement from %s ignored in %s", r.name, s, r.state)
		r.metrics.IncRejected()
		return false
	}
	if at.X < 0 || at.X > r.rules.AreaWidth || at.Y < 0 || at.Y > r.rules.AreaHeight {
		r.metrics.IncRejected()
		return false
	}
	cp := r.find(s)
	if cp == nil {
		Log.Warnf("room %s: placement from %s, not in roster", r.name, s)
		return false
	}
	if !cp.Player.Ready {
		r.metrics.IncRejected()
		r.systemLocked(s, "Spectators can't place ships.")
		return false
	}
	if cp.Player.Ships >= r.rules.MaxShips {
		r.metrics.IncRejected()
		r.systemLocked(s, fmt.Sprintf("You've already placed all %d ships.", r.rules.MaxShips))
		return false
	}
	r.nextShipID++
	ship := NewShip(r.nextShipID, s.ID(), at, r.rules.ShipSize, r.rules.ShipHealth)
	r.ships = append(r.ships, ship)
	cp.Player.Ships++
	r.metrics.IncAccepted()
	r.metrics.IncShipsPlaced()

	r.sendLocked(s, protocol.KindShipPlaced, protocol.ShipPlaced{
		ShipID: ship.ID, Type: string(ship.Type), Health: ship.MaxHealth, Point: ship.Position,
	})
	r.broadcastLocked(protocol.KindShipCount, protocol.ShipCount{ClientID: s.ID(), Count: cp.Player.Ships})
	return true
}

// Attack 回合阶段消耗一次攻击，结算对所有他人存活船只的命中，攻击次数用完后轮到下一位
func (r *Room) Attack(s *Session, at Point) bool {
	r.mu.Lock()
	defer r.unlock()
	if r.state != StateTurns {
		Log.Debugf("room %s: attack from %s ignored in %s", r.name, s, r.state)
		r.metrics.IncRejected()
		return false
	}
	cp := r.find(s)
	if cp == nil {
		Log.Warnf("room %s: attack from %s, not in roster", r.name, s)
		return false
	}
	if cp.Player.Attacks <= 0 {
		r.metrics.IncRejected()
		return false
	}
	cp.Player.Attacks--
	r.metrics.IncAccepted()
	r.metrics.IncAttacks()

	radius := r.rules.BlastRadius
	r.broadcastLocked(protocol.KindAttackRadius, protocol.AttackRadius{Radius: radius, Point: at})

	hit := false
	for _, ship := range r.ships {
		if !ship.Active() || ship.Owner == s.ID() {
			continue
		}
		owner := r.findByID(ship.Owner)
		if owner == nil || !ship.InBlast(at, radius) {
			continue
		}
		ship.Hit()
		hit = true
		r.metrics.IncHits()
		r.sendLocked(owner.Session, protocol.KindShipStatus, protocol.ShipStatus{ShipID: ship.ID, Health: ship.Health})
		if !ship.Active() {
			owner.Player.Ships--
		}
		r.broadcastLocked(protocol.KindShipCount, protocol.ShipCount{ClientID: owner.Session.ID(), Count: owner.Player.Ships})
	}

	marker := protocol.MarkerMiss
	if hit {
		marker = protocol.MarkerHit
	}
	r.sendLocked(s, protocol.KindAttackResult, protocol.AttackResult{Marker: marker, Point: at})

	if cp.Player.Attacks <= 0 && r.state == StateTurns {
		r.advanceTurnLocked()
	}
	return true
}

// SetDirection 更新朝向，变化时广播
func (r *Room) SetDirection(s *Session, d Point) {
	r.mu.Lock()
	defer r.unlock()
	cp := r.find(s)
	if cp == nil {
		Log.Warnf("room %s: direction from %s, not in roster", r.name, s)
		return
	}
	if cp.Player.SetDirection(d) {
		r.broadcastLocked(protocol.KindDirection, protocol.Position{ClientID: s.ID(), Point: cp.Player.Direction})
	}
}

// startCountdownLocked 同类倒计时只保留一个；回调在房间锁内执行，并确认自己仍是当前实例
func (r *Room) startCountdownLocked(kind countdownKind, ticks int, action func()) {
	r.cancelCountdownLocked(kind)
	var c *Countdown
	c = NewCountdown(r.sched, string(kind), ticks, r.rules.Tick, func() {
		r.mu.Lock()
		defer r.unlock()
		if r.countdowns[kind] != c || r.name == "" {
			return
		}
		delete(r.countdowns, kind)
		action()
	})
	r.countdowns[kind] = c
}

func (r *Room) cancelCountdownLocked(kind countdownKind) {
	if c, ok := r.countdowns[kind]; ok {
		c.Cancel()
		delete(r.countdowns, kind)
	}
}

func (r *Room) cancelAllCountdownsLocked() {
	for kind, c := range r.countdowns {
		c.Cancel()
		delete(r.countdowns, kind)
	}
}

// PendingCountdown 报告某类倒计时是否在等待触发
func (r *Room) PendingCountdown(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.countdowns[countdownKind(kind)]
	return ok
}
