package server

import (
	"math/rand"

	"battleroom/protocol"
)

// Point 房间内坐标，与协议一致
type Point = protocol.Point

// Player 房间内的玩家状态（服务端权威），只由所属房间修改
type Player struct {
	Position  Point
	Direction Point // 每个分量取 -1..1
	Ready     bool
	Ships     int
	Attacks   int // 本回合剩余攻击次数

	moved bool // 自上次同步后位置是否变化
}

// SetDirection 更新朝向并裁剪到 -1..1，返回是否发生变化
func (p *Player) SetDirection(d Point) bool {
	d.X = clamp(d.X, -1, 1)
	d.Y = clamp(d.Y, -1, 1)
	if d == p.Direction {
		return false
	}
	p.Direction = d
	return true
}

// Move 按朝向前进一步并做越界裁剪
func (p *Player) Move(speed int, area protocol.GameArea) {
	if p.Direction.X == 0 && p.Direction.Y == 0 {
		return
	}
	next := Point{
		X: clamp(p.Position.X+p.Direction.X*speed, 0, area.Width),
		Y: clamp(p.Position.Y+p.Direction.Y*speed, 0, area.Height),
	}
	if next != p.Position {
		p.Position = next
		p.moved = true
	}
}

// TakeMoved 读取并清除位置变化标记
func (p *Player) TakeMoved() bool {
	m := p.moved
	p.moved = false
	return m
}

// Reset 每局结束时清空准备 / 船只 / 攻击与位置
func (p *Player) Reset(start Point) {
	p.Ready = false
	p.Ships = 0
	p.Attacks = 0
	p.Direction = Point{}
	p.Position = start
	p.moved = false
}

// ClientPlayer 一个连接在一个房间内的名单条目
type ClientPlayer struct {
	Session *Session
	Player  *Player
}

func randomPosition(area protocol.GameArea) Point {
	return Point{X: rand.Intn(area.Width + 1), Y: rand.Intn(area.Height + 1)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
