package server

// ShipType 船只种类，目前只有一种
type ShipType string

const ShipGunner ShipType = "GUNNER"

// Ship 房间内的一艘船；Owner 只记录连接 id，不持有名单条目
type Ship struct {
	ID        int
	Owner     int64
	Type      ShipType
	Position  Point // 船体中心
	Width     int
	Height    int
	Health    int
	MaxHealth int
}

// NewShip 以满血状态创建
func NewShip(id int, owner int64, at Point, size, health int) *Ship {
	return &Ship{
		ID:        id,
		Owner:     owner,
		Type:      ShipGunner,
		Position:  at,
		Width:     size,
		Height:    size,
		Health:    health,
		MaxHealth: health,
	}
}

// Active 生命值为 0 后永久失效
func (s *Ship) Active() bool { return s.Health > 0 }

// Hit 每次命中扣 1 点，与距离无关
func (s *Ship) Hit() {
	if s.Health > 0 {
		s.Health--
	}
}

// InBlast 判断攻击点是否落在命中范围内（半高 + 爆炸半径，边界包含），用平方距离比较
func (s *Ship) InBlast(at Point, radius int) bool {
	reach := s.Height/2 + radius
	dx := at.X - s.Position.X
	dy := at.Y - s.Position.Y
	return dx*dx+dy*dy <= reach*reach
}
