package protocol

// Point 二维整数坐标，房间空间以像素为单位；PLACE_SHIP / ATTACK / DIRECTION 直接以它为载荷
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RoomRequest JOIN_ROOM / CREATE_ROOM 载荷
type RoomRequest struct {
	Name string `json:"name"`
}

// ListRoomsRequest LIST_ROOMS 入站载荷；Limit 缺省时用服务端默认值，显式的 0 视为非法
type ListRoomsRequest struct {
	Search string `json:"search"`
	Limit  *int   `json:"limit,omitempty"`
}

// RoomList LIST_ROOMS 出站结果；Rooms 为 nil 表示 limit 非法
type RoomList struct {
	Rooms   []string `json:"rooms"`
	Message string   `json:"message,omitempty"`
}

// Chat MESSAGE 载荷（入站只用 Text）
type Chat struct {
	ClientID   int64  `json:"clientId"`
	ClientName string `json:"clientName,omitempty"`
	Text       string `json:"text"`
	MessageID  string `json:"messageId,omitempty"`
}

// DirectMessage DM 载荷
type DirectMessage struct {
	ClientID  int64  `json:"clientId"`
	Target    string `json:"target"`
	Text      string `json:"text"`
	MessageID string `json:"messageId,omitempty"`
}

// Mute MUTE / UNMUTE 载荷；入站只需 Mutee（目标名）
type Mute struct {
	MuterID   int64  `json:"muterId"`
	MuteeID   int64  `json:"muteeId"`
	Mutee     string `json:"mutee"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// Position POSITION / DIRECTION 同步
type Position struct {
	ClientID int64 `json:"clientId"`
	Point
}

// Phase 状态机阶段通知
type Phase struct {
	State string `json:"state"`
}

// ConnectionStatus 加入 / 离开通知
type ConnectionStatus struct {
	ClientID   int64  `json:"clientId"`
	ClientName string `json:"clientName"`
	Connected  bool   `json:"connected"`
	Message    string `json:"message,omitempty"`
}

// GameArea 房间空间边界
type GameArea struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClientID 告知连接自己的服务端 id
type ClientID struct {
	ClientID   int64  `json:"clientId"`
	ClientName string `json:"clientName"`
}

// JoinedRoom 告知成员已进入的房间名
type JoinedRoom struct {
	Name string `json:"name"`
}

// ReadyStatus 准备状态广播
type ReadyStatus struct {
	ClientID int64 `json:"clientId"`
	Ready    bool  `json:"ready"`
}

// ShipPlaced 放置成功回执（仅发给船主）
type ShipPlaced struct {
	ShipID int    `json:"shipId"`
	Type   string `json:"shipType"`
	Health int    `json:"health"`
	Point
}

// ShipCount 某玩家剩余船只数
type ShipCount struct {
	ClientID int64 `json:"clientId"`
	Count    int   `json:"count"`
}

// ShipStatus 被击中船只的剩余生命
type ShipStatus struct {
	ShipID int `json:"shipId"`
	Health int `json:"health"`
}

// AttackRadius 攻击范围可视化
type AttackRadius struct {
	Radius int `json:"radius"`
	Point
}

// Marker 攻击结果标记
type Marker string

const (
	MarkerHit  Marker = "hit"
	MarkerMiss Marker = "miss"
)

// AttackResult 攻击命中 / 未命中（发给攻击者）
type AttackResult struct {
	Marker Marker `json:"marker"`
	Point
}

// CanAttack 某玩家本回合剩余攻击次数
type CanAttack struct {
	ClientID int64 `json:"clientId"`
	Attacks  int   `json:"attacks"`
}

// Reset 游戏结束，Winner 为 "[Draw]" 表示平局
type Reset struct {
	Winner string `json:"winner"`
}
