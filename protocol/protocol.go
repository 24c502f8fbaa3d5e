// Package protocol 定义客户端与房间之间的消息格式：Envelope{type,payload}，每种 Kind 对应一个载荷结构
package protocol

import "encoding/json"

// Kind 消息类型标签
type Kind string

// 入站（客户端 → 服务端）
const (
	KindJoinRoom   Kind = "join_room"
	KindCreateRoom Kind = "create_room"
	KindListRooms  Kind = "list_rooms"
	KindMessage    Kind = "message"
	KindDM         Kind = "dm"
	KindMute       Kind = "mute"
	KindUnmute     Kind = "unmute"
	KindReady      Kind = "ready"
	KindPlaceShip  Kind = "place_ship"
	KindAttack     Kind = "attack"
	KindDirection  Kind = "direction"
)

// 出站（服务端 → 客户端）
const (
	KindPosition         Kind = "position"
	KindPhase            Kind = "phase"
	KindConnectionStatus Kind = "connection_status"
	KindRoomList         Kind = "room_list"
	KindGameArea         Kind = "game_area"
	KindClientID         Kind = "client_id"
	KindShipPlaced       Kind = "ship_placed"
	KindShipCount        Kind = "ship_count"
	KindShipStatus       Kind = "ship_status"
	KindAttackRadius     Kind = "attack_radius"
	KindAttackResult     Kind = "attack_result"
	KindCanAttack        Kind = "can_attack"
	KindReset            Kind = "reset"
)

// Envelope 传输层统一外壳，Payload 保留原始字节，按 Type 再解码
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// 可以不带载荷的类型：READY 只需要 type 字段，LIST_ROOMS 缺省即列出全部
var emptyPayload = map[Kind]bool{
	KindReady:     true,
	KindListRooms: true,
}

// AllowsEmpty 报告该类型是否允许空载荷
func AllowsEmpty(k Kind) bool { return emptyPayload[k] }
