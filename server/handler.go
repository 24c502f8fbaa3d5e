package server

import (
	"errors"

	"battleroom/protocol"
)

// decode 解出载荷；允许空载荷的类型返回零值
func decode[T any](env protocol.Envelope) (T, error) {
	var zero T
	if len(env.Payload) == 0 && protocol.AllowsEmpty(env.Type) {
		return zero, nil
	}
	v, err := protocol.DecodePayload[T](env)
	if err != nil {
		return zero, &DecodeError{Kind: env.Type, Err: err}
	}
	return v, nil
}

// Dispatch 将一条入站消息路由到目录或会话当前所在的房间
// 只有解码错误会返回 error；非法状态下的指令由房间自行忽略或回复
func (d *Directory) Dispatch(s *Session, env protocol.Envelope) error {
	switch env.Type {
	case protocol.KindJoinRoom:
		req, err := decode[protocol.RoomRequest](env)
		if err != nil {
			return err
		}
		d.logMove(s, "join", req.Name, d.JoinRoom(req.Name, s))
		return nil
	case protocol.KindCreateRoom:
		req, err := decode[protocol.RoomRequest](env)
		if err != nil {
			return err
		}
		d.logMove(s, "create", req.Name, d.CreateRoom(req.Name, s))
		return nil
	case protocol.KindListRooms:
		req, err := decode[protocol.ListRoomsRequest](env)
		if err != nil {
			return err
		}
		d.replyRoomList(s, req)
		return nil
	}

	r, err := d.roomOf(s)
	if err != nil {
		return err
	}
	switch env.Type {
	case protocol.KindMessage:
		msg, err := decode[protocol.Chat](env)
		if err != nil {
			return err
		}
		r.Chat(s, msg.Text)
	case protocol.KindDM:
		msg, err := decode[protocol.DirectMessage](env)
		if err != nil {
			return err
		}
		r.DirectMessage(s, msg.Target, msg.Text)
	case protocol.KindMute, protocol.KindUnmute:
		msg, err := decode[protocol.Mute](env)
		if err != nil {
			return err
		}
		r.Mute(s, msg.Mutee, env.Type == protocol.KindMute)
	case protocol.KindReady:
		r.Ready(s)
	case protocol.KindPlaceShip:
		at, err := decode[protocol.Point](env)
		if err != nil {
			return err
		}
		r.PlaceShip(s, at)
	case protocol.KindAttack:
		at, err := decode[protocol.Point](env)
		if err != nil {
			return err
		}
		r.Attack(s, at)
	case protocol.KindDirection:
		dir, err := decode[protocol.Point](env)
		if err != nil {
			return err
		}
		r.SetDirection(s, dir)
	default:
		return &DecodeError{Kind: env.Type, Err: ErrUnknownKind}
	}
	return nil
}

// roomOf 没有房间的会话先进入大厅
func (d *Directory) roomOf(s *Session) (*Room, error) {
	if r := s.Room(); r != nil {
		return r, nil
	}
	Log.Warnf("directory: %s has no room, joining lobby", s)
	if err := d.move(s, d.lobby); err != nil {
		return nil, err
	}
	return d.lobby, nil
}

func (d *Directory) replyRoomList(s *Session, req protocol.ListRoomsRequest) {
	limit := ListLimitDefault
	if req.Limit != nil {
		limit = *req.Limit
	}
	out := protocol.RoomList{}
	names, err := d.ListRooms(req.Search, limit)
	switch {
	case errors.Is(err, ErrInvalidLimit):
		out.Message = "Invalid limit, please choose a value between 1-100"
	case len(names) == 0:
		out.Rooms = []string{}
		out.Message = "No rooms found matching your search criteria"
	default:
		out.Rooms = names
	}
	b, err := protocol.Encode(protocol.KindRoomList, out)
	if err != nil {
		Log.Errorf("directory: encode room list: %v", err)
		return
	}
	if err := s.Send(b); err != nil {
		Log.Warnf("directory: room list to %s: %v", s, err)
	}
}

func (d *Directory) logMove(s *Session, op, name string, err error) {
	if err != nil {
		Log.Debugf("directory: %s %s %q: %v", s, op, name, err)
	}
}
