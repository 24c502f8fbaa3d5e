package server

import (
	"errors"
	"fmt"

	"battleroom/protocol"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomClosed      = errors.New("room closed")
	ErrInOtherRoom     = errors.New("session already in another room")
	ErrInvalidRoomName = errors.New("invalid room name")
	ErrInvalidLimit    = errors.New("invalid limit, please choose a value between 1-100")
	ErrSessionClosed   = errors.New("session closed")
	ErrSendQueueFull   = errors.New("send queue full")
	ErrUnknownKind     = errors.New("unknown message type")
)

// DecodeError 入站消息无法解码或类型未知；连接不会因此断开
type DecodeError struct {
	Kind protocol.Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
