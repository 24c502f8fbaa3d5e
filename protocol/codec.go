package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyEnvelope = errors.New("protocol: empty envelope")
	ErrMissingType   = errors.New("protocol: envelope type missing")
	ErrEmptyPayload  = errors.New("protocol: empty payload")
)

// Encode 将载荷包装为 Envelope 并序列化；payload 为 nil 时省略 payload 字段
func Encode(t Kind, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrMissingType
	}
	e := Envelope{Type: t}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
		}
		e.Payload = pb
	}
	return json.Marshal(e)
}

// DecodeEnvelope 只解外壳
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyEnvelope
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return e, nil
}

// DecodePayload 按目标类型解出载荷
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.Type)
	}
	err := json.Unmarshal(env.Payload, &out)
	return out, err
}
