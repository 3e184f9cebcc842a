// Package protocol decodes the JSON envelopes clients send over a relay
// connection and encodes the draw frames relayed to peers.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Sketch/internal/domain"
)

const (
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeDraw      = "draw"
)

var (
	// ErrUnrecognized marks a frame that is discarded without a reply.
	ErrUnrecognized = errors.New("unrecognized envelope")
	ErrMissingRoom  = errors.New("roomId is missing")
	ErrUnknownType  = errors.New("unknown type")
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindJoinRoom
	KindLeaveRoom
	KindDraw
)

func (k Kind) String() string {
	switch k {
	case KindJoinRoom:
		return TypeJoinRoom
	case KindLeaveRoom:
		return TypeLeaveRoom
	case KindDraw:
		return TypeDraw
	default:
		return "unrecognized"
	}
}

// Envelope is the decoded form of one inbound frame. Kind selects the
// variant; Shape and Data are set only for KindDraw and are kept opaque.
// Err explains why a frame decoded to KindUnrecognized.
type Envelope struct {
	Kind   Kind
	RoomID domain.RoomID
	Shape  json.RawMessage
	Data   json.RawMessage
	Err    error
}

type wire struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Shape  json.RawMessage `json:"shape,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func unrecognized(err error) Envelope {
	return Envelope{Kind: KindUnrecognized, Err: fmt.Errorf("%w: %w", ErrUnrecognized, err)}
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Decode never fails: anything that is not a well-formed join-room,
// leave-room or draw envelope becomes KindUnrecognized. Keys are matched
// exactly; "TYPE" or "RoomId" are not envelope fields.
func Decode(raw []byte) Envelope {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return unrecognized(err)
	}
	typ, err := stringField(fields, "type")
	if err != nil {
		return unrecognized(err)
	}

	var kind Kind
	switch typ {
	case TypeJoinRoom:
		kind = KindJoinRoom
	case TypeLeaveRoom:
		kind = KindLeaveRoom
	case TypeDraw:
		kind = KindDraw
	default:
		return unrecognized(fmt.Errorf("%w %q", ErrUnknownType, typ))
	}

	roomID, err := stringField(fields, "roomId")
	if err != nil {
		return unrecognized(err)
	}
	if roomID == "" {
		return unrecognized(ErrMissingRoom)
	}

	env := Envelope{Kind: kind, RoomID: domain.RoomID(roomID)}
	if kind == KindDraw {
		env.Shape = fields["shape"]
		env.Data = fields["data"]
	}
	return env
}

// EncodeDraw builds the frame relayed to the other members of a room.
func EncodeDraw(room domain.RoomID, shape, data json.RawMessage) ([]byte, error) {
	return json.Marshal(wire{
		Type:   TypeDraw,
		RoomID: string(room),
		Shape:  shape,
		Data:   data,
	})
}
