package entity

import (
	"github.com/danmuck/entmux/internal/protocol/tlv"
)

// State is the position snapshot carried by enemy REGISTER and UPDATE payloads.
type State struct {
	X    uint32
	Y    uint32
	Name string
}

func EncodeState(s State) []byte {
	fields := []tlv.Field{tlv.U32(FieldX, s.X), tlv.U32(FieldY, s.Y)}
	if s.Name != "" {
		fields = append(fields, tlv.String(FieldName, s.Name))
	}
	return tlv.EncodeFields(fields)
}

func DecodeState(payload []byte) (State, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return State{}, err
	}
	x, err := tlv.GetU32(fields, FieldX)
	if err != nil {
		return State{}, err
	}
	y, err := tlv.GetU32(fields, FieldY)
	if err != nil {
		return State{}, err
	}
	s := State{X: x, Y: y}
	if _, ok := tlv.GetField(fields, FieldName); ok {
		if s.Name, err = tlv.GetString(fields, FieldName); err != nil {
			return State{}, err
		}
	}
	return s, nil
}
