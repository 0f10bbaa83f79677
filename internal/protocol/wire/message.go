package wire

import (
	"encoding/binary"
	"fmt"
)

// EntityID identifies one network entity. Ids are assigned by the
// registering peer.
type EntityID uint32

// EntityType selects the handler constructor at REGISTER time.
type EntityType uint32

// Header is the decoded per-kind header. EntityType is only set for
// REGISTER; WARNING carries no header at all.
type Header struct {
	Kind       Kind
	EntityID   EntityID
	EntityType EntityType
}

// Message is one wire message: a kind tag and the bytes that follow it
// (header + payload). A Message is not modified after construction.
type Message struct {
	Kind    Kind
	Payload []byte
}

// NewUpdate builds an UPDATE message for id. payload is copied.
func NewUpdate(id EntityID, payload []byte) Message {
	buf := make([]byte, idLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(id))
	copy(buf[idLen:], payload)
	return Message{Kind: KindUpdate, Payload: buf}
}

// NewRegister builds a REGISTER message for id of entity type typ. payload is copied.
func NewRegister(id EntityID, typ EntityType, payload []byte) Message {
	buf := make([]byte, idLen+typeLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(id))
	binary.BigEndian.PutUint32(buf[4:8], uint32(typ))
	copy(buf[idLen+typeLen:], payload)
	return Message{Kind: KindRegister, Payload: buf}
}

// NewUnregister builds an UNREGISTER message for id. payload is copied.
func NewUnregister(id EntityID, payload []byte) Message {
	buf := make([]byte, idLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(id))
	copy(buf[idLen:], payload)
	return Message{Kind: KindUnregister, Payload: buf}
}

// NewWarning builds a WARNING message carrying a diagnostic string.
func NewWarning(text string) Message {
	return Message{Kind: KindWarning, Payload: []byte(text)}
}

// Decode splits m into its header and the remaining payload. The returned
// slice is a view into m.Payload, not a copy; it must not be retained past
// the lifetime of m's buffer. Decode never modifies m.
func (m Message) Decode() (Header, []byte, error) {
	size, err := HeaderSize(m.Kind)
	if err != nil {
		return Header{}, nil, err
	}
	if len(m.Payload) < size {
		return Header{}, nil, fmt.Errorf("%w: %s needs %d header bytes, have %d",
			ErrMalformedFrame, m.Kind, size, len(m.Payload))
	}
	h := Header{Kind: m.Kind}
	switch m.Kind {
	case KindUpdate, KindUnregister:
		h.EntityID = EntityID(binary.BigEndian.Uint32(m.Payload[0:4]))
	case KindRegister:
		h.EntityID = EntityID(binary.BigEndian.Uint32(m.Payload[0:4]))
		h.EntityType = EntityType(binary.BigEndian.Uint32(m.Payload[4:8]))
	}
	return h, m.Payload[size:len(m.Payload):len(m.Payload)], nil
}

// Len returns the encoded size of m including the kind tag.
func (m Message) Len() int {
	return KindTagLen + len(m.Payload)
}

// Clone returns a copy of m that shares no memory with it.
func (m Message) Clone() Message {
	buf := make([]byte, len(m.Payload))
	copy(buf, m.Payload)
	return Message{Kind: m.Kind, Payload: buf}
}

// MarshalBinary encodes m as [kind tag][header][payload].
func (m Message) MarshalBinary() ([]byte, error) {
	buf := make([]byte, m.Len())
	binary.BigEndian.PutUint32(buf[0:KindTagLen], uint32(m.Kind))
	copy(buf[KindTagLen:], m.Payload)
	return buf, nil
}

// Parse reads a wire message out of raw. The returned payload is a view
// into raw. Unknown kinds are not rejected here; Decode reports them.
func Parse(raw []byte) (Message, error) {
	if len(raw) < KindTagLen {
		return Message{}, fmt.Errorf("%w: short kind tag (%d bytes)", ErrMalformedFrame, len(raw))
	}
	return Message{
		Kind:    Kind(binary.BigEndian.Uint32(raw[0:KindTagLen])),
		Payload: raw[KindTagLen:],
	}, nil
}
