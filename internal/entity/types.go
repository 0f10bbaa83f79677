package entity

import (
	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

// Entity type tags shared by every peer.
const (
	TypeGeneric               wire.EntityType = 0
	TypeServerEnemyController wire.EntityType = 1
	TypePlayer                wire.EntityType = 2
)

// State payload field ids.
const (
	FieldX    uint16 = 1
	FieldY    uint16 = 2
	FieldName uint16 = 3
)

// Outbound is the multiplexer egress an entity drives.
type Outbound interface {
	Update(id wire.EntityID, sessions []mux.Session, payload []byte) error
	RegisterSession(id wire.EntityID, typ wire.EntityType, s mux.Session, payload []byte) error
	UnregisterSession(id wire.EntityID, s mux.Session, payload []byte) error
}

var _ Outbound = (*mux.Multiplexer)(nil)
