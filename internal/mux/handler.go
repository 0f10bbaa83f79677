package mux

import "github.com/danmuck/entmux/internal/protocol/wire"

// Session is one connected peer. Send must not block for unbounded time;
// slow-peer policy (timeouts, queue limits) belongs to the implementation.
// Implementations must be safe for concurrent Send calls.
type Session interface {
	ID() string
	Send(msg wire.Message) error
}

// Handler is the behavior every network entity exposes to the multiplexer.
// Payload slices passed to callbacks are views into the inbound frame and
// must be copied if retained.
type Handler interface {
	OnUpdate(payload []byte)
	OnUnregister(s Session, payload []byte)
	// SilentRegister and SilentUnregister adjust local bookkeeping only;
	// they must not emit wire traffic.
	SilentRegister(s Session)
	SilentUnregister(s Session)
}

// Factory builds the handler for a REGISTER of an id not yet in the directory.
type Factory interface {
	Create(id wire.EntityID, typ wire.EntityType, s Session, payload []byte) (Handler, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(id wire.EntityID, typ wire.EntityType, s Session, payload []byte) (Handler, error)

func (f FactoryFunc) Create(id wire.EntityID, typ wire.EntityType, s Session, payload []byte) (Handler, error) {
	return f(id, typ, s, payload)
}

func sessionID(s Session) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
