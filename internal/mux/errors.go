package mux

import (
	"errors"
	"fmt"

	"github.com/danmuck/entmux/internal/protocol/wire"
)

var (
	ErrUnknownEntity         = errors.New("mux: unknown entity")
	ErrDuplicateRegistration = errors.New("mux: duplicate registration")
	ErrFactory               = errors.New("mux: entity factory failed")
	ErrClosed                = errors.New("mux: multiplexer closed")

	errNilSession = errors.New("mux: nil session")

	// Codec failures surface unchanged so callers only need one import for errors.Is.
	ErrMalformedFrame = wire.ErrMalformedFrame
	ErrUnknownKind    = wire.ErrUnknownKind
)

// FrameError reports why one inbound frame was dropped.
type FrameError struct {
	Op        string
	Kind      wire.Kind
	EntityID  wire.EntityID
	SessionID string
	Err       error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("mux: %s %s entity=%d session=%q: %v", e.Op, e.Kind, e.EntityID, e.SessionID, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// SendError wraps a transport failure from Session.Send.
type SendError struct {
	SessionID string
	Kind      wire.Kind
	EntityID  wire.EntityID
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mux: send %s entity=%d session=%q: %v", e.Kind, e.EntityID, e.SessionID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
