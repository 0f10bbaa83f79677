package mux

import "github.com/danmuck/entmux/internal/protocol/wire"

type EventType string

const (
	EventRegistered     EventType = "registered"
	EventReplaced       EventType = "replaced"
	EventUpdated        EventType = "updated"
	EventUnregistered   EventType = "unregistered"
	EventWarning        EventType = "warning"
	EventRejected       EventType = "rejected"
	EventSent           EventType = "sent"
	EventSendFailed     EventType = "send_failed"
	EventSessionDropped EventType = "session_dropped"
)

// Event is one structured observation emitted by the multiplexer.
type Event struct {
	Type          EventType
	Kind          wire.Kind
	EntityID      wire.EntityID
	EntityType    wire.EntityType
	SessionID     string
	PayloadLen    int
	Text          string
	Err           error
	DirectorySize int
}

// Observer receives multiplexer events. Send events arrive from broadcast
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
