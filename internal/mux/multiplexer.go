package mux

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/entmux/internal/protocol/wire"
	"go.uber.org/multierr"
)

// DuplicatePolicy decides what a REGISTER for an already registered id does.
type DuplicatePolicy string

const (
	// DuplicateReject drops the frame with ErrDuplicateRegistration.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateReplace tears the old handler down and registers a new one.
	DuplicateReplace DuplicatePolicy = "replace"
)

// ParseDuplicatePolicy maps a config string to a policy; empty means reject.
func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateReplace:
		return DuplicateReplace, nil
	default:
		return "", fmt.Errorf("mux: unknown duplicate policy %q", raw)
	}
}

// Config tunes one Multiplexer.
type Config struct {
	DuplicatePolicy DuplicatePolicy
	// BroadcastParallelism bounds concurrent sends in one Update; <= 0 means unbounded.
	BroadcastParallelism int
	Observer             Observer
}

func DefaultConfig() Config {
	return Config{
		DuplicatePolicy:      DuplicateReject,
		BroadcastParallelism: 16,
	}
}

func (c Config) WithDefaults() Config {
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = DuplicateReject
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}

// Multiplexer routes inbound frames to entity handlers and fans entity
// egress out to sessions. Inbound dispatch is serialized; outbound calls
// never take the dispatch lock and are safe from inside handler callbacks.
// Handlers must not call OnMessage re-entrantly.
type Multiplexer struct {
	cfg     Config
	factory Factory
	dir     *Directory

	dispatchMu sync.Mutex
	closed     bool
}

func New(factory Factory) *Multiplexer {
	return NewWithConfig(factory, DefaultConfig())
}

func NewWithConfig(factory Factory, cfg Config) *Multiplexer {
	return &Multiplexer{
		cfg:     cfg.WithDefaults(),
		factory: factory,
		dir:     newDirectory(),
	}
}

// Directory exposes the read-only directory views.
func (m *Multiplexer) Directory() *Directory {
	return m.dir
}

// OnFrame is the raw-bytes ingress: raw is [kind tag][header][payload].
func (m *Multiplexer) OnFrame(s Session, raw []byte) error {
	msg, err := wire.Parse(raw)
	if err != nil {
		return m.reject(s, wire.Header{}, "parse", err)
	}
	return m.OnMessage(s, msg)
}

// OnMessage decodes msg and dispatches it to the directory. Every failure
// is local to this frame; the directory is left as it was.
func (m *Multiplexer) OnMessage(s Session, msg wire.Message) error {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	if m.closed {
		return m.reject(s, wire.Header{Kind: msg.Kind}, "dispatch", ErrClosed)
	}
	h, rest, err := msg.Decode()
	if err != nil {
		return m.reject(s, wire.Header{Kind: msg.Kind}, "decode", err)
	}

	switch h.Kind {
	case wire.KindUpdate:
		return m.onUpdate(s, h, rest)
	case wire.KindRegister:
		return m.onRegister(s, h, rest)
	case wire.KindUnregister:
		return m.onUnregister(s, h, rest)
	case wire.KindWarning:
		m.cfg.Observer.Observe(Event{
			Type:       EventWarning,
			Kind:       h.Kind,
			SessionID:  sessionID(s),
			PayloadLen: len(rest),
			Text:       string(rest),
		})
		return nil
	default:
		return m.reject(s, h, "dispatch", fmt.Errorf("%w: %d", ErrUnknownKind, uint32(h.Kind)))
	}
}

func (m *Multiplexer) onUpdate(s Session, h wire.Header, payload []byte) error {
	handler, ok := m.dir.Lookup(h.EntityID)
	if !ok {
		return m.reject(s, h, "update", ErrUnknownEntity)
	}
	handler.OnUpdate(payload)
	m.emit(EventUpdated, s, h, len(payload), nil)
	return nil
}

func (m *Multiplexer) onRegister(s Session, h wire.Header, payload []byte) error {
	old, exists := m.dir.Lookup(h.EntityID)
	if exists && m.cfg.DuplicatePolicy != DuplicateReplace {
		return m.reject(s, h, "register", ErrDuplicateRegistration)
	}

	if m.factory == nil {
		return m.reject(s, h, "register", fmt.Errorf("%w: no factory configured", ErrFactory))
	}
	handler, err := m.factory.Create(h.EntityID, h.EntityType, s, payload)
	if err != nil {
		return m.reject(s, h, "register", fmt.Errorf("%w: %w", ErrFactory, err))
	}
	if handler == nil {
		return m.reject(s, h, "register", fmt.Errorf("%w: nil handler for type %d", ErrFactory, h.EntityType))
	}

	// Replacement only tears the old handler down once its successor exists.
	if exists {
		old.SilentUnregister(s)
		m.dir.remove(h.EntityID)
		m.emit(EventReplaced, s, h, len(payload), release(old))
	}

	info := EntityInfo{
		ID:           h.EntityID,
		Type:         h.EntityType,
		RegisteredBy: sessionID(s),
		RegisteredAt: time.Now(),
	}
	if err := m.dir.insert(info, handler); err != nil {
		_ = release(handler)
		return m.reject(s, h, "register", err)
	}
	handler.SilentRegister(s)
	m.emit(EventRegistered, s, h, len(payload), nil)
	return nil
}

func (m *Multiplexer) onUnregister(s Session, h wire.Header, payload []byte) error {
	handler, ok := m.dir.Lookup(h.EntityID)
	if !ok {
		return m.reject(s, h, "unregister", ErrUnknownEntity)
	}
	handler.OnUnregister(s, payload)
	handler.SilentUnregister(s)
	m.dir.remove(h.EntityID)
	m.emit(EventUnregistered, s, h, len(payload), release(handler))
	return nil
}

// DropSession tells every registered handler that s is gone. Directory
// membership does not change; entities decide on their own lifetime.
func (m *Multiplexer) DropSession(s Session) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	for _, h := range m.dir.handlers() {
		h.SilentUnregister(s)
	}
	m.cfg.Observer.Observe(Event{
		Type:          EventSessionDropped,
		SessionID:     sessionID(s),
		DirectorySize: m.dir.Len(),
	})
}

// Close releases every handler and empties the directory. Later inbound
// frames fail with ErrClosed; outbound calls keep working.
func (m *Multiplexer) Close() error {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var err error
	for _, h := range m.dir.drain() {
		err = multierr.Append(err, release(h))
	}
	return err
}

func (m *Multiplexer) reject(s Session, h wire.Header, op string, err error) error {
	ferr := &FrameError{
		Op:        op,
		Kind:      h.Kind,
		EntityID:  h.EntityID,
		SessionID: sessionID(s),
		Err:       err,
	}
	m.cfg.Observer.Observe(Event{
		Type:          EventRejected,
		Kind:          h.Kind,
		EntityID:      h.EntityID,
		EntityType:    h.EntityType,
		SessionID:     ferr.SessionID,
		Err:           ferr,
		DirectorySize: m.dir.Len(),
	})
	return ferr
}

func (m *Multiplexer) emit(t EventType, s Session, h wire.Header, payloadLen int, err error) {
	m.cfg.Observer.Observe(Event{
		Type:          t,
		Kind:          h.Kind,
		EntityID:      h.EntityID,
		EntityType:    h.EntityType,
		SessionID:     sessionID(s),
		PayloadLen:    payloadLen,
		Err:           err,
		DirectorySize: m.dir.Len(),
	})
}

// release ends the multiplexer's ownership of a handler removed from the directory.
func release(h Handler) error {
	if c, ok := h.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
