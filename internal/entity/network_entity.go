package entity

import (
	"sort"
	"sync"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

// NetworkEntity is the base handler: it tracks which sessions follow the
// entity and drives egress for it. Embed it to build richer kinds.
type NetworkEntity struct {
	id  wire.EntityID
	typ wire.EntityType
	out Outbound

	mu           sync.RWMutex
	sessions     map[string]mux.Session
	last         []byte
	updates      uint64
	onUpdate     func(payload []byte)
	onUnregister func(s mux.Session, payload []byte)
	closed       bool
}

var _ mux.Handler = (*NetworkEntity)(nil)

func NewNetworkEntity(id wire.EntityID, typ wire.EntityType, out Outbound) *NetworkEntity {
	return &NetworkEntity{
		id:       id,
		typ:      typ,
		out:      out,
		sessions: make(map[string]mux.Session),
	}
}

func (e *NetworkEntity) ID() wire.EntityID     { return e.id }
func (e *NetworkEntity) Type() wire.EntityType { return e.typ }

// SetUpdateHook installs fn to run after every inbound update. fn receives
// an owned copy of the payload.
func (e *NetworkEntity) SetUpdateHook(fn func(payload []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = fn
}

func (e *NetworkEntity) SetUnregisterHook(fn func(s mux.Session, payload []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUnregister = fn
}

// Update broadcasts payload to every session following this entity.
func (e *NetworkEntity) Update(payload []byte) error {
	return e.out.Update(e.id, e.Sessions(), payload)
}

// RegisterSession starts following s and announces the entity to it.
func (e *NetworkEntity) RegisterSession(s mux.Session, payload []byte) error {
	e.SilentRegister(s)
	if err := e.out.RegisterSession(e.id, e.typ, s, payload); err != nil {
		e.SilentUnregister(s)
		return err
	}
	return nil
}

// UnregisterSession stops following s and tells it the entity is gone.
func (e *NetworkEntity) UnregisterSession(s mux.Session, payload []byte) error {
	e.SilentUnregister(s)
	return e.out.UnregisterSession(e.id, s, payload)
}

func (e *NetworkEntity) OnUpdate(payload []byte) {
	owned := make([]byte, len(payload))
	copy(owned, payload)
	e.mu.Lock()
	e.last = owned
	e.updates++
	hook := e.onUpdate
	e.mu.Unlock()
	if hook != nil {
		hook(owned)
	}
}

func (e *NetworkEntity) OnUnregister(s mux.Session, payload []byte) {
	e.mu.RLock()
	hook := e.onUnregister
	e.mu.RUnlock()
	if hook != nil {
		hook(s, payload)
	}
}

func (e *NetworkEntity) SilentRegister(s mux.Session) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.sessions[s.ID()] = s
}

func (e *NetworkEntity) SilentUnregister(s mux.Session) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, s.ID())
}

// Sessions returns the followers sorted by session id.
func (e *NetworkEntity) Sessions() []mux.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]mux.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (e *NetworkEntity) Follows(s mux.Session) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sessions[s.ID()]
	return ok
}

// LastUpdate returns a copy of the most recent inbound payload and the
// number of updates received so far.
func (e *NetworkEntity) LastUpdate() ([]byte, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]byte, len(e.last))
	copy(out, e.last)
	return out, e.updates
}

// Close drops every follower; a closed entity accepts no new ones.
func (e *NetworkEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	clear(e.sessions)
	return nil
}
