package entity

import (
	"sync"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

// Mirror is the peer-side copy of an entity owned by another node. It
// keeps the last decoded state from REGISTER and UPDATE payloads.
type Mirror struct {
	*NetworkEntity

	mu    sync.RWMutex
	state State
	err   error
}

func NewMirror(id wire.EntityID, typ wire.EntityType, out Outbound, payload []byte) (*Mirror, error) {
	st, err := DecodeState(payload)
	if err != nil {
		return nil, err
	}
	m := &Mirror{NetworkEntity: NewNetworkEntity(id, typ, out), state: st}
	m.SetUpdateHook(m.apply)
	return m, nil
}

// MirrorConstructor builds Mirrors from REGISTER frames.
func MirrorConstructor(out Outbound, id wire.EntityID, typ wire.EntityType, _ mux.Session, payload []byte) (mux.Handler, error) {
	return NewMirror(id, typ, out, payload)
}

func (m *Mirror) apply(payload []byte) {
	st, err := DecodeState(payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = err
		return
	}
	if st.Name == "" {
		st.Name = m.state.Name
	}
	m.state = st
	m.err = nil
}

// State returns the last good state and the decode error of the latest update, if any.
func (m *Mirror) State() (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.err
}
