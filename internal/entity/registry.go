package entity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

var (
	ErrTypeRegistered = errors.New("entity: type already registered")
	ErrUnknownType    = errors.New("entity: unknown entity type")
	ErrUnbound        = errors.New("entity: registry not bound to an outbound")
)

// Constructor builds the handler for one REGISTER frame.
type Constructor func(out Outbound, id wire.EntityID, typ wire.EntityType, s mux.Session, payload []byte) (mux.Handler, error)

// GenericConstructor builds a plain NetworkEntity for any type.
func GenericConstructor(out Outbound, id wire.EntityID, typ wire.EntityType, _ mux.Session, _ []byte) (mux.Handler, error) {
	return NewNetworkEntity(id, typ, out), nil
}

// Registry is a mux.Factory keyed by entity type. Types without a
// constructor fall back to the fallback constructor, when one is set.
type Registry struct {
	mu       sync.RWMutex
	out      Outbound
	ctors    map[wire.EntityType]Constructor
	fallback Constructor
}

var _ mux.Factory = (*Registry)(nil)

// NewRegistry returns a registry whose fallback builds plain NetworkEntity handlers.
func NewRegistry() *Registry {
	return &Registry{
		ctors:    make(map[wire.EntityType]Constructor),
		fallback: GenericConstructor,
	}
}

// Bind sets the egress handed to every constructed entity. The multiplexer
// takes the registry as its factory, so binding happens after both exist.
func (r *Registry) Bind(out Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = out
}

func (r *Registry) Register(typ wire.EntityType, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("entity: nil constructor for type %d", typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[typ]; ok {
		return fmt.Errorf("%w: %d", ErrTypeRegistered, typ)
	}
	r.ctors[typ] = ctor
	return nil
}

// SetFallback replaces the fallback constructor; nil makes unknown types fail.
func (r *Registry) SetFallback(ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = ctor
}

func (r *Registry) Types() []wire.EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.EntityType, 0, len(r.ctors))
	for typ := range r.ctors {
		out = append(out, typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Create(id wire.EntityID, typ wire.EntityType, s mux.Session, payload []byte) (mux.Handler, error) {
	r.mu.RLock()
	out := r.out
	ctor, ok := r.ctors[typ]
	if !ok {
		ctor = r.fallback
	}
	r.mu.RUnlock()

	if out == nil {
		return nil, ErrUnbound
	}
	if ctor == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typ)
	}
	return ctor(out, id, typ, s, payload)
}
