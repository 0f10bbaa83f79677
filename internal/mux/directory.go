package mux

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/entmux/internal/protocol/wire"
)

// EntityInfo is a read-only view of one directory entry.
type EntityInfo struct {
	ID           wire.EntityID   `json:"id"`
	Type         wire.EntityType `json:"type"`
	RegisteredBy string          `json:"registered_by"`
	RegisteredAt time.Time       `json:"registered_at"`
}

type directoryEntry struct {
	info    EntityInfo
	handler Handler
}

// Directory maps entity ids to their handlers. Lookups never insert.
type Directory struct {
	mu      sync.RWMutex
	entries map[wire.EntityID]directoryEntry
}

func newDirectory() *Directory {
	return &Directory{entries: make(map[wire.EntityID]directoryEntry)}
}

// Lookup returns the handler for id, or false when id is not registered.
func (d *Directory) Lookup(id wire.EntityID) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Snapshot returns every entry sorted by id.
func (d *Directory) Snapshot() []EntityInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]EntityInfo, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *Directory) insert(info EntityInfo, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[info.ID]; ok {
		return ErrDuplicateRegistration
	}
	d.entries[info.ID] = directoryEntry{info: info, handler: h}
	return nil
}

func (d *Directory) remove(id wire.EntityID) (Handler, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, false
	}
	delete(d.entries, id)
	return e.handler, true
}

func (d *Directory) handlers() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]wire.EntityID, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.entries[id].handler)
	}
	return out
}

func (d *Directory) drain() []Handler {
	hs := d.handlers()
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.entries)
	return hs
}
