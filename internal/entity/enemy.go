package entity

import (
	"sync"
	"time"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/protocol/wire"
)

// Body is the part of an entity a Behaviour may steer.
type Body interface {
	Position() (x, y uint32)
	MoveTo(x, y uint32)
}

// Behaviour drives a server-owned entity between ticks.
type Behaviour interface {
	Init(b Body)
	Update(b Body, dt time.Duration)
}

// EnemyController is a server-owned enemy. Peers learn about it through
// RegisterSession and follow it through Update broadcasts.
type EnemyController struct {
	*NetworkEntity

	behaviour Behaviour

	mu   sync.RWMutex
	name string
	x, y uint32
}

func NewEnemyController(id wire.EntityID, name string, out Outbound, behaviour Behaviour) *EnemyController {
	return &EnemyController{
		NetworkEntity: NewNetworkEntity(id, TypeServerEnemyController, out),
		behaviour:     behaviour,
		name:          name,
	}
}

func (c *EnemyController) Init() {
	if c.behaviour != nil {
		c.behaviour.Init(c)
	}
}

func (c *EnemyController) UpdateBehaviour(dt time.Duration) {
	if c.behaviour != nil {
		c.behaviour.Update(c, dt)
	}
}

func (c *EnemyController) Position() (uint32, uint32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.x, c.y
}

func (c *EnemyController) MoveTo(x, y uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x, c.y = x, y
}

func (c *EnemyController) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{X: c.x, Y: c.y, Name: c.name}
}

// Attach announces the enemy to s with its current state.
func (c *EnemyController) Attach(s mux.Session) error {
	return c.RegisterSession(s, EncodeState(c.State()))
}

// Detach tells s the enemy is gone and stops following it.
func (c *EnemyController) Detach(s mux.Session) error {
	return c.UnregisterSession(s, nil)
}

// Sync broadcasts the current position to every follower.
func (c *EnemyController) Sync() error {
	st := c.State()
	st.Name = ""
	return c.Update(EncodeState(st))
}
