package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/entmux/internal/entity"
	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/danmuck/entmux/internal/world"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// EnemyIDBase keeps server-owned ids out of the range peers usually pick.
const EnemyIDBase wire.EntityID = 0x8000_0000

// EnemyInfo is the admin view of one server-owned enemy.
type EnemyInfo struct {
	ID        wire.EntityID `json:"id"`
	Name      string        `json:"name"`
	X         uint32        `json:"x"`
	Y         uint32        `json:"y"`
	Followers int           `json:"followers"`
}

// Simulation owns the world map and the server-owned enemies.
type Simulation struct {
	node   string
	cfg    SimulationConfig
	world  *world.Map
	logger zerolog.Logger

	mu      sync.Mutex
	enemies []*entity.EnemyController
	ticks   uint64
}

func NewSimulation(node string, cfg SimulationConfig, out entity.Outbound, logger zerolog.Logger) *Simulation {
	m := world.NewMap(cfg.MapHeight, cfg.MapWidth)
	sim := &Simulation{
		node:   node,
		cfg:    cfg,
		world:  m,
		logger: logger.With().Str("component", "simulation").Logger(),
	}
	for i := 0; i < cfg.Enemies; i++ {
		row := uint32(i) % m.Height()
		patrol := entity.NewPatrolBehaviour(m, 0, row, cfg.PatrolStep)
		enemy := entity.NewEnemyController(EnemyIDBase+wire.EntityID(i), fmt.Sprintf("enemy-%d", i), out, patrol)
		enemy.Init()
		sim.enemies = append(sim.enemies, enemy)
	}
	return sim
}

func (s *Simulation) World() *world.Map { return s.world }

// Attach announces every enemy to a newly connected peer.
func (s *Simulation) Attach(peer mux.Session) error {
	var errs error
	for _, enemy := range s.snapshotEnemies() {
		errs = multierr.Append(errs, enemy.Attach(peer))
	}
	return errs
}

// Detach forgets peer without sending anything; the peer is gone.
func (s *Simulation) Detach(peer mux.Session) {
	for _, enemy := range s.snapshotEnemies() {
		enemy.SilentUnregister(peer)
	}
}

// Tick advances every behaviour by dt and broadcasts the new positions.
func (s *Simulation) Tick(dt time.Duration) error {
	s.mu.Lock()
	s.ticks++
	enemies := append([]*entity.EnemyController(nil), s.enemies...)
	s.mu.Unlock()

	var errs error
	for _, enemy := range enemies {
		enemy.UpdateBehaviour(dt)
		followers := len(enemy.Sessions())
		if followers == 0 {
			continue
		}
		observability.RecordBroadcast(s.node, followers)
		errs = multierr.Append(errs, enemy.Sync())
	}
	return errs
}

// Run ticks at the configured interval until ctx ends.
func (s *Simulation) Run(ctx context.Context) {
	if len(s.snapshotEnemies()) == 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.Tick(now.Sub(last)); err != nil {
				s.logger.Debug().Err(err).Msg("simulation.sync_partial")
			}
			last = now
		}
	}
}

func (s *Simulation) Enemies() []EnemyInfo {
	enemies := s.snapshotEnemies()
	out := make([]EnemyInfo, 0, len(enemies))
	for _, enemy := range enemies {
		st := enemy.State()
		out = append(out, EnemyInfo{
			ID:        enemy.ID(),
			Name:      st.Name,
			X:         st.X,
			Y:         st.Y,
			Followers: len(enemy.Sessions()),
		})
	}
	return out
}

func (s *Simulation) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Close releases every enemy.
func (s *Simulation) Close() error {
	var errs error
	for _, enemy := range s.snapshotEnemies() {
		errs = multierr.Append(errs, enemy.Close())
	}
	return errs
}

func (s *Simulation) snapshotEnemies() []*entity.EnemyController {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.EnemyController(nil), s.enemies...)
}
