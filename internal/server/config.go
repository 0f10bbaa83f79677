package server

import (
	"time"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/protocol/session"
)

// SimulationConfig sizes the server-owned world and its enemies.
type SimulationConfig struct {
	Enemies      int
	TickInterval time.Duration
	MapWidth     uint32
	MapHeight    uint32
	PatrolStep   time.Duration
}

// ServiceConfig configures one entmux node.
type ServiceConfig struct {
	NodeID          string
	ListenAddr      string
	AdminListenAddr string
	CORSOrigins     []string
	// AdminToken, when set, is required as a bearer token on the
	// directory and simulation views.
	AdminToken string

	DuplicatePolicy      mux.DuplicatePolicy
	BroadcastParallelism int
	WarningLimit         observability.WarningLimit

	Session    session.Config
	Simulation SimulationConfig
}

func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Enemies:      4,
		TickInterval: 100 * time.Millisecond,
		MapWidth:     32,
		MapHeight:    32,
		PatrolStep:   250 * time.Millisecond,
	}
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		NodeID:               "entmux.local",
		ListenAddr:           ":9400",
		AdminListenAddr:      ":9401",
		CORSOrigins:          []string{"http://localhost:5173"},
		DuplicatePolicy:      mux.DuplicateReject,
		BroadcastParallelism: mux.DefaultConfig().BroadcastParallelism,
		WarningLimit:         observability.DefaultWarningLimit(),
		Session:              session.DefaultConfig(),
		Simulation:           DefaultSimulationConfig(),
	}
}

// WithDefaults fills unset fields. An empty AdminListenAddr stays empty
// and disables the admin HTTP server; zero Enemies disables the simulation.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if c.NodeID == "" {
		c.NodeID = def.NodeID
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = def.DuplicatePolicy
	}
	if c.BroadcastParallelism <= 0 {
		c.BroadcastParallelism = def.BroadcastParallelism
	}
	if c.WarningLimit.PerSecond <= 0 {
		c.WarningLimit = def.WarningLimit
	}
	c.Session = c.Session.WithDefaults()
	if c.Simulation.TickInterval <= 0 {
		c.Simulation.TickInterval = def.Simulation.TickInterval
	}
	if c.Simulation.MapWidth == 0 {
		c.Simulation.MapWidth = def.Simulation.MapWidth
	}
	if c.Simulation.MapHeight == 0 {
		c.Simulation.MapHeight = def.Simulation.MapHeight
	}
	if c.Simulation.PatrolStep <= 0 {
		c.Simulation.PatrolStep = def.Simulation.PatrolStep
	}
	return c
}
