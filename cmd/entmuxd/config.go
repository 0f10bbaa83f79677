package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/entmux/internal/mux"
	"github.com/danmuck/entmux/internal/server"
)

// entmuxd config.toml key mapping to node runtime settings.
type fileConfig struct {
	NodeID               string   `toml:"node_id"`
	Addr                 string   `toml:"addr"`
	AdminListenAddr      string   `toml:"admin_listen_addr"`
	CorsOrigins          []string `toml:"cors_origins"`
	AdminToken           string   `toml:"admin_token"`
	DuplicatePolicy      string   `toml:"duplicate_policy"`
	BroadcastParallelism int      `toml:"broadcast_parallelism"`
	WarningRate          float64  `toml:"warning_rate"`
	WarningBurst         int      `toml:"warning_burst"`
	SessionSendTimeout   string   `toml:"session_send_timeout"`
	SessionWriteTimeout  string   `toml:"session_write_timeout"`
	SessionReadTimeout   string   `toml:"session_read_timeout"`
	SessionOutboxDepth   int      `toml:"session_outbox_depth"`
	MaxFrameBytes        uint32   `toml:"max_frame_bytes"`
	SimEnemies           int      `toml:"sim_enemies"`
	SimTickInterval      string   `toml:"sim_tick_interval"`
	SimMapWidth          uint32   `toml:"sim_map_width"`
	SimMapHeight         uint32   `toml:"sim_map_height"`
	SimPatrolStep        string   `toml:"sim_patrol_step"`
}

// entmuxd loader for TOML config with default overlay.
func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load entmuxd config: %w", err)
	}

	if meta.IsDefined("node_id") {
		cfg.NodeID = strings.TrimSpace(raw.NodeID)
	}
	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("duplicate_policy") {
		policy, err := mux.ParseDuplicatePolicy(raw.DuplicatePolicy)
		if err != nil {
			return server.ServiceConfig{}, fmt.Errorf("load entmuxd config: %w", err)
		}
		cfg.DuplicatePolicy = policy
	}
	if meta.IsDefined("broadcast_parallelism") {
		cfg.BroadcastParallelism = raw.BroadcastParallelism
	}
	if meta.IsDefined("warning_rate") {
		cfg.WarningLimit.PerSecond = raw.WarningRate
	}
	if meta.IsDefined("warning_burst") {
		cfg.WarningLimit.Burst = raw.WarningBurst
	}
	if meta.IsDefined("session_outbox_depth") {
		cfg.Session.OutboxDepth = raw.SessionOutboxDepth
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.Session.Limits.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("sim_enemies") {
		cfg.Simulation.Enemies = raw.SimEnemies
	}
	if meta.IsDefined("sim_map_width") {
		cfg.Simulation.MapWidth = raw.SimMapWidth
	}
	if meta.IsDefined("sim_map_height") {
		cfg.Simulation.MapHeight = raw.SimMapHeight
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"session_send_timeout", raw.SessionSendTimeout, &cfg.Session.SendTimeout},
		{"session_write_timeout", raw.SessionWriteTimeout, &cfg.Session.WriteTimeout},
		{"session_read_timeout", raw.SessionReadTimeout, &cfg.Session.ReadTimeout},
		{"sim_tick_interval", raw.SimTickInterval, &cfg.Simulation.TickInterval},
		{"sim_patrol_step", raw.SimPatrolStep, &cfg.Simulation.PatrolStep},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return server.ServiceConfig{}, fmt.Errorf("load entmuxd config: %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if strings.TrimSpace(cfg.NodeID) == "" {
		return server.ServiceConfig{}, fmt.Errorf("load entmuxd config: node_id must not be empty")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return server.ServiceConfig{}, fmt.Errorf("load entmuxd config: addr must not be empty")
	}
	return cfg, nil
}
