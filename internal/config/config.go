package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/entmux/internal/mux"
	"github.com/pelletier/go-toml/v2"
)

// NodeConfig is the entmuxd config file. Durations are Go duration strings.
type NodeConfig struct {
	NodeID               string   `toml:"node_id"`
	Addr                 string   `toml:"addr"`
	AdminListenAddr      string   `toml:"admin_listen_addr"`
	CorsOrigins          []string `toml:"cors_origins"`
	AdminToken           string   `toml:"admin_token"`
	DuplicatePolicy      string   `toml:"duplicate_policy"`
	BroadcastParallelism int      `toml:"broadcast_parallelism"`
	WarningRate          float64  `toml:"warning_rate"`
	WarningBurst         int      `toml:"warning_burst"`

	SessionSendTimeout  string `toml:"session_send_timeout"`
	SessionWriteTimeout string `toml:"session_write_timeout"`
	SessionReadTimeout  string `toml:"session_read_timeout"`
	SessionOutboxDepth  int    `toml:"session_outbox_depth"`
	MaxFrameBytes       uint32 `toml:"max_frame_bytes"`

	SimEnemies      int    `toml:"sim_enemies"`
	SimTickInterval string `toml:"sim_tick_interval"`
	SimMapWidth     uint32 `toml:"sim_map_width"`
	SimMapHeight    uint32 `toml:"sim_map_height"`
	SimPatrolStep   string `toml:"sim_patrol_step"`
}

// ClientConfig is the entmuxctl config file.
type ClientConfig struct {
	Name         string `toml:"name"`
	Addr         string `toml:"addr"`
	EntityID     uint32 `toml:"entity_id"`
	EntityType   uint32 `toml:"entity_type"`
	Updates      int    `toml:"updates"`
	Interval     string `toml:"interval"`
	DialAttempts int    `toml:"dial_attempts"`
	Linger       string `toml:"linger"`
}

func LoadNodeConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig
	if err := loadToml(path, &cfg); err != nil {
		return NodeConfig{}, err
	}
	if cfg.NodeID == "" {
		cfg.NodeID = "entmux.local"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9400"
	}
	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Name:         "entmuxctl",
		Addr:         "localhost:9400",
		EntityID:     7,
		EntityType:   2,
		Updates:      10,
		Interval:     "200ms",
		DialAttempts: 8,
		Linger:       "500ms",
	}
}

func (c ClientConfig) WithDefaults() ClientConfig {
	def := DefaultClientConfig()
	if strings.TrimSpace(c.Name) == "" {
		c.Name = def.Name
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = def.Addr
	}
	if c.Interval == "" {
		c.Interval = def.Interval
	}
	if c.DialAttempts == 0 {
		c.DialAttempts = def.DialAttempts
	}
	if c.Linger == "" {
		c.Linger = def.Linger
	}
	return c
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateNodeConfig(cfg NodeConfig) error {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return fmt.Errorf("node config missing node_id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("node config missing addr")
	}
	if _, err := mux.ParseDuplicatePolicy(cfg.DuplicatePolicy); err != nil {
		return fmt.Errorf("node config duplicate_policy: %w", err)
	}
	if cfg.BroadcastParallelism < 0 {
		return fmt.Errorf("node config broadcast_parallelism must be >= 0")
	}
	if cfg.WarningRate < 0 || cfg.WarningBurst < 0 {
		return fmt.Errorf("node config warning_rate/warning_burst must be >= 0")
	}
	if cfg.SessionOutboxDepth < 0 {
		return fmt.Errorf("node config session_outbox_depth must be >= 0")
	}
	durations := map[string]string{
		"session_send_timeout":  cfg.SessionSendTimeout,
		"session_write_timeout": cfg.SessionWriteTimeout,
		"session_read_timeout":  cfg.SessionReadTimeout,
		"sim_tick_interval":     cfg.SimTickInterval,
		"sim_patrol_step":       cfg.SimPatrolStep,
	}
	for key, raw := range durations {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("node config %s: %w", key, err)
		}
	}
	if cfg.SimEnemies < 0 {
		return fmt.Errorf("node config sim_enemies must be >= 0")
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("client config missing addr")
	}
	if cfg.Updates < 0 {
		return fmt.Errorf("client config updates must be >= 0")
	}
	if cfg.DialAttempts < 0 {
		return fmt.Errorf("client config dial_attempts must be >= 0")
	}
	for key, raw := range map[string]string{"interval": cfg.Interval, "linger": cfg.Linger} {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("client config %s: %w", key, err)
		}
	}
	return nil
}

// ParseDuration parses a Go duration string; empty means zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}
