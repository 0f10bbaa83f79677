package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/entmux/internal/observability"
	"github.com/danmuck/entmux/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to node config.toml (defaults when empty)")
	flag.Parse()

	logger := observability.InitLogger("entmuxd")

	cfg := server.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "entmuxd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logger.Info().
		Str("node", cfg.NodeID).
		Str("addr", cfg.ListenAddr).
		Str("admin", cfg.AdminListenAddr).
		Str("duplicate_policy", string(cfg.DuplicatePolicy)).
		Int("enemies", cfg.Simulation.Enemies).
		Msg("entmuxd.start")

	svc := server.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "entmuxd: %v\n", err)
		os.Exit(1)
	}
}
