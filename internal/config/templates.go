package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "node":
		return nodeTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const nodeTemplate = `node_id = "entmux.local"
addr = ":9400"
admin_listen_addr = ":9401"
cors_origins = ["http://localhost:5173"]
# bearer token for /entities and /enemies; empty leaves them open
admin_token = ""

# reject | replace
duplicate_policy = "reject"
broadcast_parallelism = 16
warning_rate = 1.0
warning_burst = 5

session_send_timeout = "250ms"
session_write_timeout = "10s"
session_read_timeout = "0s"
session_outbox_depth = 256
max_frame_bytes = 1048576

sim_enemies = 4
sim_tick_interval = "100ms"
sim_map_width = 32
sim_map_height = 32
sim_patrol_step = "250ms"
`

const clientTemplate = `name = "entmuxctl"
addr = "localhost:9400"
entity_id = 7
entity_type = 2
updates = 10
interval = "200ms"
dial_attempts = 8
linger = "500ms"
`
