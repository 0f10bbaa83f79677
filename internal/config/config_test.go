package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/entmux/internal/protocol/wire"
	"github.com/danmuck/entmux/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestTemplatesLoadAndValidate(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()

	nodePath := filepath.Join(dir, "node.toml")
	require.NoError(t, WriteTemplate(nodePath, "node", false))
	node, err := LoadNodeConfig(nodePath)
	require.NoError(t, err)
	assert.Equal(t, "entmux.local", node.NodeID)
	assert.Equal(t, "reject", node.DuplicatePolicy)
	assert.Equal(t, 4, node.SimEnemies)
	assert.Equal(t, uint32(1048576), node.MaxFrameBytes)

	clientPath := filepath.Join(dir, "client.toml")
	require.NoError(t, WriteTemplate(clientPath, "client", false))
	client, err := LoadClientConfig(clientPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig(), client)
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "x = 1\n")
	require.Error(t, WriteTemplate(path, "node", false))
	require.NoError(t, WriteTemplate(path, "node", true))
	_, err := Template("mirror")
	require.Error(t, err)
}

func TestLoadNodeConfigDefaultsAndValidation(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadNodeConfig(writeFile(t, "sim_enemies = 0\n"))
	require.NoError(t, err)
	assert.Equal(t, "entmux.local", cfg.NodeID)
	assert.Equal(t, ":9400", cfg.Addr)

	cases := map[string]string{
		"policy":   `duplicate_policy = "merge"`,
		"duration": `sim_tick_interval = "soon"`,
		"negative": `session_send_timeout = "-1s"`,
		"enemies":  `sim_enemies = -2`,
		"outbox":   `session_outbox_depth = -1`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadNodeConfig(writeFile(t, body+"\n"))
			require.Error(t, err)
		})
	}

	_, err = LoadNodeConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestClientRuntime(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadClientConfig(writeFile(t, "addr = \"10.0.0.2:9400\"\nentity_id = 42\nentity_type = 1\ninterval = \"50ms\"\ndial_attempts = 3\n"))
	require.NoError(t, err)

	rt, err := cfg.Runtime()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:9400", rt.Addr)
	assert.Equal(t, wire.EntityID(42), rt.EntityID)
	assert.Equal(t, wire.EntityType(1), rt.EntityType)
	assert.Equal(t, 50*time.Millisecond, rt.Interval)
	assert.Equal(t, 500*time.Millisecond, rt.Linger)
	assert.Equal(t, 3, rt.Session.MaxDialAttempts)

	_, err = ClientConfig{Interval: "nope"}.Runtime()
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	testlog.Start(t)
	d, err := ParseDuration("")
	require.NoError(t, err)
	assert.Zero(t, d)
	d, err = ParseDuration(" 2s ")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}
