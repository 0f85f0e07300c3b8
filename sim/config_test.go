package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSimConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim-config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeSimConfig(t, `
[Simulation]
tick_cap   = 100
gravity    = 2.0
pass_bonus = 2.5
workers    = 4
pipe_speed = 4.0 ; scroll per tick
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.TickCap)
	assert.Equal(t, 2.0, cfg.Gravity)
	assert.Equal(t, 2.5, cfg.PassBonus)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 4.0, cfg.PipeSpeed, "inline comments are stripped")

	// Everything not mentioned keeps its default.
	assert.Equal(t, -10.5, cfg.FlapImpulse)
	assert.Equal(t, 144.0, cfg.BirdX)
	assert.Equal(t, 52.0, cfg.PipeWidth)
}

func TestLoadConfigWithoutSimulationSection(t *testing.T) {
	path := writeSimConfig(t, "[NEAT]\npop_size = 50\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeSimConfig(t, "[Simulation]\ngravity = -1.0\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gravity")
}

func TestLoadConfigRejectsMalformedNumbers(t *testing.T) {
	path := writeSimConfig(t, "[Simulation]\ngravity = heavy\n")
	_, err := LoadConfig(path)
	require.Error(t, err, "a key that does not parse must not fall back to its default")
	assert.Contains(t, err.Error(), "failed to map [Simulation] section")
	assert.Contains(t, err.Error(), "gravity")
}

func TestConfigValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero tick cap", func(c *Config) { c.TickCap = 0 }, "tick_cap"},
		{"zero gravity", func(c *Config) { c.Gravity = 0 }, "gravity"},
		{"downward flap", func(c *Config) { c.FlapImpulse = 1 }, "flap_impulse"},
		{"zero terminal velocity", func(c *Config) { c.TerminalVelocity = 0 }, "terminal_velocity"},
		{"zero pipe speed", func(c *Config) { c.PipeSpeed = 0 }, "pipe_speed"},
		{"zero spawn interval", func(c *Config) { c.SpawnInterval = 0 }, "spawn_interval"},
		{"negative tick reward", func(c *Config) { c.TickReward = -0.1 }, "tick_reward"},
		{"negative pass bonus", func(c *Config) { c.PassBonus = -1 }, "pass_bonus"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"zero bird width", func(c *Config) { c.BirdWidth = 0 }, "bird dimensions"},
		{"zero pipe width", func(c *Config) { c.PipeWidth = 0 }, "pipe_width"},
		{"ground above ceiling", func(c *Config) { c.GroundY = 50 }, "ground_y"},
		{"zero gap", func(c *Config) { c.GapHeight = 0 }, "gap_height"},
		{"gap too tall", func(c *Config) { c.GapHeight = 420 }, "does not fit"},
		{"start above ceiling", func(c *Config) { c.BirdStartY = 10 }, "bird_start_y"},
		{"bird outside world", func(c *Config) { c.BirdX = 400 }, "bird_x"},
		{"spawn inside world", func(c *Config) { c.SpawnX = 100 }, "spawn_x"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
