// Package sim implements the scrolling pipe world the evolved networks are
// scored in: agent physics, collision, observation, and the per-generation
// evaluation loop.
package sim

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds every simulation parameter, read from the [Simulation] section
// of the same INI file the neat package reads its sections from.
//
// Coordinates follow the original game: y grows downward, the ceiling is
// above the ground numerically, and the upward flap impulse is negative.
type Config struct {
	TickCap int `ini:"tick_cap"`

	Gravity          float64 `ini:"gravity"`           // per-tick downward acceleration
	FlapImpulse      float64 `ini:"flap_impulse"`      // velocity override on flap, negative
	TerminalVelocity float64 `ini:"terminal_velocity"` // |velocity| cap
	PipeSpeed        float64 `ini:"pipe_speed"`        // leftward scroll per tick
	SpawnInterval    float64 `ini:"spawn_interval"`    // horizontal distance between spawns
	GapHeight        float64 `ini:"gap_height"`

	TickReward float64 `ini:"tick_reward"` // fitness per survived tick
	PassBonus  float64 `ini:"pass_bonus"`  // fitness per pipe cleared

	Workers int `ini:"workers"` // decision-phase parallelism, 0 means GOMAXPROCS

	// World geometry.
	WorldWidth  float64 `ini:"world_width"`
	WorldHeight float64 `ini:"world_height"`
	CeilingY    float64 `ini:"ceiling_y"`
	GroundY     float64 `ini:"ground_y"`
	BirdX       float64 `ini:"bird_x"` // fixed agent column, left edge
	BirdStartY  float64 `ini:"bird_start_y"`
	BirdWidth   float64 `ini:"bird_width"`
	BirdHeight  float64 `ini:"bird_height"`
	PipeWidth   float64 `ini:"pipe_width"`
	SpawnX      float64 `ini:"spawn_x"` // where new pipes appear
}

// gapMargin keeps the randomized gap center away from the ceiling and ground
// so the gap is always reachable.
const gapMargin = 10.0

// DefaultConfig returns the original game's tuning.
func DefaultConfig() *Config {
	return &Config{
		TickCap:          5000,
		Gravity:          3.0,
		FlapImpulse:      -10.5,
		TerminalVelocity: 16.0,
		PipeSpeed:        5.0,
		SpawnInterval:    200.0,
		GapHeight:        100.0,
		TickReward:       0.1,
		PassBonus:        1.0,
		Workers:          0,
		WorldWidth:       288.0,
		WorldHeight:      512.0,
		CeilingY:         50.0,
		GroundY:          475.0,
		BirdX:            144.0,
		BirdStartY:       256.0,
		BirdWidth:        34.0,
		BirdHeight:       24.0,
		PipeWidth:        52.0,
		SpawnX:           350.0,
	}
}

// LoadConfig reads the [Simulation] section from an INI file. Missing keys
// keep their defaults; present keys that do not parse fail the load. The
// result is validated before return.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()
	if err := cfg.Section("Simulation").StrictMapTo(config); err != nil {
		return nil, fmt.Errorf("failed to map [Simulation] section: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges. A non-nil result is fatal to the run.
func (c *Config) Validate() error {
	if c.TickCap <= 0 {
		return fmt.Errorf("config error: tick_cap must be positive")
	}
	if c.Gravity <= 0 {
		return fmt.Errorf("config error: gravity must be positive")
	}
	if c.FlapImpulse >= 0 {
		return fmt.Errorf("config error: flap_impulse must be negative (upward)")
	}
	if c.TerminalVelocity <= 0 {
		return fmt.Errorf("config error: terminal_velocity must be positive")
	}
	if c.PipeSpeed <= 0 {
		return fmt.Errorf("config error: pipe_speed must be positive")
	}
	if c.SpawnInterval <= 0 {
		return fmt.Errorf("config error: spawn_interval must be positive")
	}
	if c.TickReward < 0 {
		return fmt.Errorf("config error: tick_reward cannot be negative")
	}
	if c.PassBonus < 0 {
		return fmt.Errorf("config error: pass_bonus cannot be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: workers cannot be negative")
	}
	if c.BirdWidth <= 0 || c.BirdHeight <= 0 {
		return fmt.Errorf("config error: bird dimensions must be positive")
	}
	if c.PipeWidth <= 0 {
		return fmt.Errorf("config error: pipe_width must be positive")
	}
	if c.GroundY <= c.CeilingY {
		return fmt.Errorf("config error: ground_y must be greater than ceiling_y (y grows downward)")
	}
	if c.GapHeight <= 0 {
		return fmt.Errorf("config error: gap_height must be positive")
	}
	if c.GapHeight+2*gapMargin > c.GroundY-c.CeilingY {
		return fmt.Errorf("config error: gap_height %.1f does not fit between ceiling and ground", c.GapHeight)
	}
	if c.BirdStartY <= c.CeilingY || c.BirdStartY+c.BirdHeight >= c.GroundY {
		return fmt.Errorf("config error: bird_start_y must be inside world bounds")
	}
	if c.BirdX < 0 || c.BirdX+c.BirdWidth >= c.WorldWidth {
		return fmt.Errorf("config error: bird_x must be inside the world")
	}
	if c.SpawnX < c.WorldWidth {
		return fmt.Errorf("config error: spawn_x must be at or beyond the right edge")
	}
	return nil
}
