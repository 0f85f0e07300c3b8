package sim

import (
	"math"

	"github.com/baldhumanity/neatbird/neat/nn"
)

// Agent is one controllable bird: vertical state, accrued fitness and the
// compiled network that pilots it. Its horizontal column is fixed; the world
// scrolls past it. Owned exclusively by the Runner for one generation.
type Agent struct {
	GenomeID int
	Y        float64 // top edge
	Vel      float64
	Alive    bool
	Fitness  float64

	net        *nn.FeedForwardNetwork // nil for a degenerate topology
	lastPassed int                    // id of the last pipe this agent was credited for
}

// NewAgent places an agent at the configured start position. A nil network is
// allowed; the agent then always takes the default action.
func NewAgent(genomeID int, net *nn.FeedForwardNetwork, cfg *Config) *Agent {
	return &Agent{
		GenomeID: genomeID,
		Y:        cfg.BirdStartY,
		Alive:    true,
		net:      net,
	}
}

// Step applies one tick of motion. Gravity accelerates downward up to the
// terminal velocity cap; a flap sets velocity to the upward impulse,
// overriding rather than adding. Position then moves by velocity. Non-finite
// values from pathological inputs are clamped, never propagated.
func (a *Agent) Step(action Action, cfg *Config) {
	if action == ActionFlap {
		a.Vel = cfg.FlapImpulse
	} else {
		a.Vel += cfg.Gravity
	}
	if math.IsNaN(a.Vel) {
		a.Vel = 0
	}
	if a.Vel > cfg.TerminalVelocity {
		a.Vel = cfg.TerminalVelocity
	} else if a.Vel < -cfg.TerminalVelocity {
		a.Vel = -cfg.TerminalVelocity
	}

	a.Y += a.Vel
	switch {
	case math.IsNaN(a.Y):
		a.Y = cfg.BirdStartY
	case math.IsInf(a.Y, -1):
		a.Y = cfg.CeilingY
	case math.IsInf(a.Y, 1):
		a.Y = cfg.GroundY
	}
}
