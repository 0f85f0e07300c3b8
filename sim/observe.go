package sim

import "github.com/baldhumanity/neatbird/neat/nn"

// Action is what an agent can do on one tick.
type Action uint8

const (
	ActionNone Action = iota
	ActionFlap
)

func (a Action) String() string {
	if a == ActionFlap {
		return "flap"
	}
	return "none"
}

// NumInputs is the observation width. The genome config's num_inputs must
// match it; the Runner checks at construction.
const NumInputs = 5

// flapThreshold splits the network's scalar output into the two actions.
const flapThreshold = 0.5

// Observe builds the fixed observation vector for one agent: vertical
// position, vertical velocity, vertical distance to the gap's top lip,
// vertical distance to the gap's bottom lip, and horizontal distance to the
// pipe's leading edge. With no pipe ahead the pipe terms describe a centered
// gap a full world away, which cannot happen under the normal spawn cadence.
func Observe(a *Agent, nearest *Pipe, cfg *Config) [NumInputs]float64 {
	gapTop := (cfg.CeilingY + cfg.GroundY - cfg.GapHeight) / 2
	gapBottom := gapTop + cfg.GapHeight
	dist := cfg.WorldWidth
	if nearest != nil {
		gapTop = nearest.GapTop()
		gapBottom = nearest.GapBottom()
		dist = nearest.X - cfg.BirdX
	}
	return [NumInputs]float64{
		a.Y,
		a.Vel,
		a.Y - gapTop,
		gapBottom - (a.Y + cfg.BirdHeight),
		dist,
	}
}

// Decide runs the network forward pass on an observation and thresholds the
// single output into an action. Pure: no state is retained between calls, so
// concurrent calls for different agents are safe. A nil network or a failed
// activation yields the deterministic default.
func Decide(net *nn.FeedForwardNetwork, obs [NumInputs]float64) Action {
	if net == nil {
		return ActionNone
	}
	out, err := net.Activate(obs[:])
	if err != nil || len(out) == 0 {
		return ActionNone
	}
	if out[0] > flapThreshold {
		return ActionFlap
	}
	return ActionNone
}
