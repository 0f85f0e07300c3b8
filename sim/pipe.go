package sim

import "math/rand"

// Pipe is one obstacle: a vertical gap at a horizontal position, scrolling
// left. Shared read-only by all agents during a tick. IDs are monotone within
// a generation, so per-agent pass bookkeeping can compare against them.
type Pipe struct {
	ID        int
	X         float64 // leading (left) edge
	Width     float64
	GapCenter float64
	GapHeight float64
	Passed    bool // has scrolled past the agent column's left edge
}

// NewPipe spawns a pipe at x with a gap center drawn uniformly from bounds
// that keep the whole gap reachable between ceiling and ground.
func NewPipe(id int, x float64, cfg *Config, rng *rand.Rand) *Pipe {
	lo := cfg.CeilingY + cfg.GapHeight/2 + gapMargin
	hi := cfg.GroundY - cfg.GapHeight/2 - gapMargin
	return &Pipe{
		ID:        id,
		X:         x,
		Width:     cfg.PipeWidth,
		GapCenter: lo + rng.Float64()*(hi-lo),
		GapHeight: cfg.GapHeight,
	}
}

// GapTop is the y of the upper pipe's lower lip.
func (p *Pipe) GapTop() float64 { return p.GapCenter - p.GapHeight/2 }

// GapBottom is the y of the lower pipe's upper lip.
func (p *Pipe) GapBottom() float64 { return p.GapCenter + p.GapHeight/2 }

// TrailingEdge is the x of the pipe's right side.
func (p *Pipe) TrailingEdge() float64 { return p.X + p.Width }

// Move scrolls the pipe left.
func (p *Pipe) Move(speed float64) { p.X -= speed }
