package sim

import "math/rand"

// World tracks the pipes and drives one generation's ticks. The agent column
// is fixed; pipes scroll left past it. All randomness (gap centers) comes
// from the injected rng, so identical seeds replay identical worlds.
type World struct {
	cfg        *Config
	rng        *rand.Rand
	pipes      []*Pipe // ordered by X ascending
	nextPipeID int
	tick       int
	passed     int // pipes the agent column has passed
}

// NewWorld creates a world seeded with one initial pipe at the spawn line.
func NewWorld(cfg *Config, rng *rand.Rand) *World {
	w := &World{cfg: cfg, rng: rng, nextPipeID: 1}
	w.spawn()
	return w
}

func (w *World) spawn() {
	w.pipes = append(w.pipes, NewPipe(w.nextPipeID, w.cfg.SpawnX, w.cfg, w.rng))
	w.nextPipeID++
}

// Tick reports how many ticks have been advanced.
func (w *World) Tick() int { return w.tick }

// PassedCount reports how many pipes the agent column has passed.
func (w *World) PassedCount() int { return w.passed }

// NearestPipe returns the first pipe not yet behind the agent column, the one
// agents must thread next. Nil only if no pipe is ahead, which the spawn
// cadence prevents.
func (w *World) NearestPipe() *Pipe {
	for _, p := range w.pipes {
		if p.TrailingEdge() > w.cfg.BirdX {
			return p
		}
	}
	return nil
}

// AdvanceTick advances the world by one tick: scrolls and spawns pipes, drops
// the ones off the trailing edge, steps each live agent with its chosen
// action and resolves collisions in fixed index order, then credits pass
// bonuses. Dead agents are skipped entirely; marking dead is the only change
// ever made to them.
func (w *World) AdvanceTick(agents []*Agent, actions []Action) {
	w.tick++

	for _, p := range w.pipes {
		p.Move(w.cfg.PipeSpeed)
	}
	if len(w.pipes) == 0 || w.pipes[len(w.pipes)-1].X <= w.cfg.SpawnX-w.cfg.SpawnInterval {
		w.spawn()
	}

	kept := w.pipes[:0]
	for _, p := range w.pipes {
		if p.TrailingEdge() > 0 {
			kept = append(kept, p)
		}
	}
	w.pipes = kept

	nearest := w.NearestPipe()
	for i, a := range agents {
		if !a.Alive {
			continue
		}
		a.Step(actions[i], w.cfg)
		if w.collides(a, nearest) {
			a.Alive = false
		}
	}

	// Per-agent pass credit. A pipe counts as passed once it scrolls past the
	// left edge of the agent column. The shared Passed flag records the
	// world-level fact once; scoring goes through each agent's own lastPassed
	// mark so agents score independently.
	for _, p := range w.pipes {
		if p.Passed || p.X >= w.cfg.BirdX {
			continue
		}
		p.Passed = true
		w.passed++
		for _, a := range agents {
			if a.Alive && a.lastPassed < p.ID {
				a.Fitness += w.cfg.PassBonus
				a.lastPassed = p.ID
			}
		}
	}
}

// collides tests the agent's box against ground, ceiling and the nearest
// pipe's gap edges.
func (w *World) collides(a *Agent, nearest *Pipe) bool {
	if a.Y+w.cfg.BirdHeight >= w.cfg.GroundY {
		return true
	}
	if a.Y <= w.cfg.CeilingY {
		return true
	}
	if nearest == nil {
		return false
	}
	if nearest.X >= w.cfg.BirdX+w.cfg.BirdWidth || nearest.TrailingEdge() <= w.cfg.BirdX {
		return false // no horizontal overlap
	}
	return a.Y < nearest.GapTop() || a.Y+w.cfg.BirdHeight > nearest.GapBottom()
}
