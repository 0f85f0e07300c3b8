package sim

// BirdState is one agent's state inside a snapshot.
type BirdState struct {
	GenomeID int
	Y        float64
	Vel      float64
	Alive    bool
	Fitness  float64
}

// PipeState is one pipe's state inside a snapshot.
type PipeState struct {
	ID        int
	X         float64
	GapTop    float64
	GapBottom float64
	Passed    bool
}

// Snapshot is the read-only view published to the observer once per tick.
// It shares no memory with the simulation, so consumers may keep it around.
type Snapshot struct {
	Generation  int
	Tick        int
	Birds       []BirdState
	Pipes       []PipeState
	Alive       int
	BestFitness float64 // best seen across the whole run so far
}

// Summary is the end-of-run report across every generation simulated.
type Summary struct {
	BestGenomeID   int
	BestFitness    float64
	Generations    int
	TicksSimulated int
	PipesPassed    int
}

func buildSnapshot(generation int, world *World, agents []*Agent, bestFitness float64) *Snapshot {
	s := &Snapshot{
		Generation:  generation,
		Tick:        world.Tick(),
		Birds:       make([]BirdState, 0, len(agents)),
		Pipes:       make([]PipeState, 0, len(world.pipes)),
		BestFitness: bestFitness,
	}
	for _, a := range agents {
		s.Birds = append(s.Birds, BirdState{
			GenomeID: a.GenomeID,
			Y:        a.Y,
			Vel:      a.Vel,
			Alive:    a.Alive,
			Fitness:  a.Fitness,
		})
		if a.Alive {
			s.Alive++
		}
	}
	for _, p := range world.pipes {
		s.Pipes = append(s.Pipes, PipeState{
			ID:        p.ID,
			X:         p.X,
			GapTop:    p.GapTop(),
			GapBottom: p.GapBottom(),
			Passed:    p.Passed,
		})
	}
	return s
}
