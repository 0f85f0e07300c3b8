package neat

import "time"

// GenerationSummary is the per-generation record handed to reporters after
// speciation, before reproduction.
type GenerationSummary struct {
	Generation     int
	PopulationSize int

	BestFitness       float64 // best ever, never decreases across a run
	BestKey           int
	BestFingerprint   uint64  // topology/weight hash of the best-ever genome
	GenerationBest    float64 // best of this generation only
	GenerationBestKey int

	MeanFitness  float64
	StdevFitness float64

	SpeciesCount int
	SpeciesSizes map[int]int // species key -> member count
	Staleness    map[int]int // species key -> generations since last improvement

	Duration time.Duration
}

// Reporter observes the evolution loop.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(summary GenerationSummary)
	FoundSolution(generation int, best *Genome)
}
