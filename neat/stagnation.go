package neat

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Stagnation updates per-species fitness history and decides which species
// have gone too long without improvement.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a stagnation manager for the configured fitness measure.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := speciesFitnessFuncs[config.SpeciesFitnessFunc]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{
		Config:             config,
		SpeciesFitnessFunc: fn,
	}, nil
}

// StagnationInfo is the verdict for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update appends this generation's fitness measure to every species' history
// and marks species stagnant when they have not improved for the configured
// limit. The top species_elitism species by fitness are never marked, and
// species are spared rather than letting the non-stagnant count drop below
// that floor. Results are ordered by ascending species fitness.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	type entry struct {
		ID      int
		Species *Species
	}
	entries := make([]entry, 0, len(speciesSet.Species))
	for _, sid := range speciesSet.sortedSpeciesKeys() {
		sp := speciesSet.Species[sid]

		prevMax := math.Inf(-1)
		if len(sp.FitnessHistory) > 0 {
			prevMax = floats.Max(sp.FitnessHistory)
		}
		sp.Fitness = s.SpeciesFitnessFunc(sp.GetFitnesses())
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		if sp.Fitness > prevMax {
			sp.LastImproved = generation
		}

		entries = append(entries, entry{sid, sp})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Species.Fitness != entries[j].Species.Fitness {
			return entries[i].Species.Fitness < entries[j].Species.Fitness
		}
		return entries[i].ID < entries[j].ID
	})

	numNonStagnant := len(entries)
	result := make([]StagnationInfo, 0, len(entries))
	for idx, e := range entries {
		stagnantTime := generation - e.Species.LastImproved

		isStagnant := false
		if numNonStagnant > s.Config.SpeciesElitism {
			isStagnant = stagnantTime >= s.Config.StagnationLimit
		}
		if len(entries)-idx <= s.Config.SpeciesElitism {
			isStagnant = false
		}
		if isStagnant {
			numNonStagnant--
		}
		result = append(result, StagnationInfo{SpeciesID: e.ID, Species: e.Species, IsStagnant: isStagnant})
	}
	return result
}
