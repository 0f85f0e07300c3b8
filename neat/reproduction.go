package neat

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// Reproduction builds each next generation from the current species. The
// next-generation size always equals the configured population size exactly,
// whatever species survive stagnation and speciation.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int
	Ancestors     map[int][]int // genome key -> parent keys
	Stagnation    *Stagnation

	log *zap.Logger
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation, log *zap.Logger) *Reproduction {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		Stagnation:    stagnation,
		log:           log,
	}
}

// getNextKey returns the next genome key and advances the counter.
func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation creates the initial population: popSize minimal genomes.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int, tracker *InnovationTracker, rng *rand.Rand) map[int]*Genome {
	newGenomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.getNextKey()
		g := NewGenome(key, genomeConfig)
		g.ConfigureNew(tracker, rng)
		newGenomes[key] = g
		r.Ancestors[key] = nil
	}
	return newGenomes
}

// Reproduce creates the next generation. Stagnant species are excluded, the
// rest receive offspring slots proportional to their summed adjusted fitness
// (exactly popSize slots in total), elites transfer unchanged, and remaining
// slots are filled by fitness-proportionate parent selection with crossover
// for distinct parents and cloning otherwise, followed by mutation.
//
// If every species is excluded (speciation collapse), the whole current
// population becomes one selection pool for this generation.
func (r *Reproduction) Reproduce(overallConfig *Config, speciesSet *SpeciesSet, popSize, generation int, tracker *InnovationTracker, rng *rand.Rand) map[int]*Genome {
	infos := r.Stagnation.Update(speciesSet, generation)

	var pool []*Genome // every current genome, kept for the collapse fallback
	remaining := make([]*Species, 0, len(infos))
	for _, info := range infos {
		for _, gid := range sortedGenomeKeys(info.Species.Members) {
			pool = append(pool, info.Species.Members[gid])
		}
		if info.IsStagnant {
			r.log.Info("species removed (stagnant)",
				zap.Int("species", info.SpeciesID),
				zap.Float64("fitness", info.Species.Fitness),
				zap.Int("members", len(info.Species.Members)),
				zap.Int("last_improved", info.Species.LastImproved))
			delete(speciesSet.Species, info.SpeciesID)
			continue
		}
		if len(info.Species.Members) == 0 {
			continue
		}
		remaining = append(remaining, info.Species)
	}

	if len(remaining) == 0 {
		r.log.Warn("speciation collapse, selecting across the whole population",
			zap.Int("generation", generation),
			zap.Int("candidates", len(pool)))
		return r.reproduceFromPool(overallConfig, pool, popSize, tracker, rng)
	}

	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Key < remaining[j].Key })

	// A species' reproduction share is the sum of its members' fitness-shared
	// adjusted fitness.
	shares := make([]float64, len(remaining))
	prevSizes := make([]int, len(remaining))
	totalShare := 0.0
	for i, sp := range remaining {
		sum := 0.0
		for _, g := range sp.Members {
			sum += g.AdjustedFitness
		}
		sp.AdjustedFitness = sum
		shares[i] = sum
		prevSizes[i] = len(sp.Members)
		totalShare += sum
	}

	spawnAmounts := computeSpawnAmounts(shares, totalShare, prevSizes, popSize, r.Config.MinSpeciesSize)

	newPopulation := make(map[int]*Genome, popSize)
	newAncestors := make(map[int][]int, popSize)

	for i, sp := range remaining {
		spawn := spawnAmounts[i]
		if spawn <= 0 {
			continue
		}

		oldMembers := sp.sortedMembers()

		// Elites transfer unchanged, but only out of a species with enough
		// members, and never beyond the species' slot allocation.
		elites := 0
		if len(oldMembers) >= r.Config.MinSpeciesSize {
			elites = min(r.Config.Elitism, spawn, len(oldMembers))
		}
		for j := 0; j < elites; j++ {
			elite := oldMembers[j]
			newPopulation[elite.Key] = elite
			newAncestors[elite.Key] = []int{elite.Key}
		}
		spawn -= elites
		if spawn == 0 {
			continue
		}

		// Only the top survival_threshold fraction may be parents.
		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		cutoff = max(cutoff, 2)
		cutoff = min(cutoff, len(oldMembers))
		parents := oldMembers[:cutoff]

		for j := 0; j < spawn; j++ {
			parent1 := rouletteSelect(parents, adjustedWeight, rng)
			parent2 := rouletteSelect(parents, adjustedWeight, rng)
			childKey := r.getNextKey()

			var child *Genome
			if parent1 == parent2 {
				child = parent1.CopyWithKey(childKey)
				newAncestors[childKey] = []int{parent1.Key}
			} else {
				child = NewGenome(childKey, &overallConfig.Genome)
				child.ConfigureCrossover(parent1, parent2, rng)
				newAncestors[childKey] = []int{parent1.Key, parent2.Key}
			}
			child.Mutate(tracker, rng)
			newPopulation[childKey] = child
		}
	}

	r.Ancestors = newAncestors
	return newPopulation
}

// reproduceFromPool fills the next generation by fitness-proportionate
// selection over one undifferentiated pool. Used only after a speciation
// collapse.
func (r *Reproduction) reproduceFromPool(overallConfig *Config, pool []*Genome, popSize int, tracker *InnovationTracker, rng *rand.Rand) map[int]*Genome {
	newPopulation := make(map[int]*Genome, popSize)
	newAncestors := make(map[int][]int, popSize)

	if len(pool) == 0 {
		// Unreachable after speciating a non-empty population; reseed rather
		// than return a short generation.
		r.log.Warn("empty selection pool, reseeding population")
		for i := 0; i < popSize; i++ {
			key := r.getNextKey()
			g := NewGenome(key, &overallConfig.Genome)
			g.ConfigureNew(tracker, rng)
			newPopulation[key] = g
			newAncestors[key] = nil
		}
		r.Ancestors = newAncestors
		return newPopulation
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].Key < pool[j].Key })

	for j := 0; j < popSize; j++ {
		parent1 := rouletteSelect(pool, rawWeight, rng)
		parent2 := rouletteSelect(pool, rawWeight, rng)
		childKey := r.getNextKey()

		var child *Genome
		if parent1 == parent2 {
			child = parent1.CopyWithKey(childKey)
			newAncestors[childKey] = []int{parent1.Key}
		} else {
			child = NewGenome(childKey, &overallConfig.Genome)
			child.ConfigureCrossover(parent1, parent2, rng)
			newAncestors[childKey] = []int{parent1.Key, parent2.Key}
		}
		child.Mutate(tracker, rng)
		newPopulation[childKey] = child
	}

	r.Ancestors = newAncestors
	return newPopulation
}

// setLogger re-attaches a logger after checkpoint restore.
func (r *Reproduction) setLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	r.log = log
}

func adjustedWeight(g *Genome) float64 { return g.AdjustedFitness }
func rawWeight(g *Genome) float64      { return g.Fitness }

// rouletteSelect picks a genome with probability proportional to its weight.
// Weights are never negative here (fitness is non-negative by contract); if
// they sum to zero the pick is uniform.
func rouletteSelect(pool []*Genome, weight func(*Genome) float64, rng *rand.Rand) *Genome {
	total := 0.0
	for _, g := range pool {
		total += weight(g)
	}
	if total <= 0 {
		return pool[rng.Intn(len(pool))]
	}
	pick := rng.Float64() * total
	for _, g := range pool {
		pick -= weight(g)
		if pick <= 0 {
			return g
		}
	}
	return pool[len(pool)-1]
}

// computeSpawnAmounts allocates exactly popSize offspring slots across
// species: shares proportional to adjusted fitness, dampened toward each
// species' previous size, then settled by largest remainder. A best-effort
// pass lifts species to minSpeciesSize by taking slots from the largest
// allocations; the total never changes.
func computeSpawnAmounts(shares []float64, totalShare float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	n := len(shares)
	if n == 0 {
		return nil
	}

	desired := make([]float64, n)
	sum := 0.0
	for i, share := range shares {
		var s float64
		if totalShare > 0 {
			s = share / totalShare * float64(popSize)
		} else {
			s = float64(popSize) / float64(n)
		}
		// Dampen drastic size swings, as neat-python does.
		s = float64(previousSizes[i]) + (s-float64(previousSizes[i]))*0.5
		if s < 0 {
			s = 0
		}
		desired[i] = s
		sum += s
	}

	counts := make([]int, n)
	if sum <= 0 {
		for i := range counts {
			counts[i] = popSize / n
		}
		for i := 0; i < popSize%n; i++ {
			counts[i]++
		}
	} else {
		norm := float64(popSize) / sum
		type remainder struct {
			idx  int
			frac float64
		}
		rems := make([]remainder, n)
		assigned := 0
		for i, s := range desired {
			scaled := s * norm
			whole := math.Floor(scaled)
			counts[i] = int(whole)
			rems[i] = remainder{idx: i, frac: scaled - whole}
			assigned += counts[i]
		}
		sort.Slice(rems, func(i, j int) bool {
			if rems[i].frac != rems[j].frac {
				return rems[i].frac > rems[j].frac
			}
			return rems[i].idx < rems[j].idx
		})
		for k := 0; k < popSize-assigned; k++ {
			counts[rems[k%n].idx]++
		}
	}

	for i := range counts {
		for counts[i] < minSpeciesSize {
			donor := -1
			for j := range counts {
				if counts[j] > minSpeciesSize && (donor == -1 || counts[j] > counts[donor]) {
					donor = j
				}
			}
			if donor == -1 {
				break
			}
			counts[donor]--
			counts[i]++
		}
	}
	return counts
}
