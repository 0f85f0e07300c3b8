package neat

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int             // unique identifier for the species
	Created         int             // generation the species first appeared
	LastImproved    int             // last generation its fitness measure improved
	Representative  *Genome         // genome new members are compared against
	Members         map[int]*Genome // genome key -> genome
	Fitness         float64         // stagnation measure (species_fitness_func over members)
	AdjustedFitness float64         // summed member adjusted fitness, reproduction share basis
	FitnessHistory  []float64       // past stagnation measures
}

// NewSpecies creates a new species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:          key,
		Created:      generation,
		LastImproved: generation,
		Members:      make(map[int]*Genome),
	}
}

// Update replaces the species' representative and member set.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the raw fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// sortedMembers returns the members ordered by descending adjusted fitness,
// genome key as tie-break.
func (s *Species) sortedMembers() []*Genome {
	members := make([]*Genome, 0, len(s.Members))
	for _, g := range s.Members {
		members = append(members, g)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].AdjustedFitness != members[j].AdjustedFitness {
			return members[i].AdjustedFitness > members[j].AdjustedFitness
		}
		return members[i].Key < members[j].Key
	})
	return members
}

// --------------------------- GenomeDistanceCache ---------------------------

// genomePair is an unordered genome key pair.
type genomePair struct {
	A, B int
}

// GenomeDistanceCache memoizes genome distances within one speciation pass.
type GenomeDistanceCache struct {
	Distances map[genomePair]float64
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates an empty distance cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{Distances: make(map[genomePair]float64)}
}

// Distance computes or retrieves the distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	a, b := genome1.Key, genome2.Key
	if a > b {
		a, b = b, a
	}
	key := genomePair{A: a, B: b}
	if d, ok := dc.Distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2)
	dc.Distances[key] = d
	return d
}

// values returns all cached distances.
func (dc *GenomeDistanceCache) values() []float64 {
	out := make([]float64, 0, len(dc.Distances))
	for _, d := range dc.Distances {
		out = append(out, d)
	}
	return out
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population. The
// species mapping is rebuilt from scratch every Speciate call; only the
// species objects themselves (and their stagnation history) persist across
// generations.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         int // next species key, starts at 1
	Config          *SpeciationConfig

	log *zap.Logger
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(config *SpeciationConfig, log *zap.Logger) *SpeciesSet {
	if log == nil {
		log = zap.NewNop()
	}
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
		log:             log,
	}
}

// Speciate partitions the population into species by compatibility distance
// and computes each genome's fitness-shared adjusted fitness. Processing
// order is fixed (sorted species and genome keys) so identical inputs produce
// identical partitions.
func (ss *SpeciesSet) Speciate(config *Config, population map[int]*Genome, generation int) {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return
	}

	threshold := ss.Config.CompatibilityThreshold
	cache := NewGenomeDistanceCache()

	unspeciated := make(map[int]*Genome, len(population))
	for k, v := range population {
		unspeciated[k] = v
	}
	newRepresentatives := make(map[int]*Genome)
	newMembers := make(map[int][]int)

	// Each surviving species gets, as its new representative, the population
	// genome closest to its old representative.
	for _, sid := range ss.sortedSpeciesKeys() {
		if len(unspeciated) == 0 {
			break
		}
		s := ss.Species[sid]
		if s.Representative == nil {
			continue
		}

		var newRep *Genome
		minDist := math.Inf(1)
		for _, gid := range sortedGenomeKeys(unspeciated) {
			g := unspeciated[gid]
			if d := cache.Distance(s.Representative, g); d < minDist {
				minDist = d
				newRep = g
			}
		}
		if newRep == nil {
			continue
		}
		newRepresentatives[sid] = newRep
		newMembers[sid] = []int{newRep.Key}
		delete(unspeciated, newRep.Key)
	}

	// Remaining genomes join the first compatible species (closest new
	// representative within the threshold) or found a new one.
	for _, gid := range sortedGenomeKeys(unspeciated) {
		g := unspeciated[gid]

		bestSpecies := -1
		minDist := math.Inf(1)
		for _, sid := range sortedGenomeKeys(newRepresentatives) {
			rep := newRepresentatives[sid]
			if d := cache.Distance(rep, g); d < threshold && d < minDist {
				minDist = d
				bestSpecies = sid
			}
		}

		if bestSpecies != -1 {
			newMembers[bestSpecies] = append(newMembers[bestSpecies], gid)
		} else {
			newSID := ss.Indexer
			ss.Indexer++
			newRepresentatives[newSID] = g
			newMembers[newSID] = []int{gid}
			ss.log.Debug("created species",
				zap.Int("species", newSID),
				zap.Int("representative", gid),
				zap.Int("generation", generation))
		}
	}

	// Rebuild the mapping fresh; species without a new representative
	// disband.
	newSpeciesMap := make(map[int]*Species)
	newGenomeToSpecies := make(map[int]int)
	for sid, representative := range newRepresentatives {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
		}
		memberMap := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			memberMap[gid] = population[gid]
			newGenomeToSpecies[gid] = sid
		}
		s.Update(representative, memberMap)
		newSpeciesMap[sid] = s
	}
	for _, sid := range ss.sortedSpeciesKeys() {
		if _, survived := newSpeciesMap[sid]; !survived {
			ss.log.Debug("species disbanded", zap.Int("species", sid), zap.Int("generation", generation))
		}
	}
	ss.Species = newSpeciesMap
	ss.GenomeToSpecies = newGenomeToSpecies

	// Fitness sharing: a genome's adjusted fitness is its raw fitness divided
	// by its species' size, so large species do not swamp selection.
	for sid, s := range ss.Species {
		n := float64(len(s.Members))
		for _, g := range s.Members {
			g.SpeciesID = sid
			g.AdjustedFitness = g.Fitness / n
		}
	}

	if ds := cache.values(); len(ds) > 0 {
		ss.log.Debug("speciation distances",
			zap.Int("species", len(ss.Species)),
			zap.Float64("mean", Mean(ds)),
			zap.Int("cache_hits", cache.Hits),
			zap.Int("cache_misses", cache.Misses))
	}
}

// GetSpeciesID returns the species ID for a given genome ID.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	return sid, exists
}

// GetSpecies returns the Species for a given genome ID.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	if !exists {
		return nil, false
	}
	s, exists := ss.Species[sid]
	return s, exists
}

// setLogger re-attaches a logger after checkpoint restore.
func (ss *SpeciesSet) setLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	ss.log = log
}

func (ss *SpeciesSet) sortedSpeciesKeys() []int {
	keys := make([]int, 0, len(ss.Species))
	for sid := range ss.Species {
		keys = append(keys, sid)
	}
	sort.Ints(keys)
	return keys
}

func sortedGenomeKeys(genomes map[int]*Genome) []int {
	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
