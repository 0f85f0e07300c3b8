package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReproduction(t *testing.T, cfg *Config) *Reproduction {
	t.Helper()
	st, err := NewStagnation(&cfg.Stagnation)
	require.NoError(t, err)
	return NewReproduction(&cfg.Reproduction, st, nil)
}

func TestCreateNewPopulation(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(1))
	r := newTestReproduction(t, cfg)

	pop := r.CreateNewPopulation(&cfg.Genome, 5, tracker, rng)

	require.Len(t, pop, 5)
	for k := 1; k <= 5; k++ {
		g, ok := pop[k]
		require.True(t, ok, "missing genome %d", k)
		assert.Equal(t, k, g.Key)
		require.Contains(t, r.Ancestors, k)
		assert.Nil(t, r.Ancestors[k], "founders have no parents")
	}
	assert.Equal(t, 6, r.NextGenomeKey)
}

// Reproduce must hand back exactly popSize genomes no matter how fitness and
// species sizes shift between generations.
func TestReproduceKeepsExactPopulationSize(t *testing.T) {
	for _, popSize := range []int{1, 7, 20} {
		cfg := newTestConfig(t)
		cfg.Neat.PopSize = popSize
		tracker := NewInnovationTracker(&cfg.Genome)
		rng := rand.New(rand.NewSource(int64(popSize)))
		r := newTestReproduction(t, cfg)
		ss := NewSpeciesSet(&cfg.Speciation, nil)

		pop := r.CreateNewPopulation(&cfg.Genome, popSize, tracker, rng)
		for gen := 1; gen <= 5; gen++ {
			for _, g := range pop {
				g.Fitness = rng.Float64() * 10
			}
			ss.Speciate(cfg, pop, gen)
			pop = r.Reproduce(cfg, ss, popSize, gen, tracker, rng)
			require.Len(t, pop, popSize, "popSize=%d generation %d", popSize, gen)
		}
	}
}

func TestReproduceTransfersElitesUnchanged(t *testing.T) {
	cfg := newTestConfig(t)
	// One big species so the elite slots go to the global best.
	cfg.Speciation.CompatibilityThreshold = 100.0
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(2))
	r := newTestReproduction(t, cfg)
	ss := NewSpeciesSet(&cfg.Speciation, nil)

	pop := r.CreateNewPopulation(&cfg.Genome, 20, tracker, rng)
	for k, g := range pop {
		g.Fitness = float64(k)
	}
	ss.Speciate(cfg, pop, 1)
	require.Len(t, ss.Species, 1)

	next := r.Reproduce(cfg, ss, 20, 1, tracker, rng)

	require.Len(t, next, 20)
	// Elitism 2: the two fittest genomes carry over as the same objects, not
	// copies, and their ancestry records them as their own parent.
	require.Contains(t, next, 20)
	require.Contains(t, next, 19)
	assert.Same(t, pop[20], next[20])
	assert.Same(t, pop[19], next[19])
	assert.Equal(t, []int{20}, r.Ancestors[20])
}

func TestReproduceDeletesStagnantSpecies(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Stagnation.StagnationLimit = 1
	cfg.Stagnation.SpeciesElitism = 0
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(3))
	r := newTestReproduction(t, cfg)
	r.NextGenomeKey = 100

	ss := NewSpeciesSet(&cfg.Speciation, nil)

	// Species 1 peaked at 5 in generation 0 and has not moved since.
	stale := NewSpecies(1, 0)
	stale.FitnessHistory = []float64{5.0}
	stale.LastImproved = 0
	for k := 1; k <= 2; k++ {
		g := NewGenome(k, &cfg.Genome)
		g.ConfigureNew(tracker, rng)
		g.Fitness = 5.0
		g.AdjustedFitness = 2.5
		stale.Members[k] = g
	}
	ss.Species[1] = stale

	// Species 2 just improved from 1 to 10.
	fresh := NewSpecies(2, 0)
	fresh.FitnessHistory = []float64{1.0}
	fresh.LastImproved = 0
	for i, f := range []float64{10, 6, 2} {
		g := NewGenome(10+i, &cfg.Genome)
		g.ConfigureNew(tracker, rng)
		g.Fitness = f
		g.AdjustedFitness = f / 3
		fresh.Members[g.Key] = g
	}
	ss.Species[2] = fresh

	next := r.Reproduce(cfg, ss, 6, 2, tracker, rng)

	require.Len(t, next, 6)
	assert.NotContains(t, ss.Species, 1, "stagnant species must be removed")
	assert.Contains(t, ss.Species, 2)
	// All six slots flow to the surviving species; its best member rides
	// along as an elite.
	assert.Same(t, fresh.Members[10], next[10])
}

// With every species stagnant, selection falls back to one pool over the
// whole population instead of going extinct.
func TestReproduceSpeciationCollapse(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Stagnation.StagnationLimit = 1
	cfg.Stagnation.SpeciesElitism = 0
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(4))
	r := newTestReproduction(t, cfg)
	r.NextGenomeKey = 100

	ss := NewSpeciesSet(&cfg.Speciation, nil)
	stale := NewSpecies(1, 0)
	stale.FitnessHistory = []float64{5.0}
	stale.LastImproved = 0
	for k := 1; k <= 4; k++ {
		g := NewGenome(k, &cfg.Genome)
		g.ConfigureNew(tracker, rng)
		g.Fitness = 5.0
		stale.Members[k] = g
	}
	ss.Species[1] = stale

	next := r.Reproduce(cfg, ss, 8, 2, tracker, rng)

	require.Len(t, next, 8)
	assert.Empty(t, ss.Species)
	for key := range next {
		assert.GreaterOrEqual(t, key, 100, "collapse offspring are all new genomes")
		parents := r.Ancestors[key]
		require.NotEmpty(t, parents)
		assert.LessOrEqual(t, len(parents), 2)
	}
}

func TestComputeSpawnAmountsExact(t *testing.T) {
	for _, tt := range []struct {
		name       string
		shares     []float64
		totalShare float64
		prev       []int
		popSize    int
		minSize    int
		want       []int
	}{
		{
			name:   "steady state stays put",
			shares: []float64{1, 1}, totalShare: 2,
			prev: []int{5, 5}, popSize: 10, minSize: 1,
			want: []int{5, 5},
		},
		{
			name:   "growth is dampened",
			shares: []float64{3, 1}, totalShare: 4,
			prev: []int{2, 2}, popSize: 8, minSize: 1,
			want: []int{5, 3},
		},
		{
			name:   "minimum size lifts the runt",
			shares: []float64{10, 0.1}, totalShare: 10.1,
			prev: []int{10, 1}, popSize: 10, minSize: 2,
			want: []int{8, 2},
		},
		{
			name:   "zero shares split evenly",
			shares: []float64{0, 0}, totalShare: 5,
			prev: []int{0, 0}, popSize: 5, minSize: 1,
			want: []int{3, 2},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := computeSpawnAmounts(tt.shares, tt.totalShare, tt.prev, tt.popSize, tt.minSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeSpawnAmountsAlwaysSumsToPopSize(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 300; i++ {
		n := 1 + rng.Intn(6)
		shares := make([]float64, n)
		prev := make([]int, n)
		total := 0.0
		for j := range shares {
			shares[j] = rng.Float64() * 5
			total += shares[j]
			prev[j] = rng.Intn(8)
		}
		popSize := 1 + rng.Intn(40)
		minSize := 1 + rng.Intn(2)

		counts := computeSpawnAmounts(shares, total, prev, popSize, minSize)
		sum := 0
		for _, c := range counts {
			require.GreaterOrEqual(t, c, 0)
			sum += c
		}
		require.Equal(t, popSize, sum, "case %d: shares=%v prev=%v", i, shares, prev)
	}
}

func TestRouletteSelectZeroWeightsIsUniform(t *testing.T) {
	cfg := newTestConfig(t)
	rng := rand.New(rand.NewSource(5))
	pool := make([]*Genome, 3)
	for i := range pool {
		pool[i] = NewGenome(i+1, &cfg.Genome)
	}

	seen := make(map[int]int)
	for i := 0; i < 300; i++ {
		g := rouletteSelect(pool, rawWeight, rng)
		require.NotNil(t, g)
		seen[g.Key]++
	}
	for _, p := range pool {
		assert.Greater(t, seen[p.Key], 0, "genome %d never drawn", p.Key)
	}
}

func TestRouletteSelectFavorsHeavyWeights(t *testing.T) {
	cfg := newTestConfig(t)
	rng := rand.New(rand.NewSource(6))
	light := NewGenome(1, &cfg.Genome)
	light.Fitness = 1
	zero := NewGenome(2, &cfg.Genome)
	zero.Fitness = 0
	heavy := NewGenome(3, &cfg.Genome)
	heavy.Fitness = 9
	pool := []*Genome{light, zero, heavy}

	seen := make(map[int]int)
	for i := 0; i < 2000; i++ {
		seen[rouletteSelect(pool, rawWeight, rng).Key]++
	}
	assert.Greater(t, seen[3], 1500)
	assert.Greater(t, seen[1], 20)
	assert.Zero(t, seen[2], "zero weight is never drawn")
}
