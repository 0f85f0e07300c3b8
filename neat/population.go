package neat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Phase identifies where the evolution loop currently is. Transitions are
// strictly forward within a generation: evaluating, speciating, reproducing,
// and back to evaluating for the next one, until the run terminates.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseEvaluating
	PhaseSpeciating
	PhaseReproducing
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseSpeciating:
		return "speciating"
	case PhaseReproducing:
		return "reproducing"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// FitnessFunc evaluates one generation. It must assign a non-negative
// Fitness to every genome in the map. A non-nil error aborts the run;
// genomes already scored keep their values.
type FitnessFunc func(ctx context.Context, generation int, genomes map[int]*Genome) error

// Population holds the state of the evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome // genome key -> genome, always exactly pop_size entries
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Innovations  *InnovationTracker
	Generation   int
	BestGenome   *Genome // archived copy of the best genome ever seen
	Seed         int64   // effective seed, after any clock derivation

	phase     Phase
	rng       *rand.Rand
	log       *zap.Logger
	reporters []Reporter
}

// NewPopulation validates the config and creates the initial generation.
// A nil logger disables logging.
func NewPopulation(config *Config, log *zap.Logger) (*Population, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := config.Prepare(); err != nil {
		return nil, err
	}

	seed := config.Neat.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Info("seed derived from clock", zap.Int64("seed", seed))
	}
	rng := rand.New(rand.NewSource(seed))

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, err
	}
	reproduction := NewReproduction(&config.Reproduction, stagnation, log)
	tracker := NewInnovationTracker(&config.Genome)
	initial := reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize, tracker, rng)

	p := &Population{
		Config:       config,
		Population:   initial,
		SpeciesSet:   NewSpeciesSet(&config.Speciation, log),
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Innovations:  tracker,
		Generation:   0,
		Seed:         seed,
		phase:        PhaseInitializing,
		rng:          rng,
		log:          log,
	}
	return p, nil
}

// Phase reports the loop's current phase.
func (p *Population) Phase() Phase { return p.phase }

// AddReporter registers a reporter for generation events.
func (p *Population) AddReporter(rep Reporter) {
	p.reporters = append(p.reporters, rep)
}

// RunGeneration executes one full generation: evaluate, speciate, reproduce.
// It returns a non-nil winner when the fitness target is met. After the
// generation cap the population terminates without a winner; the best genome
// so far stays available in BestGenome. Cancellation and evaluator failures
// abort without terminating: the attempted generation is rolled back, so a
// later call (or a run resumed from a checkpoint) retries it.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*Genome, error) {
	if p.phase == PhaseTerminated {
		return p.BestGenome, fmt.Errorf("population already terminated after generation %d", p.Generation)
	}
	if err := ctx.Err(); err != nil {
		return p.BestGenome, err
	}

	prevPhase := p.phase
	p.Generation++
	start := time.Now()

	p.phase = PhaseEvaluating
	for _, rep := range p.reporters {
		rep.StartGeneration(p.Generation)
	}
	if err := fitnessFunc(ctx, p.Generation, p.Population); err != nil {
		err = fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
		p.Generation--
		p.phase = prevPhase
		return p.BestGenome, err
	}
	p.sanitizeFitness()

	genBest := p.findBestGenome()
	if genBest != nil && (p.BestGenome == nil || genBest.Fitness > p.BestGenome.Fitness) {
		// Archive a copy. An elite can carry the same object into later
		// generations, where re-evaluation overwrites its fitness.
		p.BestGenome = genBest.CopyWithKey(genBest.Key)
		p.log.Info("new best genome",
			zap.Int("generation", p.Generation),
			zap.Int("genome", genBest.Key),
			zap.Float64("fitness", genBest.Fitness))
	}

	p.phase = PhaseSpeciating
	p.SpeciesSet.Speciate(p.Config, p.Population, p.Generation)

	summary := p.buildSummary(genBest, time.Since(start))
	for _, rep := range p.reporters {
		rep.EndGeneration(summary)
	}
	p.log.Info("generation complete",
		zap.Int("generation", summary.Generation),
		zap.Float64("best_fitness", summary.BestFitness),
		zap.Float64("mean_fitness", summary.MeanFitness),
		zap.Int("species", summary.SpeciesCount),
		zap.Duration("took", summary.Duration))

	if p.BestGenome != nil && p.BestGenome.Fitness >= p.Config.Neat.FitnessTarget {
		p.phase = PhaseTerminated
		for _, rep := range p.reporters {
			rep.FoundSolution(p.Generation, p.BestGenome)
		}
		p.log.Info("fitness target reached",
			zap.Int("generation", p.Generation),
			zap.Float64("fitness", p.BestGenome.Fitness),
			zap.Float64("target", p.Config.Neat.FitnessTarget))
		return p.BestGenome, nil
	}
	if p.Generation >= p.Config.Neat.GenerationCap {
		p.phase = PhaseTerminated
		p.log.Info("generation cap reached", zap.Int("generation", p.Generation))
		return nil, nil
	}

	p.phase = PhaseReproducing
	newPopulation := p.Reproduction.Reproduce(p.Config, p.SpeciesSet,
		p.Config.Neat.PopSize, p.Generation, p.Innovations, p.rng)
	if len(newPopulation) != p.Config.Neat.PopSize {
		p.phase = PhaseTerminated
		return p.BestGenome, fmt.Errorf("reproduction produced %d genomes, want %d",
			len(newPopulation), p.Config.Neat.PopSize)
	}
	p.Population = newPopulation

	return nil, nil
}

// Run executes generations until the fitness target is met, the generation
// cap is reached, or ctx is cancelled. It returns the best genome found.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc) (*Genome, error) {
	for {
		winner, err := p.RunGeneration(ctx, fitnessFunc)
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			return winner, nil
		}
		if p.phase == PhaseTerminated {
			return p.BestGenome, nil
		}
	}
}

// sanitizeFitness clamps out-of-contract fitness values so selection math
// stays finite. Evaluators are expected to return non-negative numbers.
func (p *Population) sanitizeFitness() {
	for _, key := range sortedGenomeKeys(p.Population) {
		g := p.Population[key]
		if math.IsNaN(g.Fitness) || math.IsInf(g.Fitness, 0) || g.Fitness < 0 {
			p.log.Warn("fitness out of range, clamping to zero",
				zap.Int("genome", g.Key), zap.Float64("fitness", g.Fitness))
			g.Fitness = 0
		}
	}
}

// findBestGenome returns the highest-fitness genome of the current
// generation, lowest key winning ties.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	for _, key := range sortedGenomeKeys(p.Population) {
		g := p.Population[key]
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

func (p *Population) buildSummary(genBest *Genome, took time.Duration) GenerationSummary {
	fitnesses := make([]float64, 0, len(p.Population))
	for _, key := range sortedGenomeKeys(p.Population) {
		fitnesses = append(fitnesses, p.Population[key].Fitness)
	}

	s := GenerationSummary{
		Generation:     p.Generation,
		PopulationSize: len(p.Population),
		MeanFitness:    stat.Mean(fitnesses, nil),
		StdevFitness:   stat.StdDev(fitnesses, nil),
		SpeciesCount:   len(p.SpeciesSet.Species),
		SpeciesSizes:   make(map[int]int, len(p.SpeciesSet.Species)),
		Staleness:      make(map[int]int, len(p.SpeciesSet.Species)),
		Duration:       took,
	}
	if len(fitnesses) < 2 {
		s.StdevFitness = 0
	}
	if genBest != nil {
		s.GenerationBest = genBest.Fitness
		s.GenerationBestKey = genBest.Key
	}
	if p.BestGenome != nil {
		s.BestFitness = p.BestGenome.Fitness
		s.BestKey = p.BestGenome.Key
		s.BestFingerprint = p.BestGenome.Fingerprint()
	}
	for _, sid := range p.SpeciesSet.sortedSpeciesKeys() {
		sp := p.SpeciesSet.Species[sid]
		s.SpeciesSizes[sid] = len(sp.Members)
		s.Staleness[sid] = p.Generation - sp.LastImproved
	}
	return s
}
