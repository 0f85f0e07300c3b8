package sim

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baldhumanity/neatbird/neat"
	"github.com/baldhumanity/neatbird/neat/nn"
)

// Runner scores whole generations: one agent per genome, one fresh world per
// generation. Each generation's world draws from its own rng stream derived
// from the base seed and the generation index, so runs replay exactly under
// the same seed.
type Runner struct {
	cfg  *Config
	seed int64
	log  *zap.Logger

	observer func(*Snapshot)

	bestFitness float64
	bestGenome  int
	generations int
	ticks       int
	passed      int
}

// NewRunner validates that the genome config matches the simulation's
// observation width and single-output contract. A mismatch is a configuration
// error, surfaced before any generation runs. A nil logger disables logging.
func NewRunner(cfg *Config, genomeCfg *neat.GenomeConfig, seed int64, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if genomeCfg.NumInputs != NumInputs {
		return nil, fmt.Errorf("config error: num_inputs must be %d to match the observation vector, got %d",
			NumInputs, genomeCfg.NumInputs)
	}
	if genomeCfg.NumOutputs != 1 {
		return nil, fmt.Errorf("config error: num_outputs must be 1 (flap scalar), got %d",
			genomeCfg.NumOutputs)
	}
	return &Runner{cfg: cfg, seed: seed, log: log}, nil
}

// SetObserver registers a per-tick snapshot consumer (the render layer).
// The callback runs on the simulation goroutine between ticks; keep it fast.
func (r *Runner) SetObserver(fn func(*Snapshot)) { r.observer = fn }

// RunGeneration simulates one generation and returns the fitness of every
// genome id, with no omissions: agents dead mid-generation keep the fitness
// they had at death. Genomes whose topology does not compile never fail the
// generation; their agents deterministically no-op. Cancelling ctx stops the
// tick loop and returns the fitness accrued so far along with the context's
// error.
func (r *Runner) RunGeneration(ctx context.Context, generation int, genomes map[int]*neat.Genome) (map[int]float64, error) {
	rng := rand.New(rand.NewSource(r.seed + int64(generation)))
	world := NewWorld(r.cfg, rng)

	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	agents := make([]*Agent, 0, len(keys))
	for _, key := range keys {
		net, err := nn.CreateFeedForwardNetwork(genomes[key])
		if err != nil {
			r.log.Debug("genome does not compile, agent will no-op",
				zap.Int("genome", key), zap.Error(err))
			net = nil
		}
		agents = append(agents, NewAgent(key, net, r.cfg))
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	runBest := r.bestFitness
	actions := make([]Action, len(agents))
	var ctxErr error

	for tick := 0; tick < r.cfg.TickCap; tick++ {
		// Decision phase: independent per agent, order-insensitive. Each
		// goroutine reads the shared world and writes only its own action
		// slot; mutation happens strictly after Wait.
		nearest := world.NearestPipe()
		g := &errgroup.Group{}
		g.SetLimit(workers)
		for i, a := range agents {
			if !a.Alive {
				actions[i] = ActionNone
				continue
			}
			i, a := i, a // per-iteration copies: required for correct capture before Go 1.22
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				actions[i] = Decide(a.net, Observe(a, nearest, r.cfg))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			ctxErr = err
			break
		}

		world.AdvanceTick(agents, actions)

		alive := 0
		for _, a := range agents {
			if a.Alive {
				a.Fitness += r.cfg.TickReward
				alive++
			}
			if a.Fitness > runBest {
				runBest = a.Fitness
			}
		}

		if r.observer != nil {
			r.observer(buildSnapshot(generation, world, agents, runBest))
		}
		if alive == 0 {
			break
		}
	}

	fitness := make(map[int]float64, len(agents))
	for _, a := range agents {
		fitness[a.GenomeID] = a.Fitness
		if a.Fitness > r.bestFitness {
			r.bestFitness = a.Fitness
			r.bestGenome = a.GenomeID
		}
	}
	r.generations++
	r.ticks += world.Tick()
	r.passed += world.PassedCount()

	r.log.Debug("generation simulated",
		zap.Int("generation", generation),
		zap.Int("ticks", world.Tick()),
		zap.Int("pipes_passed", world.PassedCount()))

	return fitness, ctxErr
}

// EvaluateGenomes adapts RunGeneration to neat.FitnessFunc, writing each
// genome's fitness back onto it.
func (r *Runner) EvaluateGenomes(ctx context.Context, generation int, genomes map[int]*neat.Genome) error {
	fitness, err := r.RunGeneration(ctx, generation, genomes)
	for id, f := range fitness {
		genomes[id].Fitness = f
	}
	return err
}

// Summary reports totals across every generation simulated so far.
func (r *Runner) Summary() Summary {
	return Summary{
		BestGenomeID:   r.bestGenome,
		BestFitness:    r.bestFitness,
		Generations:    r.generations,
		TicksSimulated: r.ticks,
		PipesPassed:    r.passed,
	}
}
