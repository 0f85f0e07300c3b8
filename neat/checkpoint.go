package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const checkpointVersion = 1

// checkpointState is what actually goes on disk. The manager structs are not
// encoded directly: Stagnation carries a function value, and species member
// pointers would lose their identity with the population map through gob.
// Everything here is rebuilt into live managers by LoadCheckpoint.
type checkpointState struct {
	Version    int
	SavedAt    time.Time
	Generation int
	Seed       int64
	Phase      Phase

	Population map[int]*Genome
	Best       *Genome

	Species        []speciesState
	SpeciesIndexer int

	NextGenomeKey int
	Ancestors     map[int][]int

	Innovations *InnovationTracker
}

// speciesState carries what a species needs to survive a restart: identity,
// stagnation history and the representative for compatibility continuity.
// Members are not saved; the first speciation after a resume rebuilds them
// from the restored population.
type speciesState struct {
	Key             int
	Created         int
	LastImproved    int
	Fitness         float64
	AdjustedFitness float64
	FitnessHistory  []float64
	Representative  *Genome
}

// SaveCheckpoint writes the population state to a gzip-compressed gob file.
// Call it between generations, not from inside a fitness function.
func (p *Population) SaveCheckpoint(filePath string) error {
	state := checkpointState{
		Version:        checkpointVersion,
		SavedAt:        time.Now(),
		Generation:     p.Generation,
		Seed:           p.Seed,
		Phase:          p.phase,
		Population:     p.Population,
		Best:           p.BestGenome,
		SpeciesIndexer: p.SpeciesSet.Indexer,
		NextGenomeKey:  p.Reproduction.NextGenomeKey,
		Ancestors:      p.Reproduction.Ancestors,
		Innovations:    p.Innovations,
	}
	for _, sid := range p.SpeciesSet.sortedSpeciesKeys() {
		sp := p.SpeciesSet.Species[sid]
		state.Species = append(state.Species, speciesState{
			Key:             sp.Key,
			Created:         sp.Created,
			LastImproved:    sp.LastImproved,
			Fitness:         sp.Fitness,
			AdjustedFitness: sp.AdjustedFitness,
			FitnessHistory:  sp.FitnessHistory,
			Representative:  sp.Representative,
		})
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if err := gob.NewEncoder(gz).Encode(state); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}

	if info, statErr := os.Stat(filePath); statErr == nil {
		p.log.Info("checkpoint saved",
			zap.String("path", filePath),
			zap.Int("generation", p.Generation),
			zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return nil
}

// LoadCheckpoint restores a population from a checkpoint file. The config is
// re-read from its own file rather than the checkpoint, so parameters may be
// tuned between runs. A nil logger disables logging.
//
// The random stream cannot resume from its interrupted position; a restored
// run draws from a fresh stream derived from the seed and the resume
// generation, so it is deterministic per checkpoint but not bit-identical to
// an uninterrupted run.
func LoadCheckpoint(checkpointPath, configPath string, log *zap.Logger) (*Population, error) {
	if log == nil {
		log = zap.NewNop()
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}

	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint '%s': %w", checkpointPath, err)
	}
	defer gz.Close()

	state := checkpointState{}
	if err := gob.NewDecoder(gz).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint '%s': %w", checkpointPath, err)
	}
	if state.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint version %d not supported (want %d)", state.Version, checkpointVersion)
	}

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, err
	}
	reproduction := NewReproduction(&config.Reproduction, stagnation, log)
	reproduction.NextGenomeKey = state.NextGenomeKey
	if state.Ancestors != nil {
		reproduction.Ancestors = state.Ancestors
	}

	speciesSet := NewSpeciesSet(&config.Speciation, log)
	speciesSet.Indexer = state.SpeciesIndexer
	for _, st := range state.Species {
		sp := NewSpecies(st.Key, st.Created)
		sp.LastImproved = st.LastImproved
		sp.Fitness = st.Fitness
		sp.AdjustedFitness = st.AdjustedFitness
		sp.FitnessHistory = st.FitnessHistory
		sp.Representative = st.Representative
		if sp.Representative != nil {
			sp.Representative.Config = &config.Genome
		}
		speciesSet.Species[sp.Key] = sp
	}

	// Gob gave every genome its own config copy; point them all back at the
	// one loaded config.
	for _, g := range state.Population {
		g.Config = &config.Genome
	}
	if state.Best != nil {
		state.Best.Config = &config.Genome
	}

	tracker := state.Innovations
	if tracker == nil {
		tracker = NewInnovationTracker(&config.Genome)
	}

	p := &Population{
		Config:       config,
		Population:   state.Population,
		SpeciesSet:   speciesSet,
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Innovations:  tracker,
		Generation:   state.Generation,
		BestGenome:   state.Best,
		Seed:         state.Seed,
		phase:        state.Phase,
		rng:          rand.New(rand.NewSource(state.Seed + int64(state.Generation))),
		log:          log,
	}
	log.Info("checkpoint loaded",
		zap.String("path", checkpointPath),
		zap.Int("generation", p.Generation),
		zap.Time("saved_at", state.SavedAt))
	return p, nil
}
