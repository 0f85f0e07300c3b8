// Package stats provides reporters that record evolution progress to memory,
// CSV files and a SQLite archive. All of them implement neat.Reporter and can
// be registered side by side.
package stats

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/baldhumanity/neatbird/neat"
)

// Recorder keeps the whole run's generation history in memory and tracks how
// often the champion actually changed, deduplicating by topology fingerprint
// rather than genome key (an elite keeps its key while a structurally new
// genome gets a fresh one, so keys alone over- and under-count).
type Recorder struct {
	mu sync.Mutex

	log       *zap.Logger
	history   []neat.GenerationSummary
	champions map[uint64]int // fingerprint -> generation first seen
	solvedAt  int            // 0 until a solution is found
}

// NewRecorder creates a recorder. A nil logger disables logging.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		log:       log,
		champions: make(map[uint64]int),
	}
}

func (r *Recorder) StartGeneration(generation int) {
	r.log.Debug("generation starting", zap.Int("generation", generation))
}

func (r *Recorder) EndGeneration(summary neat.GenerationSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, summary)
	if summary.BestFingerprint != 0 {
		if _, seen := r.champions[summary.BestFingerprint]; !seen {
			r.champions[summary.BestFingerprint] = summary.Generation
		}
	}
}

func (r *Recorder) FoundSolution(generation int, best *neat.Genome) {
	r.mu.Lock()
	r.solvedAt = generation
	r.mu.Unlock()
	nodes, conns := best.Size()
	r.log.Info("solution found",
		zap.Int("generation", generation),
		zap.Int("genome", best.Key),
		zap.Float64("fitness", best.Fitness),
		zap.Int("nodes", nodes),
		zap.Int("connections", conns))
}

// History returns a copy of every generation summary recorded so far.
func (r *Recorder) History() []neat.GenerationSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]neat.GenerationSummary, len(r.history))
	copy(out, r.history)
	return out
}

// BestFitnessHistory returns the best-ever fitness after each generation, in
// order. The series never decreases.
func (r *Recorder) BestFitnessHistory() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.history))
	for i, s := range r.history {
		out[i] = s.BestFitness
	}
	return out
}

// SolvedAt reports the generation the fitness target was reached, 0 if never.
func (r *Recorder) SolvedAt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solvedAt
}

// Summary renders run totals in one line, counts humanized.
func (r *Recorder) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.history) == 0 {
		return "no generations recorded"
	}

	evaluations := int64(0)
	means := make([]float64, len(r.history))
	for i, s := range r.history {
		evaluations += int64(s.PopulationSize)
		means[i] = s.MeanFitness
	}
	last := r.history[len(r.history)-1]

	line := fmt.Sprintf("%s generations, %s evaluations, best fitness %.2f, mean-of-means %.2f, %s distinct champions",
		humanize.Comma(int64(len(r.history))),
		humanize.Comma(evaluations),
		last.BestFitness,
		stat.Mean(means, nil),
		humanize.Comma(int64(len(r.champions))))
	if r.solvedAt > 0 {
		line += fmt.Sprintf(", solved at generation %d", r.solvedAt)
	}
	return line
}
