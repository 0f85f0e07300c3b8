package stats

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/baldhumanity/neatbird/neat"
)

// GenerationRow is one CSV line per generation.
type GenerationRow struct {
	Generation     int     `csv:"generation"`
	BestFitness    float64 `csv:"best_fitness"`
	GenerationBest float64 `csv:"generation_best"`
	MeanFitness    float64 `csv:"mean_fitness"`
	StdevFitness   float64 `csv:"stdev_fitness"`
	SpeciesCount   int     `csv:"species"`
	PopulationSize int     `csv:"population"`
	DurationMS     int64   `csv:"duration_ms"`
}

// CSVReporter appends one row per generation to a CSV file: header on the
// first write, headerless appends after. Write failures are logged, never
// propagated; reporting must not break the evolution loop.
type CSVReporter struct {
	file          *os.File
	log           *zap.Logger
	headerWritten bool
}

// NewCSVReporter creates (truncating) the CSV file. A nil logger disables
// logging.
func NewCSVReporter(path string, log *zap.Logger) (*CSVReporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &CSVReporter{file: f, log: log}, nil
}

func (c *CSVReporter) StartGeneration(generation int) {}

func (c *CSVReporter) EndGeneration(summary neat.GenerationSummary) {
	rows := []GenerationRow{{
		Generation:     summary.Generation,
		BestFitness:    summary.BestFitness,
		GenerationBest: summary.GenerationBest,
		MeanFitness:    summary.MeanFitness,
		StdevFitness:   summary.StdevFitness,
		SpeciesCount:   summary.SpeciesCount,
		PopulationSize: summary.PopulationSize,
		DurationMS:     summary.Duration.Milliseconds(),
	}}

	var err error
	if !c.headerWritten {
		err = gocsv.Marshal(rows, c.file)
		c.headerWritten = err == nil
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, c.file)
	}
	if err != nil {
		c.log.Error("writing generation row", zap.Error(err))
	}
}

func (c *CSVReporter) FoundSolution(generation int, best *neat.Genome) {}

// Close flushes and closes the underlying file.
func (c *CSVReporter) Close() error {
	return c.file.Close()
}
