package stats

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/baldhumanity/neatbird/neat"
)

// Archive persists run and generation records to a SQLite database, one row
// per generation keyed by (run id, generation). Several runs can share one
// database file. Like the other reporters, write failures are logged and
// swallowed so the evolution loop never stalls on storage.
type Archive struct {
	db    *sql.DB
	runID string
	log   *zap.Logger
}

// OpenArchive opens the database, creating it and its tables if needed, and
// registers a new run. A nil logger disables logging.
func OpenArchive(path string, seed int64, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating archive tables: %w", err)
	}

	runID := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO runs (id, started_at, seed) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), seed); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}

	log.Info("run registered in archive", zap.String("run_id", runID), zap.String("path", path))
	return &Archive{db: db, runID: runID, log: log}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			seed INTEGER NOT NULL,
			best_fitness REAL NOT NULL DEFAULT 0,
			solved_generation INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			generation_best REAL NOT NULL,
			mean_fitness REAL NOT NULL,
			stdev_fitness REAL NOT NULL,
			species INTEGER NOT NULL,
			population INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}

// RunID identifies this run's rows in the database.
func (a *Archive) RunID() string { return a.runID }

func (a *Archive) StartGeneration(generation int) {}

func (a *Archive) EndGeneration(summary neat.GenerationSummary) {
	_, err := a.db.Exec(`
		INSERT INTO generations
			(run_id, generation, best_fitness, generation_best, mean_fitness,
			 stdev_fitness, species, population, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best_fitness = excluded.best_fitness,
			generation_best = excluded.generation_best,
			mean_fitness = excluded.mean_fitness,
			stdev_fitness = excluded.stdev_fitness,
			species = excluded.species,
			population = excluded.population,
			duration_ms = excluded.duration_ms
	`, a.runID, summary.Generation, summary.BestFitness, summary.GenerationBest,
		summary.MeanFitness, summary.StdevFitness, summary.SpeciesCount,
		summary.PopulationSize, summary.Duration.Milliseconds())
	if err != nil {
		a.log.Error("archiving generation", zap.Int("generation", summary.Generation), zap.Error(err))
		return
	}

	if _, err := a.db.Exec(`UPDATE runs SET best_fitness = ? WHERE id = ?`,
		summary.BestFitness, a.runID); err != nil {
		a.log.Error("updating run best fitness", zap.Error(err))
	}
}

func (a *Archive) FoundSolution(generation int, best *neat.Genome) {
	if _, err := a.db.Exec(`UPDATE runs SET solved_generation = ?, best_fitness = ? WHERE id = ?`,
		generation, best.Fitness, a.runID); err != nil {
		a.log.Error("recording solution", zap.Error(err))
	}
}

// BestFitnessSeries reads a run's best-fitness column back, ordered by
// generation.
func (a *Archive) BestFitnessSeries(runID string) ([]float64, error) {
	rows, err := a.db.Query(
		`SELECT best_fitness FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []float64
	for rows.Next() {
		var f float64
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		series = append(series, f)
	}
	return series, rows.Err()
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
