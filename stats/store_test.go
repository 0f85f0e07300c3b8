package stats

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T, path string, seed int64) *Archive {
	t.Helper()
	a, err := OpenArchive(path, seed, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	a := openTestArchive(t, path, 42)

	a.EndGeneration(testSummary(1, 3, 0xA))
	a.EndGeneration(testSummary(2, 5, 0xB))

	series, err := a.BestFitnessSeries(a.RunID())
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, series)

	var seed int64
	var best float64
	row := a.db.QueryRow(`SELECT seed, best_fitness FROM runs WHERE id = ?`, a.RunID())
	require.NoError(t, row.Scan(&seed, &best))
	assert.Equal(t, int64(42), seed)
	assert.Equal(t, 5.0, best, "run row tracks the latest best")
}

func TestArchiveUpsertsRepeatedGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	a := openTestArchive(t, path, 1)

	// A resumed run re-reports the generation it was interrupted in.
	a.EndGeneration(testSummary(1, 3, 0xA))
	a.EndGeneration(testSummary(1, 4, 0xB))

	series, err := a.BestFitnessSeries(a.RunID())
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, series)
}

func TestArchiveRecordsSolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	a := openTestArchive(t, path, 1)

	a.FoundSolution(9, solvedGenome(12))

	var solvedGen int
	var best float64
	row := a.db.QueryRow(`SELECT solved_generation, best_fitness FROM runs WHERE id = ?`, a.RunID())
	require.NoError(t, row.Scan(&solvedGen, &best))
	assert.Equal(t, 9, solvedGen)
	assert.Equal(t, 12.0, best)
}

func TestArchiveKeepsRunsSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first := openTestArchive(t, path, 1)
	second := openTestArchive(t, path, 2)
	require.NotEqual(t, first.RunID(), second.RunID())

	first.EndGeneration(testSummary(1, 3, 0xA))
	second.EndGeneration(testSummary(1, 7, 0xB))

	series, err := first.BestFitnessSeries(first.RunID())
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, series)

	series, err = first.BestFitnessSeries(second.RunID())
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, series, "both runs are readable through either handle")
}

func TestOpenArchiveBadPath(t *testing.T) {
	_, err := OpenArchive(filepath.Join(t.TempDir(), "missing-dir", "runs.db"), 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening archive")
}
