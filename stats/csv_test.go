package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReporterWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	rep, err := NewCSVReporter(path, nil)
	require.NoError(t, err)

	s1 := testSummary(1, 3, 0xA)
	s1.Duration = 1500 * time.Millisecond
	s2 := testSummary(2, 5, 0xB)

	rep.StartGeneration(1)
	rep.EndGeneration(s1)
	rep.EndGeneration(s2)
	require.NoError(t, rep.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3, "one header plus one row per generation")
	assert.True(t, strings.HasPrefix(lines[0], "generation,"), "header written first, exactly once")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var rows []GenerationRow
	require.NoError(t, gocsv.Unmarshal(f, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Generation)
	assert.Equal(t, 3.0, rows[0].BestFitness)
	assert.Equal(t, int64(1500), rows[0].DurationMS)
	assert.Equal(t, 2, rows[1].Generation)
	assert.Equal(t, 5.0, rows[1].BestFitness)
	assert.Equal(t, 50, rows[1].PopulationSize)
}

func TestNewCSVReporterBadPath(t *testing.T) {
	_, err := NewCSVReporter(filepath.Join(t.TempDir(), "missing-dir", "stats.csv"), nil)
	require.Error(t, err)
}

func TestCSVReporterIgnoresSolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	rep, err := NewCSVReporter(path, nil)
	require.NoError(t, err)

	// Solutions are the Recorder's and Archive's business; the CSV stays a
	// pure per-generation series.
	rep.FoundSolution(3, solvedGenome(9))
	require.NoError(t, rep.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, raw)
}
