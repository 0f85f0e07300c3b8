package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertAcyclic fails the test if the genome's connection genes, enabled or
// not, contain a cycle.
func assertAcyclic(t *testing.T, g *Genome) {
	t.Helper()
	adj := make(map[int][]int)
	indeg := make(map[int]int)
	nodes := make(map[int]bool)
	for _, c := range g.Conns {
		adj[c.Key.InNodeID] = append(adj[c.Key.InNodeID], c.Key.OutNodeID)
		indeg[c.Key.OutNodeID]++
		nodes[c.Key.InNodeID] = true
		nodes[c.Key.OutNodeID] = true
	}
	var queue []int
	for n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	seen := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		seen++
		for _, v := range adj[u] {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	require.Equal(t, len(nodes), seen, "connection genes contain a cycle")
}

func TestConfigureNewFullyConnected(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(1))

	g := NewGenome(1, &cfg.Genome)
	g.ConfigureNew(tracker, rng)

	assert.Len(t, g.Nodes, 1, "one node per output, no hidden nodes")
	require.Len(t, g.Conns, 3, "every input wired to every output")
	for i, conn := range g.Conns {
		assert.Equal(t, i, conn.Innovation, "innovations assigned in creation order")
		assert.True(t, conn.Enabled)
		assert.Equal(t, 0, conn.Key.OutNodeID)
	}
	assertAcyclic(t, g)
}

func TestConfigureNewSharesInnovations(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(1))

	g1 := NewGenome(1, &cfg.Genome)
	g1.ConfigureNew(tracker, rng)
	g2 := NewGenome(2, &cfg.Genome)
	g2.ConfigureNew(tracker, rng)

	require.Equal(t, len(g1.Conns), len(g2.Conns))
	for i := range g1.Conns {
		assert.Equal(t, g1.Conns[i].Innovation, g2.Conns[i].Innovation,
			"the same structural gene carries the same marker in every genome")
	}
}

func TestCrossoverFollowsFitterParent(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(2))

	p1 := NewGenome(1, &cfg.Genome)
	p1.ConfigureNew(tracker, rng)
	p2 := NewGenome(2, &cfg.Genome)
	p2.ConfigureNew(tracker, rng)

	// Give p1 extra structure: a hidden node on the way to the output.
	hidden := tracker.SplitNodeFor(p1.Conns[0].Innovation)
	p1.Nodes[hidden] = NewNodeGene(hidden, &cfg.Genome, rng)
	p1.addConn(NewConnectionGene(ConnectionKey{InNodeID: -1, OutNodeID: hidden},
		tracker.InnovationFor(-1, hidden), &cfg.Genome, rng))
	p1.addConn(NewConnectionGene(ConnectionKey{InNodeID: hidden, OutNodeID: 0},
		tracker.InnovationFor(hidden, 0), &cfg.Genome, rng))

	p1.Fitness = 10
	p2.Fitness = 5

	child := NewGenome(3, &cfg.Genome)
	child.ConfigureCrossover(p1, p2, rng)

	require.Len(t, child.Conns, len(p1.Conns), "disjoint and excess genes come from the fitter parent")
	for i := range child.Conns {
		assert.Equal(t, p1.Conns[i].Innovation, child.Conns[i].Innovation)
	}
	assert.Len(t, child.Nodes, len(p1.Nodes))

	// Homologous genes inherit the weight from one parent or the other.
	for i, conn := range child.Conns {
		if i < 3 {
			assert.Contains(t, []float64{p1.Conns[i].Weight, p2.Conns[i].Weight}, conn.Weight)
		} else {
			assert.Equal(t, p1.Conns[i].Weight, conn.Weight)
		}
	}

	// The parent order must not matter, only fitness.
	child2 := NewGenome(4, &cfg.Genome)
	child2.ConfigureCrossover(p2, p1, rng)
	assert.Len(t, child2.Conns, len(p1.Conns))
}

func TestMutateAddNodeSplitsConnection(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(4))

	g := NewGenome(1, &cfg.Genome)
	g.Nodes[0] = NewNodeGene(0, &cfg.Genome, rng)
	orig := NewConnectionGene(ConnectionKey{InNodeID: -1, OutNodeID: 0},
		tracker.InnovationFor(-1, 0), &cfg.Genome, rng)
	orig.Weight = 1.75
	g.addConn(orig)

	g.mutateAddNode(tracker, rng)

	assert.False(t, orig.Enabled, "the split connection is disabled, not removed")
	require.Len(t, g.Conns, 3)
	require.Len(t, g.Nodes, 2)

	hidden := tracker.SplitNodeFor(orig.Innovation)
	require.Contains(t, g.Nodes, hidden)

	front := g.connAt(ConnectionKey{InNodeID: -1, OutNodeID: hidden})
	require.NotNil(t, front)
	assert.Equal(t, 1.0, front.Weight, "the incoming half carries weight 1")

	back := g.connAt(ConnectionKey{InNodeID: hidden, OutNodeID: 0})
	require.NotNil(t, back)
	assert.Equal(t, orig.Weight, back.Weight, "the outgoing half carries the split weight")

	// The same split in another lineage reuses the same hidden key.
	g2 := NewGenome(2, &cfg.Genome)
	g2.Nodes[0] = NewNodeGene(0, &cfg.Genome, rng)
	g2.addConn(NewConnectionGene(ConnectionKey{InNodeID: -1, OutNodeID: 0},
		tracker.InnovationFor(-1, 0), &cfg.Genome, rng))
	g2.mutateAddNode(tracker, rng)
	assert.Contains(t, g2.Nodes, hidden)
	assertAcyclic(t, g)
	assertAcyclic(t, g2)
}

func TestMutateAddConnectionAvoidsDuplicatesAndCycles(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Genome.NumInputs = 2
	require.NoError(t, cfg.Prepare())
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(6))

	g := NewGenome(1, &cfg.Genome)
	g.Nodes[0] = NewNodeGene(0, &cfg.Genome, rng)
	g.Nodes[1] = NewNodeGene(1, &cfg.Genome, rng)
	g.addConn(NewConnectionGene(ConnectionKey{InNodeID: -1, OutNodeID: 1},
		tracker.InnovationFor(-1, 1), &cfg.Genome, rng))
	g.addConn(NewConnectionGene(ConnectionKey{InNodeID: 1, OutNodeID: 0},
		tracker.InnovationFor(1, 0), &cfg.Genome, rng))

	for i := 0; i < 100; i++ {
		g.mutateAddConnection(tracker, rng)
	}

	// -1->0, -2->0 and -2->1 are the only legal additions: 0->1 would close a
	// cycle through 1->0, and self loops are never allowed.
	assert.Len(t, g.Conns, 5)
	seen := make(map[ConnectionKey]bool)
	for _, conn := range g.Conns {
		assert.False(t, seen[conn.Key], "duplicate connection %v", conn.Key)
		seen[conn.Key] = true
	}
	assert.Nil(t, g.connAt(ConnectionKey{InNodeID: 0, OutNodeID: 1}))
	assertAcyclic(t, g)
}

func TestMutateDeleteConnection(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(8))

	g := NewGenome(1, &cfg.Genome)
	g.ConfigureNew(tracker, rng)
	before := len(g.Conns)

	g.mutateDeleteConnection(rng)
	assert.Len(t, g.Conns, before-1)

	empty := NewGenome(2, &cfg.Genome)
	empty.mutateDeleteConnection(rng) // must not panic
	assert.Empty(t, empty.Conns)
}

func TestDistanceProperties(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(10))

	g1 := NewGenome(1, &cfg.Genome)
	g1.ConfigureNew(tracker, rng)
	g2 := NewGenome(2, &cfg.Genome)
	g2.ConfigureNew(tracker, rng)

	// Make the genomes exactly equal.
	g2.Nodes[0] = g1.Nodes[0].Copy()
	for i := range g2.Conns {
		g2.Conns[i].Weight = g1.Conns[i].Weight
	}

	assert.Equal(t, 0.0, g1.Distance(g2))
	assert.Equal(t, 0.0, g1.Distance(g1))

	// A weight delta on one matching gene, normalized over the gene count.
	g2.Conns[0].Weight = g1.Conns[0].Weight + 2.0
	want := 2.0 * cfg.Genome.CompatibilityWeightCoefficient / 3.0
	assert.InDelta(t, want, g1.Distance(g2), 1e-9)
	assert.InDelta(t, g1.Distance(g2), g2.Distance(g1), 1e-9, "distance is symmetric")

	// Extra structure on one side adds disjoint cost.
	base := g1.Distance(g2)
	hidden := tracker.SplitNodeFor(g1.Conns[0].Innovation)
	g1.Nodes[hidden] = NewNodeGene(hidden, &cfg.Genome, rng)
	g1.addConn(NewConnectionGene(ConnectionKey{InNodeID: hidden, OutNodeID: 0},
		tracker.InnovationFor(hidden, 0), &cfg.Genome, rng))
	assert.Greater(t, g1.Distance(g2), base)
}

func TestCopyWithKeyIsDeep(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(12))

	g := NewGenome(1, &cfg.Genome)
	g.ConfigureNew(tracker, rng)
	g.Fitness = 7.5
	g.SpeciesID = 3

	c := g.CopyWithKey(42)
	assert.Equal(t, 42, c.Key)
	assert.Equal(t, 7.5, c.Fitness)
	assert.Equal(t, 3, c.SpeciesID)

	c.Nodes[0].Bias = 99
	c.Conns[0].Weight = 99
	assert.NotEqual(t, 99.0, g.Nodes[0].Bias)
	assert.NotEqual(t, 99.0, g.Conns[0].Weight)
}

func TestFingerprintStability(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(14))

	g := NewGenome(1, &cfg.Genome)
	g.ConfigureNew(tracker, rng)

	// The key is identity, not topology; copies hash the same.
	assert.Equal(t, g.Fingerprint(), g.CopyWithKey(999).Fingerprint())

	changed := g.CopyWithKey(1)
	changed.Conns[1].Weight += 0.5
	assert.NotEqual(t, g.Fingerprint(), changed.Fingerprint())
}

func TestMutateDeterministicUnderSeed(t *testing.T) {
	build := func() *Genome {
		cfg := newTestConfig(t)
		tracker := NewInnovationTracker(&cfg.Genome)
		rng := rand.New(rand.NewSource(16))
		g := NewGenome(1, &cfg.Genome)
		g.ConfigureNew(tracker, rng)
		for i := 0; i < 10; i++ {
			g.Mutate(tracker, rng)
		}
		return g
	}
	assert.Equal(t, build().Fingerprint(), build().Fingerprint(),
		"identical seeds must yield identical offspring")
}

func TestCreatesCycle(t *testing.T) {
	cfg := newTestConfig(t)
	rng := rand.New(rand.NewSource(18))

	g := NewGenome(1, &cfg.Genome)
	g.Nodes[0] = NewNodeGene(0, &cfg.Genome, rng)
	g.Nodes[1] = NewNodeGene(1, &cfg.Genome, rng)
	g.Conns = []*ConnectionGene{
		{Key: ConnectionKey{InNodeID: -1, OutNodeID: 1}, Innovation: 0, Weight: 1, Enabled: true},
		{Key: ConnectionKey{InNodeID: 1, OutNodeID: 0}, Innovation: 1, Weight: 1, Enabled: true},
	}

	assert.True(t, createsCycle(g, 0, 1), "0->1 closes the loop through 1->0")
	assert.False(t, createsCycle(g, -2, 1))
	assert.True(t, createsCycle(g, 1, 1), "self loop")

	// Disabled genes still count; crossover may re-enable them.
	g.Conns[1].Enabled = false
	assert.True(t, createsCycle(g, 0, 1))
}

func TestGenomeSize(t *testing.T) {
	cfg := newTestConfig(t)
	tracker := NewInnovationTracker(&cfg.Genome)
	rng := rand.New(rand.NewSource(20))

	g := NewGenome(1, &cfg.Genome)
	g.ConfigureNew(tracker, rng)

	nodes, enabled := g.Size()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 3, enabled)

	g.Conns[0].Enabled = false
	_, enabled = g.Size()
	assert.Equal(t, 2, enabled)
}
