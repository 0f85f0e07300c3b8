package neat

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Genome represents an individual organism in the population. Nodes are keyed
// by node id; connections are kept as a list sorted by innovation number so
// that crossover and distance can align two genomes with a single walk and so
// mutation order is reproducible under a fixed seed.
//
// A genome is immutable during simulation: the evaluator reads it, only the
// reproduction step between generations rewrites it.
type Genome struct {
	Key             int
	Nodes           map[int]*NodeGene
	Conns           []*ConnectionGene // sorted by Innovation, ascending
	SpeciesID       int
	Fitness         float64 // raw fitness from the evaluator
	AdjustedFitness float64 // fitness shared across the species, set during speciation
	Config          *GenomeConfig
}

// NewGenome creates an empty Genome with the specified key and config reference.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:    key,
		Nodes:  make(map[int]*NodeGene),
		Config: config,
	}
}

// ConfigureNew initializes a minimal genome: one node gene per output and a
// direct connection from every input to every output, weights drawn from the
// init distribution. No hidden nodes; structure grows only by mutation.
func (g *Genome) ConfigureNew(tracker *InnovationTracker, rng *rand.Rand) {
	for _, nodeKey := range g.Config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config, rng)
	}
	for _, ik := range g.Config.InputKeys {
		for _, ok := range g.Config.OutputKeys {
			key := ConnectionKey{InNodeID: ik, OutNodeID: ok}
			g.addConn(NewConnectionGene(key, tracker.InnovationFor(ik, ok), g.Config, rng))
		}
	}
}

// ConfigureCrossover fills this genome with genes combined from two parents.
// The fitter parent contributes all its nodes and its disjoint/excess
// connections; connections carrying the same innovation number in both
// parents are crossed over gene by gene.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome, rng *rand.Rand) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}
	g.Config = parent1.Config

	for key, node1 := range parent1.Nodes {
		if node2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = node1.Crossover(node2, rng)
		} else {
			g.Nodes[key] = node1.Copy()
		}
	}

	// Both lists are innovation-sorted, so one forward pointer into parent2
	// finds every homologous gene.
	g.Conns = make([]*ConnectionGene, 0, len(parent1.Conns))
	j := 0
	for _, conn1 := range parent1.Conns {
		for j < len(parent2.Conns) && parent2.Conns[j].Innovation < conn1.Innovation {
			j++
		}
		if j < len(parent2.Conns) && parent2.Conns[j].Innovation == conn1.Innovation {
			g.Conns = append(g.Conns, conn1.Crossover(parent2.Conns[j], rng))
		} else {
			g.Conns = append(g.Conns, conn1.Copy())
		}
	}
}

// Mutate applies structural and attribute mutations, each gated by its own
// probability. Attribute passes run in sorted gene order so a fixed seed
// yields the same offspring.
func (g *Genome) Mutate(tracker *InnovationTracker, rng *rand.Rand) {
	if rng.Float64() < g.Config.NodeAddProb {
		g.mutateAddNode(tracker, rng)
	}
	if rng.Float64() < g.Config.ConnAddProb {
		g.mutateAddConnection(tracker, rng)
	}
	if rng.Float64() < g.Config.ConnDeleteProb {
		g.mutateDeleteConnection(rng)
	}

	for _, key := range g.sortedNodeKeys() {
		g.Nodes[key].Mutate(g.Config, rng)
	}
	for _, conn := range g.Conns {
		conn.Mutate(g.Config, rng)
	}
}

// mutateAddNode splits a random connection: the original is disabled and
// replaced by in -> new (weight 1.0) and new -> out (original weight). The
// hidden node key comes from the tracker's split memo, so the same split in
// any genome produces the same node key.
func (g *Genome) mutateAddNode(tracker *InnovationTracker, rng *rand.Rand) {
	if len(g.Conns) == 0 {
		return
	}
	connToSplit := g.Conns[rng.Intn(len(g.Conns))]

	newNodeKey := tracker.SplitNodeFor(connToSplit.Innovation)
	if _, exists := g.Nodes[newNodeKey]; exists {
		// This lineage already split the same connection once.
		return
	}
	connToSplit.Enabled = false
	g.Nodes[newNodeKey] = NewNodeGene(newNodeKey, g.Config, rng)

	in := connToSplit.Key.InNodeID
	out := connToSplit.Key.OutNodeID

	conn1 := NewConnectionGene(ConnectionKey{InNodeID: in, OutNodeID: newNodeKey},
		tracker.InnovationFor(in, newNodeKey), g.Config, rng)
	conn1.Weight = 1.0
	g.addConn(conn1)

	conn2 := NewConnectionGene(ConnectionKey{InNodeID: newNodeKey, OutNodeID: out},
		tracker.InnovationFor(newNodeKey, out), g.Config, rng)
	conn2.Weight = connToSplit.Weight
	g.addConn(conn2)
}

// mutateAddConnection tries to connect two previously unconnected nodes.
// Candidate pairs that duplicate an existing connection or would close a
// cycle are rejected; after a bounded number of attempts the mutation is a
// no-op.
func (g *Genome) mutateAddConnection(tracker *InnovationTracker, rng *rand.Rand) {
	nodeKeys := g.sortedNodeKeys()

	// Inputs of a new connection may be sensor or internal nodes; outputs
	// only internal (sensors never receive).
	possibleInputs := make([]int, 0, len(g.Config.InputKeys)+len(nodeKeys))
	possibleInputs = append(possibleInputs, g.Config.InputKeys...)
	possibleInputs = append(possibleInputs, nodeKeys...)
	possibleOutputs := nodeKeys

	if len(possibleInputs) == 0 || len(possibleOutputs) == 0 {
		return
	}

	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		inNodeKey := possibleInputs[rng.Intn(len(possibleInputs))]
		outNodeKey := possibleOutputs[rng.Intn(len(possibleOutputs))]

		key := ConnectionKey{InNodeID: inNodeKey, OutNodeID: outNodeKey}
		if g.connAt(key) != nil {
			continue
		}
		if createsCycle(g, inNodeKey, outNodeKey) {
			continue
		}

		g.addConn(NewConnectionGene(key, tracker.InnovationFor(inNodeKey, outNodeKey), g.Config, rng))
		return
	}
}

// mutateDeleteConnection removes a random connection gene.
func (g *Genome) mutateDeleteConnection(rng *rand.Rand) {
	if len(g.Conns) == 0 {
		return
	}
	i := rng.Intn(len(g.Conns))
	g.Conns = append(g.Conns[:i], g.Conns[i+1:]...)
}

// Distance calculates the compatibility distance between two genomes:
// disjoint and excess genes (split at the shorter genome's last innovation)
// weighted by the disjoint coefficient, plus attribute distances of matching
// genes, normalized by the larger gene count. Node genes contribute the same
// way, aligned by node key.
func (g *Genome) Distance(other *Genome) float64 {
	cfg := g.Config

	// Connection genes, aligned by innovation.
	connDiff := 0.0
	disjoint := 0
	excess := 0
	maxInnov1, maxInnov2 := -1, -1
	if n := len(g.Conns); n > 0 {
		maxInnov1 = g.Conns[n-1].Innovation
	}
	if n := len(other.Conns); n > 0 {
		maxInnov2 = other.Conns[n-1].Innovation
	}
	i, j := 0, 0
	for i < len(g.Conns) || j < len(other.Conns) {
		switch {
		case j >= len(other.Conns) || (i < len(g.Conns) && g.Conns[i].Innovation < other.Conns[j].Innovation):
			if g.Conns[i].Innovation > maxInnov2 {
				excess++
			} else {
				disjoint++
			}
			i++
		case i >= len(g.Conns) || other.Conns[j].Innovation < g.Conns[i].Innovation:
			if other.Conns[j].Innovation > maxInnov1 {
				excess++
			} else {
				disjoint++
			}
			j++
		default:
			connDiff += g.Conns[i].Distance(other.Conns[j], cfg)
			i++
			j++
		}
	}
	connDistance := 0.0
	if n := max(len(g.Conns), len(other.Conns)); n > 0 {
		connDistance = (connDiff + cfg.CompatibilityDisjointCoefficient*float64(disjoint+excess)) / float64(n)
	}

	// Node genes, aligned by key.
	nodeDiff := 0.0
	disjointNodes := 0
	for key, n1 := range g.Nodes {
		if n2, ok := other.Nodes[key]; ok {
			nodeDiff += n1.Distance(n2, cfg)
		} else {
			disjointNodes++
		}
	}
	for key := range other.Nodes {
		if _, ok := g.Nodes[key]; !ok {
			disjointNodes++
		}
	}
	nodeDistance := 0.0
	if n := max(len(g.Nodes), len(other.Nodes)); n > 0 {
		nodeDistance = (nodeDiff + cfg.CompatibilityDisjointCoefficient*float64(disjointNodes)) / float64(n)
	}

	return connDistance + nodeDistance
}

// CopyWithKey creates a deep copy of the genome under a new key. Fitness and
// species assignment carry over.
func (g *Genome) CopyWithKey(newKey int) *Genome {
	c := &Genome{
		Key:             newKey,
		Nodes:           make(map[int]*NodeGene, len(g.Nodes)),
		Conns:           make([]*ConnectionGene, len(g.Conns)),
		SpeciesID:       g.SpeciesID,
		Fitness:         g.Fitness,
		AdjustedFitness: g.AdjustedFitness,
		Config:          g.Config,
	}
	for key, node := range g.Nodes {
		c.Nodes[key] = node.Copy()
	}
	for i, conn := range g.Conns {
		c.Conns[i] = conn.Copy()
	}
	return c
}

// Size returns the node count and the enabled connection count.
func (g *Genome) Size() (int, int) {
	enabled := 0
	for _, conn := range g.Conns {
		if conn.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// Fingerprint returns a stable hash of the genome's topology and attributes.
// Two genomes with identical structure and identical (printed) attribute
// values hash the same, across runs and processes.
func (g *Genome) Fingerprint() uint64 {
	d := xxhash.New()
	for _, key := range g.sortedNodeKeys() {
		n := g.Nodes[key]
		fmt.Fprintf(d, "n|%d|%.6f|%.6f|%s|%s\n", n.Key, n.Bias, n.Response, n.Activation, n.Aggregation)
	}
	for _, c := range g.Conns {
		fmt.Fprintf(d, "c|%d|%d|%d|%.6f|%t\n", c.Innovation, c.Key.InNodeID, c.Key.OutNodeID, c.Weight, c.Enabled)
	}
	return d.Sum64()
}

// String returns a multi-line description of the genome, used by winner
// reports.
func (g *Genome) String() string {
	var b strings.Builder
	nodes, enabled := g.Size()
	fmt.Fprintf(&b, "Genome %d (fitness %.3f, %d nodes, %d enabled connections)\n", g.Key, g.Fitness, nodes, enabled)
	for _, key := range g.sortedNodeKeys() {
		fmt.Fprintf(&b, "  %s\n", g.Nodes[key])
	}
	for _, conn := range g.Conns {
		fmt.Fprintf(&b, "  %s\n", conn)
	}
	return strings.TrimRight(b.String(), "\n")
}

// connAt returns the connection with the given structural key, or nil.
func (g *Genome) connAt(key ConnectionKey) *ConnectionGene {
	for _, conn := range g.Conns {
		if conn.Key == key {
			return conn
		}
	}
	return nil
}

// addConn inserts a connection keeping the list sorted by innovation.
func (g *Genome) addConn(c *ConnectionGene) {
	i := sort.Search(len(g.Conns), func(k int) bool { return g.Conns[k].Innovation >= c.Innovation })
	g.Conns = append(g.Conns, nil)
	copy(g.Conns[i+1:], g.Conns[i:])
	g.Conns[i] = c
}

// sortedNodeKeys returns the genome's node keys in ascending order.
func (g *Genome) sortedNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for key := range g.Nodes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// createsCycle reports whether adding inNode -> outNode would close a cycle,
// i.e. whether inNode is already reachable from outNode. Disabled genes
// count: crossover may re-enable an inherited gene, so the gene list as a
// whole must stay acyclic, not just its enabled subset.
func createsCycle(genome *Genome, inNode, outNode int) bool {
	if inNode == outNode {
		return true
	}
	visited := make(map[int]bool)
	queue := []int{outNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == inNode {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, conn := range genome.Conns {
			if conn.Key.InNodeID == current {
				queue = append(queue, conn.Key.OutNodeID)
			}
		}
	}
	return false
}
