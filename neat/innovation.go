package neat

// InnovationTracker hands out the historical markers identifying structural
// mutations across the whole population. The first appearance of a connection
// between a given (in, out) pair is assigned the next innovation number; any
// later genome adding the same connection receives the same number, which is
// what lets crossover align connection lists from different lineages.
//
// Add-node splits are memoized the same way: splitting the connection with
// innovation i always yields the same hidden node key, so the two halves of a
// split share markers population-wide.
//
// Fields are exported for checkpoint encoding; mutate only through the
// methods.
type InnovationTracker struct {
	NextInnovation int
	NextNodeKey    int
	Conns          map[ConnectionKey]int
	Splits         map[int]int // connection innovation -> hidden node key
}

// NewInnovationTracker creates a tracker whose hidden node keys start after
// the output keys.
func NewInnovationTracker(config *GenomeConfig) *InnovationTracker {
	return &InnovationTracker{
		NextNodeKey: config.NumOutputs,
		Conns:       make(map[ConnectionKey]int),
		Splits:      make(map[int]int),
	}
}

// InnovationFor returns the innovation number for the connection (in, out),
// assigning the next free number on first appearance.
func (t *InnovationTracker) InnovationFor(in, out int) int {
	key := ConnectionKey{InNodeID: in, OutNodeID: out}
	if innov, ok := t.Conns[key]; ok {
		return innov
	}
	innov := t.NextInnovation
	t.NextInnovation++
	t.Conns[key] = innov
	return innov
}

// SplitNodeFor returns the hidden node key produced by splitting the
// connection with the given innovation number, assigning a fresh key on
// first appearance.
func (t *InnovationTracker) SplitNodeFor(connInnovation int) int {
	if key, ok := t.Splits[connInnovation]; ok {
		return key
	}
	key := t.NextNodeKey
	t.NextNodeKey++
	t.Splits[connInnovation] = key
	return key
}
