// Package nn compiles genomes into runnable feed-forward phenotypes.
package nn

import (
	"fmt"
	"sort"

	"github.com/baldhumanity/neatbird/neat"
)

// connInput is one incoming edge of a node, resolved at build time.
type connInput struct {
	Source int
	Weight float64
}

// neuralNode is a node prepared for activation: looked-up transfer functions
// plus its incoming edges.
type neuralNode struct {
	Key           int
	Bias          float64
	Response      float64
	ActivationFn  neat.ActivationFunc
	AggregationFn neat.AggregationFunc
	Inputs        []connInput
}

// FeedForwardNetwork is the phenotype compiled from a genome. It is immutable
// after creation and Activate keeps all per-call state in locals, so a single
// instance may be shared by concurrent callers.
type FeedForwardNetwork struct {
	inputKeys  []int
	outputKeys []int
	evalOrder  []int // topological order over nodes that receive input
	nodes      map[int]neuralNode
}

// CreateFeedForwardNetwork builds a runnable network from a genome. The
// genome's enabled connections must form a DAG; node keys referenced by
// connections must exist. Errors mark the genome degenerate; callers fall
// back to a default action instead of failing the generation.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	inputKeySet := make(map[int]bool, len(g.Config.InputKeys))
	for _, ik := range g.Config.InputKeys {
		inputKeySet[ik] = true
	}

	nodes := make(map[int]neuralNode, len(g.Nodes))
	for key, gn := range g.Nodes {
		actFn, err := neat.GetActivation(gn.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", key, err)
		}
		aggFn, err := neat.GetAggregation(gn.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", key, err)
		}
		nodes[key] = neuralNode{
			Key:           key,
			Bias:          gn.Bias,
			Response:      gn.Response,
			ActivationFn:  actFn,
			AggregationFn: aggFn,
		}
	}

	// Incoming edges per node. Iterating the innovation-sorted gene list
	// keeps edge order, and therefore aggregation input order, stable.
	incoming := make(map[int][]connInput)
	nodeKeys := make(map[int]bool, len(nodes))
	for key := range nodes {
		nodeKeys[key] = true
	}
	for _, conn := range g.Conns {
		if !conn.Enabled {
			continue
		}
		in, out := conn.Key.InNodeID, conn.Key.OutNodeID
		if !inputKeySet[in] {
			if _, ok := nodes[in]; !ok {
				return nil, fmt.Errorf("connection %d->%d: unknown source node", in, out)
			}
		}
		if _, ok := nodes[out]; !ok {
			return nil, fmt.Errorf("connection %d->%d: unknown target node", in, out)
		}
		incoming[out] = append(incoming[out], connInput{Source: in, Weight: conn.Weight})
		nodeKeys[in] = true
		nodeKeys[out] = true
	}
	for key, node := range nodes {
		node.Inputs = incoming[key]
		nodes[key] = node
	}

	// Kahn's algorithm over the enabled edges. The queue stays sorted so the
	// resulting order is identical across runs.
	for _, ik := range g.Config.InputKeys {
		nodeKeys[ik] = true
	}
	inDegree := make(map[int]int, len(nodeKeys))
	graph := make(map[int][]int, len(nodeKeys))
	for nk := range nodeKeys {
		inDegree[nk] = 0
	}
	for out, edges := range incoming {
		inDegree[out] = len(edges)
		for _, e := range edges {
			graph[e.Source] = append(graph[e.Source], out)
		}
	}

	queue := make([]int, 0, len(nodeKeys))
	for nk := range nodeKeys {
		if inDegree[nk] == 0 {
			queue = append(queue, nk)
		}
	}
	sort.Ints(queue)

	evalOrder := make([]int, 0, len(nodeKeys))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if !inputKeySet[u] && len(nodes[u].Inputs) > 0 {
			evalOrder = append(evalOrder, u)
		}
		neighbors := graph[u]
		sort.Ints(neighbors)
		for _, v := range neighbors {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
		sort.Ints(queue)
	}

	sorted := 0
	for _, d := range inDegree {
		if d == 0 {
			sorted++
		}
	}
	if sorted != len(nodeKeys) {
		return nil, fmt.Errorf("genome %d is not feed-forward: cycle among enabled connections", g.Key)
	}

	return &FeedForwardNetwork{
		inputKeys:  g.Config.InputKeys,
		outputKeys: g.Config.OutputKeys,
		evalOrder:  evalOrder,
		nodes:      nodes,
	}, nil
}

// Activate computes the network outputs for one observation. Nodes that
// receive no input, including outputs of a connectionless genome, keep the
// value 0. Pure: same inputs, same outputs, no retained state.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.inputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.inputKeys), len(inputs))
	}

	nodeValues := make(map[int]float64, len(net.nodes)+len(net.inputKeys))
	for i, ik := range net.inputKeys {
		nodeValues[ik] = inputs[i]
	}

	var buf []float64
	for _, nodeKey := range net.evalOrder {
		node := net.nodes[nodeKey]
		if cap(buf) < len(node.Inputs) {
			buf = make([]float64, 0, len(node.Inputs))
		}
		weighted := buf[:0]
		for _, in := range node.Inputs {
			weighted = append(weighted, nodeValues[in.Source]*in.Weight)
		}
		buf = weighted
		aggregated := node.AggregationFn(weighted)
		nodeValues[nodeKey] = node.ActivationFn(node.Bias + node.Response*aggregated)
	}

	outputs := make([]float64, len(net.outputKeys))
	for i, ok := range net.outputKeys {
		outputs[i] = nodeValues[ok]
	}
	return outputs, nil
}
