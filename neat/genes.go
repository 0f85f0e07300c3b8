package neat

import (
	"fmt"
	"math"
	"math/rand"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the neural network genome.
type NodeGene struct {
	Key         int // negative for inputs, 0..NumOutputs-1 for outputs, larger for hidden
	Bias        float64
	Response    float64
	Activation  string // name of the activation function
	Aggregation string // name of the aggregation function
}

// NewNodeGene creates a NodeGene with attributes drawn from the config's
// init distributions.
func NewNodeGene(key int, config *GenomeConfig, rng *rand.Rand) *NodeGene {
	ng := &NodeGene{
		Key:         key,
		Activation:  initStringAttribute(rng, config.ActivationDefault, config.ActivationOptions),
		Aggregation: initStringAttribute(rng, config.AggregationDefault, config.AggregationOptions),
	}
	ng.Bias = initFloatAttribute(rng, config.BiasInitMean, config.BiasInitStdev, config.BiasMinValue, config.BiasMaxValue)
	ng.Response = initFloatAttribute(rng, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseMinValue, config.ResponseMaxValue)
	return ng
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Key: %d, Bias: %.3f, Response: %.3f, Activation: %s, Aggregation: %s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the node's attributes according to the config's mutation rates.
func (ng *NodeGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	ng.Bias = mutateFloatAttribute(rng, ng.Bias, config.BiasMutateRate, config.BiasReplaceRate, config.BiasMutatePower,
		config.BiasInitMean, config.BiasInitStdev, config.BiasMinValue, config.BiasMaxValue)
	ng.Response = mutateFloatAttribute(rng, ng.Response, config.ResponseMutateRate, config.ResponseReplaceRate, config.ResponseMutatePower,
		config.ResponseInitMean, config.ResponseInitStdev, config.ResponseMinValue, config.ResponseMaxValue)
	ng.Activation = mutateStringAttribute(rng, ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateStringAttribute(rng, ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Distance calculates the attribute distance between two NodeGenes.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d += 1.0
	}
	if ng.Aggregation != other.Aggregation {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new NodeGene, inheriting each attribute from a randomly
// chosen parent. The receiver is the primary (fitter) parent.
func (ng *NodeGene) Crossover(other *NodeGene, rng *rand.Rand) *NodeGene {
	child := ng.Copy()
	if rng.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rng.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rng.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rng.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionGene represents a weighted connection between two nodes.
// Innovation is the historical marker assigned at the connection's first
// appearance anywhere in the population; crossover and distance align genes
// by it. The (in, out) Key is structural identity, used only to prevent
// duplicate connections within one genome.
type ConnectionGene struct {
	Key        ConnectionKey
	Innovation int
	Weight     float64
	Enabled    bool
}

// ConnectionKey identifies a connection by its endpoint node keys.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// NewConnectionGene creates an enabled ConnectionGene with a weight drawn from
// the config's init distribution.
func NewConnectionGene(key ConnectionKey, innovation int, config *GenomeConfig, rng *rand.Rand) *ConnectionGene {
	return &ConnectionGene{
		Key:        key,
		Innovation: innovation,
		Weight:     initFloatAttribute(rng, config.WeightInitMean, config.WeightInitStdev, config.WeightMinValue, config.WeightMaxValue),
		Enabled:    true,
	}
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Innov: %d, Key: %d->%d, Weight: %.3f, Enabled: %t)",
		cg.Innovation, cg.Key.InNodeID, cg.Key.OutNodeID, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// Mutate adjusts the connection weight according to the config's mutation rates.
func (cg *ConnectionGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	cg.Weight = mutateFloatAttribute(rng, cg.Weight, config.WeightMutateRate, config.WeightReplaceRate, config.WeightMutatePower,
		config.WeightInitMean, config.WeightInitStdev, config.WeightMinValue, config.WeightMaxValue)
}

// Distance calculates the attribute distance between two ConnectionGenes.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new ConnectionGene from two parents carrying the same
// innovation, inheriting each attribute from a randomly chosen parent. The
// receiver is the primary (fitter) parent.
func (cg *ConnectionGene) Crossover(other *ConnectionGene, rng *rand.Rand) *ConnectionGene {
	child := cg.Copy()
	if rng.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	// neat-python inherits the enabled flag from a random parent rather than
	// the original paper's 75% re-disable rule.
	if rng.Float64() < 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}

// --------------------------- Attribute helpers ---------------------------

func initFloatAttribute(rng *rand.Rand, mean, stdev, minVal, maxVal float64) float64 {
	return clamp(rng.NormFloat64()*stdev+mean, minVal, maxVal)
}

func mutateFloatAttribute(rng *rand.Rand, value, mutateRate, replaceRate, mutatePower, initMean, initStdev, minVal, maxVal float64) float64 {
	r := rng.Float64()
	if r < mutateRate {
		return clamp(value+rng.NormFloat64()*mutatePower, minVal, maxVal)
	}
	if r < mutateRate+replaceRate {
		return initFloatAttribute(rng, initMean, initStdev, minVal, maxVal)
	}
	return value
}

func initStringAttribute(rng *rand.Rand, defaultVal string, options []string) string {
	if defaultVal == "random" || defaultVal == "none" || defaultVal == "" {
		return options[rng.Intn(len(options))]
	}
	return defaultVal
}

func mutateStringAttribute(rng *rand.Rand, value string, mutateRate float64, options []string) string {
	if len(options) <= 1 || mutateRate <= 0 || rng.Float64() >= mutateRate {
		return value
	}
	others := make([]string, 0, len(options)-1)
	for _, opt := range options {
		if opt != value {
			others = append(others, opt)
		}
	}
	if len(others) == 0 {
		return value
	}
	return others[rng.Intn(len(others))]
}
