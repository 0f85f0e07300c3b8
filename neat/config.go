package neat

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores every evolution-side parameter, one struct per INI section.
// Simulation parameters live in the sim package and are read from the same
// file by its own loader.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Speciation   SpeciationConfig
	Stagnation   StagnationConfig
	Reproduction ReproductionConfig
}

// NeatConfig holds population-level and termination parameters.
type NeatConfig struct {
	PopSize       int     `ini:"pop_size"`
	FitnessTarget float64 `ini:"fitness_target"`
	GenerationCap int     `ini:"generation_cap"`
	Seed          int64   `ini:"seed"` // 0 means derive from wall clock
}

// GenomeConfig holds parameters for genome structure and mutation.
type GenomeConfig struct {
	NumInputs  int `ini:"num_inputs"`
	NumOutputs int `ini:"num_outputs"`

	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`

	ConnAddProb    float64 `ini:"conn_add_prob"`
	ConnDeleteProb float64 `ini:"conn_delete_prob"`
	NodeAddProb    float64 `ini:"node_add_prob"`

	// --- Node gene attributes ---
	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`           // a registry name, or "random"
	ActivationOptions    []string `ini:"activation_options" delim:" "` // space-separated list
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	// --- Connection gene attributes ---
	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	// Derived. Input keys are negative (-1..-NumInputs), outputs 0..NumOutputs-1.
	InputKeys  []int
	OutputKeys []int
}

// SpeciationConfig holds parameters for grouping genomes into species.
type SpeciationConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters for removing species that stopped improving.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"` // "max", "min", "mean" or "median"
	StagnationLimit    int    `ini:"stagnation_limit"`
	SpeciesElitism     int    `ini:"species_elitism"` // top species protected from stagnation removal
}

// ReproductionConfig holds parameters for building the next generation.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// LoadConfig loads configuration parameters from an INI file. Missing keys
// keep their defaults; present keys that do not parse fail the load.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := &Config{}

	if err := cfg.Section("NEAT").StrictMapTo(&config.Neat); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := cfg.Section("Genome").StrictMapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [Genome] section: %w", err)
	}
	if err := cfg.Section("Speciation").StrictMapTo(&config.Speciation); err != nil {
		return nil, fmt.Errorf("failed to map [Speciation] section: %w", err)
	}
	if err := cfg.Section("Stagnation").StrictMapTo(&config.Stagnation); err != nil {
		return nil, fmt.Errorf("failed to map [Stagnation] section: %w", err)
	}
	if err := cfg.Section("Reproduction").StrictMapTo(&config.Reproduction); err != nil {
		return nil, fmt.Errorf("failed to map [Reproduction] section: %w", err)
	}

	config.Genome.ActivationDefault = cleanIniString(config.Genome.ActivationDefault)
	config.Genome.AggregationDefault = cleanIniString(config.Genome.AggregationDefault)
	config.Stagnation.SpeciesFitnessFunc = cleanIniString(config.Stagnation.SpeciesFitnessFunc)
	for i, opt := range config.Genome.ActivationOptions {
		config.Genome.ActivationOptions[i] = strings.TrimSpace(opt)
	}
	for i, opt := range config.Genome.AggregationOptions {
		config.Genome.AggregationOptions[i] = strings.TrimSpace(opt)
	}

	if err := config.Prepare(); err != nil {
		return nil, err
	}
	return config, nil
}

// Prepare applies defaults, derives the node key ranges and validates the
// result. LoadConfig calls it; configs built in code should call it before
// use. Safe to call more than once.
func (c *Config) Prepare() error {
	if c.Genome.ActivationDefault == "" {
		c.Genome.ActivationDefault = "random"
	}
	if c.Genome.AggregationDefault == "" {
		c.Genome.AggregationDefault = "random"
	}
	if len(c.Genome.ActivationOptions) == 0 {
		c.Genome.ActivationOptions = []string{"tanh"}
	}
	if len(c.Genome.AggregationOptions) == 0 {
		c.Genome.AggregationOptions = []string{"sum"}
	}
	if c.Stagnation.SpeciesFitnessFunc == "" {
		c.Stagnation.SpeciesFitnessFunc = "mean"
	}
	if c.Stagnation.StagnationLimit == 0 {
		c.Stagnation.StagnationLimit = 15
	}
	if c.Reproduction.SurvivalThreshold == 0 {
		c.Reproduction.SurvivalThreshold = 0.2
	}
	if c.Reproduction.MinSpeciesSize == 0 {
		c.Reproduction.MinSpeciesSize = 1
	}
	if c.Neat.GenerationCap == 0 {
		c.Neat.GenerationCap = 50
	}

	c.Genome.InputKeys = make([]int, c.Genome.NumInputs)
	for i := 0; i < c.Genome.NumInputs; i++ {
		c.Genome.InputKeys[i] = -(i + 1)
	}
	c.Genome.OutputKeys = make([]int, c.Genome.NumOutputs)
	for i := 0; i < c.Genome.NumOutputs; i++ {
		c.Genome.OutputKeys[i] = i
	}

	return c.Validate()
}

// Validate checks value ranges. It is called before any generation runs;
// a non-nil result is fatal to the run.
func (c *Config) Validate() error {
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Neat.GenerationCap <= 0 {
		return fmt.Errorf("config error: generation_cap must be positive")
	}
	if c.Neat.FitnessTarget <= 0 {
		return fmt.Errorf("config error: fitness_target must be positive")
	}
	if c.Genome.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Genome.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Genome.CompatibilityDisjointCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_disjoint_coefficient cannot be negative")
	}
	if c.Genome.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_weight_coefficient cannot be negative")
	}
	for name, p := range map[string]float64{
		"conn_add_prob":    c.Genome.ConnAddProb,
		"conn_delete_prob": c.Genome.ConnDeleteProb,
		"node_add_prob":    c.Genome.NodeAddProb,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	if c.Genome.BiasMaxValue < c.Genome.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if c.Genome.ResponseMaxValue < c.Genome.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if c.Genome.WeightMaxValue < c.Genome.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	for _, name := range c.Genome.ActivationOptions {
		if _, ok := activations[name]; !ok {
			return fmt.Errorf("config error: unknown activation '%s'", name)
		}
	}
	if d := c.Genome.ActivationDefault; d != "random" {
		if _, ok := activations[d]; !ok {
			return fmt.Errorf("config error: unknown activation_default '%s'", d)
		}
	}
	for _, name := range c.Genome.AggregationOptions {
		if _, ok := aggregations[name]; !ok {
			return fmt.Errorf("config error: unknown aggregation '%s'", name)
		}
	}
	if d := c.Genome.AggregationDefault; d != "random" {
		if _, ok := aggregations[d]; !ok {
			return fmt.Errorf("config error: unknown aggregation_default '%s'", d)
		}
	}
	if c.Speciation.CompatibilityThreshold <= 0 {
		return fmt.Errorf("config error: compatibility_threshold must be positive")
	}
	if c.Stagnation.StagnationLimit <= 0 {
		return fmt.Errorf("config error: stagnation_limit must be positive")
	}
	if c.Stagnation.SpeciesElitism < 0 {
		return fmt.Errorf("config error: species_elitism cannot be negative")
	}
	validFitnessFuncs := map[string]bool{"max": true, "min": true, "mean": true, "median": true}
	if !validFitnessFuncs[strings.ToLower(c.Stagnation.SpeciesFitnessFunc)] {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}
	if c.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.Reproduction.SurvivalThreshold < 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a string
// read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
