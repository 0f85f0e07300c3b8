// Package neatbird evolves neural-network pilots for a scrolling pipe-dodging
// game with the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT is a genetic algorithm that evolves both the weights and the topology
// of neural networks, using historical innovation markers to align genomes
// during crossover and speciation to protect structural novelty while it
// matures. The algorithm follows the paper by Kenneth O. Stanley and Risto
// Miikkulainen and the conventions of the neat-python implementation
// (https://github.com/CodeReclaimers/neat-python).
//
// The module is split into four packages:
//
//   - neat: genomes, innovation tracking, speciation, stagnation,
//     reproduction and the generation loop.
//   - neat/nn: compiles genomes into runnable feed-forward networks.
//   - sim: the deterministic game world the networks are scored in, and the
//     runner that evaluates a whole generation against it.
//   - stats: reporters that record per-generation statistics to logs, CSV
//     and SQLite.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("config.ini")
//	if err != nil {
//		log.Fatal(err)
//	}
//	simConfig, err := sim.LoadConfig("config.ini")
//	if err != nil {
//		log.Fatal(err)
//	}
//	pop, err := neat.NewPopulation(config, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	runner, err := sim.NewRunner(simConfig, &config.Genome, pop.Seed, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	best, err := pop.Run(ctx, runner.EvaluateGenomes)
package neatbird
