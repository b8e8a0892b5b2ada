package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"

	"canbot/internal/genotype"
	"canbot/internal/metrics"
	"canbot/internal/model"
	"canbot/internal/scape"
)

type ScoredGenome struct {
	Genome  genotype.Genome
	Fitness float64
	Trace   scape.Trace
}

type GenerationDiagnostics = model.GenerationDiagnostics

type RunResult struct {
	BestByGeneration []float64
	Diagnostics      []GenerationDiagnostics
	FinalPopulation  []ScoredGenome
	Champion         ScoredGenome
}

type MonitorConfig struct {
	Scape          scape.Scape
	Selector       Selector
	Mutation       Operator
	MutationEvents int
	PopulationSize int
	Generations    int
	Workers        int
	Seed           int64
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
	// Observer is called after every generation, in order, from the Run goroutine.
	Observer func(GenerationDiagnostics)
}

type PopulationMonitor struct {
	cfg MonitorConfig
	rng *rand.Rand
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("%w: population size %d", ErrPopulationTooSmall, cfg.PopulationSize)
	}
	if cfg.Generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0")
	}
	if cfg.MutationEvents < 0 {
		return nil, fmt.Errorf("mutation events must be >= 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = FitnessProportionateSelector{}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = PointMutation{Events: cfg.MutationEvents}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run evaluates the initial population as generation 0, then breeds and evaluates
// cfg.Generations further generations. Breeding of generation N+1 starts only after
// every genome of generation N has been scored.
func (m *PopulationMonitor) Run(ctx context.Context, initial []genotype.Genome) (RunResult, error) {
	if len(initial) != m.cfg.PopulationSize {
		return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
	}

	population := make([]genotype.Genome, len(initial))
	copy(population, initial)

	bestHistory := make([]float64, 0, m.cfg.Generations+1)
	diagnostics := make([]GenerationDiagnostics, 0, m.cfg.Generations+1)
	var champion ScoredGenome
	haveChampion := false

	scored, err := m.evaluate(ctx, population, 0)
	if err != nil {
		return RunResult{}, err
	}
	for gen := 0; ; gen++ {
		diag := summarizeGeneration(scored, gen)
		bestHistory = append(bestHistory, diag.BestFitness)
		diagnostics = append(diagnostics, diag)
		if best := scored[bestIndex(scored)]; !haveChampion || best.Fitness > champion.Fitness {
			champion = best
			haveChampion = true
		}
		m.cfg.Logger.Info("generation evaluated",
			"generation", gen,
			"best", diag.BestFitness,
			"mean", diag.MeanFitness,
			"diversity", diag.FingerprintDiversity,
		)
		if m.cfg.Observer != nil {
			m.cfg.Observer(diag)
		}

		if gen == m.cfg.Generations {
			break
		}
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		weights := make([]float64, len(scored))
		parents := make([]genotype.Genome, len(scored))
		for i, item := range scored {
			weights[i] = item.Fitness
			parents[i] = item.Genome
		}
		m.cfg.Logger.Debug("breeding generation",
			"generation", gen+1,
			"selector", m.cfg.Selector.Name(),
			"mutation", m.cfg.Mutation.Name(),
		)
		next, err := BreedNextGeneration(ctx, m.rng, parents, weights, m.cfg.Selector, m.cfg.Mutation, gen+1)
		if err != nil {
			return RunResult{}, err
		}
		scored, err = m.evaluate(ctx, next, gen+1)
		if err != nil {
			return RunResult{}, err
		}
	}

	return RunResult{
		BestByGeneration: bestHistory,
		Diagnostics:      diagnostics,
		FinalPopulation:  scored,
		Champion:         champion,
	}, nil
}

func (m *PopulationMonitor) evaluate(ctx context.Context, population []genotype.Genome, generation int) ([]ScoredGenome, error) {
	seeds := make([]int64, len(population))
	for i := range seeds {
		seeds[i] = m.rng.Int63()
	}
	start := time.Now()
	scored, err := EvaluateGeneration(ctx, m.cfg.Scape, population, seeds, m.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("evaluate generation %d: %w", generation, err)
	}
	if m.cfg.Metrics != nil {
		diag := summarizeGeneration(scored, generation)
		m.cfg.Metrics.ObserveGeneration(len(scored), diag.BestFitness, diag.MeanFitness, time.Since(start))
	}
	return scored, nil
}

// BreedNextGeneration produces len(population) children. Each child is the
// crossover of two distinct parents sampled in proportion to weights, followed
// by mutation.
func BreedNextGeneration(
	ctx context.Context,
	rng *rand.Rand,
	population []genotype.Genome,
	weights []float64,
	selector Selector,
	mutation Operator,
	generation int,
) ([]genotype.Genome, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if len(population) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrPopulationTooSmall, len(population))
	}
	if len(weights) != len(population) {
		return nil, fmt.Errorf("weights length %d does not match population size %d", len(weights), len(population))
	}
	if selector == nil {
		return nil, errors.New("selector is required")
	}
	if mutation == nil {
		return nil, errors.New("mutation operator is required")
	}

	sampler, err := selector.Prepare(weights)
	if err != nil {
		return nil, err
	}

	next := make([]genotype.Genome, 0, len(population))
	for len(next) < len(population) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i, j, err := sampler.PickPair(rng)
		if err != nil {
			return nil, err
		}
		child, _, err := genotype.Crossover(genotype.ChildID(generation, len(next)), population[i], population[j], rng)
		if err != nil {
			return nil, err
		}
		child, err = mutation.Apply(rng, child)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mutation.Name(), err)
		}
		next = append(next, child)
	}
	return next, nil
}

// EvaluateGeneration scores every genome on its own freshly generated environment
// using at most workers goroutines. Genome i draws all of its randomness from
// rand.NewSource(seeds[i]), so results do not depend on scheduling.
func EvaluateGeneration(ctx context.Context, sc scape.Scape, population []genotype.Genome, seeds []int64, workers int) ([]ScoredGenome, error) {
	if sc == nil {
		return nil, errors.New("scape is required")
	}
	if len(seeds) != len(population) {
		return nil, fmt.Errorf("seeds length %d does not match population size %d", len(seeds), len(population))
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(population) {
		workers = len(population)
	}

	type result struct {
		idx    int
		scored ScoredGenome
	}

	p := pool.NewWithResults[result]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(max(workers, 1))
	for i := range population {
		i := i
		p.Go(func(ctx context.Context) (result, error) {
			genome := population[i]
			rng := rand.New(rand.NewSource(seeds[i]))
			fitness, trace, err := sc.Evaluate(ctx, &genome, rng)
			if err != nil {
				return result{}, fmt.Errorf("genome %s: %w", genome.ID, err)
			}
			genome.Score = float64(fitness)
			return result{idx: i, scored: ScoredGenome{Genome: genome, Fitness: float64(fitness), Trace: trace}}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredGenome, len(population))
	for _, res := range results {
		scored[res.idx] = res.scored
	}
	return scored, nil
}

func bestIndex(scored []ScoredGenome) int {
	best := 0
	for i := range scored {
		if scored[i].Fitness > scored[best].Fitness {
			best = i
		}
	}
	return best
}

func summarizeGeneration(scored []ScoredGenome, generation int) GenerationDiagnostics {
	if len(scored) == 0 {
		return GenerationDiagnostics{Generation: generation}
	}

	best := scored[bestIndex(scored)]
	total := 0.0
	minFitness := scored[0].Fitness
	fingerprints := make(map[string]struct{}, len(scored))
	for _, item := range scored {
		total += item.Fitness
		if item.Fitness < minFitness {
			minFitness = item.Fitness
		}
		fingerprints[genotype.ComputeGenomeSignature(item.Genome).Fingerprint] = struct{}{}
	}
	raw, _ := best.Trace["raw_score"].(float64)

	return GenerationDiagnostics{
		Generation:           generation,
		BestFitness:          best.Fitness,
		MeanFitness:          total / float64(len(scored)),
		MinFitness:           minFitness,
		BestRawScore:         raw,
		BestGenomeID:         best.Genome.ID,
		FingerprintDiversity: len(fingerprints),
	}
}
