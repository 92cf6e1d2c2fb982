package evo

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"naptime/internal/logging"
	"naptime/internal/scape"
)

// Generation summarizes one evaluated generation. Individuals is the list
// that was evaluated, not its offspring.
type Generation struct {
	Index       int
	Mean        float64
	Max         float64
	Min         float64
	Diversity   int
	Evaluations int
	AbortedRuns int
	Fittest     *Individual
	Individuals []*Individual
}

// Observer is notified after every completed generation.
type Observer interface {
	ObserveGeneration(ctx context.Context, gen Generation) error
}

type ObserverFunc func(ctx context.Context, gen Generation) error

func (f ObserverFunc) ObserveGeneration(ctx context.Context, gen Generation) error {
	return f(ctx, gen)
}

type PopulationConfig struct {
	Simulator    scape.Simulator
	Baseline     *Individual
	Progenitor   *Individual
	Size         int
	MutationRate float64
	Repeats      int
	Seed         int64
	Workers      int
	Selector     Selector
	Observers    []Observer
	Logger       *zap.Logger
}

// Population is the evolving set of individuals. Evolve must not be called
// concurrently.
type Population struct {
	cfg         PopulationConfig
	generation  int
	individuals []*Individual

	best        *Individual
	bestFitness float64
}

// NewPopulation seeds generation 0 with the progenitor followed by Size-1
// mutated copies of it.
func NewPopulation(cfg PopulationConfig) (*Population, error) {
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if cfg.Baseline == nil {
		return nil, fmt.Errorf("baseline is required")
	}
	if cfg.Progenitor == nil {
		return nil, fmt.Errorf("progenitor is required")
	}
	if cfg.Size <= 0 || cfg.Size%2 != 0 {
		return nil, fmt.Errorf("population size must be even and > 0, got %d", cfg.Size)
	}
	if math.IsNaN(cfg.MutationRate) || cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1], got %v", cfg.MutationRate)
	}
	if cfg.Repeats < 1 {
		return nil, fmt.Errorf("repeats must be >= 1, got %d", cfg.Repeats)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = RouletteSelector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	rng := rand.New(rand.NewSource(selectionSeed(cfg.Seed, -1)))
	individuals := make([]*Individual, 0, cfg.Size)
	progenitor, err := NewIndividual(individualID(0, 0), cfg.Progenitor.Programs())
	if err != nil {
		return nil, fmt.Errorf("progenitor: %w", err)
	}
	individuals = append(individuals, progenitor)
	for i := 1; i < cfg.Size; i++ {
		copyOf, err := cfg.Progenitor.Mutate(individualID(0, i), cfg.MutationRate, rng)
		if err != nil {
			return nil, err
		}
		individuals = append(individuals, copyOf)
	}
	return &Population{cfg: cfg, individuals: individuals}, nil
}

// Generation returns the number of completed generations.
func (p *Population) Generation() int {
	return p.generation
}

// Individuals returns the current, not yet evaluated generation.
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// Best returns the fittest individual seen by any completed generation, or
// nil before the first.
func (p *Population) Best() *Individual {
	return p.best
}

// Evolve evaluates the current generation, breeds its replacement and
// returns the summary of the evaluated generation.
func (p *Population) Evolve(ctx context.Context) (Generation, error) {
	if err := p.evaluate(ctx); err != nil {
		return Generation{}, err
	}
	gen := p.summarize()

	rng := rand.New(rand.NewSource(selectionSeed(p.cfg.Seed, p.generation)))
	parents := make([]*Individual, len(p.individuals))
	for i := range parents {
		parent, err := p.cfg.Selector.PickParent(rng, p.individuals)
		if err != nil {
			return Generation{}, err
		}
		parents[i] = parent
	}

	next := make([]*Individual, 0, len(parents))
	for i := 0; i+1 < len(parents); i += 2 {
		ids := [2]string{individualID(p.generation+1, i), individualID(p.generation+1, i+1)}
		a, b, err := parents[i].CrossoverAndMutate(parents[i+1], ids, p.cfg.MutationRate, rng)
		if err != nil {
			return Generation{}, fmt.Errorf("reproduce %s x %s: %w", parents[i].ID, parents[i+1].ID, err)
		}
		next = append(next, a, b)
	}

	if p.best == nil || gen.Max > p.bestFitness {
		p.best = gen.Fittest
		p.bestFitness = gen.Max
	}
	p.individuals = next
	p.generation++

	p.cfg.Logger.Debug("generation complete",
		zap.Int("generation", gen.Index),
		zap.Float64("mean", gen.Mean),
		zap.Float64("max", gen.Max),
		zap.Int("diversity", gen.Diversity),
		zap.Int("aborted_runs", gen.AbortedRuns),
	)
	if gen.AbortedRuns > 0 {
		p.cfg.Logger.Warn("runs aborted on program errors",
			zap.Int("generation", gen.Index),
			zap.Int("aborted_runs", gen.AbortedRuns),
		)
	}
	for _, observer := range p.cfg.Observers {
		if err := observer.ObserveGeneration(ctx, gen); err != nil {
			return gen, fmt.Errorf("observe generation %d: %w", gen.Index, err)
		}
	}
	return gen, nil
}

// evaluate scores every individual against the baseline. Each task writes
// only its own individual and the simulation seeds depend on the generation
// alone, so the worker count does not change the outcome.
func (p *Population) evaluate(ctx context.Context) error {
	opponent := p.cfg.Baseline.Programs()
	seed := scape.SeedFor(p.cfg.Seed, p.generation)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, ind := range p.individuals {
		g.Go(func() error {
			_, err := ind.Evaluate(gctx, p.cfg.Simulator, opponent, p.cfg.Repeats, seed)
			return err
		})
	}
	return g.Wait()
}

func (p *Population) summarize() Generation {
	gen := Generation{
		Index:       p.generation,
		Individuals: p.individuals,
		Evaluations: len(p.individuals) * p.cfg.Repeats,
	}
	fingerprints := make(map[string]struct{}, len(p.individuals))
	total := 0.0
	for i, ind := range p.individuals {
		fitness := score(ind)
		total += fitness
		if i == 0 || fitness > gen.Max {
			gen.Max = fitness
			gen.Fittest = ind
		}
		if i == 0 || fitness < gen.Min {
			gen.Min = fitness
		}
		gen.AbortedRuns += ind.AbortedRuns()
		fingerprints[ind.Fingerprint()] = struct{}{}
	}
	gen.Mean = total / float64(len(p.individuals))
	gen.Diversity = len(fingerprints)
	return gen
}

func individualID(generation, index int) string {
	return fmt.Sprintf("g%d-i%d", generation, index)
}

func selectionSeed(seed int64, generation int) int64 {
	return scape.SeedFor(^seed, generation)
}
