package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses parents from an evaluated generation for reproduction.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, individuals []*Individual) (*Individual, error)
}

// RouletteSelector draws with probability proportional to fitness, with
// replacement. Negative fitness weighs nothing; when every weight is zero the
// draw is uniform.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) PickParent(rng *rand.Rand, individuals []*Individual) (*Individual, error) {
	if err := checkSelection(rng, individuals); err != nil {
		return nil, err
	}
	total := 0.0
	for _, ind := range individuals {
		total += weight(ind)
	}
	if total <= 0 {
		return individuals[rng.Intn(len(individuals))], nil
	}

	target := rng.Float64() * total
	last := -1
	for i, ind := range individuals {
		w := weight(ind)
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return ind, nil
		}
		target -= w
	}
	// Rounding left target just past the final positive weight.
	return individuals[last], nil
}

// TournamentSelector samples TournamentSize individuals uniformly and keeps
// the fittest, earliest on ties.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, individuals []*Individual) (*Individual, error) {
	if err := checkSelection(rng, individuals); err != nil {
		return nil, err
	}
	size := s.TournamentSize
	if size <= 0 {
		size = 3
	}
	best := individuals[rng.Intn(len(individuals))]
	for i := 1; i < size; i++ {
		candidate := individuals[rng.Intn(len(individuals))]
		if score(candidate) > score(best) {
			best = candidate
		}
	}
	return best, nil
}

// SelectorByName resolves a selection strategy name.
func SelectorByName(name string, tournamentSize int) (Selector, error) {
	switch name {
	case "", "roulette":
		return RouletteSelector{}, nil
	case "tournament":
		return TournamentSelector{TournamentSize: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy: %s", name)
	}
}

func checkSelection(rng *rand.Rand, individuals []*Individual) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(individuals) == 0 {
		return fmt.Errorf("no individuals to select from")
	}
	return nil
}

func score(ind *Individual) float64 {
	fitness, _ := ind.Fitness()
	return fitness
}

func weight(ind *Individual) float64 {
	if f := score(ind); f > 0 {
		return f
	}
	return 0
}
