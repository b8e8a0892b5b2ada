package genotype

import (
	"errors"
	"fmt"
	"math/rand"
)

// Crossover draws a split point uniformly in [0, Length) and recombines a and b
// around it. It returns the split used.
func Crossover(id string, a, b Genome, rng *rand.Rand) (Genome, int, error) {
	if rng == nil {
		return Genome{}, 0, errors.New("random source is required")
	}
	split := rng.Intn(Length)
	child, err := CrossoverAt(id, a, b, split)
	return child, split, err
}

// CrossoverAt takes rules below split from a and the rest from b.
// split == 0 copies b, split == Length copies a.
func CrossoverAt(id string, a, b Genome, split int) (Genome, error) {
	if split < 0 || split > Length {
		return Genome{}, fmt.Errorf("split index must be in [0, %d], got %d", Length, split)
	}
	child := Genome{ID: id}
	copy(child.Rules[:split], a.Rules[:split])
	copy(child.Rules[split:], b.Rules[split:])
	return child, nil
}

// Mutate performs events independent point mutations. Each event overwrites a
// uniformly drawn rule with a uniformly drawn action, so the same rule may be hit
// more than once and a rule may be rewritten with its current action. The drawn
// indices are returned in order.
func (g *Genome) Mutate(events int, rng *rand.Rand) ([]int, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if events < 0 {
		return nil, fmt.Errorf("mutation events must be >= 0, got %d", events)
	}
	drawn := make([]int, 0, events)
	for i := 0; i < events; i++ {
		idx := rng.Intn(Length)
		g.Rules[idx] = Action(rng.Intn(ActionCount))
		drawn = append(drawn, idx)
	}
	return drawn, nil
}
