package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"canbot/internal/genotype"
)

// Operator rewrites a freshly bred child.
type Operator interface {
	Name() string
	Apply(rng *rand.Rand, genome genotype.Genome) (genotype.Genome, error)
}

// PointMutation applies Events independent single-rule rewrites.
type PointMutation struct {
	Events int
}

func (PointMutation) Name() string {
	return "point_mutation"
}

func (o PointMutation) Apply(rng *rand.Rand, genome genotype.Genome) (genotype.Genome, error) {
	if rng == nil {
		return genotype.Genome{}, errors.New("random source is required")
	}
	if o.Events < 0 {
		return genotype.Genome{}, fmt.Errorf("mutation events must be >= 0, got %d", o.Events)
	}
	if _, err := genome.Mutate(o.Events, rng); err != nil {
		return genotype.Genome{}, err
	}
	return genome, nil
}
