package genotype

import (
	"errors"
	"fmt"
	"math/rand"
)

// SeedPopulation builds size random genomes with ids g0-i<n>.
func SeedPopulation(size int, rng *rand.Rand) ([]Genome, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", size)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	out := make([]Genome, 0, size)
	for i := 0; i < size; i++ {
		g, err := NewRandom(ChildID(0, i), rng)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func ChildID(generation, index int) string {
	return fmt.Sprintf("g%d-i%d", generation, index)
}
