package evo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var ErrPopulationTooSmall = errors.New("population must hold at least two genomes")

// Selector chooses a pair of distinct parent indices.
type Selector interface {
	Name() string
	Prepare(weights []float64) (PairSampler, error)
}

type PairSampler interface {
	PickPair(rng *rand.Rand) (int, int, error)
}

// FitnessProportionateSelector samples each parent with probability proportional
// to its weight and redraws until the two indices differ. Weights need not sum to 1.
// With fewer than two positive weights a distinct pair could never be drawn, so
// every individual is weighted equally instead.
type FitnessProportionateSelector struct{}

func (FitnessProportionateSelector) Name() string {
	return "fitness_proportionate"
}

func (FitnessProportionateSelector) Prepare(weights []float64) (PairSampler, error) {
	if len(weights) < 2 {
		return nil, ErrPopulationTooSmall
	}
	positive := 0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("selection weight must be finite and >= 0 at index %d, got %f", i, w)
		}
		if w > 0 {
			positive++
		}
	}

	cumulative := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if positive < 2 {
			w = 1
		}
		total += w
		cumulative[i] = total
	}
	return &rouletteWheel{cumulative: cumulative, total: total}, nil
}

type rouletteWheel struct {
	cumulative []float64
	total      float64
}

func (w *rouletteWheel) pick(rng *rand.Rand) int {
	target := rng.Float64() * w.total
	idx := sort.Search(len(w.cumulative), func(i int) bool {
		return w.cumulative[i] > target
	})
	if idx >= len(w.cumulative) {
		idx = len(w.cumulative) - 1
	}
	return idx
}

func (w *rouletteWheel) PickPair(rng *rand.Rand) (int, int, error) {
	if rng == nil {
		return 0, 0, errors.New("random source is required")
	}
	for {
		a := w.pick(rng)
		b := w.pick(rng)
		if a != b {
			return a, b, nil
		}
	}
}
