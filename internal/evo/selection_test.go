package evo

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func samplePairs(t *testing.T, weights []float64, n int, seed int64) []int {
	t.Helper()
	sampler, err := FitnessProportionateSelector{}.Prepare(weights)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	rng := rand.New(rand.NewSource(seed))
	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		a, b, err := sampler.PickPair(rng)
		if err != nil {
			t.Fatalf("pick pair: %v", err)
		}
		if a == b {
			t.Fatalf("picked self pair %d", a)
		}
		counts[a]++
		counts[b]++
	}
	return counts
}

func TestFitnessProportionateSelectorFavoursHeavierWeights(t *testing.T) {
	counts := samplePairs(t, []float64{0.1, 0.1, 0.8}, 2000, 42)
	if counts[2] <= counts[0] || counts[2] <= counts[1] {
		t.Fatalf("expected heaviest weight to be picked most, got %v", counts)
	}
}

func TestFitnessProportionateSelectorSkipsZeroWeights(t *testing.T) {
	counts := samplePairs(t, []float64{0, 3, 0, 1}, 1000, 7)
	if counts[0] != 0 || counts[2] != 0 {
		t.Fatalf("zero-weight individuals were selected: %v", counts)
	}
	if counts[1] != 1000 || counts[3] != 1000 {
		t.Fatalf("expected only the two positive weights to pair, got %v", counts)
	}
}

func TestFitnessProportionateSelectorWeightsNeedNotBeNormalized(t *testing.T) {
	a := samplePairs(t, []float64{1, 2, 3}, 500, 9)
	b := samplePairs(t, []float64{10, 20, 30}, 500, 9)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("scaled weights changed sampling: %v vs %v", a, b)
		}
	}
}

func TestFitnessProportionateSelectorFallsBackToUniform(t *testing.T) {
	for _, weights := range [][]float64{{0, 0, 0}, {0, 5, 0}} {
		counts := samplePairs(t, weights, 600, 3)
		for i, c := range counts {
			if c == 0 {
				t.Fatalf("weights %v: index %d never selected under uniform fallback: %v", weights, i, counts)
			}
		}
	}
}

func TestFitnessProportionateSelectorRejectsBadWeights(t *testing.T) {
	sel := FitnessProportionateSelector{}
	if _, err := sel.Prepare([]float64{1}); !errors.Is(err, ErrPopulationTooSmall) {
		t.Fatalf("expected ErrPopulationTooSmall, got %v", err)
	}
	for _, weights := range [][]float64{{1, -1}, {1, math.NaN()}, {math.Inf(1), 1}} {
		if _, err := sel.Prepare(weights); err == nil {
			t.Fatalf("expected error for weights %v", weights)
		}
	}
}

func TestPickPairRequiresRNG(t *testing.T) {
	sampler, err := FitnessProportionateSelector{}.Prepare([]float64{1, 1})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, _, err := sampler.PickPair(nil); err == nil {
		t.Fatal("expected error for nil rng")
	}
}
