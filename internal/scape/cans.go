package scape

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"canbot/internal/world"
)

const CansName = "cans"

// CansScape evaluates a policy on a new random grid per call and reports the
// raw trial score normalised against a perfect pickup of every can.
type CansScape struct {
	Grids     world.Factory
	Simulator Simulator
}

func (CansScape) Name() string {
	return CansName
}

func (s CansScape) Evaluate(ctx context.Context, policy Policy, rng *rand.Rand) (Fitness, Trace, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if s.Grids == nil {
		return 0, nil, errors.New("grid factory is required")
	}
	grid, err := s.Grids(rng)
	if err != nil {
		return 0, nil, err
	}
	items := grid.ItemCount()

	trial, err := s.Simulator.Run(grid, policy, rng)
	if err != nil {
		return 0, nil, err
	}

	fitness := Normalize(trial.Score, items, s.Simulator.Rewards.PickSuccess)
	return Fitness(fitness), Trace{
		"raw_score":    trial.Score,
		"items":        items,
		"collected":    trial.Collected,
		"failed_picks": trial.FailedPicks,
		"wall_hits":    trial.WallHits,
		"steps":        trial.Steps,
	}, nil
}

// Normalize maps a raw score into [0, 1] relative to collecting all items.
// Non-positive scores, empty grids and non-positive pick rewards map to 0.
func Normalize(raw float64, items int, pickSuccess float64) float64 {
	best := float64(items) * pickSuccess
	if raw <= 0 || best <= 0 {
		return 0
	}
	// Only a positive PickFail reward can push raw past best; clamp so
	// fitness stays in [0, 1].
	return math.Min(raw/best, 1)
}
