package scape

import (
	"errors"
	"fmt"
	"math/rand"

	"canbot/internal/genotype"
	"canbot/internal/sensor"
	"canbot/internal/world"
)

// Rewards is the score schedule applied during a trial.
type Rewards struct {
	PickSuccess float64 `json:"pick_success"`
	PickFail    float64 `json:"pick_fail"`
	WallHit     float64 `json:"wall_hit"`
}

func DefaultRewards() Rewards {
	return Rewards{PickSuccess: 10, PickFail: -1, WallHit: -5}
}

// Trial is the outcome of one episode.
type Trial struct {
	Score       float64
	X, Y        int
	Steps       int
	Collected   int
	FailedPicks int
	WallHits    int
}

// Episode is the in-progress state of one robot on one grid. The grid is mutated
// as cans are collected.
type Episode struct {
	grid    *world.Grid
	policy  Policy
	rewards Rewards
	rng     *rand.Rand

	x, y           int
	score          float64
	stepsRemaining int
	steps          int
	collected      int
	failedPicks    int
	wallHits       int
}

// NewEpisode starts the robot at the grid centre.
func NewEpisode(grid *world.Grid, policy Policy, rewards Rewards, maxSteps int, rng *rand.Rand) (*Episode, error) {
	if grid == nil {
		return nil, errors.New("grid is required")
	}
	x, y := grid.Center()
	return NewEpisodeAt(grid, policy, rewards, maxSteps, x, y, rng)
}

func NewEpisodeAt(grid *world.Grid, policy Policy, rewards Rewards, maxSteps, x, y int, rng *rand.Rand) (*Episode, error) {
	if grid == nil {
		return nil, errors.New("grid is required")
	}
	if policy == nil {
		return nil, errors.New("policy is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if maxSteps < 0 {
		return nil, fmt.Errorf("max steps must be >= 0, got %d", maxSteps)
	}
	if !grid.InBounds(x, y) {
		return nil, fmt.Errorf("start position (%d,%d) is outside the grid", x, y)
	}
	return &Episode{
		grid:           grid,
		policy:         policy,
		rewards:        rewards,
		rng:            rng,
		x:              x,
		y:              y,
		stepsRemaining: maxSteps,
	}, nil
}

func (e *Episode) Done() bool {
	return e.stepsRemaining <= 0 || e.grid.ItemCount() == 0
}

func (e *Episode) Position() (int, int) { return e.x, e.y }
func (e *Episode) Score() float64       { return e.score }

// Step runs one sense-act transition. It reports false without doing anything
// when the episode is already done.
func (e *Episode) Step() bool {
	if e.Done() {
		return false
	}

	code := sensor.Encode(e.grid.Sense(e.x, e.y))
	action := e.policy.ActionAt(code)
	if action == genotype.MoveRandom {
		action = genotype.Moves[e.rng.Intn(len(genotype.Moves))]
	}

	var dx, dy int
	switch action {
	case genotype.StayPut:
	case genotype.TryPick:
		if e.grid.TryCollect(e.x, e.y) {
			e.score += e.rewards.PickSuccess
			e.collected++
		} else {
			e.score += e.rewards.PickFail
			e.failedPicks++
		}
	default:
		dx, dy = action.Delta()
	}

	if !e.grid.InBounds(e.x+dx, e.y+dy) {
		dx, dy = 0, 0
		e.score += e.rewards.WallHit
		e.wallHits++
	}
	e.x += dx
	e.y += dy
	e.stepsRemaining--
	e.steps++
	return true
}

func (e *Episode) Trial() Trial {
	return Trial{
		Score:       e.score,
		X:           e.x,
		Y:           e.y,
		Steps:       e.steps,
		Collected:   e.collected,
		FailedPicks: e.failedPicks,
		WallHits:    e.wallHits,
	}
}

// Simulator runs bounded episodes under a fixed reward schedule.
type Simulator struct {
	Rewards  Rewards
	MaxSteps int
}

// Run plays policy on grid from the centre until the step cap is reached or the
// grid is cleared. The grid is consumed.
func (s Simulator) Run(grid *world.Grid, policy Policy, rng *rand.Rand) (Trial, error) {
	episode, err := NewEpisode(grid, policy, s.Rewards, s.MaxSteps, rng)
	if err != nil {
		return Trial{}, err
	}
	for episode.Step() {
	}
	return episode.Trial(), nil
}
