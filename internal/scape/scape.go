package scape

import (
	"context"
	"math/rand"

	"canbot/internal/genotype"
	"canbot/internal/sensor"
)

type Fitness float64

type Trace map[string]any

// Policy picks the action for a sensed situation. *genotype.Genome implements it.
type Policy interface {
	ActionAt(code sensor.Code) genotype.Action
}

// Scape scores a policy on a freshly generated environment. All randomness is drawn
// from rng, which must not be shared with a concurrent evaluation.
type Scape interface {
	Name() string
	Evaluate(ctx context.Context, policy Policy, rng *rand.Rand) (Fitness, Trace, error)
}
