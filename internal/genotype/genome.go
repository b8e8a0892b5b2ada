// Package genotype defines the rule-table genome and its genetic operators.
package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"canbot/internal/sensor"
)

// Length is the number of rules in a genome, one per sensor code.
const Length = sensor.Combinations

// Genome is a complete policy: one action for every sensor code.
// Score is written by the evolution loop and is not part of the genome's identity.
type Genome struct {
	ID    string
	Rules [Length]Action
	Score float64
}

func NewRandom(id string, rng *rand.Rand) (Genome, error) {
	if rng == nil {
		return Genome{}, errors.New("random source is required")
	}
	g := Genome{ID: id}
	for i := range g.Rules {
		g.Rules[i] = Action(rng.Intn(ActionCount))
	}
	return g, nil
}

// Uniform returns a genome that emits the same action for every code.
func Uniform(id string, action Action) Genome {
	g := Genome{ID: id}
	for i := range g.Rules {
		g.Rules[i] = action
	}
	return g
}

// ActionAt panics when code is not a valid sensor code.
func (g *Genome) ActionAt(code sensor.Code) Action {
	if !code.Valid() {
		panic(fmt.Sprintf("genotype: rule lookup with invalid sensor code %d", int(code)))
	}
	return g.Rules[code]
}

// Compact renders the rule table as one digit per rule.
func (g *Genome) Compact() string {
	var b strings.Builder
	b.Grow(Length)
	for _, a := range g.Rules {
		b.WriteByte(byte('0' + a))
	}
	return b.String()
}

func ParseCompact(id, rules string) (Genome, error) {
	if len(rules) != Length {
		return Genome{}, fmt.Errorf("rule table must have %d entries, got %d", Length, len(rules))
	}
	g := Genome{ID: id}
	for i := 0; i < Length; i++ {
		a := Action(rules[i] - '0')
		if rules[i] < '0' || !a.Valid() {
			return Genome{}, fmt.Errorf("invalid action %q at rule %d", rules[i], i)
		}
		g.Rules[i] = a
	}
	return g, nil
}

// String lists every rule as "<reading> -> <action>".
func (g *Genome) String() string {
	var b strings.Builder
	for i, a := range g.Rules {
		b.WriteString(sensor.MustDecode(sensor.Code(i)).String())
		b.WriteString(" -> ")
		b.WriteString(a.String())
		b.WriteByte('\n')
	}
	return b.String()
}
