package genotype

import (
	"math/rand"
	"strings"
	"testing"

	"canbot/internal/sensor"
)

func TestNewRandomProducesValidActions(t *testing.T) {
	g, err := NewRandom("g", rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("new random: %v", err)
	}
	seen := map[Action]bool{}
	for i, a := range g.Rules {
		if !a.Valid() {
			t.Fatalf("rule %d holds invalid action %d", i, a)
		}
		seen[a] = true
	}
	if len(seen) != ActionCount {
		t.Fatalf("expected all %d actions among %d rules, got %d", ActionCount, Length, len(seen))
	}
}

func TestNewRandomRequiresRNG(t *testing.T) {
	if _, err := NewRandom("g", nil); err == nil {
		t.Fatal("expected error for nil rng")
	}
}

func TestNewRandomIsDeterministicForSeed(t *testing.T) {
	a, _ := NewRandom("a", rand.New(rand.NewSource(5)))
	b, _ := NewRandom("b", rand.New(rand.NewSource(5)))
	if a.Rules != b.Rules {
		t.Fatal("expected identical rule tables for identical seeds")
	}
}

func TestActionAtPanicsOnInvalidCode(t *testing.T) {
	g := Uniform("g", TryPick)
	if got := g.ActionAt(sensor.Code(0)); got != TryPick {
		t.Fatalf("unexpected action %s", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out of range code")
		}
	}()
	g.ActionAt(sensor.Combinations)
}

func TestCompactRoundTrip(t *testing.T) {
	g, _ := NewRandom("g", rand.New(rand.NewSource(9)))
	compact := g.Compact()
	if len(compact) != Length {
		t.Fatalf("expected %d digits, got %d", Length, len(compact))
	}
	parsed, err := ParseCompact("g", compact)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Rules != g.Rules {
		t.Fatal("parsed rules differ from original")
	}
}

func TestParseCompactRejectsBadInput(t *testing.T) {
	if _, err := ParseCompact("g", "0123"); err == nil {
		t.Fatal("expected length error")
	}
	bad := strings.Repeat("0", Length-1) + "9"
	if _, err := ParseCompact("g", bad); err == nil {
		t.Fatal("expected invalid action error")
	}
}

func TestGenomeStringListsEveryRule(t *testing.T) {
	g := Uniform("g", MoveWest)
	lines := strings.Split(strings.TrimSuffix(g.String(), "\n"), "\n")
	if len(lines) != Length {
		t.Fatalf("expected %d lines, got %d", Length, len(lines))
	}
	if lines[0] != "(+Empty) (^Empty) (>Empty) (vEmpty) (<Empty) -> Move West" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}

func TestUnknownActionRendersWithoutPanic(t *testing.T) {
	if got := Action(42).String(); got != "Action(42)" {
		t.Fatalf("unexpected unknown action string %q", got)
	}
}

func TestActionDelta(t *testing.T) {
	cases := map[Action][2]int{
		MoveNorth: {0, 1},
		MoveEast:  {1, 0},
		MoveSouth: {0, -1},
		MoveWest:  {-1, 0},
		StayPut:   {0, 0},
		TryPick:   {0, 0},
	}
	for action, want := range cases {
		dx, dy := action.Delta()
		if dx != want[0] || dy != want[1] {
			t.Fatalf("%s delta = (%d,%d), want %v", action, dx, dy, want)
		}
	}
}
