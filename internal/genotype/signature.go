package genotype

import (
	"crypto/sha1"
	"encoding/hex"
)

// ActionHistogram counts how often each action appears in the rule table.
type ActionHistogram [ActionCount]int

type GenomeSignature struct {
	Fingerprint string          `json:"fingerprint"`
	Histogram   ActionHistogram `json:"histogram"`
}

func ComputeGenomeSignature(g Genome) GenomeSignature {
	var hist ActionHistogram
	for _, a := range g.Rules {
		if a.Valid() {
			hist[a]++
		}
	}
	digest := sha1.Sum([]byte(g.Compact()))
	return GenomeSignature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Histogram:   hist,
	}
}

// Diff counts the rules where a and b disagree.
func Diff(a, b Genome) int {
	n := 0
	for i := range a.Rules {
		if a.Rules[i] != b.Rules[i] {
			n++
		}
	}
	return n
}
