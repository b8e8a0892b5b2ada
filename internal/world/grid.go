// Package world holds the can-collecting environment.
package world

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"canbot/internal/sensor"
)

// Grid is a rectangular can occupancy map. Cells outside the bounds read as walls.
// North is +y.
type Grid struct {
	width     int
	height    int
	cans      []bool
	itemCount int
}

// Factory creates a fresh grid for one trial.
type Factory func(rng *rand.Rand) (*Grid, error)

func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be > 0, got %dx%d", width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		cans:   make([]bool, width*height),
	}, nil
}

// NewRandom places a can in each cell independently with probability fill.
func NewRandom(width, height int, fill float64, rng *rand.Rand) (*Grid, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if fill < 0 || fill > 1 {
		return nil, fmt.Errorf("fill probability must be in [0, 1], got %f", fill)
	}
	g, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := range g.cans {
		if rng.Float64() < fill {
			g.cans[i] = true
			g.itemCount++
		}
	}
	return g, nil
}

func RandomFactory(width, height int, fill float64) Factory {
	return func(rng *rand.Rand) (*Grid, error) {
		return NewRandom(width, height, fill, rng)
	}
}

func (g *Grid) Width() int     { return g.width }
func (g *Grid) Height() int    { return g.height }
func (g *Grid) ItemCount() int { return g.itemCount }

// Center is the robot's starting cell.
func (g *Grid) Center() (int, int) {
	return g.width / 2, g.height / 2
}

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) index(x, y int) int {
	return y*g.width + x
}

func (g *Grid) StateAt(x, y int) sensor.Cell {
	if !g.InBounds(x, y) {
		return sensor.Wall
	}
	if g.cans[g.index(x, y)] {
		return sensor.Item
	}
	return sensor.Empty
}

func (g *Grid) Sense(x, y int) sensor.Reading {
	return sensor.Reading{
		sensor.Center: g.StateAt(x, y),
		sensor.North:  g.StateAt(x, y+1),
		sensor.East:   g.StateAt(x+1, y),
		sensor.South:  g.StateAt(x, y-1),
		sensor.West:   g.StateAt(x-1, y),
	}
}

// TryCollect removes the can at (x, y) if there is one. Coordinates must be in bounds.
func (g *Grid) TryCollect(x, y int) bool {
	idx := g.index(x, y)
	if !g.cans[idx] {
		return false
	}
	g.cans[idx] = false
	g.itemCount--
	return true
}

// Place puts a can at (x, y). It reports false when the cell is out of bounds or
// already holds a can.
func (g *Grid) Place(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	idx := g.index(x, y)
	if g.cans[idx] {
		return false
	}
	g.cans[idx] = true
	g.itemCount++
	return true
}

func (g *Grid) Clone() *Grid {
	out := *g
	out.cans = append([]bool(nil), g.cans...)
	return &out
}

// Render draws the grid top row first. '#' marks the robot on an empty cell and '@'
// the robot standing on a can.
func (g *Grid) Render(agentX, agentY int) string {
	var b strings.Builder
	for y := g.height - 1; y >= 0; y-- {
		for x := 0; x < g.width; x++ {
			can := g.cans[g.index(x, y)]
			ch := byte('.')
			switch {
			case x == agentX && y == agentY && can:
				ch = '@'
			case x == agentX && y == agentY:
				ch = '#'
			case can:
				ch = '+'
			}
			b.WriteByte(ch)
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Grid) String() string {
	x, y := g.Center()
	return g.Render(x, y)
}
