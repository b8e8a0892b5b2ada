// Package sensor encodes what the robot observes around its cell.
package sensor

import (
	"errors"
	"fmt"
	"strings"
)

// Cell is the state of one grid location as seen by the robot.
type Cell int8

const (
	Empty Cell = iota
	Wall
	Item

	cellStates = 3
)

func (c Cell) String() string {
	switch c {
	case Empty:
		return "Empty"
	case Wall:
		return "Wall"
	case Item:
		return "Can"
	default:
		return fmt.Sprintf("Cell(%d)", int(c))
	}
}

func (c Cell) Valid() bool {
	return c >= 0 && c < cellStates
}

const (
	// Length is the number of cells in one reading.
	Length = 5
	// Combinations is cellStates^Length.
	Combinations = 243
)

// Slot positions inside a Reading.
const (
	Center = iota
	North
	East
	South
	West
)

var directionGlyphs = [Length]byte{'+', '^', '>', 'v', '<'}

// Reading is the five-cell neighbourhood ordered center, north, east, south, west.
type Reading [Length]Cell

// Code is the dense integer form of a Reading in [0, Combinations).
type Code int

var ErrOutOfRange = errors.New("sensor code out of range")

func (c Code) Valid() bool {
	return c >= 0 && c < Combinations
}

// Encode packs the reading in base 3 with the center cell most significant.
// Every cell must be valid.
func Encode(r Reading) Code {
	code := 0
	for _, cell := range r {
		code = code*cellStates + int(cell)
	}
	return Code(code)
}

func Decode(c Code) (Reading, error) {
	if !c.Valid() {
		return Reading{}, fmt.Errorf("%w: %d", ErrOutOfRange, int(c))
	}
	var r Reading
	code := int(c)
	for i := Length - 1; i >= 0; i-- {
		r[i] = Cell(code % cellStates)
		code /= cellStates
	}
	return r, nil
}

// MustDecode is Decode for codes known to be valid.
func MustDecode(c Code) Reading {
	r, err := Decode(c)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Reading) String() string {
	var b strings.Builder
	for i, cell := range r {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		b.WriteByte(directionGlyphs[i])
		b.WriteString(cell.String())
		b.WriteByte(')')
	}
	return b.String()
}
