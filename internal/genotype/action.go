package genotype

import "fmt"

// Action is one behaviour the robot can execute for a sensed situation.
type Action int8

const (
	StayPut Action = iota
	TryPick
	MoveRandom
	MoveNorth
	MoveEast
	MoveSouth
	MoveWest

	actionCount
)

// ActionCount is the number of distinct actions.
const ActionCount = int(actionCount)

// Moves are the directional actions MoveRandom resolves to.
var Moves = [4]Action{MoveNorth, MoveEast, MoveSouth, MoveWest}

func (a Action) Valid() bool {
	return a >= 0 && a < actionCount
}

func (a Action) String() string {
	switch a {
	case StayPut:
		return "Stay"
	case TryPick:
		return "Try Pick"
	case MoveRandom:
		return "Move Random"
	case MoveNorth:
		return "Move North"
	case MoveEast:
		return "Move East"
	case MoveSouth:
		return "Move South"
	case MoveWest:
		return "Move West"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Delta is the unit displacement of a directional move; other actions return (0, 0).
func (a Action) Delta() (dx, dy int) {
	switch a {
	case MoveNorth:
		return 0, 1
	case MoveEast:
		return 1, 0
	case MoveSouth:
		return 0, -1
	case MoveWest:
		return -1, 0
	default:
		return 0, 0
	}
}
