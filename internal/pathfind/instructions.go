package pathfind

import "fmt"

// InstructionKind distinguishes an in-transit turn from the final
// arrival waypoint of a projected path.
type InstructionKind uint8

const (
	InstructionTurnTo InstructionKind = iota
	InstructionArrive
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionTurnTo:
		return "TurnTo"
	case InstructionArrive:
		return "Arrive"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Instruction is one turn-by-turn step of a resolved path: the
// waypoint reached and the straight-line distance covered to reach it.
type Instruction struct {
	Kind     InstructionKind
	Point    Point
	Distance float64
}

// Instructions projects a Backend.Route waypoint sequence into
// turn-by-turn instructions, a convenience view over the same
// waypoints rather than a second search (recovered in spirit from
// original_source/shared/src/pathfinding/polygon.rs, which emits both
// raw points and step descriptions from one traversal).
func Instructions(waypoints []Point) []Instruction {
	if len(waypoints) < 2 {
		return nil
	}

	instructions := make([]Instruction, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		kind := InstructionTurnTo
		if i == len(waypoints)-1 {
			kind = InstructionArrive
		}
		instructions = append(instructions, Instruction{
			Kind:     kind,
			Point:    waypoints[i],
			Distance: euclidean(waypoints[i-1], waypoints[i]),
		})
	}
	return instructions
}
