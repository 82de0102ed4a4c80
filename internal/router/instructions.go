package router

import "fmt"

// InstructionKind distinguishes an in-transit turn from the final
// arrival step of a projected route.
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

// Instruction is one turn-by-turn step of a resolved route: the
// connection taken, the area arrived at, and the distance covered.
// Instructions are a convenience projection over the Step sequence
// Route already returns, not a second routing algorithm (recovered
// from original_source's kernel/route/instructions.rs).
type Instruction struct {
	Kind           InstructionKind
	AreaID         string
	ConnectionID   string
	ConnectionKind ConnectionKind
	Distance       float64
}

// Instructions projects steps into turn-by-turn instructions. Each
// hop's distance is recomputed from its connection's endpoint
// attachment points, since Step itself carries only area/connection
// identity and Route discards the per-edge weight once the path is
// reconstructed.
func (g *Graph) Instructions(steps []Step) []Instruction {
	if len(steps) < 2 {
		return nil
	}

	instructions := make([]Instruction, 0, len(steps)-1)
	prevArea := steps[0].AreaID
	for i := 1; i < len(steps); i++ {
		step := steps[i]
		conn := g.connections[step.ConnectionID]

		var distance float64
		if fromPoint, ok := conn.endpointFor(prevArea); ok {
			if toPoint, ok := conn.endpointFor(step.AreaID); ok {
				distance = manhattan(fromPoint, toPoint)
			}
		}

		kind := InstructionTurnTo
		if i == len(steps)-1 {
			kind = InstructionArrive
		}

		instructions = append(instructions, Instruction{
			Kind:           kind,
			AreaID:         step.AreaID,
			ConnectionID:   step.ConnectionID,
			ConnectionKind: conn.Kind,
			Distance:       distance,
		})
		prevArea = step.AreaID
	}
	return instructions
}
