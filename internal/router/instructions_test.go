package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionsEmptyForTrivialRoute(t *testing.T) {
	g := NewGraph([]Area{{ID: "a1"}}, nil)
	steps, err := g.Route("a1", "a1", freeLimits)
	require.NoError(t, err)
	require.Nil(t, g.Instructions(steps))
}

func TestInstructionsCarryDistanceAndArriveKind(t *testing.T) {
	areas := []Area{
		{ID: "a1", Floor: Floor{Level: 0}},
		{ID: "a2", Floor: Floor{Level: 0}},
	}
	conns := []Connection{
		{ID: "c1", Kind: ConnectionGate, Endpoints: []Endpoint{
			{AreaID: "a1", Point: Point{0, 0}},
			{AreaID: "a2", Point: Point{3, 4}},
		}},
	}
	g := NewGraph(areas, conns)

	steps, err := g.Route("a1", "a2", freeLimits)
	require.NoError(t, err)

	instructions := g.Instructions(steps)
	require.Len(t, instructions, 1)
	require.Equal(t, InstructionArrive, instructions[0].Kind)
	require.Equal(t, "a2", instructions[0].AreaID)
	require.Equal(t, "c1", instructions[0].ConnectionID)
	require.Equal(t, ConnectionGate, instructions[0].ConnectionKind)
	require.InDelta(t, 7.0, instructions[0].Distance, 0.0001)
}
