// Package router plans inter-area routes (spec §4.8) over a graph of
// Areas connected by Connections, preferring vertical-transport modes
// per the user's constraints and a handful of mall-navigation heuristics.
package router

import (
	"errors"
	"fmt"
)

// ConnectionKind enumerates the transit types a Connection may represent.
type ConnectionKind uint8

const (
	ConnectionGate ConnectionKind = iota
	ConnectionEscalator
	ConnectionElevator
	ConnectionStairs
	ConnectionRail
	ConnectionShuttle
)

func (k ConnectionKind) String() string {
	switch k {
	case ConnectionGate:
		return "Gate"
	case ConnectionEscalator:
		return "Escalator"
	case ConnectionElevator:
		return "Elevator"
	case ConnectionStairs:
		return "Stairs"
	case ConnectionRail:
		return "Rail"
	case ConnectionShuttle:
		return "Shuttle"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// FloorKind distinguishes basement levels from ground/above-ground floors
// for the elevator-preference heuristics (spec §4.8).
type FloorKind uint8

const (
	FloorLevel FloorKind = iota
	FloorBasement
)

// Floor identifies a vertical level. Level is signed: basements use
// positive Level values paired with FloorBasement, matching the
// -(name) convention used to rank basement depths below ground.
type Floor struct {
	Kind  FloorKind
	Level int
}

// rank returns a signed level usable for floor-delta arithmetic:
// basements rank below ground in proportion to their depth.
func (f Floor) rank() int {
	if f.Kind == FloorBasement {
		return -f.Level
	}
	return f.Level
}

// Point is a 2D attachment point within an area's local coordinate space.
type Point struct {
	X, Y float64
}

// manhattan returns the L1 distance between two points.
func manhattan(a, b Point) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Area is a node in the inter-area graph: a polygonal region on a floor.
type Area struct {
	ID    string
	Floor Floor
}

// Endpoint is one side of a Connection: the area it sits in and the 2D
// point within that area where the connection is reached.
type Endpoint struct {
	AreaID string
	Point  Point
}

// Connection is an edge of the inter-area graph (spec §3: "every edge
// lists >= 2 distinct areas"). Multigraphs are modeled directly:
// multiple Connections may join the same pair of areas.
type Connection struct {
	ID        string
	Kind      ConnectionKind
	Endpoints []Endpoint
}

// areaIDs returns the distinct area IDs this connection touches.
func (c Connection) areaIDs() []string {
	seen := make(map[string]bool, len(c.Endpoints))
	ids := make([]string, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		if !seen[e.AreaID] {
			seen[e.AreaID] = true
			ids = append(ids, e.AreaID)
		}
	}
	return ids
}

// endpointFor returns this connection's attachment point within areaID.
func (c Connection) endpointFor(areaID string) (Point, bool) {
	for _, e := range c.Endpoints {
		if e.AreaID == areaID {
			return e.Point, true
		}
	}
	return Point{}, false
}

// Limits expresses the caller's vertical-transport constraints (spec
// §4.8): a false value removes every edge of that kind from the graph.
type Limits struct {
	AllowElevator  bool
	AllowStairs    bool
	AllowEscalator bool
}

// allows reports whether a connection kind survives these limits. Kinds
// outside the three constrained ones (Gate, Rail, Shuttle) are never
// removed by Limits.
func (l Limits) allows(kind ConnectionKind) bool {
	switch kind {
	case ConnectionElevator:
		return l.AllowElevator
	case ConnectionStairs:
		return l.AllowStairs
	case ConnectionEscalator:
		return l.AllowEscalator
	default:
		return true
	}
}

// Step is one hop of a resolved route: the area entered and the
// connection used to enter it. The origin's ConnectionID is empty.
type Step struct {
	AreaID       string
	ConnectionID string
}

var (
	// ErrAreaNotFound indicates a requested departure or arrival area is
	// not present in the graph.
	ErrAreaNotFound = errors.New("router: area not found")
	// ErrNoRoute indicates no path exists between the requested areas
	// under the given Limits.
	ErrNoRoute = errors.New("router: no route between areas")
	// ErrEntityNotFound indicates no Graph is registered for the
	// requested entity.
	ErrEntityNotFound = errors.New("router: entity not registered")
)
