// Package pathfind resolves waypoints within a single Area's polygon
// (spec §4.9): either by overlaying a block grid or by triangulating the
// polygon and routing across the resulting mesh. Both backends implement
// a shared Backend interface; the choice is per-area and not observable
// to callers (spec.md §4.9).
package pathfind

import (
	"errors"
	"math"
)

// Point is a 2D coordinate within an area's local space.
type Point struct {
	X, Y float64
}

func (p Point) sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

func euclidean(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Backend resolves a route between two points within a single area.
type Backend interface {
	Route(start, end Point) ([]Point, error)
}

var (
	// ErrOutsidePolygon indicates a requested start or end point does not
	// lie within the area's polygon.
	ErrOutsidePolygon = errors.New("pathfind: point outside polygon")
	// ErrNoPath indicates no route exists between the two points (the
	// polygon's blocks or mesh are disconnected between them).
	ErrNoPath = errors.New("pathfind: no path found")
	// ErrDegeneratePolygon indicates fewer than 3 vertices were supplied.
	ErrDegeneratePolygon = errors.New("pathfind: polygon needs at least 3 vertices")
	// ErrAreaNotRegistered indicates no Backend is registered for the
	// requested area.
	ErrAreaNotRegistered = errors.New("pathfind: area not registered")
)
