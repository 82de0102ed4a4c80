package router

import "sort"

// Graph is an inter-area navigation graph (spec §3 ConnectivityGraph):
// directed multigraph, nodes are Areas, edges are Connections carrying a
// 2D attachment point per endpoint area. Areas and Connections are kept
// in owning maps keyed by stable string IDs (arena pattern, so the graph
// has no pointer cycles to unwind).
type Graph struct {
	areas       map[string]Area
	connections map[string]Connection
	byArea      map[string][]string // area ID -> connection IDs touching it
}

// NewGraph builds a Graph from the given areas and connections.
func NewGraph(areas []Area, connections []Connection) *Graph {
	g := &Graph{
		areas:       make(map[string]Area, len(areas)),
		connections: make(map[string]Connection, len(connections)),
		byArea:      make(map[string][]string),
	}
	for _, a := range areas {
		g.areas[a.ID] = a
	}
	for _, c := range connections {
		g.connections[c.ID] = c
		for _, id := range c.areaIDs() {
			g.byArea[id] = append(g.byArea[id], c.ID)
		}
	}
	return g
}

// edge is a directed hop from one area to another via a single
// connection, pre-selected when multiple connections join the same pair.
type edge struct {
	toArea       string
	connectionID string
	kind         ConnectionKind
	weight       float64
}

// buildAdjacency expands every Connection into directed edges between
// each pair of distinct areas it touches, drops edges whose kind limits
// disallows, and collapses parallel edges between the same area pair
// down to a single preferred connection (spec §4.8: "when the planner,
// not the user, chooses").
func (g *Graph) buildAdjacency(limits Limits) map[string][]edge {
	type pairKey struct{ from, to string }
	candidates := make(map[pairKey][]edge)

	for _, c := range g.connections {
		if !limits.allows(c.Kind) {
			continue
		}
		ids := c.areaIDs()
		for _, from := range ids {
			fromPoint, ok := c.endpointFor(from)
			if !ok {
				continue
			}
			for _, to := range ids {
				if from == to {
					continue
				}
				toPoint, ok := c.endpointFor(to)
				if !ok {
					continue
				}
				key := pairKey{from, to}
				candidates[key] = append(candidates[key], edge{
					toArea:       to,
					connectionID: c.ID,
					kind:         c.Kind,
					weight:       manhattan(fromPoint, toPoint),
				})
			}
		}
	}

	adjacency := make(map[string][]edge, len(candidates))
	for key, edges := range candidates {
		adjacency[key.from] = append(adjacency[key.from], g.selectPreferred(key.from, key.to, edges))
	}
	for from := range adjacency {
		sort.Slice(adjacency[from], func(i, j int) bool {
			return adjacency[from][i].connectionID < adjacency[from][j].connectionID
		})
	}
	return adjacency
}

// selectPreferred picks one edge among parallel connections joining the
// same area pair, applying the vertical-transport heuristics in spec
// §4.8: basement parking and large floor deltas favour elevators; a
// fallback ordering (escalator, elevator, stairs, gate, rail, shuttle)
// breaks remaining ties, following original_source's
// select_optimal_transportation.
func (g *Graph) selectPreferred(from, to string, edges []edge) edge {
	if len(edges) == 1 {
		return edges[0]
	}

	fromArea, fromOK := g.areas[from]
	toArea, toOK := g.areas[to]
	basementInvolved := fromOK && fromArea.Floor.Kind == FloorBasement ||
		toOK && toArea.Floor.Kind == FloorBasement
	floorDelta := 0
	if fromOK && toOK {
		floorDelta = fromArea.Floor.rank() - toArea.Floor.rank()
		if floorDelta < 0 {
			floorDelta = -floorDelta
		}
	}

	best := edges[0]
	for _, e := range edges[1:] {
		if preferTransport(e, best, basementInvolved, floorDelta) {
			best = e
		}
	}
	return best
}

// preferTransport reports whether candidate should replace current as
// the preferred edge under the basement/floor-delta rules, falling back
// to a fixed kind ordering when neither rule distinguishes them.
func preferTransport(candidate, current edge, basementInvolved bool, floorDelta int) bool {
	if basementInvolved || floorDelta > 3 {
		if candidate.kind == ConnectionElevator && current.kind != ConnectionElevator {
			return true
		}
		if current.kind == ConnectionElevator && candidate.kind != ConnectionElevator {
			return false
		}
	} else if floorDelta > 0 {
		if candidate.kind == ConnectionEscalator && current.kind != ConnectionEscalator {
			return true
		}
		if current.kind == ConnectionEscalator && candidate.kind != ConnectionEscalator {
			return false
		}
	}
	return transportPriority(candidate.kind) < transportPriority(current.kind)
}

func transportPriority(kind ConnectionKind) int {
	switch kind {
	case ConnectionEscalator:
		return 0
	case ConnectionElevator:
		return 1
	case ConnectionStairs:
		return 2
	case ConnectionGate:
		return 3
	case ConnectionRail:
		return 4
	case ConnectionShuttle:
		return 5
	default:
		return 6
	}
}

// soleNeighbour returns the departure area's single distinct partner
// area, if its surviving connection set touches exactly one area other
// than itself (spec §4.8: "treated as a contiguous neighbour and
// returned without search").
func soleNeighbour(adjacency map[string][]edge, from string) (edge, bool) {
	edges := adjacency[from]
	if len(edges) == 0 {
		return edge{}, false
	}
	first := edges[0].toArea
	for _, e := range edges[1:] {
		if e.toArea != first {
			return edge{}, false
		}
	}
	return edges[0], true
}
