package router

import "container/heap"

// pqEntry is one candidate area waiting to be relaxed, ordered by
// cumulative distance with ties broken by insertion sequence (spec
// §4.8: "ties broken by insertion order"), the same index-tracking
// idiom as the teacher pack's container/heap transaction heaps.
type pqEntry struct {
	areaID   string
	distance float64
	seq      int
	index    int
}

type priorityQueue []*pqEntry

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}
	return q[i].seq < q[j].seq
}

func (q priorityQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *priorityQueue) Push(x interface{}) {
	entry := x.(*pqEntry)
	entry.index = len(*q)
	*q = append(*q, entry)
}

func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*q = old[:n-1]
	return entry
}

// Route finds the preferred path from start to end under limits
// (spec §4.8). Same-area requests short-circuit to a trivial single-step
// path; a departure area whose only reachable partner is end returns that
// single hop without the priority queue; everything else (including a sole
// partner that is not end) runs Dijkstra with Manhattan
// edge weights over the kind-filtered, preference-collapsed adjacency.
func (g *Graph) Route(start, end string, limits Limits) ([]Step, error) {
	if _, ok := g.areas[start]; !ok {
		return nil, ErrAreaNotFound
	}
	if _, ok := g.areas[end]; !ok {
		return nil, ErrAreaNotFound
	}
	if start == end {
		return []Step{{AreaID: start}}, nil
	}

	adjacency := g.buildAdjacency(limits)

	if partner, ok := soleNeighbour(adjacency, start); ok {
		if partner.toArea == end {
			return []Step{
				{AreaID: start},
				{AreaID: end, ConnectionID: partner.connectionID},
			}, nil
		}
	}

	return g.dijkstra(adjacency, start, end)
}

func (g *Graph) dijkstra(adjacency map[string][]edge, start, end string) ([]Step, error) {
	dist := map[string]float64{start: 0}
	viaConnection := map[string]string{}
	parent := map[string]string{}
	visited := map[string]bool{}

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqEntry{areaID: start, distance: 0, seq: 0})
	seq := 1

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*pqEntry)
		if visited[current.areaID] {
			continue
		}
		visited[current.areaID] = true

		if current.areaID == end {
			return reconstruct(start, end, parent, viaConnection), nil
		}

		for _, e := range adjacency[current.areaID] {
			if visited[e.toArea] {
				continue
			}
			candidate := current.distance + e.weight
			existing, known := dist[e.toArea]
			if !known || candidate < existing {
				dist[e.toArea] = candidate
				parent[e.toArea] = current.areaID
				viaConnection[e.toArea] = e.connectionID
				heap.Push(pq, &pqEntry{areaID: e.toArea, distance: candidate, seq: seq})
				seq++
			}
		}
	}

	return nil, ErrNoRoute
}

// reconstruct walks parent back from end to start and emits the step
// sequence in departure order, with an empty ConnectionID at the origin.
func reconstruct(start, end string, parent, viaConnection map[string]string) []Step {
	var reversed []Step
	area := end
	for area != start {
		reversed = append(reversed, Step{AreaID: area, ConnectionID: viaConnection[area]})
		area = parent[area]
	}
	reversed = append(reversed, Step{AreaID: start})

	steps := make([]Step, len(reversed))
	for i, s := range reversed {
		steps[len(reversed)-1-i] = s
	}
	return steps
}
