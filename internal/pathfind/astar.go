package pathfind

import "container/heap"

// astarNode is a candidate cell/triangle waiting to be expanded, ordered
// by f-score (g + heuristic), the same container/heap index-tracking
// idiom used by internal/router's priority queue.
type astarNode struct {
	id    int
	f     float64
	index int
}

type astarQueue []*astarNode

func (q astarQueue) Len() int            { return len(q) }
func (q astarQueue) Less(i, j int) bool  { return q[i].f < q[j].f }
func (q astarQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *astarQueue) Push(x interface{}) {
	n := x.(*astarNode)
	n.index = len(*q)
	*q = append(*q, n)
}
func (q *astarQueue) Pop() interface{} {
	old := *q
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*q = old[:n-1]
	return node
}

// astarSearch runs A* over a graph of nodeCount nodes given a neighbour
// lookup and a center-point lookup, returning the sequence of node
// indices from start to goal inclusive.
func astarSearch(nodeCount int, start, goal int, neighbours func(int) []int, center func(int) Point) ([]int, bool) {
	if start == goal {
		return []int{start}, true
	}

	gScore := make(map[int]float64, nodeCount)
	cameFrom := make(map[int]int, nodeCount)
	visited := make(map[int]bool, nodeCount)

	gScore[start] = 0
	pq := &astarQueue{}
	heap.Init(pq)
	heap.Push(pq, &astarNode{id: start, f: euclidean(center(start), center(goal))})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*astarNode)
		if visited[current.id] {
			continue
		}
		visited[current.id] = true

		if current.id == goal {
			path := []int{goal}
			node := goal
			for {
				prev, ok := cameFrom[node]
				if !ok {
					break
				}
				path = append(path, prev)
				node = prev
			}
			reverseInts(path)
			return path, true
		}

		for _, next := range neighbours(current.id) {
			if visited[next] {
				continue
			}
			tentative := gScore[current.id] + euclidean(center(current.id), center(next))
			existing, known := gScore[next]
			if !known || tentative < existing {
				gScore[next] = tentative
				cameFrom[next] = current.id
				f := tentative + euclidean(center(next), center(goal))
				heap.Push(pq, &astarNode{id: next, f: f})
			}
		}
	}

	return nil, false
}
