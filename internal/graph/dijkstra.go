package graph

import (
	"container/heap"
	"math"
)

// Path is an ordered list of edges and their total weight.
type Path struct {
	Edges  []EdgeID
	Weight float64
}

// PathFinder computes a minimum-weight path between two vertices, reporting
// false when the target is unreachable.
type PathFinder interface {
	ShortestPath(g *Graph, from, to VertexID) (Path, bool)
}

// Dijkstra is a PathFinder for non-negative weights. It keeps no state
// between calls and is safe for concurrent use on a graph that is no longer
// being modified.
type Dijkstra struct{}

func (Dijkstra) ShortestPath(g *Graph, from, to VertexID) (Path, bool) {
	n := g.VertexCount()
	if int(from) < 0 || int(from) >= n || int(to) < 0 || int(to) >= n {
		return Path{}, false
	}
	if from == to {
		return Path{Edges: []EdgeID{}}, true
	}

	dist := make([]float64, n)
	prev := make([]EdgeID, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[from] = 0
	done := make([]bool, n)

	pq := &priorityQueue{}
	heap.Push(pq, &pqItem{vertex: from, priority: 0})
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		cur := item.vertex
		if done[cur] {
			continue
		}
		done[cur] = true
		if cur == to {
			break
		}
		for _, id := range g.outgoing[cur] {
			e := g.edges[id]
			tentative := dist[cur] + e.Weight
			if tentative < dist[e.To] {
				dist[e.To] = tentative
				prev[e.To] = id
				heap.Push(pq, &pqItem{vertex: e.To, priority: tentative})
			}
		}
	}

	if math.IsInf(dist[to], 1) {
		return Path{}, false
	}
	var edges []EdgeID
	for v := to; v != from; {
		id := prev[v]
		edges = append(edges, id)
		v = g.edges[id].From
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return Path{Edges: edges, Weight: dist[to]}, true
}

type pqItem struct {
	vertex   VertexID
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].vertex < pq[j].vertex
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
