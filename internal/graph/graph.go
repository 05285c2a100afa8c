// Package graph provides a directed weighted graph and the shortest-path
// capability the router queries it with.
package graph

type VertexID int
type EdgeID int

type Edge struct {
	From   VertexID
	To     VertexID
	Weight float64
}

// Graph is an append-only directed graph. Edge ids are dense and assigned in
// insertion order, so replaying the same edges yields the same ids.
type Graph struct {
	edges    []Edge
	outgoing [][]EdgeID
}

func New(vertexCount int) *Graph {
	return &Graph{outgoing: make([][]EdgeID, vertexCount)}
}

func (g *Graph) AddEdge(e Edge) EdgeID {
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, e)
	g.grow(e.From)
	g.grow(e.To)
	g.outgoing[e.From] = append(g.outgoing[e.From], id)
	return id
}

func (g *Graph) grow(v VertexID) {
	for int(v) >= len(g.outgoing) {
		g.outgoing = append(g.outgoing, nil)
	}
}

func (g *Graph) VertexCount() int { return len(g.outgoing) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) Edge(id EdgeID) Edge { return g.edges[id] }

// Edges returns a copy of all edges in id order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) Outgoing(v VertexID) []EdgeID {
	if int(v) < 0 || int(v) >= len(g.outgoing) {
		return nil
	}
	return g.outgoing[v]
}
