package graph

import (
	"reflect"
	"testing"
)

func TestDijkstraShortestPath(t *testing.T) {
	g := New(4)
	g.AddEdge(Edge{From: 0, To: 1, Weight: 4})
	e02 := g.AddEdge(Edge{From: 0, To: 2, Weight: 1})
	e21 := g.AddEdge(Edge{From: 2, To: 1, Weight: 2})
	e13 := g.AddEdge(Edge{From: 1, To: 3, Weight: 5})

	path, ok := Dijkstra{}.ShortestPath(g, 0, 3)
	if !ok {
		t.Fatal("expected a path from 0 to 3")
	}
	if want := []EdgeID{e02, e21, e13}; !reflect.DeepEqual(path.Edges, want) {
		t.Errorf("path edges = %v, want %v", path.Edges, want)
	}
	if path.Weight != 8 {
		t.Errorf("path weight = %v, want 8", path.Weight)
	}
}

func TestDijkstraUnreachable(t *testing.T) {
	g := New(3)
	g.AddEdge(Edge{From: 0, To: 1, Weight: 1})

	if _, ok := (Dijkstra{}).ShortestPath(g, 1, 0); ok {
		t.Error("edges are directed; 1 -> 0 must be unreachable")
	}
	if _, ok := (Dijkstra{}).ShortestPath(g, 0, 2); ok {
		t.Error("isolated vertex must be unreachable")
	}
	if _, ok := (Dijkstra{}).ShortestPath(g, 0, 7); ok {
		t.Error("out-of-range vertex must be unreachable")
	}
}

func TestDijkstraSameVertex(t *testing.T) {
	g := New(2)
	g.AddEdge(Edge{From: 0, To: 1, Weight: 1})
	path, ok := Dijkstra{}.ShortestPath(g, 0, 0)
	if !ok || len(path.Edges) != 0 || path.Weight != 0 {
		t.Errorf("ShortestPath(0,0) = %+v, %v; want empty path of weight 0", path, ok)
	}
}

func TestGraphGrowsOnDemand(t *testing.T) {
	g := New(0)
	id := g.AddEdge(Edge{From: 3, To: 5, Weight: 2})
	if id != 0 {
		t.Errorf("first edge id = %d, want 0", id)
	}
	if g.VertexCount() != 6 {
		t.Errorf("VertexCount = %d, want 6", g.VertexCount())
	}
	if got := g.Outgoing(3); !reflect.DeepEqual(got, []EdgeID{0}) {
		t.Errorf("Outgoing(3) = %v", got)
	}
	if got := g.Outgoing(42); got != nil {
		t.Errorf("Outgoing(42) = %v, want nil", got)
	}
}
