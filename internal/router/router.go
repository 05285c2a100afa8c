// Package router turns the bus routes of a catalogue into a time-weighted
// graph and answers stop-to-stop queries against it.
//
// Every stop gets two vertices. The wait vertex is where a passenger arrives
// and where queries start and end; the board vertex is reached from it by a
// wait edge costing the configured wait time. Ride edges go from a board
// vertex straight to the wait vertex of every later stop of the same route,
// so staying on a bus for several stops is a single edge.
package router

import (
	"errors"
	"fmt"
	"sort"

	"transit-router/internal/catalogue"
	"transit-router/internal/graph"
)

var ErrInvalidSettings = errors.New("invalid routing settings")

// Settings holds the wait time in minutes and the bus velocity in km/h.
type Settings struct {
	WaitTime int
	Velocity float64
}

func (s Settings) validate() error {
	if s.WaitTime < 0 {
		return fmt.Errorf("%w: wait time %d", ErrInvalidSettings, s.WaitTime)
	}
	if s.Velocity <= 0 {
		return fmt.Errorf("%w: velocity %v", ErrInvalidSettings, s.Velocity)
	}
	return nil
}

type VertexKind uint8

const (
	WaitVertex VertexKind = iota
	BoardVertex
)

func (k VertexKind) String() string {
	switch k {
	case WaitVertex:
		return "wait"
	case BoardVertex:
		return "board"
	}
	return fmt.Sprintf("VertexKind(%d)", uint8(k))
}

type Vertex struct {
	ID   graph.VertexID
	Kind VertexKind
	Stop string
}

type EdgeKind uint8

const (
	WaitEdge EdgeKind = iota
	RideEdge
)

// EdgeInfo describes what a graph edge means. Wait edges carry Stop, ride
// edges carry Route and SpanCount.
type EdgeInfo struct {
	Kind      EdgeKind
	Stop      string
	Route     string
	SpanCount int
	Time      float64 // minutes
}

// Network is the part of the catalogue the builder reads.
type Network interface {
	Routes() []catalogue.Route
	Distance(from, to string) int
}

type vertexKey struct {
	stop string
	kind VertexKind
}

type Router struct {
	settings Settings
	graph    *graph.Graph
	finder   graph.PathFinder

	vertices  []Vertex // indexed by id
	vertexIDs map[vertexKey]graph.VertexID
	nextID    graph.VertexID

	edgeInfo  map[graph.EdgeID]EdgeInfo
	waitEdges map[string]graph.EdgeID // stop -> its single wait edge
}

func newRouter(s Settings, finder graph.PathFinder) *Router {
	if finder == nil {
		finder = graph.Dijkstra{}
	}
	return &Router{
		settings:  s,
		graph:     graph.New(0),
		finder:    finder,
		vertexIDs: map[vertexKey]graph.VertexID{},
		edgeInfo:  map[graph.EdgeID]EdgeInfo{},
		waitEdges: map[string]graph.EdgeID{},
	}
}

// Build constructs the routing graph for every route of the network, in route
// name order. A nil finder selects Dijkstra.
func Build(net Network, s Settings, finder graph.PathFinder) (*Router, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	r := newRouter(s, finder)
	for _, route := range net.Routes() {
		r.addRoute(net, route)
	}
	return r, nil
}

func (r *Router) addRoute(net Network, route catalogue.Route) {
	stops := route.Stops
	n := len(stops)
	if n == 0 {
		return
	}

	for i, stop := range stops {
		board := r.vertex(stop, BoardVertex)
		r.addRides(net, route.Name, stops, i+1, n, 0, 0, board)
		r.addWaitEdge(stop)
	}

	if route.IsRoundtrip {
		last := n - 1
		board := r.vertex(stops[last], BoardVertex)
		meters := net.Distance(stops[last], stops[0])
		r.addRide(route.Name, board, r.vertex(stops[0], WaitVertex), meters, 1)
		r.addRides(net, route.Name, stops, 1, last, meters, 1, board)
		return
	}

	reversed := make([]string, n)
	for i, stop := range stops {
		reversed[n-1-i] = stop
	}
	for i, stop := range reversed {
		board := r.vertex(stop, BoardVertex)
		r.addRides(net, route.Name, reversed, i+1, n, 0, 0, board)
	}
}

// addRides adds ride edges from the board vertex to stops[start:end],
// accumulating meters and span from the given starting values.
func (r *Router) addRides(net Network, route string, stops []string, start, end, meters, span int, board graph.VertexID) {
	for k := start; k < end; k++ {
		meters += net.Distance(stops[k-1], stops[k])
		span++
		r.addRide(route, board, r.vertex(stops[k], WaitVertex), meters, span)
	}
}

func (r *Router) addRide(route string, from, to graph.VertexID, meters, span int) {
	minutes := (float64(meters) / 1000.0) * 60 / r.settings.Velocity
	id := r.graph.AddEdge(graph.Edge{From: from, To: to, Weight: minutes})
	r.edgeInfo[id] = EdgeInfo{Kind: RideEdge, Route: route, SpanCount: span, Time: minutes}
}

func (r *Router) addWaitEdge(stop string) {
	if _, ok := r.waitEdges[stop]; ok {
		return
	}
	from := r.vertex(stop, WaitVertex)
	to := r.vertex(stop, BoardVertex)
	minutes := float64(r.settings.WaitTime)
	id := r.graph.AddEdge(graph.Edge{From: from, To: to, Weight: minutes})
	r.edgeInfo[id] = EdgeInfo{Kind: WaitEdge, Stop: stop, Time: minutes}
	r.waitEdges[stop] = id
}

// vertex returns the id for (stop, kind), assigning the next free id on
// first use.
func (r *Router) vertex(stop string, kind VertexKind) graph.VertexID {
	key := vertexKey{stop, kind}
	if id, ok := r.vertexIDs[key]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.vertexIDs[key] = id
	r.vertices = append(r.vertices, Vertex{ID: id, Kind: kind, Stop: stop})
	return id
}

// Restore rebuilds a router from persisted state without rerunning Build.
// Edges are replayed in order, so edge ids match the keys of infos.
func Restore(s Settings, vertices []Vertex, nextID graph.VertexID, edges []graph.Edge, infos map[graph.EdgeID]EdgeInfo, finder graph.PathFinder) (*Router, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	r := newRouter(s, finder)
	r.graph = graph.New(int(nextID))
	r.nextID = nextID

	sorted := append([]Vertex(nil), vertices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, v := range sorted {
		key := vertexKey{v.Stop, v.Kind}
		if _, dup := r.vertexIDs[key]; dup {
			return nil, fmt.Errorf("restore: vertex (%s, %s) listed twice", v.Stop, v.Kind)
		}
		r.vertexIDs[key] = v.ID
		r.vertices = append(r.vertices, v)
	}

	for _, e := range edges {
		r.graph.AddEdge(e)
	}
	for id, info := range infos {
		if int(id) < 0 || int(id) >= len(edges) {
			return nil, fmt.Errorf("restore: edge info for unknown edge %d", id)
		}
		r.edgeInfo[id] = info
		if info.Kind == WaitEdge {
			r.waitEdges[info.Stop] = id
		}
	}
	return r, nil
}

func (r *Router) Settings() Settings { return r.settings }

// Vertices returns every vertex ordered by id.
func (r *Router) Vertices() []Vertex { return append([]Vertex(nil), r.vertices...) }

func (r *Router) NextVertexID() graph.VertexID { return r.nextID }

// Edges returns the graph edges in id order.
func (r *Router) Edges() []graph.Edge { return r.graph.Edges() }

func (r *Router) EdgeInfo(id graph.EdgeID) (EdgeInfo, bool) {
	info, ok := r.edgeInfo[id]
	return info, ok
}

func (r *Router) VertexCount() int { return r.graph.VertexCount() }

func (r *Router) EdgeCount() int { return r.graph.EdgeCount() }
