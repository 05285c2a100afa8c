// Package snapshot defines the persisted form of a built routing index and
// converts between it and a live catalogue and router.
//
// A snapshot carries everything needed to answer queries without rebuilding
// the graph: the catalogue input, the routing settings, every vertex with its
// id, every edge in id order and the per-edge metadata. Ride edges do not
// store their route name; each route lists the edge ids it owns instead.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"transit-router/internal/catalogue"
	"transit-router/internal/geo"
	"transit-router/internal/graph"
	"transit-router/internal/router"
)

var (
	ErrCorrupt  = errors.New("snapshot corrupt")
	ErrNotFound = errors.New("snapshot not found")
)

type Snapshot struct {
	BuildID      string
	CreatedAt    int64 // unix seconds
	Stops        []Stop
	Distances    []Distance
	Routes       []Route
	Routing      *RoutingSettings // nil when the section is missing
	Vertices     []Vertex
	Edges        []Edge
	EdgeInfos    []EdgeInfo
	NextVertexID int
}

type Stop struct {
	Name string
	Lat  float64
	Lng  float64
}

type Distance struct {
	From   string
	To     string
	Meters int
}

type Route struct {
	Name        string
	Stops       []string
	IsRoundtrip bool
	EdgeIDs     []int // ride edges belonging to this route, ascending
}

type RoutingSettings struct {
	WaitTime int
	Velocity float64
}

type Vertex struct {
	ID   int
	Kind router.VertexKind
	Stop string
}

type Edge struct {
	From   int
	To     int
	Weight float64
}

type EdgeInfo struct {
	ID        int
	Kind      router.EdgeKind
	SpanCount int
	Time      float64
	Stop      string
}

// Export captures the catalogue and the router built from it.
func Export(cat *catalogue.Catalogue, rt *router.Router) *Snapshot {
	s := &Snapshot{
		BuildID:      uuid.NewString(),
		CreatedAt:    time.Now().Unix(),
		NextVertexID: int(rt.NextVertexID()),
	}

	for _, st := range cat.Stops() {
		s.Stops = append(s.Stops, Stop{Name: st.Name, Lat: st.Coords.Lat, Lng: st.Coords.Lng})
	}
	for _, d := range cat.Distances() {
		s.Distances = append(s.Distances, Distance{From: d.From, To: d.To, Meters: d.Meters})
	}

	settings := rt.Settings()
	s.Routing = &RoutingSettings{WaitTime: settings.WaitTime, Velocity: settings.Velocity}

	for _, v := range rt.Vertices() {
		s.Vertices = append(s.Vertices, Vertex{ID: int(v.ID), Kind: v.Kind, Stop: v.Stop})
	}

	owned := map[string][]int{}
	for id, e := range rt.Edges() {
		s.Edges = append(s.Edges, Edge{From: int(e.From), To: int(e.To), Weight: e.Weight})
		info, _ := rt.EdgeInfo(graph.EdgeID(id))
		s.EdgeInfos = append(s.EdgeInfos, EdgeInfo{
			ID:        id,
			Kind:      info.Kind,
			SpanCount: info.SpanCount,
			Time:      info.Time,
			Stop:      info.Stop,
		})
		if info.Kind == router.RideEdge {
			owned[info.Route] = append(owned[info.Route], id)
		}
	}

	for _, r := range cat.Routes() {
		s.Routes = append(s.Routes, Route{
			Name:        r.Name,
			Stops:       append([]string(nil), r.Stops...),
			IsRoundtrip: r.IsRoundtrip,
			EdgeIDs:     owned[r.Name],
		})
	}
	return s
}

// Import validates the snapshot and restores the catalogue and router it
// describes. A nil finder selects Dijkstra.
func Import(s *Snapshot, finder graph.PathFinder) (*catalogue.Catalogue, *router.Router, error) {
	if err := Validate(s); err != nil {
		return nil, nil, err
	}

	cat := catalogue.New()
	for _, st := range s.Stops {
		if err := cat.AddStop(st.Name, geo.Coordinates{Lat: st.Lat, Lng: st.Lng}); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	for _, d := range s.Distances {
		cat.SetDistance(d.From, d.To, d.Meters)
	}

	owner := map[int]string{}
	for _, r := range s.Routes {
		if err := cat.AddRoute(r.Name, r.Stops, r.IsRoundtrip); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		for _, id := range r.EdgeIDs {
			owner[id] = r.Name
		}
	}

	vertices := make([]router.Vertex, 0, len(s.Vertices))
	for _, v := range s.Vertices {
		vertices = append(vertices, router.Vertex{ID: graph.VertexID(v.ID), Kind: v.Kind, Stop: v.Stop})
	}
	edges := make([]graph.Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		edges = append(edges, graph.Edge{From: graph.VertexID(e.From), To: graph.VertexID(e.To), Weight: e.Weight})
	}
	infos := make(map[graph.EdgeID]router.EdgeInfo, len(s.EdgeInfos))
	for _, info := range s.EdgeInfos {
		infos[graph.EdgeID(info.ID)] = router.EdgeInfo{
			Kind:      info.Kind,
			Stop:      info.Stop,
			Route:     owner[info.ID],
			SpanCount: info.SpanCount,
			Time:      info.Time,
		}
	}

	settings := router.Settings{WaitTime: s.Routing.WaitTime, Velocity: s.Routing.Velocity}
	rt, err := router.Restore(settings, vertices, graph.VertexID(s.NextVertexID), edges, infos, finder)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return cat, rt, nil
}

// Validate checks the structural consistency of a snapshot.
func Validate(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: empty snapshot", ErrCorrupt)
	}
	if s.Routing == nil {
		return fmt.Errorf("%w: missing routing settings", ErrCorrupt)
	}
	if s.Routing.Velocity <= 0 || s.Routing.WaitTime < 0 {
		return fmt.Errorf("%w: invalid routing settings (wait %d, velocity %v)", ErrCorrupt, s.Routing.WaitTime, s.Routing.Velocity)
	}

	stops := make(map[string]struct{}, len(s.Stops))
	for _, st := range s.Stops {
		if _, dup := stops[st.Name]; dup {
			return fmt.Errorf("%w: stop %q listed twice", ErrCorrupt, st.Name)
		}
		stops[st.Name] = struct{}{}
	}

	if s.NextVertexID < 0 || len(s.Vertices) != s.NextVertexID {
		return fmt.Errorf("%w: %d vertices but next vertex id is %d", ErrCorrupt, len(s.Vertices), s.NextVertexID)
	}
	seenIDs := make([]bool, s.NextVertexID)
	type vkey struct {
		stop string
		kind router.VertexKind
	}
	seenKeys := map[vkey]struct{}{}
	byID := make([]Vertex, s.NextVertexID)
	for _, v := range s.Vertices {
		if v.ID < 0 || v.ID >= s.NextVertexID {
			return fmt.Errorf("%w: vertex id %d out of range [0,%d)", ErrCorrupt, v.ID, s.NextVertexID)
		}
		if seenIDs[v.ID] {
			return fmt.Errorf("%w: vertex id %d listed twice", ErrCorrupt, v.ID)
		}
		seenIDs[v.ID] = true
		if v.Kind != router.WaitVertex && v.Kind != router.BoardVertex {
			return fmt.Errorf("%w: vertex %d has unknown kind %d", ErrCorrupt, v.ID, v.Kind)
		}
		if _, ok := stops[v.Stop]; !ok {
			return fmt.Errorf("%w: vertex %d refers to unknown stop %q", ErrCorrupt, v.ID, v.Stop)
		}
		k := vkey{v.Stop, v.Kind}
		if _, dup := seenKeys[k]; dup {
			return fmt.Errorf("%w: stop %q has two %s vertices", ErrCorrupt, v.Stop, v.Kind)
		}
		seenKeys[k] = struct{}{}
		byID[v.ID] = v
	}

	for i, e := range s.Edges {
		if e.From < 0 || e.From >= s.NextVertexID || e.To < 0 || e.To >= s.NextVertexID {
			return fmt.Errorf("%w: edge %d (%d -> %d) out of vertex range", ErrCorrupt, i, e.From, e.To)
		}
		if e.Weight < 0 {
			return fmt.Errorf("%w: edge %d has negative weight", ErrCorrupt, i)
		}
	}

	if len(s.EdgeInfos) != len(s.Edges) {
		return fmt.Errorf("%w: %d edges but %d edge infos", ErrCorrupt, len(s.Edges), len(s.EdgeInfos))
	}
	kinds := make([]router.EdgeKind, len(s.Edges))
	seenInfo := make([]bool, len(s.Edges))
	for _, info := range s.EdgeInfos {
		if info.ID < 0 || info.ID >= len(s.Edges) {
			return fmt.Errorf("%w: edge info for unknown edge %d", ErrCorrupt, info.ID)
		}
		if seenInfo[info.ID] {
			return fmt.Errorf("%w: edge %d described twice", ErrCorrupt, info.ID)
		}
		seenInfo[info.ID] = true
		from, to := byID[s.Edges[info.ID].From], byID[s.Edges[info.ID].To]
		switch info.Kind {
		case router.WaitEdge:
			if _, ok := stops[info.Stop]; !ok {
				return fmt.Errorf("%w: wait edge %d refers to unknown stop %q", ErrCorrupt, info.ID, info.Stop)
			}
			if from.Kind != router.WaitVertex || to.Kind != router.BoardVertex || from.Stop != info.Stop || to.Stop != info.Stop {
				return fmt.Errorf("%w: wait edge %d does not join the vertices of stop %q", ErrCorrupt, info.ID, info.Stop)
			}
		case router.RideEdge:
			if from.Kind != router.BoardVertex || to.Kind != router.WaitVertex {
				return fmt.Errorf("%w: ride edge %d must go from a board vertex to a wait vertex", ErrCorrupt, info.ID)
			}
		default:
			return fmt.Errorf("%w: edge %d has unknown kind %d", ErrCorrupt, info.ID, info.Kind)
		}
		kinds[info.ID] = info.Kind
	}

	routes := map[string]struct{}{}
	owned := make([]bool, len(s.Edges))
	for _, r := range s.Routes {
		if _, dup := routes[r.Name]; dup {
			return fmt.Errorf("%w: route %q listed twice", ErrCorrupt, r.Name)
		}
		routes[r.Name] = struct{}{}
		for _, st := range r.Stops {
			if _, ok := stops[st]; !ok {
				return fmt.Errorf("%w: route %q refers to unknown stop %q", ErrCorrupt, r.Name, st)
			}
		}
		for _, id := range r.EdgeIDs {
			if id < 0 || id >= len(s.Edges) {
				return fmt.Errorf("%w: route %q owns unknown edge %d", ErrCorrupt, r.Name, id)
			}
			if kinds[id] != router.RideEdge {
				return fmt.Errorf("%w: route %q owns non-ride edge %d", ErrCorrupt, r.Name, id)
			}
			if owned[id] {
				return fmt.Errorf("%w: edge %d owned by more than one route", ErrCorrupt, id)
			}
			owned[id] = true
		}
	}
	for id, kind := range kinds {
		if kind == router.RideEdge && !owned[id] {
			return fmt.Errorf("%w: ride edge %d belongs to no route", ErrCorrupt, id)
		}
	}
	return nil
}

// StopNames returns the stop names of the snapshot, sorted.
func (s *Snapshot) StopNames() []string {
	names := make([]string, 0, len(s.Stops))
	for _, st := range s.Stops {
		names = append(names, st.Name)
	}
	sort.Strings(names)
	return names
}
