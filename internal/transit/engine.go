// Package transit ties the catalogue, the routing graph and snapshot
// persistence together behind one read-only query surface.
package transit

import (
	"context"
	"fmt"
	"log"
	"time"

	"transit-router/internal/catalogue"
	"transit-router/internal/geo"
	"transit-router/internal/router"
	"transit-router/internal/snapshot"
)

type StopInput struct {
	Name          string
	Coords        geo.Coordinates
	RoadDistances map[string]int // neighbour name -> meters
}

type RouteInput struct {
	Name        string
	Stops       []string
	IsRoundtrip bool
}

// Input is everything the build step ingests.
type Input struct {
	Stops   []StopInput
	Routes  []RouteInput
	Routing router.Settings
}

// Engine is safe for concurrent queries once built or opened.
type Engine struct {
	cat     *catalogue.Catalogue
	rt      *router.Router
	buildID string
}

// Build ingests all stops, then all road distances, then all routes, and
// constructs the routing graph.
func Build(in Input) (*Engine, error) {
	start := time.Now()
	cat := catalogue.New()
	for _, s := range in.Stops {
		if err := cat.AddStop(s.Name, s.Coords); err != nil {
			return nil, fmt.Errorf("add stop: %w", err)
		}
	}
	for _, s := range in.Stops {
		for to, meters := range s.RoadDistances {
			cat.SetDistance(s.Name, to, meters)
		}
	}
	for _, r := range in.Routes {
		if err := cat.AddRoute(r.Name, r.Stops, r.IsRoundtrip); err != nil {
			return nil, fmt.Errorf("add route: %w", err)
		}
	}
	rt, err := router.Build(cat, in.Routing, nil)
	if err != nil {
		return nil, fmt.Errorf("build routing graph: %w", err)
	}
	log.Printf("built routing graph: stops=%d routes=%d vertices=%d edges=%d in %s",
		len(in.Stops), len(in.Routes), rt.VertexCount(), rt.EdgeCount(), time.Since(start).Round(time.Millisecond))
	return &Engine{cat: cat, rt: rt}, nil
}

// FromSnapshot restores an engine without rebuilding the graph.
func FromSnapshot(s *snapshot.Snapshot) (*Engine, error) {
	cat, rt, err := snapshot.Import(s, nil)
	if err != nil {
		return nil, err
	}
	return &Engine{cat: cat, rt: rt, buildID: s.BuildID}, nil
}

// Open loads, decodes and imports the named snapshot from store.
func Open(ctx context.Context, store snapshot.Store, name string) (*Engine, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	s, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	e, err := FromSnapshot(s)
	if err != nil {
		return nil, fmt.Errorf("import snapshot %q: %w", name, err)
	}
	log.Printf("opened snapshot name=%q build=%s vertices=%d edges=%d", name, e.buildID, e.rt.VertexCount(), e.rt.EdgeCount())
	return e, nil
}

// Snapshot exports the engine state. Each call gets a fresh build id.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	s := snapshot.Export(e.cat, e.rt)
	e.buildID = s.BuildID
	return s
}

// Save encodes the engine state and writes it to store under name.
func (e *Engine) Save(ctx context.Context, store snapshot.Store, name string) error {
	s := e.Snapshot()
	data := snapshot.Marshal(s)
	if err := store.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	log.Printf("saved snapshot name=%q build=%s bytes=%d", name, s.BuildID, len(data))
	return nil
}

func (e *Engine) RouteStats(name string) catalogue.RouteStats { return e.cat.RouteStats(name) }

func (e *Engine) ServingRoutes(stop string) (bool, []string) { return e.cat.ServingRoutes(stop) }

func (e *Engine) FindRoute(from, to string) router.Itinerary { return e.rt.FindRoute(from, to) }

// BuildID is empty for an engine that was built and never exported.
func (e *Engine) BuildID() string { return e.buildID }

func (e *Engine) Settings() router.Settings { return e.rt.Settings() }

func (e *Engine) VertexCount() int { return e.rt.VertexCount() }

func (e *Engine) EdgeCount() int { return e.rt.EdgeCount() }
