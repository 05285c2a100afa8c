package catalogue

import (
	"errors"
	"fmt"
	"sort"

	"transit-router/internal/geo"
)

var (
	ErrDuplicateStop  = errors.New("stop already registered")
	ErrUnknownStop    = errors.New("stop not registered")
	ErrDuplicateRoute = errors.New("route already registered")
)

// Catalogue holds stops, routes and road distances. Everything is keyed by
// name so the contents survive a snapshot round trip unchanged.
type Catalogue struct {
	stops      map[string]Stop
	stopOrder  []string
	routes     map[string]*Route
	distances  map[stopPair]int
	stopRoutes map[string]map[string]struct{} // stop -> route names
}

func New() *Catalogue {
	return &Catalogue{
		stops:      map[string]Stop{},
		routes:     map[string]*Route{},
		distances:  map[stopPair]int{},
		stopRoutes: map[string]map[string]struct{}{},
	}
}

func (c *Catalogue) AddStop(name string, coords geo.Coordinates) error {
	if _, exists := c.stops[name]; exists {
		return fmt.Errorf("add stop %q: %w", name, ErrDuplicateStop)
	}
	c.stops[name] = Stop{Name: name, Coords: coords}
	c.stopOrder = append(c.stopOrder, name)
	c.stopRoutes[name] = map[string]struct{}{}
	return nil
}

// SetDistance stores the road distance from -> to, replacing any earlier value.
func (c *Catalogue) SetDistance(from, to string, meters int) {
	c.distances[stopPair{from, to}] = meters
}

// Distance returns the from -> to distance, falling back to to -> from, then 0.
func (c *Catalogue) Distance(from, to string) int {
	if d, ok := c.distances[stopPair{from, to}]; ok {
		return d
	}
	if d, ok := c.distances[stopPair{to, from}]; ok {
		return d
	}
	return 0
}

// AddRoute registers a route and computes its statistics. All stops must
// already be registered and distances set.
func (c *Catalogue) AddRoute(name string, stops []string, isRoundtrip bool) error {
	if _, exists := c.routes[name]; exists {
		return fmt.Errorf("add route %q: %w", name, ErrDuplicateRoute)
	}
	for _, s := range stops {
		if _, ok := c.stops[s]; !ok {
			return fmt.Errorf("add route %q: stop %q: %w", name, s, ErrUnknownStop)
		}
	}
	r := &Route{
		Name:        name,
		Stops:       append([]string(nil), stops...),
		IsRoundtrip: isRoundtrip,
	}
	r.Stats = c.computeStats(r)
	c.routes[name] = r
	for _, s := range r.Stops {
		c.stopRoutes[s][name] = struct{}{}
	}
	return nil
}

func (c *Catalogue) computeStats(r *Route) RouteStats {
	st := RouteStats{Found: true}
	n := len(r.Stops)
	if n == 0 {
		return st
	}

	unique := make(map[string]struct{}, n)
	for _, s := range r.Stops {
		unique[s] = struct{}{}
	}
	st.UniqueStops = len(unique)

	length := 0
	straight := 0.0
	for i := 1; i < n; i++ {
		length += c.Distance(r.Stops[i-1], r.Stops[i])
		straight += geo.Distance(c.stops[r.Stops[i-1]].Coords, c.stops[r.Stops[i]].Coords)
	}

	factor := 1.0
	if r.IsRoundtrip {
		st.StopsOnRoute = n
		length += c.Distance(r.Stops[n-1], r.Stops[0])
	} else {
		st.StopsOnRoute = 2*n - 1
		for i := n - 1; i > 0; i-- {
			length += c.Distance(r.Stops[i], r.Stops[i-1])
		}
		factor = 2
	}
	st.RouteLength = length
	if straight > 0 {
		st.Curvature = float64(length) / (straight * factor)
	}
	return st
}

// RouteStats returns the statistics of a route, or a zero value with
// Found=false if the route is unknown.
func (c *Catalogue) RouteStats(name string) RouteStats {
	r, ok := c.routes[name]
	if !ok {
		return RouteStats{}
	}
	return r.Stats
}

// ServingRoutes reports whether the stop is registered and, if so, the sorted
// names of the routes passing through it.
func (c *Catalogue) ServingRoutes(stop string) (bool, []string) {
	set, ok := c.stopRoutes[stop]
	if !ok {
		return false, nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return true, names
}

func (c *Catalogue) StopsForRoute(name string) ([]string, bool) {
	r, ok := c.routes[name]
	if !ok {
		return nil, false
	}
	return r.Stops, true
}

func (c *Catalogue) Stop(name string) (Stop, bool) {
	s, ok := c.stops[name]
	return s, ok
}

// Routes returns all routes sorted by name.
func (c *Catalogue) Routes() []Route {
	out := make([]Route, 0, len(c.routes))
	for _, r := range c.routes {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stops returns all stops in registration order.
func (c *Catalogue) Stops() []Stop {
	out := make([]Stop, 0, len(c.stopOrder))
	for _, name := range c.stopOrder {
		out = append(out, c.stops[name])
	}
	return out
}

// Distances returns the directed distance entries sorted by (from, to).
func (c *Catalogue) Distances() []Distance {
	out := make([]Distance, 0, len(c.distances))
	for k, d := range c.distances {
		out = append(out, Distance{From: k.from, To: k.to, Meters: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
