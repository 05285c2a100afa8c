package catalogue

import "transit-router/internal/geo"

type Stop struct {
	Name   string
	Coords geo.Coordinates
}

type Route struct {
	Name        string
	Stops       []string // as traveled; out-and-back routes list the forward half only
	IsRoundtrip bool
	Stats       RouteStats
}

// RouteStats are computed once when the route is added.
type RouteStats struct {
	Found        bool
	StopsOnRoute int
	UniqueStops  int
	RouteLength  int     // meters along the road
	Curvature    float64 // RouteLength over great-circle length; 0 if the latter is 0
}

// Distance is a directed road distance entry.
type Distance struct {
	From   string
	To     string
	Meters int
}

type stopPair struct {
	from string
	to   string
}
