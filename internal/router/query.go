package router

type StepKind uint8

const (
	WaitStep StepKind = iota
	BusStep
)

func (k StepKind) String() string {
	if k == WaitStep {
		return "Wait"
	}
	return "Bus"
}

// Step is one leg of an itinerary. Wait steps set Stop; bus steps set Route
// and SpanCount.
type Step struct {
	Kind      StepKind
	Stop      string
	Route     string
	SpanCount int
	Time      float64
}

// Itinerary is the answer to FindRoute. When Found is false TotalTime is -1
// and Steps is empty.
type Itinerary struct {
	Found     bool
	TotalTime float64
	Steps     []Step
}

func notFound() Itinerary {
	return Itinerary{TotalTime: -1, Steps: []Step{}}
}

// FindRoute returns the fastest itinerary between the wait vertices of two
// stops.
func (r *Router) FindRoute(from, to string) Itinerary {
	fromID, ok := r.vertexIDs[vertexKey{from, WaitVertex}]
	if !ok {
		return notFound()
	}
	toID, ok := r.vertexIDs[vertexKey{to, WaitVertex}]
	if !ok {
		return notFound()
	}

	path, ok := r.finder.ShortestPath(r.graph, fromID, toID)
	if !ok {
		return notFound()
	}

	steps := make([]Step, 0, len(path.Edges))
	for _, id := range path.Edges {
		info := r.edgeInfo[id]
		switch info.Kind {
		case WaitEdge:
			steps = append(steps, Step{Kind: WaitStep, Stop: info.Stop, Time: info.Time})
		case RideEdge:
			steps = append(steps, Step{Kind: BusStep, Route: info.Route, SpanCount: info.SpanCount, Time: info.Time})
		}
	}
	return Itinerary{Found: true, TotalTime: path.Weight, Steps: steps}
}
