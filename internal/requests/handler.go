package requests

import (
	"time"

	"transit-router/internal/catalogue"
	"transit-router/internal/router"
)

const (
	MsgNotFound       = "not found"
	MsgMapUnsupported = "map rendering is not supported"
)

type BusResponse struct {
	Curvature       float64 `json:"curvature"`
	RequestID       int     `json:"request_id"`
	RouteLength     int     `json:"route_length"`
	StopCount       int     `json:"stop_count"`
	UniqueStopCount int     `json:"unique_stop_count"`
}

type StopResponse struct {
	Buses     []string `json:"buses"`
	RequestID int      `json:"request_id"`
}

type RouteItem struct {
	Type      string  `json:"type"`
	StopName  string  `json:"stop_name,omitempty"`
	Bus       string  `json:"bus,omitempty"`
	SpanCount int     `json:"span_count,omitempty"`
	Time      float64 `json:"time"`
}

type RouteResponse struct {
	Items     []RouteItem `json:"items"`
	RequestID int         `json:"request_id"`
	TotalTime float64     `json:"total_time"`
}

type ErrorResponse struct {
	RequestID    int    `json:"request_id"`
	ErrorMessage string `json:"error_message"`
}

// Querier is the read side of transit.Engine.
type Querier interface {
	RouteStats(name string) catalogue.RouteStats
	ServingRoutes(stop string) (bool, []string)
	FindRoute(from, to string) router.Itinerary
}

// Observer receives one call per answered stat request.
type Observer interface {
	ObserveStat(kind string, found bool, d time.Duration)
}

type Handler struct {
	q   Querier
	obs Observer
}

// NewHandler returns a handler answering from q. obs may be nil.
func NewHandler(q Querier, obs Observer) *Handler {
	return &Handler{q: q, obs: obs}
}

// Handle answers one stat request. The result is one of the *Response types.
func (h *Handler) Handle(req StatRequest) any {
	start := time.Now()
	resp, found := h.handle(req)
	if h.obs != nil {
		h.obs.ObserveStat(req.Type, found, time.Since(start))
	}
	return resp
}

// HandleAll answers requests in order.
func (h *Handler) HandleAll(reqs []StatRequest) []any {
	out := make([]any, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, h.Handle(req))
	}
	return out
}

func (h *Handler) handle(req StatRequest) (any, bool) {
	switch req.Type {
	case TypeBus:
		st := h.q.RouteStats(req.Name)
		if !st.Found {
			return notFound(req.ID), false
		}
		return BusResponse{
			Curvature:       st.Curvature,
			RequestID:       req.ID,
			RouteLength:     st.RouteLength,
			StopCount:       st.StopsOnRoute,
			UniqueStopCount: st.UniqueStops,
		}, true
	case TypeStop:
		ok, buses := h.q.ServingRoutes(req.Name)
		if !ok {
			return notFound(req.ID), false
		}
		if buses == nil {
			buses = []string{}
		}
		return StopResponse{Buses: buses, RequestID: req.ID}, true
	case TypeRoute:
		it := h.q.FindRoute(req.From, req.To)
		if !it.Found {
			return notFound(req.ID), false
		}
		items := make([]RouteItem, 0, len(it.Steps))
		for _, s := range it.Steps {
			switch s.Kind {
			case router.WaitStep:
				items = append(items, RouteItem{Type: s.Kind.String(), StopName: s.Stop, Time: s.Time})
			case router.BusStep:
				items = append(items, RouteItem{Type: s.Kind.String(), Bus: s.Route, SpanCount: s.SpanCount, Time: s.Time})
			}
		}
		return RouteResponse{Items: items, RequestID: req.ID, TotalTime: it.TotalTime}, true
	case TypeMap:
		return ErrorResponse{RequestID: req.ID, ErrorMessage: MsgMapUnsupported}, false
	}
	return notFound(req.ID), false
}

func notFound(id int) ErrorResponse {
	return ErrorResponse{RequestID: id, ErrorMessage: MsgNotFound}
}
