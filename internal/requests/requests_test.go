package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"transit-router/internal/catalogue"
	"transit-router/internal/router"
	"transit-router/internal/snapshot"
	"transit-router/internal/transit"
)

const buildDoc = `{
  "serialization_settings": {"file": "transport.db"},
  "routing_settings": {"bus_wait_time": 6, "bus_velocity": 40},
  "render_settings": {"width": 200, "height": 200},
  "base_requests": [
    {"type": "Bus", "name": "ring", "stops": ["A", "B", "C"], "is_roundtrip": true},
    {"type": "Stop", "name": "A", "latitude": 55.611087, "longitude": 37.20829, "road_distances": {"B": 1000}},
    {"type": "Stop", "name": "B", "latitude": 55.595884, "longitude": 37.209755, "road_distances": {"C": 2000}},
    {"type": "Stop", "name": "C", "latitude": 55.632761, "longitude": 37.333324, "road_distances": {"A": 1500}},
    {"type": "Stop", "name": "D", "latitude": 55.574371, "longitude": 37.6517, "road_distances": {}}
  ]
}`

const serveDoc = `{
  "serialization_settings": {"file": "transport.db"},
  "stat_requests": [
    {"id": 1, "type": "Bus", "name": "ring"},
    {"id": 2, "type": "Stop", "name": "D"},
    {"id": 3, "type": "Stop", "name": "Z"},
    {"id": 4, "type": "Bus", "name": "X"},
    {"id": 5, "type": "Route", "from": "A", "to": "C"},
    {"id": 6, "type": "Route", "from": "C", "to": "B"},
    {"id": 7, "type": "Map"},
    {"id": 8, "type": "Route", "from": "A", "to": "D"},
    {"id": 9, "type": "Route", "from": "A", "to": "A"},
    {"id": 10, "type": "Stop", "name": "A"}
  ]
}`

const wantServe = `[
  {"request_id": 1, "route_length": 4500, "stop_count": 3, "unique_stop_count": 3},
  {"request_id": 2, "buses": []},
  {"request_id": 3, "error_message": "not found"},
  {"request_id": 4, "error_message": "not found"},
  {"request_id": 5, "total_time": 10.5, "items": [
    {"type": "Wait", "stop_name": "A", "time": 6},
    {"type": "Bus", "bus": "ring", "span_count": 2, "time": 4.5}
  ]},
  {"request_id": 6, "total_time": 9.75, "items": [
    {"type": "Wait", "stop_name": "C", "time": 6},
    {"type": "Bus", "bus": "ring", "span_count": 2, "time": 3.75}
  ]},
  {"request_id": 7, "error_message": "map rendering is not supported"},
  {"request_id": 8, "error_message": "not found"},
  {"request_id": 9, "total_time": 0, "items": []},
  {"request_id": 10, "buses": ["ring"]}
]`

func TestBuildThenServe(t *testing.T) {
	ctx := context.Background()
	store := snapshot.FileStore{Dir: t.TempDir()}

	doc, err := Decode(strings.NewReader(buildDoc))
	if err != nil {
		t.Fatalf("Decode build: %v", err)
	}
	in, err := doc.Input()
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	built, err := transit.Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := built.Save(ctx, store, doc.SnapshotName()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	doc, err = Decode(strings.NewReader(serveDoc))
	if err != nil {
		t.Fatalf("Decode serve: %v", err)
	}
	engine, err := transit.Open(ctx, store, doc.SnapshotName())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := json.Marshal(NewHandler(engine, nil).HandleAll(doc.StatRequests))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got, want []map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(wantServe), &want); err != nil {
		t.Fatal(err)
	}

	curvature, ok := got[0]["curvature"].(float64)
	if !ok || curvature != engine.RouteStats("ring").Curvature || curvature <= 0 {
		t.Errorf("curvature = %v, want %v", got[0]["curvature"], engine.RouteStats("ring").Curvature)
	}
	delete(got[0], "curvature")

	if len(got) != len(want) {
		t.Fatalf("got %d responses, want %d:\n%s", len(got), len(want), out)
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("response %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"base_requests": [`},
		{"missing serialization", `{"stat_requests": []}`},
		{"empty file", `{"serialization_settings": {"file": ""}}`},
		{"unknown base type", `{"serialization_settings": {"file": "x"}, "base_requests": [{"type": "Tram", "name": "t"}]}`},
		{"nameless stop", `{"serialization_settings": {"file": "x"}, "base_requests": [{"type": "Stop", "latitude": 1, "longitude": 1}]}`},
		{"latitude out of range", `{"serialization_settings": {"file": "x"}, "base_requests": [{"type": "Stop", "name": "s", "latitude": 91}]}`},
		{"negative road distance", `{"serialization_settings": {"file": "x"}, "base_requests": [{"type": "Stop", "name": "s", "road_distances": {"t": -1}}]}`},
		{"velocity too high", `{"serialization_settings": {"file": "x"}, "routing_settings": {"bus_wait_time": 6, "bus_velocity": 2000}}`},
		{"unknown stat type", `{"serialization_settings": {"file": "x"}, "stat_requests": [{"id": 1, "type": "Tram"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("Decode = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestInputRequiresRoutingSettings(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"serialization_settings": {"file": "x"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := doc.Input(); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("Input = %v, want ErrInvalidDocument", err)
	}
}

func TestValidateStat(t *testing.T) {
	if err := ValidateStat(StatRequest{ID: 1, Type: TypeRoute, From: "A", To: "B"}); err != nil {
		t.Errorf("valid request: %v", err)
	}
	if err := ValidateStat(StatRequest{ID: 1, Type: "bus"}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("lower-case type: err = %v, want ErrInvalidDocument", err)
	}
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) ObserveStat(kind string, found bool, _ time.Duration) {
	result := "miss"
	if found {
		result = "found"
	}
	o.calls = append(o.calls, kind+":"+result)
}

type stubQuerier struct{}

func (stubQuerier) RouteStats(name string) catalogue.RouteStats {
	if name == "1" {
		return catalogue.RouteStats{Found: true, StopsOnRoute: 3, UniqueStops: 2, RouteLength: 700, Curvature: 1.25}
	}
	return catalogue.RouteStats{}
}

func (stubQuerier) ServingRoutes(stop string) (bool, []string) {
	// A registered stop with no routes may come back as nil.
	return stop == "A", nil
}

func (stubQuerier) FindRoute(from, to string) router.Itinerary {
	return router.Itinerary{TotalTime: -1, Steps: []router.Step{}}
}

func TestHandlerObserves(t *testing.T) {
	obs := &recordingObserver{}
	h := NewHandler(stubQuerier{}, obs)
	got := h.HandleAll([]StatRequest{
		{ID: 1, Type: TypeBus, Name: "1"},
		{ID: 2, Type: TypeStop, Name: "A"},
		{ID: 3, Type: TypeRoute, From: "A", To: "B"},
		{ID: 4, Type: TypeMap},
	})

	want := []any{
		BusResponse{Curvature: 1.25, RequestID: 1, RouteLength: 700, StopCount: 3, UniqueStopCount: 2},
		StopResponse{Buses: []string{}, RequestID: 2},
		ErrorResponse{RequestID: 3, ErrorMessage: MsgNotFound},
		ErrorResponse{RequestID: 4, ErrorMessage: MsgMapUnsupported},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HandleAll = %+v, want %+v", got, want)
	}
	wantCalls := []string{"Bus:found", "Stop:found", "Route:miss", "Map:miss"}
	if !reflect.DeepEqual(obs.calls, wantCalls) {
		t.Errorf("observed %v, want %v", obs.calls, wantCalls)
	}

	out, err := json.Marshal(got[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"buses":[]`)) {
		t.Errorf("encoded %s, want an empty buses array", out)
	}
}
