// Package requests reads the JSON request documents accepted by the build and
// serve steps and answers stat requests against an engine.
package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"transit-router/internal/geo"
	"transit-router/internal/router"
	"transit-router/internal/transit"
)

const (
	TypeStop  = "Stop"
	TypeBus   = "Bus"
	TypeRoute = "Route"
	TypeMap   = "Map"
)

var ErrInvalidDocument = errors.New("invalid request document")

var validate = validator.New()

// Document is the top-level JSON object. Build documents carry base_requests
// and routing_settings; serve documents carry stat_requests. Both name the
// snapshot in serialization_settings.
type Document struct {
	BaseRequests          []BaseRequest          `json:"base_requests" validate:"dive"`
	RoutingSettings       *RoutingSettings       `json:"routing_settings"`
	RenderSettings        json.RawMessage        `json:"render_settings,omitempty"`
	SerializationSettings *SerializationSettings `json:"serialization_settings" validate:"required"`
	StatRequests          []StatRequest          `json:"stat_requests" validate:"dive"`
}

type BaseRequest struct {
	Type          string         `json:"type" validate:"required,oneof=Stop Bus"`
	Name          string         `json:"name" validate:"required"`
	Latitude      float64        `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64        `json:"longitude" validate:"gte=-180,lte=180"`
	RoadDistances map[string]int `json:"road_distances,omitempty" validate:"dive,gte=0"`
	Stops         []string       `json:"stops,omitempty"`
	IsRoundtrip   bool           `json:"is_roundtrip,omitempty"`
}

type RoutingSettings struct {
	BusWaitTime int     `json:"bus_wait_time" validate:"gte=1,lte=1000"`
	BusVelocity float64 `json:"bus_velocity" validate:"gte=1,lte=1000"`
}

type SerializationSettings struct {
	File string `json:"file" validate:"required"`
}

type StatRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type" validate:"required,oneof=Bus Stop Route Map"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Decode reads one document from r and checks it field by field.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// ValidateStat checks a single stat request, as received over HTTP or NATS.
func ValidateStat(req StatRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// Input converts the base requests into build input, keeping document order.
func (d *Document) Input() (transit.Input, error) {
	if d.RoutingSettings == nil {
		return transit.Input{}, fmt.Errorf("%w: routing_settings is required to build", ErrInvalidDocument)
	}
	if err := validate.Struct(d.RoutingSettings); err != nil {
		return transit.Input{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	in := transit.Input{
		Routing: router.Settings{
			WaitTime: d.RoutingSettings.BusWaitTime,
			Velocity: d.RoutingSettings.BusVelocity,
		},
	}
	for _, req := range d.BaseRequests {
		switch req.Type {
		case TypeStop:
			in.Stops = append(in.Stops, transit.StopInput{
				Name:          req.Name,
				Coords:        geo.Coordinates{Lat: req.Latitude, Lng: req.Longitude},
				RoadDistances: req.RoadDistances,
			})
		case TypeBus:
			in.Routes = append(in.Routes, transit.RouteInput{
				Name:        req.Name,
				Stops:       req.Stops,
				IsRoundtrip: req.IsRoundtrip,
			})
		}
	}
	return in, nil
}

// SnapshotName returns serialization_settings.file.
func (d *Document) SnapshotName() string {
	if d.SerializationSettings == nil {
		return ""
	}
	return d.SerializationSettings.File
}
