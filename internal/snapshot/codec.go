package snapshot

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"transit-router/internal/router"
)

// Field numbers of the wire format. Never renumber; add new fields at the end.
const (
	snapBuildID      protowire.Number = 1
	snapCreatedAt    protowire.Number = 2
	snapStops        protowire.Number = 3
	snapDistances    protowire.Number = 4
	snapRoutes       protowire.Number = 5
	snapRouting      protowire.Number = 6
	snapVertices     protowire.Number = 7
	snapEdges        protowire.Number = 8
	snapEdgeInfos    protowire.Number = 9
	snapNextVertexID protowire.Number = 10

	stopName protowire.Number = 1
	stopLat  protowire.Number = 2
	stopLng  protowire.Number = 3

	distFrom   protowire.Number = 1
	distTo     protowire.Number = 2
	distMeters protowire.Number = 3

	routeName      protowire.Number = 1
	routeStops     protowire.Number = 2
	routeRoundtrip protowire.Number = 3
	routeEdgeIDs   protowire.Number = 4

	routingWaitTime protowire.Number = 1
	routingVelocity protowire.Number = 2

	vertexID   protowire.Number = 1
	vertexKind protowire.Number = 2
	vertexStop protowire.Number = 3

	edgeFrom   protowire.Number = 1
	edgeTo     protowire.Number = 2
	edgeWeight protowire.Number = 3

	infoID        protowire.Number = 1
	infoKind      protowire.Number = 2
	infoSpanCount protowire.Number = 3
	infoTime      protowire.Number = 4
	infoStop      protowire.Number = 5
)

// Marshal encodes the snapshot in protobuf wire format.
func Marshal(s *Snapshot) []byte {
	var b []byte
	b = appendString(b, snapBuildID, s.BuildID)
	b = appendVarint(b, snapCreatedAt, protowire.EncodeZigZag(s.CreatedAt))
	for _, st := range s.Stops {
		var m []byte
		m = appendString(m, stopName, st.Name)
		m = appendDouble(m, stopLat, st.Lat)
		m = appendDouble(m, stopLng, st.Lng)
		b = appendMessage(b, snapStops, m)
	}
	for _, d := range s.Distances {
		var m []byte
		m = appendString(m, distFrom, d.From)
		m = appendString(m, distTo, d.To)
		m = appendVarint(m, distMeters, protowire.EncodeZigZag(int64(d.Meters)))
		b = appendMessage(b, snapDistances, m)
	}
	for _, r := range s.Routes {
		var m []byte
		m = appendString(m, routeName, r.Name)
		for _, st := range r.Stops {
			m = appendString(m, routeStops, st)
		}
		m = appendVarint(m, routeRoundtrip, protowire.EncodeBool(r.IsRoundtrip))
		if len(r.EdgeIDs) > 0 {
			var packed []byte
			for _, id := range r.EdgeIDs {
				packed = protowire.AppendVarint(packed, uint64(id))
			}
			m = appendMessage(m, routeEdgeIDs, packed)
		}
		b = appendMessage(b, snapRoutes, m)
	}
	if s.Routing != nil {
		var m []byte
		m = appendVarint(m, routingWaitTime, protowire.EncodeZigZag(int64(s.Routing.WaitTime)))
		m = appendDouble(m, routingVelocity, s.Routing.Velocity)
		b = appendMessage(b, snapRouting, m)
	}
	for _, v := range s.Vertices {
		var m []byte
		m = appendVarint(m, vertexID, uint64(v.ID))
		m = appendVarint(m, vertexKind, uint64(v.Kind))
		m = appendString(m, vertexStop, v.Stop)
		b = appendMessage(b, snapVertices, m)
	}
	for _, e := range s.Edges {
		var m []byte
		m = appendVarint(m, edgeFrom, uint64(e.From))
		m = appendVarint(m, edgeTo, uint64(e.To))
		m = appendDouble(m, edgeWeight, e.Weight)
		b = appendMessage(b, snapEdges, m)
	}
	for _, info := range s.EdgeInfos {
		var m []byte
		m = appendVarint(m, infoID, uint64(info.ID))
		m = appendVarint(m, infoKind, uint64(info.Kind))
		m = appendVarint(m, infoSpanCount, uint64(info.SpanCount))
		m = appendDouble(m, infoTime, info.Time)
		if info.Stop != "" {
			m = appendString(m, infoStop, info.Stop)
		}
		b = appendMessage(b, snapEdgeInfos, m)
	}
	b = appendVarint(b, snapNextVertexID, uint64(s.NextVertexID))
	return b
}

// Unmarshal decodes a snapshot produced by Marshal. It does not validate the
// result; Import does.
func Unmarshal(data []byte) (*Snapshot, error) {
	s := &Snapshot{}
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case snapBuildID:
			v, n, err := bytesValue(num, typ, b)
			s.BuildID = string(v)
			return n, err
		case snapCreatedAt:
			v, n, err := varintValue(num, typ, b)
			s.CreatedAt = protowire.DecodeZigZag(v)
			return n, err
		case snapStops:
			return decodeMessage(num, typ, b, func(m []byte) error {
				st, err := decodeStop(m)
				s.Stops = append(s.Stops, st)
				return err
			})
		case snapDistances:
			return decodeMessage(num, typ, b, func(m []byte) error {
				d, err := decodeDistance(m)
				s.Distances = append(s.Distances, d)
				return err
			})
		case snapRoutes:
			return decodeMessage(num, typ, b, func(m []byte) error {
				r, err := decodeRoute(m)
				s.Routes = append(s.Routes, r)
				return err
			})
		case snapRouting:
			return decodeMessage(num, typ, b, func(m []byte) error {
				rs, err := decodeRouting(m)
				s.Routing = &rs
				return err
			})
		case snapVertices:
			return decodeMessage(num, typ, b, func(m []byte) error {
				v, err := decodeVertex(m)
				s.Vertices = append(s.Vertices, v)
				return err
			})
		case snapEdges:
			return decodeMessage(num, typ, b, func(m []byte) error {
				e, err := decodeEdge(m)
				s.Edges = append(s.Edges, e)
				return err
			})
		case snapEdgeInfos:
			return decodeMessage(num, typ, b, func(m []byte) error {
				info, err := decodeEdgeInfo(m)
				s.EdgeInfos = append(s.EdgeInfos, info)
				return err
			})
		case snapNextVertexID:
			v, n, err := varintValue(num, typ, b)
			s.NextVertexID = int(v)
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func decodeStop(b []byte) (Stop, error) {
	var st Stop
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case stopName:
			v, n, err := bytesValue(num, typ, b)
			st.Name = string(v)
			return n, err
		case stopLat:
			v, n, err := doubleValue(num, typ, b)
			st.Lat = v
			return n, err
		case stopLng:
			v, n, err := doubleValue(num, typ, b)
			st.Lng = v
			return n, err
		}
		return -1, nil
	})
	return st, err
}

func decodeDistance(b []byte) (Distance, error) {
	var d Distance
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case distFrom:
			v, n, err := bytesValue(num, typ, b)
			d.From = string(v)
			return n, err
		case distTo:
			v, n, err := bytesValue(num, typ, b)
			d.To = string(v)
			return n, err
		case distMeters:
			v, n, err := varintValue(num, typ, b)
			d.Meters = int(protowire.DecodeZigZag(v))
			return n, err
		}
		return -1, nil
	})
	return d, err
}

func decodeRoute(b []byte) (Route, error) {
	var r Route
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case routeName:
			v, n, err := bytesValue(num, typ, b)
			r.Name = string(v)
			return n, err
		case routeStops:
			v, n, err := bytesValue(num, typ, b)
			r.Stops = append(r.Stops, string(v))
			return n, err
		case routeRoundtrip:
			v, n, err := varintValue(num, typ, b)
			r.IsRoundtrip = protowire.DecodeBool(v)
			return n, err
		case routeEdgeIDs:
			if typ == protowire.VarintType {
				v, n, err := varintValue(num, typ, b)
				r.EdgeIDs = append(r.EdgeIDs, int(v))
				return n, err
			}
			packed, n, err := bytesValue(num, typ, b)
			if err != nil {
				return n, err
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, protowire.ParseError(m)
				}
				r.EdgeIDs = append(r.EdgeIDs, int(v))
				packed = packed[m:]
			}
			return n, nil
		}
		return -1, nil
	})
	return r, err
}

func decodeRouting(b []byte) (RoutingSettings, error) {
	var rs RoutingSettings
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case routingWaitTime:
			v, n, err := varintValue(num, typ, b)
			rs.WaitTime = int(protowire.DecodeZigZag(v))
			return n, err
		case routingVelocity:
			v, n, err := doubleValue(num, typ, b)
			rs.Velocity = v
			return n, err
		}
		return -1, nil
	})
	return rs, err
}

func decodeVertex(b []byte) (Vertex, error) {
	var v Vertex
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case vertexID:
			x, n, err := varintValue(num, typ, b)
			v.ID = int(x)
			return n, err
		case vertexKind:
			x, n, err := varintValue(num, typ, b)
			v.Kind = router.VertexKind(x)
			return n, err
		case vertexStop:
			x, n, err := bytesValue(num, typ, b)
			v.Stop = string(x)
			return n, err
		}
		return -1, nil
	})
	return v, err
}

func decodeEdge(b []byte) (Edge, error) {
	var e Edge
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case edgeFrom:
			v, n, err := varintValue(num, typ, b)
			e.From = int(v)
			return n, err
		case edgeTo:
			v, n, err := varintValue(num, typ, b)
			e.To = int(v)
			return n, err
		case edgeWeight:
			v, n, err := doubleValue(num, typ, b)
			e.Weight = v
			return n, err
		}
		return -1, nil
	})
	return e, err
}

func decodeEdgeInfo(b []byte) (EdgeInfo, error) {
	var info EdgeInfo
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case infoID:
			v, n, err := varintValue(num, typ, b)
			info.ID = int(v)
			return n, err
		case infoKind:
			v, n, err := varintValue(num, typ, b)
			info.Kind = router.EdgeKind(v)
			return n, err
		case infoSpanCount:
			v, n, err := varintValue(num, typ, b)
			info.SpanCount = int(v)
			return n, err
		case infoTime:
			v, n, err := doubleValue(num, typ, b)
			info.Time = v
			return n, err
		case infoStop:
			v, n, err := bytesValue(num, typ, b)
			info.Stop = string(v)
			return n, err
		}
		return -1, nil
	})
	return info, err
}

// decodeFields walks the fields of one message. fn returns the number of
// value bytes it consumed, or -1 to have the field skipped.
func decodeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func decodeMessage(num protowire.Number, typ protowire.Type, b []byte, fn func(m []byte) error) (int, error) {
	m, n, err := bytesValue(num, typ, b)
	if err != nil {
		return 0, err
	}
	if err := fn(m); err != nil {
		return 0, fmt.Errorf("field %d: %w", num, err)
	}
	return n, nil
}

func varintValue(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("field %d: wire type %d, want varint", num, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func doubleValue(num protowire.Number, typ protowire.Type, b []byte) (float64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, fmt.Errorf("field %d: wire type %d, want fixed64", num, typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float64frombits(v), n, nil
}

func bytesValue(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("field %d: wire type %d, want bytes", num, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}
