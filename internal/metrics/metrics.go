package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	StatRequests *prometheus.CounterVec   // labels: type, result (found|not_found)
	StatDuration *prometheus.HistogramVec // label: type

	GraphVertices prometheus.Gauge
	GraphEdges    prometheus.Gauge
	SnapshotLoad  prometheus.Gauge // seconds

	NATSRequests  prometheus.Counter
	NATSReplyErrs prometheus.Counter
	NATSConnected prometheus.Gauge
	ReplyDuration prometheus.Histogram

	WaitTime prometheus.Gauge // minutes
	Velocity prometheus.Gauge // km/h
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		StatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_stat_requests_total",
			Help: "Stat requests answered, by type and result.",
		}, []string{"type", "result"}),
		StatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_stat_duration_seconds",
			Help:    "Time to answer a stat request.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18),
		}, []string{"type"}),
		GraphVertices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_graph_vertices",
			Help: "Vertices in the loaded routing graph.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_graph_edges",
			Help: "Edges in the loaded routing graph.",
		}),
		SnapshotLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_snapshot_load_seconds",
			Help: "Time spent loading and importing the snapshot.",
		}),
		NATSRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_nats_requests_total",
			Help: "Total NATS requests received.",
		}),
		NATSReplyErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_nats_reply_errors_total",
			Help: "Total NATS replies that could not be sent.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		ReplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_nats_reply_duration_seconds",
			Help:    "Duration to decode, answer and reply to a NATS request.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		WaitTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_routing_wait_time_minutes",
			Help: "Configured bus wait time.",
		}),
		Velocity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_routing_velocity_kmh",
			Help: "Configured bus velocity.",
		}),
	}

	reg.MustRegister(
		c.StatRequests, c.StatDuration,
		c.GraphVertices, c.GraphEdges, c.SnapshotLoad,
		c.NATSRequests, c.NATSReplyErrs, c.NATSConnected, c.ReplyDuration,
		c.WaitTime, c.Velocity,
	)
	return c
}

// ObserveStat records one answered stat request.
func (c *Collector) ObserveStat(kind string, found bool, d time.Duration) {
	result := "not_found"
	if found {
		result = "found"
	}
	c.StatRequests.WithLabelValues(kind, result).Inc()
	c.StatDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetGraph publishes the size and settings of the loaded graph.
func (c *Collector) SetGraph(vertices, edges, waitTime int, velocity float64, load time.Duration) {
	c.GraphVertices.Set(float64(vertices))
	c.GraphEdges.Set(float64(edges))
	c.WaitTime.Set(float64(waitTime))
	c.Velocity.Set(velocity)
	c.SnapshotLoad.Set(load.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
