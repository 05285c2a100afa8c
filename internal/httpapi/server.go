// Package httpapi exposes stat requests over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"transit-router/internal/requests"
)

// StatHandler answers stat requests; *requests.Handler satisfies it.
type StatHandler interface {
	Handle(req requests.StatRequest) any
	HandleAll(reqs []requests.StatRequest) []any
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Options struct {
	AllowedOrigins []string
	Metrics        http.Handler // mounted at /metrics when set
}

// NewRouter builds the chi router serving the stat API.
func NewRouter(h StatHandler, opts Options) http.Handler {
	r := chi.NewRouter()
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	api := &statAPI{h: h}
	r.Get("/api/bus", api.getBus)
	r.Get("/api/stop", api.getStop)
	r.Get("/api/route", api.getRoute)
	r.Post("/api/stat_requests", api.postStatRequests)
	return r
}

type statAPI struct {
	h StatHandler
}

// getBus handles GET /api/bus?name=
func (a *statAPI) getBus(w http.ResponseWriter, r *http.Request) {
	a.single(w, r, requests.StatRequest{Type: requests.TypeBus, Name: r.URL.Query().Get("name")}, "name")
}

// getStop handles GET /api/stop?name=
func (a *statAPI) getStop(w http.ResponseWriter, r *http.Request) {
	a.single(w, r, requests.StatRequest{Type: requests.TypeStop, Name: r.URL.Query().Get("name")}, "name")
}

// getRoute handles GET /api/route?from=&to=
func (a *statAPI) getRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a.single(w, r, requests.StatRequest{Type: requests.TypeRoute, From: q.Get("from"), To: q.Get("to")}, "from", "to")
}

func (a *statAPI) single(w http.ResponseWriter, r *http.Request, req requests.StatRequest, required ...string) {
	q := r.URL.Query()
	for _, p := range required {
		if q.Get(p) == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing query parameter " + p})
			return
		}
	}
	if v := q.Get("id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "id must be an integer"})
			return
		}
		req.ID = id
	}
	writeJSON(w, http.StatusOK, a.h.Handle(req))
}

// postStatRequests handles POST /api/stat_requests with a JSON array body.
func (a *statAPI) postStatRequests(w http.ResponseWriter, r *http.Request) {
	var reqs []requests.StatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&reqs); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	for _, req := range reqs {
		if err := requests.ValidateStat(req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, a.h.HandleAll(reqs))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
