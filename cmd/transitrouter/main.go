package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transit-router/internal/config"
	"transit-router/internal/db"
	"transit-router/internal/httpapi"
	"transit-router/internal/metrics"
	"transit-router/internal/natsrpc"
	"transit-router/internal/requests"
	"transit-router/internal/snapshot"
	"transit-router/internal/transit"
)

const usage = `usage: transitrouter <mode> [flags]

modes:
  build                 read a build document on stdin and save the snapshot
  serve                 read a serve document on stdin and print the answers
  listen -snapshot NAME serve stat requests over HTTP and NATS
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	mode, args := os.Args[1], os.Args[2:]
	if mode != "build" && mode != "serve" && mode != "listen" {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n\n%s", mode, usage)
		os.Exit(1)
	}

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("snapshot store error: %v", err)
	}
	defer closeStore()

	switch mode {
	case "build":
		err = runBuild(ctx, store, os.Stdin)
	case "serve":
		err = runServe(ctx, store, os.Stdin, os.Stdout)
	case "listen":
		fs := flag.NewFlagSet("listen", flag.ContinueOnError)
		name := fs.String("snapshot", "", "name of the snapshot to serve")
		if err := fs.Parse(args); err != nil || *name == "" {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(1)
		}
		err = runListen(ctx, cfg, store, *name)
	}
	if err != nil {
		log.Fatalf("%s: %v", mode, err)
	}
}

// openStore returns the configured snapshot store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (snapshot.Store, func(), error) {
	if cfg.SnapshotBackend != config.BackendPostgres {
		return snapshot.FileStore{Dir: cfg.SnapshotDir}, func() {}, nil
	}
	dsn := cfg.DatabaseURL
	if cfg.SnapshotDatabase != "" {
		var err error
		dsn, err = db.WithDBName(dsn, cfg.SnapshotDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("compose DSN: %w", err)
		}
		log.Printf("Using database %q for snapshots", cfg.SnapshotDatabase)
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	store := db.NewSnapshotStore(sqlDB)
	if err := store.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return store, func() { sqlDB.Close() }, nil
}

func runBuild(ctx context.Context, store snapshot.Store, in io.Reader) error {
	doc, err := requests.Decode(in)
	if err != nil {
		return err
	}
	input, err := doc.Input()
	if err != nil {
		return err
	}
	engine, err := transit.Build(input)
	if err != nil {
		return err
	}
	return engine.Save(ctx, store, doc.SnapshotName())
}

func runServe(ctx context.Context, store snapshot.Store, in io.Reader, out io.Writer) error {
	doc, err := requests.Decode(in)
	if err != nil {
		return err
	}
	engine, err := transit.Open(ctx, store, doc.SnapshotName())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(requests.NewHandler(engine, nil).HandleAll(doc.StatRequests))
}

func runListen(ctx context.Context, cfg *config.Config, store snapshot.Store, name string) error {
	if cfg.HTTPAddr == "" && cfg.NATSURL == "" {
		return errors.New("nothing to listen on: set HTTP_ADDR or NATS_URL")
	}

	start := time.Now()
	engine, err := transit.Open(ctx, store, name)
	if err != nil {
		return err
	}
	mcol := metrics.NewCollector()
	settings := engine.Settings()
	mcol.SetGraph(engine.VertexCount(), engine.EdgeCount(), settings.WaitTime, settings.Velocity, time.Since(start))
	handler := requests.NewHandler(engine, mcol)

	var servers []*http.Server
	if cfg.MetricsAddr != "" {
		servers = append(servers, mcol.Serve(cfg.MetricsAddr))
	}
	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewRouter(handler, httpapi.Options{AllowedOrigins: cfg.AllowedOrigins, Metrics: mcol.Handler()}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		log.Printf("http listening on %s", cfg.HTTPAddr)
		servers = append(servers, srv)
	}

	if cfg.NATSURL != "" {
		m := wrapResponderMetrics(mcol)
		nc, err := natsrpc.Connect(cfg.NATSURL, m)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nc.Close()
		resp, err := natsrpc.NewResponder(nc, cfg.NATSSubject, handler, cfg.LogNATSRequests, m)
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer resp.Close()
	}

	// Block until context cancelled
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Println("shutdown complete")
	return nil
}

// wrapResponderMetrics adapts our Collector to the ResponderMetrics interface.
func wrapResponderMetrics(c *metrics.Collector) natsrpc.ResponderMetrics {
	if c == nil {
		return nil
	}
	return &natsMetrics{c: c}
}

type natsMetrics struct{ c *metrics.Collector }

func (n *natsMetrics) NATSRequestInc()              { n.c.NATSRequests.Inc() }
func (n *natsMetrics) NATSReplyErrInc()             { n.c.NATSReplyErrs.Inc() }
func (n *natsMetrics) ReplyObserve(d time.Duration) { n.c.ReplyDuration.Observe(d.Seconds()) }
func (n *natsMetrics) NATSSetConnected(b bool) {
	if b {
		n.c.NATSConnected.Set(1)
	} else {
		n.c.NATSConnected.Set(0)
	}
}
