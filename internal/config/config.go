package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	SnapshotBackend  string   `yaml:"snapshot_backend" validate:"oneof=file postgres"`
	SnapshotDir      string   `yaml:"snapshot_dir" validate:"required_if=SnapshotBackend file"`
	DatabaseURL      string   `yaml:"database_url" validate:"required_if=SnapshotBackend postgres"`
	SnapshotDatabase string   `yaml:"snapshot_database"`
	NATSURL          string   `yaml:"nats_url" validate:"omitempty,url"`
	NATSSubject      string   `yaml:"nats_subject" validate:"required"`
	HTTPAddr         string   `yaml:"http_addr" validate:"omitempty,hostname_port"`
	MetricsAddr      string   `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	AllowedOrigins   []string `yaml:"cors_allowed_origins"`
	LogNATSRequests  bool     `yaml:"log_nats_requests"`
}

func defaults() Config {
	return Config{
		SnapshotBackend: BackendFile,
		SnapshotDir:     ".",
		NATSSubject:     "transit.stat",
	}
}

// Load reads .env, then the YAML file named by TRANSIT_CONFIG if any, then
// the environment. Later sources override earlier ones.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("TRANSIT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read TRANSIT_CONFIG: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.SnapshotBackend = strings.ToLower(getenvDefault("SNAPSHOT_BACKEND", cfg.SnapshotBackend))
	cfg.SnapshotDir = getenvDefault("SNAPSHOT_DIR", cfg.SnapshotDir)
	cfg.SnapshotDatabase = getenvDefault("SNAPSHOT_DATABASE", cfg.SnapshotDatabase)
	cfg.NATSURL = getenvDefault("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getenvDefault("NATS_SUBJECT", cfg.NATSSubject)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getenvDefault("METRICS_ADDR", cfg.MetricsAddr)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_NATS_REQUESTS"); v != "" {
		cfg.LogNATSRequests = parseBool(v)
	}

	if cfg.SnapshotBackend == BackendPostgres {
		dsn, err := databaseURL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, then the file value, else builds
// a DSN from PG* vars.
func databaseURL(fromFile string) (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN"), fromFile); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set for the postgres snapshot backend")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
