package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"transit-router/internal/snapshot"
)

func TestWithDBName(t *testing.T) {
	tests := []struct {
		dsn, name, want string
		wantErr         bool
	}{
		{dsn: "postgres://u:p@localhost:5432/postgres?sslmode=disable", name: "routing", want: "postgres://u:p@localhost:5432/routing?sslmode=disable"},
		{dsn: "postgresql://localhost/a", name: "/b", want: "postgresql://localhost/b"},
		{dsn: "u@db:5432/x", name: "y", want: "postgres://u@db:5432/y"},
		{dsn: "", name: "x", wantErr: true},
		{dsn: "postgres://localhost/a", name: " ", wantErr: true},
		{dsn: "mysql://localhost/a", name: "b", wantErr: true},
	}
	for _, tt := range tests {
		got, err := WithDBName(tt.dsn, tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("WithDBName(%q, %q) = %q, want error", tt.dsn, tt.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("WithDBName(%q, %q): %v", tt.dsn, tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("WithDBName(%q, %q) = %q, want %q", tt.dsn, tt.name, got, tt.want)
		}
	}
}

// TestSnapshotStorePostgres runs against a live server when TEST_DATABASE_URL
// is set.
func TestSnapshotStorePostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := Ping(ctx, conn); err != nil {
		t.Fatal(err)
	}
	store := NewSnapshotStore(conn)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	name := "test-" + t.Name()
	if _, err := conn.ExecContext(ctx, `DELETE FROM routing_snapshots WHERE name = $1`, name); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, name); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("Load before save: err = %v, want ErrNotFound", err)
	}
	if err := store.Save(ctx, name, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, name, []byte{4, 5}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string([]byte{4, 5}) {
		t.Errorf("Load = %v, want newest payload [4 5]", got)
	}
}
