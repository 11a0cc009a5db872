package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "aquarium.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "nested", "aquarium.db")

		db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
		if db.ReadOnly() {
			t.Error("ReadOnly() = true for a writable database")
		}
	})

	t.Run("read-only requires existing file", func(t *testing.T) {
		_, err := Open(context.Background(), Config{
			Path:     filepath.Join(t.TempDir(), "missing.db"),
			ReadOnly: true,
		})
		if err == nil {
			t.Fatal("Open() expected error for missing read-only database")
		}
	})

	t.Run("read-only rejects writes", func(t *testing.T) {
		rw := openTestDB(t)
		ctx := context.Background()
		if _, err := rw.ExecContext(ctx, "CREATE TABLE t (v TEXT)"); err != nil {
			t.Fatalf("create table: %v", err)
		}

		ro, err := Open(ctx, Config{Path: rw.Path(), ReadOnly: true, BusyTimeout: 1})
		if err != nil {
			t.Fatalf("Open(read-only) error = %v", err)
		}
		defer ro.Close() //nolint:errcheck // Test cleanup

		if _, err := ro.ExecContext(ctx, "INSERT INTO t (v) VALUES ('x')"); err == nil {
			t.Error("insert on read-only database succeeded")
		}
		if err := ro.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() on read-only database = %v", err)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	db.Close() //nolint:errcheck // Closing to force failure
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error after Close")
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "wal",
			cfg:  Config{Path: "/var/lib/aquarium.db", WALMode: true, BusyTimeout: 5},
			want: "file:/var/lib/aquarium.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		},
		{
			name: "read-only ignores wal",
			cfg:  Config{Path: "a.db", WALMode: true, ReadOnly: true},
			want: "file:a.db?_busy_timeout=0&_foreign_keys=on&mode=ro",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dsn(tt.cfg); got != tt.want {
				t.Errorf("dsn() = %q, want %q", got, tt.want)
			}
		})
	}
}
