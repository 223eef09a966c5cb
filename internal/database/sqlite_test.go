package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/store"
	"github.com/nao1215/docredact/internal/store/storetest"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *SQLite {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DatabaseFile)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DatabaseFile) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopening keeps stored data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		batch := model.NewBatch("doc", []model.RedactionRequest{{ParagraphID: 1, StartPos: 2, EndPos: 3}}, time.Unix(1700000000, 0))
		if err := db.Save(ctx, "doc", batch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.Load(ctx, "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Count != 1 || got.Redactions[0] != batch.Redactions[0] {
			t.Errorf("unexpected batch after reopen: %+v", got)
		}
	})
}

func busyTimeoutOf(t *testing.T, db *SQLite) int64 {
	t.Helper()

	var ms int64
	if err := db.db.QueryRowContext(context.Background(), "PRAGMA busy_timeout").Scan(&ms); err != nil {
		t.Fatalf("failed to read busy_timeout: %v", err)
	}
	return ms
}

// TestBusyTimeout tests that connections wait for locks held elsewhere.
func TestBusyTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want int64
	}{
		{name: "default options", opts: DefaultOptions(), want: DefaultBusyTimeout.Milliseconds()},
		{name: "custom timeout", opts: Options{CreateIfNotExists: true, BusyTimeout: 1500 * time.Millisecond}, want: 1500},
		{name: "disabled", opts: Options{CreateIfNotExists: true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, err := Open(t.TempDir(), tt.opts)
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()

			if got := busyTimeoutOf(t, db); got != tt.want {
				t.Errorf("expected busy_timeout %d, got %d", tt.want, got)
			}
		})
	}

	t.Run("backend uses the io timeout", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DataDir = t.TempDir()
		cfg.IOTimeout = 7 * time.Second

		b, err := OpenBackend(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()

		db, ok := b.(*SQLite)
		if !ok {
			t.Fatalf("expected *SQLite, got %T", b)
		}
		if got := busyTimeoutOf(t, db); got != 7000 {
			t.Errorf("expected busy_timeout 7000, got %d", got)
		}
	})

	t.Run("writer waits for another connection", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		holder, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer holder.Close()
		waiter, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer waiter.Close()

		tx, err := holder.db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM batches"); err != nil {
			_ = tx.Rollback()
			t.Fatalf("failed to take the write lock: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			batch := model.NewBatch("doc", nil, time.Unix(1700000000, 0))
			done <- waiter.Save(ctx, "doc", batch)
		}()

		time.Sleep(200 * time.Millisecond)
		if err := tx.Commit(); err != nil {
			t.Fatalf("failed to commit: %v", err)
		}

		if err := <-done; err != nil {
			t.Errorf("expected the write to wait for the lock, got %v", err)
		}
	})
}

// TestSQLiteBackend runs the shared backend behavior against SQLite.
func TestSQLiteBackend(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Backend {
		return setupTestDB(t)
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, time.May, 1, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		in   string
	}{
		{name: "fixed-width layout", in: "2024-05-01T12:30:45.000000000Z"},
		{name: "SQLite default", in: "2024-05-01 12:30:45"},
		{name: "ISO 8601 with Z", in: "2024-05-01T12:30:45Z"},
		{name: "RFC3339 with offset", in: "2024-05-01T14:30:45+02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.in); !got.Equal(want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}

	t.Run("garbage yields zero time", func(t *testing.T) {
		t.Parallel()

		if got := parseTimestamp("yesterday"); !got.IsZero() {
			t.Errorf("expected zero time, got %v", got)
		}
	})
}

func TestFormatTimestampSortsAsString(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	earlier := formatTimestamp(base)
	later := formatTimestamp(base.Add(500 * time.Millisecond))
	if earlier >= later {
		t.Errorf("expected %q < %q", earlier, later)
	}

	local := time.Date(2024, time.May, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	if formatTimestamp(local) != earlier {
		t.Errorf("expected zone to be normalized to UTC, got %q", formatTimestamp(local))
	}
}

func TestOpenBackend(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.StoreDriver = config.DriverMemory

		b, err := OpenBackend(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()
		if _, ok := b.(*store.Memory); !ok {
			t.Errorf("expected *store.Memory, got %T", b)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DataDir = t.TempDir()

		b, err := OpenBackend(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()
		if _, ok := b.(*SQLite); !ok {
			t.Errorf("expected *SQLite, got %T", b)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.StoreDriver = "mysql"

		if _, err := OpenBackend(context.Background(), cfg); err == nil {
			t.Error("expected error for unknown driver")
		}
	})
}
