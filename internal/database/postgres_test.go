package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nao1215/docredact/internal/store"
	"github.com/nao1215/docredact/internal/store/storetest"
)

// postgresDSNEnv names the server used by the PostgreSQL tests.
const postgresDSNEnv = "DOCREDACT_TEST_POSTGRES_DSN"

// setupPostgres opens the backend in a throwaway schema that is dropped
// when the test ends.
func setupPostgres(t *testing.T, dsn string) *Postgres {
	t.Helper()

	schema := "docredact_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	ctx := context.Background()

	db, err := OpenPostgres(ctx, dsn, PostgresOptions{
		MaxConns:    4,
		DialTimeout: 10 * time.Second,
		Schema:      schema,
	})
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}

	t.Cleanup(func() {
		_, _ = db.pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
		_ = db.Close()
	})

	return db
}

// TestPostgresBackend runs the shared backend behavior against PostgreSQL.
// It is skipped unless DOCREDACT_TEST_POSTGRES_DSN is set.
func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Backend {
		return setupPostgres(t, dsn)
	})
}

func TestOpenPostgresRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, err := OpenPostgres(context.Background(), "postgres://%zz", PostgresOptions{})
	if err == nil {
		t.Error("expected error for unparsable dsn")
	}
}
