package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/store"
)

// PostgresOptions configures the PostgreSQL backend.
type PostgresOptions struct {
	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32

	// DialTimeout bounds pool creation and the initial ping.
	DialTimeout time.Duration

	// Schema, when set, is created if missing and used as search_path.
	// Tests use it to isolate runs against a shared server.
	Schema string
}

// Postgres stores batches and sessions in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Postgres)(nil)

// postgresSchema is applied statement by statement at open.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		document_id TEXT PRIMARY KEY,
		redactions JSONB NOT NULL,
		timestamp DOUBLE PRECISION NOT NULL,
		count INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		blob_key TEXT NOT NULL,
		digest TEXT NOT NULL,
		size BIGINT NOT NULL,
		paragraphs INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
}

// OpenPostgres connects to dsn, verifies the connection and creates the
// tables if needed.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*Postgres, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		pc.MaxConns = opts.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "docredact"
	if opts.Schema != "" {
		pc.ConnConfig.RuntimeParams["search_path"] = opts.Schema
	}

	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}

	statements := postgresSchema
	if opts.Schema != "" {
		statements = append([]string{`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{opts.Schema}.Sanitize()}, statements...)
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return p, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Save implements store.Store with an upsert.
func (p *Postgres) Save(ctx context.Context, documentID string, batch model.Batch) error {
	batch = store.Normalize(documentID, batch)

	redactions, err := json.Marshal(batch.Redactions)
	if err != nil {
		return fmt.Errorf("failed to serialize redactions: %w", err)
	}

	query := `
	INSERT INTO batches (document_id, redactions, timestamp, count, updated_at)
	VALUES ($1, $2::jsonb, $3, $4, now())
	ON CONFLICT (document_id) DO UPDATE SET
		redactions = EXCLUDED.redactions,
		timestamp = EXCLUDED.timestamp,
		count = EXCLUDED.count,
		updated_at = now()
	`

	if _, err := p.pool.Exec(ctx, query, documentID, string(redactions), batch.Timestamp, batch.Count); err != nil {
		return fmt.Errorf("%w: failed to save batch: %w", model.ErrIOFailure, err)
	}
	return nil
}

// Load implements store.Store.
func (p *Postgres) Load(ctx context.Context, documentID string) (model.Batch, error) {
	var (
		redactions []byte
		timestamp  float64
	)
	err := p.pool.QueryRow(ctx,
		`SELECT redactions::text, timestamp FROM batches WHERE document_id = $1`,
		documentID,
	).Scan(&redactions, &timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Empty(documentID), nil
	}
	if err != nil {
		return model.Batch{}, fmt.Errorf("%w: failed to load batch: %w", model.ErrIOFailure, err)
	}

	return decodeBatch(documentID, redactions, timestamp)
}

// Clear implements store.Store.
func (p *Postgres) Clear(ctx context.Context, documentID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM batches WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: failed to clear batch: %w", model.ErrIOFailure, err)
	}
	return nil
}

// CreateSession implements store.SessionStore.
func (p *Postgres) CreateSession(ctx context.Context, session *model.Session) error {
	var expires *time.Time
	if !session.ExpiresAt.IsZero() {
		t := session.ExpiresAt.UTC()
		expires = &t
	}

	_, err := p.pool.Exec(ctx, `
	INSERT INTO sessions (id, original_name, blob_key, digest, size, paragraphs, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID,
		session.OriginalName,
		session.BlobKey,
		session.Digest,
		session.Size,
		session.Paragraphs,
		session.CreatedAt.UTC(),
		expires,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create session: %w", model.ErrIOFailure, err)
	}
	return nil
}

// GetSession implements store.SessionStore.
func (p *Postgres) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)

	session, err := scanPostgresSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get session: %w", model.ErrIOFailure, err)
	}
	return session, nil
}

// ListSessions implements store.SessionStore.
func (p *Postgres) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return p.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at, id`)
}

// ExpiredSessions implements store.SessionStore.
func (p *Postgres) ExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	return p.querySessions(ctx, `
	SELECT `+sessionColumns+` FROM sessions
	WHERE expires_at IS NOT NULL AND expires_at <= $1
	ORDER BY created_at, id
	`, now.UTC())
}

// DeleteSession implements store.SessionStore.
func (p *Postgres) DeleteSession(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM batches WHERE document_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete session: %w", model.ErrIOFailure, err)
	}
	return nil
}

func (p *Postgres) querySessions(ctx context.Context, query string, args ...any) ([]*model.Session, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sessions: %w", model.ErrIOFailure, err)
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		session, err := scanPostgresSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan session: %w", model.ErrIOFailure, err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate sessions: %w", model.ErrIOFailure, err)
	}

	return sessions, nil
}

func scanPostgresSession(row pgx.Row) (*model.Session, error) {
	var (
		session model.Session
		expires *time.Time
	)
	err := row.Scan(
		&session.ID,
		&session.OriginalName,
		&session.BlobKey,
		&session.Digest,
		&session.Size,
		&session.Paragraphs,
		&session.CreatedAt,
		&expires,
	)
	if err != nil {
		return nil, err
	}
	if expires != nil {
		session.ExpiresAt = *expires
	}
	return &session, nil
}
