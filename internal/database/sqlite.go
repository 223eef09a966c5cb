package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/store"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "docredact.db"

// SQLite stores batches and sessions in a single SQLite file.
type SQLite struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

var _ store.Backend = (*SQLite)(nil)

// Options configures SQLite behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool

	// BusyTimeout is how long a statement waits for a lock held by another
	// connection or process before failing with SQLITE_BUSY.
	// Zero or less fails immediately.
	BusyTimeout time.Duration
}

// DefaultBusyTimeout is the lock wait used by DefaultOptions.
const DefaultBusyTimeout = 5 * time.Second

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       DefaultBusyTimeout,
	}
}

// Open opens or creates the SQLite database in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*SQLite, error) {
	dbPath := filepath.Join(dbDir, DatabaseFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode in the DSN: rw refuses to
	// create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	// _pragma is applied to every new connection, so a recycled
	// connection keeps waiting on locks held by other processes.
	if opts.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLite{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *SQLite) createTables() error {
	schema := `
	-- One pending batch per document; redactions hold the JSON request list
	CREATE TABLE IF NOT EXISTS batches (
		document_id TEXT PRIMARY KEY,
		redactions TEXT NOT NULL,
		timestamp REAL NOT NULL,
		count INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Uploaded documents; times use a fixed-width UTC layout so that
	-- string comparison orders them
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		blob_key TEXT NOT NULL,
		digest TEXT NOT NULL,
		size INTEGER NOT NULL,
		paragraphs INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Save implements store.Store with an upsert.
func (s *SQLite) Save(ctx context.Context, documentID string, batch model.Batch) error {
	batch = store.Normalize(documentID, batch)

	redactions, err := json.Marshal(batch.Redactions)
	if err != nil {
		return fmt.Errorf("failed to serialize redactions: %w", err)
	}

	query := `
	INSERT INTO batches (document_id, redactions, timestamp, count, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(document_id) DO UPDATE SET
		redactions = excluded.redactions,
		timestamp = excluded.timestamp,
		count = excluded.count,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, documentID, string(redactions), batch.Timestamp, batch.Count); err != nil {
		return fmt.Errorf("%w: failed to save batch: %w", model.ErrIOFailure, err)
	}
	return nil
}

// Load implements store.Store.
func (s *SQLite) Load(ctx context.Context, documentID string) (model.Batch, error) {
	query := `SELECT redactions, timestamp FROM batches WHERE document_id = ?`

	var (
		redactions string
		timestamp  float64
	)
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(&redactions, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Empty(documentID), nil
	}
	if err != nil {
		return model.Batch{}, fmt.Errorf("%w: failed to load batch: %w", model.ErrIOFailure, err)
	}

	return decodeBatch(documentID, []byte(redactions), timestamp)
}

// Clear implements store.Store.
func (s *SQLite) Clear(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("%w: failed to clear batch: %w", model.ErrIOFailure, err)
	}
	return nil
}

// CreateSession implements store.SessionStore.
func (s *SQLite) CreateSession(ctx context.Context, session *model.Session) error {
	query := `
	INSERT INTO sessions (id, original_name, blob_key, digest, size, paragraphs, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var expires sql.NullString
	if !session.ExpiresAt.IsZero() {
		expires = sql.NullString{String: formatTimestamp(session.ExpiresAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.OriginalName,
		session.BlobKey,
		session.Digest,
		session.Size,
		session.Paragraphs,
		formatTimestamp(session.CreatedAt),
		expires,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create session: %w", model.ErrIOFailure, err)
	}
	return nil
}

// GetSession implements store.SessionStore.
func (s *SQLite) GetSession(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	session, err := scanSQLiteSession(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get session: %w", model.ErrIOFailure, err)
	}
	return session, nil
}

// ListSessions implements store.SessionStore.
func (s *SQLite) ListSessions(ctx context.Context) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at, id`
	return s.querySessions(ctx, query)
}

// ExpiredSessions implements store.SessionStore.
func (s *SQLite) ExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	query := `
	SELECT ` + sessionColumns + ` FROM sessions
	WHERE expires_at IS NOT NULL AND expires_at <= ?
	ORDER BY created_at, id
	`
	return s.querySessions(ctx, query, formatTimestamp(now))
}

// DeleteSession implements store.SessionStore. The session and its
// pending batch are removed in one transaction.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrIOFailure, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("%w: failed to delete batch: %w", model.ErrIOFailure, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: failed to delete session: %w", model.ErrIOFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", model.ErrIOFailure, err)
	}
	return nil
}

func (s *SQLite) querySessions(ctx context.Context, query string, args ...any) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sessions: %w", model.ErrIOFailure, err)
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		session, err := scanSQLiteSession(rows)
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

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row rowScanner) (*model.Session, error) {
	var (
		session model.Session
		created string
		expires sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&session.OriginalName,
		&session.BlobKey,
		&session.Digest,
		&session.Size,
		&session.Paragraphs,
		&created,
		&expires,
	)
	if err != nil {
		return nil, err
	}

	session.CreatedAt = parseTimestamp(created)
	if expires.Valid {
		session.ExpiresAt = parseTimestamp(expires.String)
	}
	return &session, nil
}
