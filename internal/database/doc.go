// Package database provides the persistent store.Backend implementations
// for docredact: SQLite for single-host use and PostgreSQL for deployments
// where several API servers share state.
//
// Both backends keep two tables:
//   - batches: the pending redaction batch of each document, one row per ID
//   - sessions: uploaded documents waiting for their batch to be applied
//
// PostgreSQL is reached through a pgx connection pool and is selected with
// store.driver: postgres.
package database
