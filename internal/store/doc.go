// Package store defines where pending redaction batches and document
// sessions live between the mark and apply steps.
//
// Store is the minimal contract the redaction engine needs: one outstanding
// batch per document ID, where Load returns the most recent Save. SessionStore
// adds the lifecycle of uploaded documents. Memory implements both in process;
// the database package provides SQLite and PostgreSQL implementations.
package store
