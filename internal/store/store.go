package store

import (
	"context"
	"time"

	"github.com/nao1215/docredact/internal/model"
)

// Store persists the pending redaction batch of each document.
//
// Implementations must be safe for concurrent use. Backend failures are
// wrapped with model.ErrIOFailure.
type Store interface {
	// Save replaces the pending batch of documentID.
	Save(ctx context.Context, documentID string, batch model.Batch) error

	// Load returns the pending batch of documentID, or an empty batch when
	// none has been saved.
	Load(ctx context.Context, documentID string) (model.Batch, error)

	// Clear removes the pending batch. Clearing a missing batch is not an error.
	Clear(ctx context.Context, documentID string) error
}

// SessionStore persists uploaded document sessions.
type SessionStore interface {
	// CreateSession stores a new session. The ID must be unique.
	CreateSession(ctx context.Context, session *model.Session) error

	// GetSession returns the session or an error wrapping model.ErrNotFound.
	GetSession(ctx context.Context, id string) (*model.Session, error)

	// ListSessions returns every session, oldest first.
	ListSessions(ctx context.Context) ([]*model.Session, error)

	// DeleteSession removes the session and its pending batch.
	// Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// ExpiredSessions returns the sessions expired at now, oldest first.
	ExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error)
}

// Backend is a complete persistence backend.
type Backend interface {
	Store
	SessionStore

	// Close releases the backend's resources.
	Close() error
}

// Normalize prepares a batch for storage: the document ID is forced to
// documentID, Count is recomputed and a nil request list becomes empty.
func Normalize(documentID string, batch model.Batch) model.Batch {
	batch.DocumentID = documentID
	if batch.Redactions == nil {
		batch.Redactions = []model.RedactionRequest{}
	}
	batch.Count = len(batch.Redactions)
	return batch
}

// Empty returns the batch Load reports when nothing is pending.
func Empty(documentID string) model.Batch {
	return model.Batch{DocumentID: documentID, Redactions: []model.RedactionRequest{}}
}
