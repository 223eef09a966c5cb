package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/pipeline"
	"github.com/nao1215/docredact/internal/storage"
)

// ErrNoBackend is returned by session operations on an engine created
// without a store or blob directory.
var ErrNoBackend = errors.New("engine has no session backend")

// Registration is the outcome of Register.
type Registration struct {
	Session    *model.Session
	Paragraphs []model.Paragraph
}

func (e *Engine) sessionsEnabled() error {
	if e.backend == nil || e.blobs == nil {
		return ErrNoBackend
	}
	return nil
}

// Register extracts an uploaded package, stores the original and creates
// its session. Packages that cannot be extracted are not stored.
func (e *Engine) Register(ctx context.Context, name string, data []byte) (*Registration, error) {
	if err := e.sessionsEnabled(); err != nil {
		return nil, err
	}

	paragraphs, err := e.Extract(data)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	session := &model.Session{
		ID:           uuid.NewString(),
		OriginalName: name,
		BlobKey:      storage.NewKey(name, now),
		Digest:       pipeline.Digest(data),
		Size:         int64(len(data)),
		Paragraphs:   len(paragraphs),
		CreatedAt:    now,
	}
	if e.sessionTTL > 0 {
		session.ExpiresAt = now.Add(e.sessionTTL)
	}

	if err := e.blobs.Put(ctx, session.BlobKey, data); err != nil {
		return nil, fmt.Errorf("failed to store original: %w", err)
	}
	if err := e.backend.CreateSession(ctx, session); err != nil {
		e.removeBlob(ctx, session)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	e.logger.Info("document registered",
		"document", session.ID,
		"size", session.Size,
		"paragraphs", session.Paragraphs,
	)
	return &Registration{Session: session, Paragraphs: paragraphs}, nil
}

// Session returns a live session. Expired sessions are reported as not found.
func (e *Engine) Session(ctx context.Context, documentID string) (*model.Session, error) {
	if err := e.sessionsEnabled(); err != nil {
		return nil, err
	}

	session, err := e.backend.GetSession(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if session.Expired(e.now()) {
		return nil, fmt.Errorf("%w: session %s expired", model.ErrNotFound, documentID)
	}
	return session, nil
}

// Mark replaces the pending batch of a registered document.
// Offsets are checked only when the batch is applied.
func (e *Engine) Mark(ctx context.Context, documentID string, requests []model.RedactionRequest) (model.Batch, error) {
	var batch model.Batch
	err := e.locks.With(documentID, func() error {
		if _, err := e.Session(ctx, documentID); err != nil {
			return err
		}

		batch = model.NewBatch(documentID, requests, e.now())
		if err := e.backend.Save(ctx, documentID, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Batch{}, err
	}

	e.logger.Info("redactions marked", "document", documentID, "count", batch.Count)
	return batch, nil
}

// Append adds requests to the pending batch of a registered document.
// Loading and saving happen under the document lock, so concurrent appends
// never drop each other's requests.
func (e *Engine) Append(ctx context.Context, documentID string, requests []model.RedactionRequest) (model.Batch, error) {
	var batch model.Batch
	err := e.locks.With(documentID, func() error {
		if _, err := e.Session(ctx, documentID); err != nil {
			return err
		}

		pending, err := e.backend.Load(ctx, documentID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		batch = model.NewBatch(documentID, slices.Concat(pending.Redactions, requests), e.now())
		if err := e.backend.Save(ctx, documentID, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Batch{}, err
	}

	e.logger.Info("redactions appended", "document", documentID, "added", len(requests), "count", batch.Count)
	return batch, nil
}

// Pending returns the pending batch of a registered document.
func (e *Engine) Pending(ctx context.Context, documentID string) (model.Batch, error) {
	if _, err := e.Session(ctx, documentID); err != nil {
		return model.Batch{}, err
	}
	return e.backend.Load(ctx, documentID)
}

// Applied is the outcome of Apply.
type Applied struct {
	Session *model.Session
	Result  *model.Result
}

// Apply runs the pending batch against the stored original.
//
// Apply never removes the session: the caller publishes the output and then
// calls Consume, or uses Publish to do both under one lock. On failure the
// returned Applied still carries the failed result when the pipeline ran.
func (e *Engine) Apply(ctx context.Context, documentID string) (*Applied, error) {
	var applied *Applied
	err := e.locks.With(documentID, func() error {
		var err error
		applied, err = e.apply(ctx, documentID)
		return err
	})
	return applied, err
}

// Publish applies the pending batch, hands the result to publish and
// consumes the session once publish succeeds. The document stays locked
// throughout, so no mark can slip in between applying and consuming.
// When publish fails the session, batch and original are kept for a retry.
func (e *Engine) Publish(ctx context.Context, documentID string, publish func(*Applied) error) (*Applied, error) {
	var applied *Applied
	err := e.locks.With(documentID, func() error {
		var err error
		applied, err = e.apply(ctx, documentID)
		if err != nil {
			return err
		}
		if err := publish(applied); err != nil {
			return err
		}
		e.consume(context.WithoutCancel(ctx), applied.Session)
		return nil
	})
	return applied, err
}

// Consume removes a session after its output has been published.
// Cleanup failures are logged; the output already exists.
func (e *Engine) Consume(ctx context.Context, documentID string) error {
	if err := e.sessionsEnabled(); err != nil {
		return err
	}

	return e.locks.With(documentID, func() error {
		session, err := e.backend.GetSession(ctx, documentID)
		if err != nil {
			return err
		}
		e.consume(context.WithoutCancel(ctx), session)
		return nil
	})
}

func (e *Engine) apply(ctx context.Context, documentID string) (*Applied, error) {
	session, err := e.Session(ctx, documentID)
	if err != nil {
		return nil, err
	}

	data, err := e.blobs.Get(ctx, session.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load original: %w", err)
	}
	batch, err := e.backend.Load(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	job := pipeline.NewJob(documentID, data, batch)
	applied := &Applied{Session: session, Result: job.Result}
	return applied, e.pipeline().Execute(ctx, job)
}

func (e *Engine) consume(ctx context.Context, session *model.Session) {
	if err := e.backend.DeleteSession(ctx, session.ID); err != nil {
		e.logger.Warn("failed to delete applied session", "document", session.ID, "error", err)
	}
	e.removeBlob(ctx, session)
	e.logger.Debug("session consumed", "document", session.ID)
}

// Discard removes a session, its batch and its stored original.
func (e *Engine) Discard(ctx context.Context, documentID string) error {
	if err := e.sessionsEnabled(); err != nil {
		return err
	}

	return e.locks.With(documentID, func() error {
		session, err := e.backend.GetSession(ctx, documentID)
		if err != nil {
			return err
		}
		return e.destroy(ctx, session)
	})
}

// Sessions lists every stored session, expired ones included.
func (e *Engine) Sessions(ctx context.Context) ([]*model.Session, error) {
	if err := e.sessionsEnabled(); err != nil {
		return nil, err
	}
	return e.backend.ListSessions(ctx)
}

// Purge destroys every expired session and returns the ones removed.
// It continues past individual failures and reports them joined.
func (e *Engine) Purge(ctx context.Context) ([]*model.Session, error) {
	if err := e.sessionsEnabled(); err != nil {
		return nil, err
	}

	expired, err := e.backend.ExpiredSessions(ctx, e.now())
	if err != nil {
		return nil, err
	}

	var (
		purged []*model.Session
		errs   []error
	)
	for _, s := range expired {
		err := e.locks.With(s.ID, func() error {
			return e.destroy(ctx, s)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		purged = append(purged, s)
	}

	e.logger.Info("sessions purged", "purged", len(purged), "failed", len(errs))
	return purged, errors.Join(errs...)
}

func (e *Engine) destroy(ctx context.Context, session *model.Session) error {
	if err := e.backend.DeleteSession(ctx, session.ID); err != nil {
		return err
	}
	if err := e.blobs.Delete(ctx, session.BlobKey); err != nil {
		return err
	}
	e.logger.Debug("session destroyed", "document", session.ID)
	return nil
}

func (e *Engine) removeBlob(ctx context.Context, session *model.Session) {
	if err := e.blobs.Delete(ctx, session.BlobKey); err != nil {
		e.logger.Warn("failed to delete stored original", "document", session.ID, "error", err)
	}
}
