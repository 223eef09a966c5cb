package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/docredact/internal/model"
)

// Memory is an in-process Backend. Nothing survives the process; it serves
// one-shot CLI runs and tests.
type Memory struct {
	mu       sync.RWMutex
	batches  map[string]model.Batch
	sessions map[string]model.Session
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		batches:  map[string]model.Batch{},
		sessions: map[string]model.Session{},
	}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, documentID string, batch model.Batch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}
	batch = Normalize(documentID, batch)
	batch.Redactions = slices.Clone(batch.Redactions)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[documentID] = batch
	return nil
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, documentID string) (model.Batch, error) {
	if err := ctx.Err(); err != nil {
		return model.Batch{}, fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[documentID]
	if !ok {
		return Empty(documentID), nil
	}
	batch.Redactions = slices.Clone(batch.Redactions)
	return batch, nil
}

// Clear implements Store.
func (m *Memory) Clear(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, documentID)
	return nil
}

// CreateSession implements SessionStore.
func (m *Memory) CreateSession(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", model.ErrIOFailure, session.ID)
	}
	m.sessions[session.ID] = *session
	return nil
}

// GetSession implements SessionStore.
func (m *Memory) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return &s, nil
}

// ListSessions implements SessionStore.
func (m *Memory) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return m.filter(ctx, func(*model.Session) bool { return true })
}

// ExpiredSessions implements SessionStore.
func (m *Memory) ExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	return m.filter(ctx, func(s *model.Session) bool { return s.Expired(now) })
}

// DeleteSession implements SessionStore.
func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.batches, id)
	return nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) filter(ctx context.Context, keep func(*model.Session) bool) ([]*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*model.Session{}
	for _, s := range m.sessions {
		if keep(&s) {
			out = append(out, &s)
		}
	}
	SortSessions(out)
	return out, nil
}

// SortSessions orders sessions by creation time, then ID.
func SortSessions(sessions []*model.Session) {
	slices.SortFunc(sessions, func(a, b *model.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
