// Package storetest holds the behavior every store.Backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/store"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Backend

var epoch = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

// Run exercises the Store and SessionStore contracts against backends
// produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("load without save returns an empty batch", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		got, err := b.Load(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DocumentID != "missing" || !got.IsEmpty() || got.Redactions == nil {
			t.Errorf("expected an empty batch for missing, got %+v", got)
		}
	})

	t.Run("load returns the latest save", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx := context.Background()

		first := model.NewBatch("doc", []model.RedactionRequest{{ParagraphID: 0, StartPos: 1, EndPos: 2}}, epoch)
		second := model.NewBatch("doc", []model.RedactionRequest{
			{ParagraphID: 2, StartPos: 0, EndPos: 5},
			{ParagraphID: 1, StartPos: 3, EndPos: 4},
		}, epoch.Add(time.Second))

		if err := b.Save(ctx, "doc", first); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := b.Save(ctx, "doc", second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := b.Load(ctx, "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Count != 2 || len(got.Redactions) != 2 {
			t.Fatalf("expected the second batch, got %+v", got)
		}
		for i, want := range second.Redactions {
			if got.Redactions[i] != want {
				t.Errorf("request %d: expected %v, got %v", i, want, got.Redactions[i])
			}
		}
		if got.Timestamp != second.Timestamp {
			t.Errorf("expected timestamp %v, got %v", second.Timestamp, got.Timestamp)
		}
	})

	t.Run("save stamps the document ID and count", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx := context.Background()

		batch := model.Batch{Redactions: []model.RedactionRequest{{ParagraphID: 0, StartPos: 0, EndPos: 1}}, Count: 99}
		if err := b.Save(ctx, "doc", batch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := b.Load(ctx, "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DocumentID != "doc" || got.Count != 1 {
			t.Errorf("expected doc with count 1, got %q with %d", got.DocumentID, got.Count)
		}
	})

	t.Run("batches are kept per document", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx := context.Background()

		for i, id := range []string{"a", "b"} {
			batch := model.NewBatch(id, []model.RedactionRequest{{ParagraphID: i, StartPos: 0, EndPos: 1}}, epoch)
			if err := b.Save(ctx, id, batch); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if err := b.Clear(ctx, "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		a, err := b.Load(ctx, "a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !a.IsEmpty() {
			t.Errorf("expected a to be cleared, got %+v", a)
		}

		other, err := b.Load(ctx, "b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if other.Count != 1 || other.Redactions[0].ParagraphID != 1 {
			t.Errorf("expected b to be untouched, got %+v", other)
		}

		if err := b.Clear(ctx, "never-saved"); err != nil {
			t.Errorf("expected clearing a missing batch to succeed, got %v", err)
		}
	})

	t.Run("session lifecycle", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx := context.Background()

		sessions := []*model.Session{
			newSession("s-old", epoch, epoch.Add(time.Hour)),
			newSession("s-new", epoch.Add(time.Minute), epoch.Add(3*time.Hour)),
			newSession("s-forever", epoch.Add(2*time.Minute), time.Time{}),
		}
		for _, s := range sessions {
			if err := b.CreateSession(ctx, s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if err := b.CreateSession(ctx, newSession("s-old", epoch, time.Time{})); err == nil {
			t.Error("expected duplicate session to fail")
		}

		got, err := b.GetSession(ctx, "s-old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.OriginalName != "s-old.docx" || got.BlobKey != "blob-s-old" || got.Digest != "digest-s-old" {
			t.Errorf("unexpected session %+v", got)
		}
		if got.Size != 1234 || got.Paragraphs != 7 {
			t.Errorf("unexpected size/paragraphs %d %d", got.Size, got.Paragraphs)
		}
		if !got.CreatedAt.Equal(epoch) || !got.ExpiresAt.Equal(epoch.Add(time.Hour)) {
			t.Errorf("unexpected times %v %v", got.CreatedAt, got.ExpiresAt)
		}

		list, err := b.ListSessions(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ids := sessionIDs(list); ids != "[s-old s-new s-forever]" {
			t.Errorf("unexpected order %s", ids)
		}

		expired, err := b.ExpiredSessions(ctx, epoch.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ids := sessionIDs(expired); ids != "[s-old]" {
			t.Errorf("expected only s-old to be expired, got %s", ids)
		}

		expired, err = b.ExpiredSessions(ctx, epoch.Add(3*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ids := sessionIDs(expired); ids != "[s-old s-new]" {
			t.Errorf("expected expiry at the exact instant, got %s", ids)
		}
	})

	t.Run("deleting a session drops its batch", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx := context.Background()

		if err := b.CreateSession(ctx, newSession("doc", epoch, time.Time{})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		batch := model.NewBatch("doc", []model.RedactionRequest{{ParagraphID: 0, StartPos: 0, EndPos: 1}}, epoch)
		if err := b.Save(ctx, "doc", batch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := b.DeleteSession(ctx, "doc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := b.GetSession(ctx, "doc"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		got, err := b.Load(ctx, "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsEmpty() {
			t.Errorf("expected the batch to be gone, got %+v", got)
		}
		if err := b.DeleteSession(ctx, "doc"); err != nil {
			t.Errorf("expected deleting twice to succeed, got %v", err)
		}
	})

	t.Run("cancelled context fails with an I/O error", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := b.Load(ctx, "doc"); !errors.Is(err, model.ErrIOFailure) {
			t.Errorf("expected ErrIOFailure, got %v", err)
		}
	})
}

func newSession(id string, created, expires time.Time) *model.Session {
	return &model.Session{
		ID:           id,
		OriginalName: id + ".docx",
		BlobKey:      "blob-" + id,
		Digest:       "digest-" + id,
		Size:         1234,
		Paragraphs:   7,
		CreatedAt:    created,
		ExpiresAt:    expires,
	}
}

func sessionIDs(sessions []*model.Session) string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return fmt.Sprint(ids)
}
