package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml/ooxmltest"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns results in input order and isolates failures", func(t *testing.T) {
		t.Parallel()

		good := ooxmltest.Package(t, ooxmltest.Paragraph("top secret"))
		jobs := []*Job{
			NewJob("a", good, model.NewBatch("a", []model.RedactionRequest{{ParagraphID: 0, StartPos: 4, EndPos: 10}}, time.Now())),
			NewJob("b", []byte("broken"), model.NewBatch("b", nil, time.Now())),
			NewJob("c", good, model.NewBatch("c", nil, time.Now())),
		}

		bp := NewBatchProcessor(
			func() *Pipeline { return standard(config.ValidationLenient) },
			WithConcurrency(2),
			WithBatchLogger(discardLogger()),
		)

		results, err := bp.ProcessBatch(context.Background(), jobs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}

		for i, id := range []string{"a", "b", "c"} {
			if results[i].DocumentID != id {
				t.Errorf("result %d: expected %s, got %s", i, id, results[i].DocumentID)
			}
		}
		if !results[0].Succeeded() || results[0].Paragraphs[0].FlatText != "top ██████" {
			t.Errorf("unexpected first result %+v", results[0])
		}
		if results[1].Succeeded() || results[1].ErrorKind != model.KindArchiveCorrupt {
			t.Errorf("expected second result to fail with ArchiveCorrupt, got %v", results[1].ErrorKind)
		}
		if !results[2].Succeeded() {
			t.Errorf("expected third result to succeed, got %v", results[2].Err)
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		factory := func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *Job) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			}})
			return p
		}

		jobs := make([]*Job, 8)
		for i := range jobs {
			jobs[i] = newTestJob()
		}

		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))
		if _, err := bp.ProcessBatch(context.Background(), jobs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent jobs, saw %d", peak.Load())
		}
	})

	t.Run("cancelled context fails jobs that never started", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		jobs := []*Job{newTestJob(), newTestJob()}
		bp := NewBatchProcessor(func() *Pipeline { return New(WithLogger(discardLogger())) }, WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(ctx, jobs)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for i, r := range results {
			if r.Succeeded() {
				t.Errorf("result %d: expected failure", i)
			}
		}
	})
}
