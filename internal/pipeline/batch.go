package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docredact/internal/model"
)

// DefaultConcurrency is the number of jobs run at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 4

// BatchProcessor runs several independent jobs concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each job.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent jobs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each job so that pipeline
// state never leaks between documents.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the jobs concurrently and returns their results in
// input order.
//
// A failing job does not stop the others; its error is recorded on its
// result. The returned error is non-nil only when the context was cancelled
// before every job could start. Jobs that never started get a result
// failed with model.ErrIOFailure.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []*Job) ([]*model.Result, error) {
	bp.logger.Info("starting batch processing",
		"total_documents", len(jobs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		results[i] = job.Result

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if err := bp.pipelineFactory().Execute(gctx, job); err != nil {
				bp.logger.Warn("document failed",
					"document", job.DocumentID,
					"index", i+1,
					"total", len(jobs),
					"error", err,
				)
			}
			// The error is on the result; keep processing the others.
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		err = fmt.Errorf("%w: batch cancelled: %w", model.ErrIOFailure, err)
		for _, job := range jobs {
			if len(job.Result.Steps) == 0 && job.Result.Succeeded() {
				job.Result.Fail(err)
			}
		}
	}

	bp.logger.Info("batch processing complete",
		"total_documents", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
