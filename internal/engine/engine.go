package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/database"
	"github.com/nao1215/docredact/internal/detect"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml"
	"github.com/nao1215/docredact/internal/pipeline"
	"github.com/nao1215/docredact/internal/redact"
	"github.com/nao1215/docredact/internal/storage"
	"github.com/nao1215/docredact/internal/store"
)

// Engine redacts documents and manages their sessions.
type Engine struct {
	backend store.Backend
	blobs   *storage.Blobs
	planner *redact.Planner
	scanner *detect.Scanner
	logger  *slog.Logger
	locks   *Locker

	sessionTTL  time.Duration
	maxPartSize int64
	concurrency int
	threshold   detect.Severity
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPlanner replaces the default lenient planner.
func WithPlanner(planner *redact.Planner) Option {
	return func(e *Engine) {
		e.planner = planner
	}
}

// WithScanner replaces the scanner holding only the built-in detectors.
func WithScanner(scanner *detect.Scanner) Option {
	return func(e *Engine) {
		e.scanner = scanner
	}
}

// WithThreshold sets the lowest severity Detect turns into redactions.
func WithThreshold(threshold detect.Severity) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithSessionTTL sets how long a registered session lives. Zero means
// sessions never expire.
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.sessionTTL = ttl
	}
}

// WithMaxPartSize limits the size of any package part read into memory.
func WithMaxPartSize(n int64) Option {
	return func(e *Engine) {
		e.maxPartSize = n
	}
}

// WithConcurrency sets how many documents RedactMany processes at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine over a persistence backend and a blob store.
// Both may be nil when only Redact, RedactMany and Extract are used.
func New(backend store.Backend, blobs *storage.Blobs, opts ...Option) *Engine {
	e := &Engine{
		backend:     backend,
		blobs:       blobs,
		locks:       NewLocker(),
		sessionTTL:  config.DefaultSessionTTL,
		concurrency: pipeline.DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.planner == nil {
		e.planner = redact.NewPlanner(redact.WithLogger(e.logger))
	}
	if e.scanner == nil {
		e.scanner = detect.NewScanner(detect.WithLogger(e.logger))
	}
	return e
}

// Open builds an Engine from the configuration: it opens the configured
// store backend and the blob directory under cfg.DataDir.
// The caller must Close the engine.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner, threshold, err := NewScanner(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid detect settings: %w", err)
	}

	backend, err := database.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	blobs, err := storage.NewBlobs(cfg.BlobDir(),
		storage.WithTimeout(cfg.IOTimeout),
		storage.WithLogger(logger),
	)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to open blob directory: %w", err)
	}

	planner := redact.NewPlanner(
		redact.WithMode(cfg.Validation),
		redact.WithLogger(logger),
	)

	return New(backend, blobs,
		WithLogger(logger),
		WithPlanner(planner),
		WithScanner(scanner),
		WithThreshold(threshold),
		WithSessionTTL(cfg.SessionTTL),
		WithMaxPartSize(cfg.MaxPartSize),
		WithConcurrency(cfg.BatchSize),
	), nil
}

// Close releases the backend.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Mode returns the validation mode of the planner.
func (e *Engine) Mode() config.ValidationMode {
	return e.planner.Mode()
}

// Threshold returns the lowest severity Detect turns into redactions.
func (e *Engine) Threshold() detect.Severity {
	return e.threshold
}

// pipeline builds the standard pipeline for one job.
func (e *Engine) pipeline() *pipeline.Pipeline {
	return pipeline.Standard(e.planner, e.maxPartSize, e.logger)
}

// Extract returns the paragraphs of a package without storing anything.
func (e *Engine) Extract(data []byte) ([]model.Paragraph, error) {
	var opts []ooxml.OpenOption
	if e.maxPartSize > 0 {
		opts = append(opts, ooxml.WithMaxPartSize(e.maxPartSize))
	}

	pkg, err := ooxml.Open(data, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := ooxml.Extract(pkg.DocumentXML())
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", pkg.DocumentPart(), err)
	}
	return doc.Paragraphs, nil
}

// Redact applies requests to a package held in memory.
//
// The returned result is never nil. On abort, result.Output is nil and the
// error is also recorded on the result.
func (e *Engine) Redact(ctx context.Context, documentID string, data []byte, requests []model.RedactionRequest) (*model.Result, error) {
	job := pipeline.NewJob(documentID, data, model.NewBatch(documentID, requests, e.now()))
	err := e.pipeline().Execute(ctx, job)
	return job.Result, err
}

// Input is one document for RedactMany.
type Input struct {
	DocumentID string
	Data       []byte
	Requests   []model.RedactionRequest
}

// RedactMany redacts several documents concurrently. Results are in input
// order; a failing document does not affect the others.
func (e *Engine) RedactMany(ctx context.Context, inputs []Input) ([]*model.Result, error) {
	now := e.now()
	jobs := make([]*pipeline.Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = pipeline.NewJob(in.DocumentID, in.Data, model.NewBatch(in.DocumentID, in.Requests, now))
	}

	bp := pipeline.NewBatchProcessor(e.pipeline,
		pipeline.WithConcurrency(e.concurrency),
		pipeline.WithBatchLogger(e.logger),
	)
	return bp.ProcessBatch(ctx, jobs)
}
