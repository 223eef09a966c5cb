package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/docredact/internal/model"
)

// Step is one stage of redacting a document: open, extract, plan,
// rewrite, assemble.
//
// Per-request problems are recorded on job.Result as diagnostics; a
// returned error aborts the whole document.
type Step interface {
	Do(ctx context.Context, job *Job) error
	Name() string
}

// Pipeline runs steps in order over one Job.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.AddSteps(step)
}

// AddSteps appends steps in the given order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// The context is checked before each step until the job is committed.
// The first failing step aborts the job: the error is recorded on
// job.Result (which then carries no output) and returned.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	start := time.Now()
	defer func() {
		job.Result.Elapsed = time.Since(start)
	}()

	for _, step := range p.steps {
		// Once committed the output exists and is returned even if the
		// caller gives up.
		if err := ctx.Err(); err != nil && !job.Committed {
			p.logger.Warn("redaction cancelled", "step", step.Name(), "document", job.DocumentID, "reason", err)
			err = fmt.Errorf("%w: %w", model.ErrIOFailure, err)
			job.Result.Fail(err)
			return err
		}

		p.logger.Debug("running step", "step", step.Name(), "document", job.DocumentID)
		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("redaction aborted",
				"step", step.Name(),
				"document", job.DocumentID,
				"kind", model.KindOf(err).String(),
				"error", err,
			)
			job.Result.Fail(err)
			return err
		}

		job.Result.Steps = append(job.Result.Steps, step.Name())
	}

	p.logger.Info("document redacted",
		"document", job.DocumentID,
		"requested", job.Result.Requested,
		"applied", job.Result.Applied,
		"rejected", job.Result.Rejected(),
	)

	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
