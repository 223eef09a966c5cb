package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml"
	"github.com/nao1215/docredact/internal/redact"
)

// Step names as recorded on model.Result.Steps.
const (
	StepOpen     = "open"
	StepExtract  = "extract"
	StepPlan     = "plan"
	StepRewrite  = "rewrite"
	StepAssemble = "assemble"
)

// Digest returns the SHA3-256 hex digest of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OpenStep opens the input package.
type OpenStep struct {
	// maxPartSize limits the size of any part read into memory.
	maxPartSize int64
}

// NewOpenStep creates the open step. A non-positive limit keeps the
// ooxml default.
func NewOpenStep(maxPartSize int64) *OpenStep {
	return &OpenStep{maxPartSize: maxPartSize}
}

// Name returns the step name.
func (s *OpenStep) Name() string {
	return StepOpen
}

// Do opens job.Input.
func (s *OpenStep) Do(_ context.Context, job *Job) error {
	var opts []ooxml.OpenOption
	if s.maxPartSize > 0 {
		opts = append(opts, ooxml.WithMaxPartSize(s.maxPartSize))
	}

	pkg, err := ooxml.Open(job.Input, opts...)
	if err != nil {
		return fmt.Errorf("failed to open package: %w", err)
	}

	job.Package = pkg
	job.Result.InputDigest = Digest(job.Input)
	return nil
}

// ExtractStep builds the paragraph and run model.
type ExtractStep struct{}

// NewExtractStep creates the extract step.
func NewExtractStep() *ExtractStep {
	return &ExtractStep{}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do extracts the main document part of job.Package.
func (s *ExtractStep) Do(_ context.Context, job *Job) error {
	doc, err := ooxml.Extract(job.Package.DocumentXML())
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", job.Package.DocumentPart(), err)
	}
	job.Document = doc
	return nil
}

// PlanStep validates the batch and computes the masked paragraph texts.
type PlanStep struct {
	planner *redact.Planner
}

// NewPlanStep creates the plan step.
func NewPlanStep(planner *redact.Planner) *PlanStep {
	return &PlanStep{planner: planner}
}

// Name returns the step name.
func (s *PlanStep) Name() string {
	return StepPlan
}

// Do plans job.Batch. Diagnostics are copied to the result even when a
// strict planner rejects the batch.
func (s *PlanStep) Do(_ context.Context, job *Job) error {
	plan, err := s.planner.Plan(job.Document.Paragraphs, job.Batch)
	if plan != nil {
		job.Result.Requested = plan.Requested
		job.Result.Diagnostics = plan.Diagnostics
	}
	if err != nil {
		return err
	}

	job.Plan = plan
	job.Result.Applied = plan.Accepted
	job.Result.RedactedParagraphs = plan.Paragraphs()
	return nil
}

// RewriteStep writes the planned texts back into the document part.
// It commits the job: later steps run even if the context is cancelled.
type RewriteStep struct{}

// NewRewriteStep creates the rewrite step.
func NewRewriteStep() *RewriteStep {
	return &RewriteStep{}
}

// Name returns the step name.
func (s *RewriteStep) Name() string {
	return StepRewrite
}

// Do rewrites job.Document with job.Plan.
func (s *RewriteStep) Do(_ context.Context, job *Job) error {
	job.Committed = true

	out, err := job.Document.Rewrite(job.Plan.Changes)
	if err != nil {
		return fmt.Errorf("failed to rewrite document: %w", err)
	}
	job.Rewritten = out
	return nil
}

// AssembleStep builds the output package and checks that the rewritten part
// still has the same paragraphs and that every changed paragraph reads back
// as planned.
type AssembleStep struct {
	logger *slog.Logger
}

// NewAssembleStep creates the assemble step.
func NewAssembleStep(logger *slog.Logger) *AssembleStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssembleStep{logger: logger}
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return StepAssemble
}

// Do writes job.Rewritten into a copy of job.Package.
func (s *AssembleStep) Do(_ context.Context, job *Job) error {
	check, err := ooxml.Extract(job.Rewritten)
	if err != nil {
		return fmt.Errorf("rewritten document does not parse: %w", err)
	}
	if got, want := len(check.Paragraphs), len(job.Document.Paragraphs); got != want {
		return fmt.Errorf("%w: rewrite produced %d paragraphs, expected %d", model.ErrMalformedDocument, got, want)
	}
	if job.Plan != nil {
		for _, id := range job.Plan.Paragraphs() {
			if got, want := check.Paragraphs[id].FlatText, job.Plan.Changes[id]; got != want {
				return fmt.Errorf("%w: paragraph %d reads %q after rewrite, expected %q",
					model.ErrMalformedDocument, id, got, want)
			}
		}
	}

	out, err := job.Package.Write(job.Rewritten)
	if err != nil {
		return fmt.Errorf("failed to assemble package: %w", err)
	}

	job.Result.Output = out
	job.Result.Paragraphs = check.Paragraphs
	job.Result.OutputDigest = Digest(out)

	s.logger.Debug("package assembled",
		"document", job.DocumentID,
		"part", job.Package.DocumentPart(),
		"size", len(out),
	)
	return nil
}

// Standard returns a pipeline running open, extract, plan, rewrite and
// assemble with the given planner.
func Standard(planner *redact.Planner, maxPartSize int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewOpenStep(maxPartSize),
		NewExtractStep(),
		NewPlanStep(planner),
		NewRewriteStep(),
		NewAssembleStep(logger),
	)
	return p
}
