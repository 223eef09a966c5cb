package pipeline

import (
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml"
	"github.com/nao1215/docredact/internal/redact"
)

// Job carries one document through the pipeline.
// Fields below Batch are filled in by the steps in order.
type Job struct {
	// DocumentID identifies the document in logs and on the result.
	DocumentID string

	// Input is the original package.
	Input []byte

	// Batch holds the requests to apply.
	Batch model.Batch

	// Package is the opened input, set by OpenStep.
	Package *ooxml.Package

	// Document is the extracted text model, set by ExtractStep.
	Document *ooxml.Document

	// Plan is the planner's outcome, set by PlanStep.
	Plan *redact.Plan

	// Rewritten is the new main document part, set by RewriteStep.
	Rewritten []byte

	// Committed is set when rewriting starts. A committed job ignores
	// cancellation and runs to completion.
	Committed bool

	// Result is returned to the caller.
	Result *model.Result
}

// NewJob creates a job for one document.
func NewJob(documentID string, input []byte, batch model.Batch) *Job {
	return &Job{
		DocumentID: documentID,
		Input:      input,
		Batch:      batch,
		Result:     model.NewResult(documentID),
	}
}
