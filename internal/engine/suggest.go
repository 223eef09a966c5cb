package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/detect"
	"github.com/nao1215/docredact/internal/model"
)

// Suggestions are the redactions proposed by the sensitive-text scanner.
type Suggestions struct {
	DocumentID string                   `json:"documentId"`
	Threshold  detect.Severity          `json:"minSeverity"`
	Findings   []detect.Finding         `json:"findings"`
	Redactions []model.RedactionRequest `json:"redactions"`
}

// NewScanner builds the scanner and severity threshold described by the
// detect settings of cfg. Custom patterns are reported as high severity.
func NewScanner(cfg *config.Config, logger *slog.Logger) (*detect.Scanner, detect.Severity, error) {
	threshold, err := detect.ParseSeverity(cfg.DetectMinSeverity)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}

	opts := []detect.Option{detect.WithLogger(logger)}
	if len(cfg.DetectPatterns) > 0 {
		custom, err := detect.NewPatternDetector(detect.CategoryCustom, detect.SeverityHigh, cfg.DetectPatterns...)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
		}
		opts = append(opts, detect.WithDetectors(custom))
	}
	return detect.NewScanner(opts...), threshold, nil
}

// Detect scans paragraphs and proposes redactions for findings at or above
// the engine threshold.
func (e *Engine) Detect(ctx context.Context, documentID string, paragraphs []model.Paragraph) (*Suggestions, error) {
	return e.DetectAt(ctx, documentID, paragraphs, e.threshold)
}

// DetectAt is Detect with an explicit threshold.
func (e *Engine) DetectAt(ctx context.Context, documentID string, paragraphs []model.Paragraph, threshold detect.Severity) (*Suggestions, error) {
	findings, err := e.scanner.Scan(ctx, paragraphs)
	if err != nil {
		return nil, err
	}
	if findings == nil {
		findings = []detect.Finding{}
	}

	s := &Suggestions{
		DocumentID: documentID,
		Threshold:  threshold,
		Findings:   findings,
		Redactions: detect.Requests(findings, threshold),
	}
	e.logger.Debug("document scanned",
		"document", documentID,
		"findings", len(s.Findings),
		"redactions", len(s.Redactions),
	)
	return s, nil
}

// Paragraphs extracts the stored original of a registered document.
func (e *Engine) Paragraphs(ctx context.Context, documentID string) ([]model.Paragraph, error) {
	session, err := e.Session(ctx, documentID)
	if err != nil {
		return nil, err
	}
	data, err := e.blobs.Get(ctx, session.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load original: %w", err)
	}
	return e.Extract(data)
}

// Suggest scans the stored original of a registered document.
func (e *Engine) Suggest(ctx context.Context, documentID string, threshold detect.Severity) (*Suggestions, error) {
	paragraphs, err := e.Paragraphs(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return e.DetectAt(ctx, documentID, paragraphs, threshold)
}
