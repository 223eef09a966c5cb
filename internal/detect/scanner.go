package detect

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/nao1215/docredact/internal/model"
)

// Detector categories.
const (
	// CategoryIdentity is used by detectors that find identity information.
	CategoryIdentity = "identity"
	// CategoryCorrelation is used by detectors that find correlation vectors.
	CategoryCorrelation = "correlation"
	// CategorySecrets is used by detectors that find credentials and keys.
	CategorySecrets = "secrets"
	// CategoryCustom is used by user supplied patterns.
	CategoryCustom = "custom"
)

// Finding is one range of sensitive text.
// StartPos and EndPos are half-open character offsets into the paragraph's
// flat text, like the offsets of a redaction request.
type Finding struct {
	Detector    string   `json:"detector"`
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	ParagraphID int      `json:"paragraphId"`
	StartPos    int      `json:"startPos"`
	EndPos      int      `json:"endPos"`
}

// Request returns the redaction request covering the finding.
func (f Finding) Request() model.RedactionRequest {
	return model.RedactionRequest{
		ParagraphID: f.ParagraphID,
		StartPos:    f.StartPos,
		EndPos:      f.EndPos,
	}
}

// Detector finds one family of sensitive text.
type Detector interface {
	// Name returns the detector's name for logging and reporting.
	Name() string

	// Category returns the detector's category (e.g., "identity", "secrets").
	Category() string

	// Detect scans the paragraphs and returns its findings.
	Detect(ctx context.Context, paragraphs []model.Paragraph) ([]Finding, error)
}

// Scanner runs detectors over a document and aggregates their findings.
type Scanner struct {
	detectors []Detector
	builtins  bool
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger for detector failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithDetectors registers additional detectors.
func WithDetectors(detectors ...Detector) Option {
	return func(s *Scanner) {
		s.detectors = append(s.detectors, detectors...)
	}
}

// WithoutBuiltins leaves out the built-in detectors.
func WithoutBuiltins() Option {
	return func(s *Scanner) {
		s.builtins = false
	}
}

// NewScanner creates a Scanner with the built-in detectors registered.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{builtins: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.builtins {
		s.detectors = append([]Detector{
			NewEmailDetector(),
			NewCryptoDetector(),
			NewSecretDetector(),
		}, s.detectors...)
	}
	return s
}

// Register adds a detector.
func (s *Scanner) Register(d Detector) {
	s.detectors = append(s.detectors, d)
}

// Detectors returns the names of the registered detectors in run order.
func (s *Scanner) Detectors() []string {
	names := make([]string, len(s.detectors))
	for i, d := range s.detectors {
		names[i] = d.Name()
	}
	return names
}

// Scan runs every detector and returns the findings ordered by paragraph
// and position. A detector that fails is logged and skipped; only
// cancellation aborts the scan.
func (s *Scanner) Scan(ctx context.Context, paragraphs []model.Paragraph) ([]Finding, error) {
	var all []Finding

	for _, d := range s.detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		findings, err := d.Detect(ctx, paragraphs)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("detector failed", "detector", d.Name(), "error", err)
			continue
		}
		all = append(all, findings...)
	}

	all = deduplicate(all)
	slices.SortFunc(all, compareFindings)

	s.logger.Debug("scan complete",
		"detectors", len(s.detectors),
		"paragraphs", len(paragraphs),
		"findings", len(all),
	)
	return all, nil
}

func compareFindings(a, b Finding) int {
	return cmp.Or(
		cmp.Compare(a.ParagraphID, b.ParagraphID),
		cmp.Compare(a.StartPos, b.StartPos),
		cmp.Compare(a.EndPos, b.EndPos),
	)
}

// deduplicate keeps one finding per range, the most severe one.
func deduplicate(findings []Finding) []Finding {
	type key struct{ paragraph, start, end int }
	seen := make(map[key]int, len(findings))
	result := make([]Finding, 0, len(findings))

	for _, f := range findings {
		k := key{f.ParagraphID, f.StartPos, f.EndPos}
		if idx, ok := seen[k]; ok {
			if f.Severity > result[idx].Severity {
				result[idx] = f
			}
			continue
		}
		seen[k] = len(result)
		result = append(result, f)
	}
	return result
}

// Requests converts findings of at least the threshold severity into redaction
// requests. Overlapping or touching ranges in a paragraph are merged, so
// the result is ordered and free of overlaps.
func Requests(findings []Finding, threshold Severity) []model.RedactionRequest {
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity >= threshold && f.StartPos < f.EndPos {
			kept = append(kept, f)
		}
	}
	slices.SortFunc(kept, compareFindings)

	requests := make([]model.RedactionRequest, 0, len(kept))
	for _, f := range kept {
		if n := len(requests); n > 0 {
			last := &requests[n-1]
			if last.ParagraphID == f.ParagraphID && f.StartPos <= last.EndPos {
				last.EndPos = max(last.EndPos, f.EndPos)
				continue
			}
		}
		requests = append(requests, f.Request())
	}
	return requests
}
