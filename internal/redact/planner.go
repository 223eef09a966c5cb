package redact

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/model"
)

// Planner validates redaction requests and computes the masked text of each
// affected paragraph.
type Planner struct {
	mode   config.ValidationMode
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithMode sets the validation mode. The default is lenient.
func WithMode(mode config.ValidationMode) Option {
	return func(p *Planner) {
		p.mode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// NewPlanner creates a planner.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{mode: config.ValidationLenient}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Mode returns the validation mode in effect.
func (p *Planner) Mode() config.ValidationMode {
	return p.mode
}

// Plan is the outcome of planning one batch.
type Plan struct {
	// Changes maps paragraph IDs to their new flat text. Paragraphs whose
	// requests were all rejected are absent.
	Changes map[int]string

	// Diagnostics lists rejected requests in batch order.
	Diagnostics []model.Diagnostic

	// Requested is the number of requests in the batch.
	Requested int

	// Accepted is the number of requests that were applied.
	Accepted int
}

// Paragraphs returns the changed paragraph IDs in ascending order.
func (p *Plan) Paragraphs() []int {
	ids := make([]int, 0, len(p.Changes))
	for id := range p.Changes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Plan validates the batch against the paragraphs and computes the masked
// text of every paragraph that has at least one accepted request.
//
// paragraphs must be indexed by paragraph ID, as produced by ooxml.Extract.
// A request is valid when its paragraph exists and
// 0 <= StartPos < EndPos <= len(FlatText) in characters.
//
// Within a paragraph, accepted requests are applied in descending StartPos
// order; requests with equal starts keep their batch order. Because masking
// never changes the text length, overlapping requests simply cover the
// union of their ranges.
//
// In strict mode any diagnostic aborts planning with ErrBatchRejected and
// the returned plan has no changes; its Diagnostics still describe every
// rejected request.
func (p *Planner) Plan(paragraphs []model.Paragraph, batch model.Batch) (*Plan, error) {
	plan := &Plan{
		Changes:     map[int]string{},
		Diagnostics: []model.Diagnostic{},
		Requested:   len(batch.Redactions),
	}

	grouped := map[int][]model.RedactionRequest{}
	for i, req := range batch.Redactions {
		if diag, ok := validate(paragraphs, i, req); !ok {
			plan.Diagnostics = append(plan.Diagnostics, diag)
			p.logger.Debug("redaction request rejected",
				"document", batch.DocumentID,
				"index", i,
				"request", req.String(),
				"kind", diag.Kind.String(),
			)
			continue
		}
		grouped[req.ParagraphID] = append(grouped[req.ParagraphID], req)
	}

	if p.mode == config.ValidationStrict && len(plan.Diagnostics) > 0 {
		first := plan.Diagnostics[0]
		p.logger.Warn("redaction batch rejected",
			"document", batch.DocumentID,
			"rejected", len(plan.Diagnostics),
			"requested", plan.Requested,
		)
		return plan, fmt.Errorf("%w: %d of %d requests invalid: %w",
			ErrBatchRejected, len(plan.Diagnostics), plan.Requested, first.Err())
	}

	for id, reqs := range grouped {
		sort.SliceStable(reqs, func(i, j int) bool {
			return reqs[i].StartPos > reqs[j].StartPos
		})

		text := paragraphs[id].FlatText
		for _, req := range reqs {
			text = Mask(text, req.StartPos, req.EndPos)
		}
		plan.Changes[id] = text
		plan.Accepted += len(reqs)
	}

	if len(plan.Diagnostics) > 0 {
		p.logger.Warn("redaction requests skipped",
			"document", batch.DocumentID,
			"rejected", len(plan.Diagnostics),
			"accepted", plan.Accepted,
		)
	}

	return plan, nil
}

// validate checks one request against the paragraph table.
func validate(paragraphs []model.Paragraph, index int, req model.RedactionRequest) (model.Diagnostic, bool) {
	if req.ParagraphID < 0 || req.ParagraphID >= len(paragraphs) {
		return model.Diagnostic{
			Index:   index,
			Request: req,
			Kind:    model.KindParagraphOutOfRange,
			Message: fmt.Sprintf("document has %d paragraphs", len(paragraphs)),
		}, false
	}

	n := paragraphs[req.ParagraphID].Len()
	if req.StartPos < 0 || req.StartPos >= req.EndPos || req.EndPos > n {
		return model.Diagnostic{
			Index:   index,
			Request: req,
			Kind:    model.KindInvalidRange,
			Message: fmt.Sprintf("range must satisfy 0 <= start < end <= %d", n),
		}, false
	}

	return model.Diagnostic{}, true
}
