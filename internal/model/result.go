package model

import "time"

// Result is the outcome of applying a redaction batch to one document.
// It carries both the rewritten package and the per-request diagnostics.
type Result struct {
	// DocumentID identifies the processed document.
	DocumentID string `json:"documentId"`

	// Output is the rewritten package. It is nil when the apply aborted.
	Output []byte `json:"-"`

	// Paragraphs is the text model of the rewritten document.
	// Renderers use it to produce plain text, HTML or Markdown views.
	Paragraphs []Paragraph `json:"-"`

	// Requested is the number of requests in the batch.
	Requested int `json:"requested"`

	// Applied is the number of accepted requests.
	Applied int `json:"applied"`

	// RedactedParagraphs lists the IDs of rewritten paragraphs in ascending order.
	RedactedParagraphs []int `json:"redactedParagraphs"`

	// Diagnostics lists rejected requests in batch order.
	Diagnostics []Diagnostic `json:"diagnostics"`

	// InputDigest and OutputDigest are SHA3-256 hex digests of the packages.
	InputDigest  string `json:"inputDigest,omitempty"`
	OutputDigest string `json:"outputDigest,omitempty"`

	// Steps records the pipeline steps that ran.
	Steps []string `json:"steps,omitempty"`

	// StartedAt and Elapsed describe the run.
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`

	// Err is the abort-level error, if any. It is not serialized directly;
	// ErrorMessage and ErrorKind carry it on the wire.
	Err          error     `json:"-"`
	ErrorMessage string    `json:"error,omitempty"`
	ErrorKind    ErrorKind `json:"errorKind,omitempty"`
}

// NewResult creates an empty result for a document.
func NewResult(documentID string) *Result {
	return &Result{
		DocumentID:         documentID,
		RedactedParagraphs: []int{},
		Diagnostics:        []Diagnostic{},
		StartedAt:          time.Now(),
	}
}

// Fail records an abort-level error on the result.
func (r *Result) Fail(err error) {
	r.Err = err
	r.ErrorMessage = err.Error()
	r.ErrorKind = KindOf(err)
	r.Output = nil
}

// Succeeded reports whether the apply produced an output package.
func (r *Result) Succeeded() bool {
	return r.Err == nil && r.ErrorMessage == ""
}

// Rejected returns the number of requests rejected with diagnostics.
func (r *Result) Rejected() int {
	return len(r.Diagnostics)
}

// CountByKind returns how many diagnostics have the given kind.
func (r *Result) CountByKind(kind ErrorKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
