package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/docredact/internal/model"
)

// JSONWriter renders the audit as one JSON document for tooling.
type JSONWriter struct {
	baseWriter

	pretty  bool
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the JSON by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.pretty = true
	}
}

// WithVersion stamps the docredact version on the audit.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter. Output is compact unless
// WithPrettyPrint is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Audit is the JSON document written by JSONWriter.
type Audit struct {
	Version string          `json:"version,omitempty"`
	Summary Summary         `json:"summary"`
	Results []*model.Result `json:"results"`
}

// NewAudit builds the audit document for results.
func NewAudit(results []*model.Result, version string) *Audit {
	if results == nil {
		results = []*model.Result{}
	}
	return &Audit{
		Version: version,
		Summary: Summarize(results),
		Results: results,
	}
}

// Write renders the audit of one result.
func (w *JSONWriter) Write(result *model.Result) (int, error) {
	return w.WriteAll([]*model.Result{result})
}

// WriteAll renders the audit of several results, terminated by a newline.
func (w *JSONWriter) WriteAll(results []*model.Result) (int, error) {
	audit := NewAudit(results, w.version)

	var (
		data []byte
		err  error
	)
	if w.pretty {
		data, err = json.MarshalIndent(audit, "", "  ")
	} else {
		data, err = json.Marshal(audit)
	}
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}
