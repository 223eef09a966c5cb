package report

import (
	"io"

	"github.com/nao1215/docredact/internal/model"
)

// Writer renders the audit of redaction results.
//
// Every format reports the same facts: per document the requested,
// applied and rejected counts, the digests of input and output, and one
// line per diagnostic. Paragraph text never appears in an audit.
type Writer interface {
	// Write renders the audit of a single result.
	Write(result *model.Result) (int, error)

	// WriteAll renders one audit covering several results.
	WriteAll(results []*model.Result) (int, error)
}

// baseWriter holds the destination shared by the writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
