package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/docredact/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
type SimpleWriter struct {
	baseWriter

	// verbose adds digests and pipeline steps to each document section.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the audit of one result.
func (w *SimpleWriter) Write(result *model.Result) (int, error) {
	return w.WriteAll([]*model.Result{result})
}

// WriteAll outputs the audit of several results.
func (w *SimpleWriter) WriteAll(results []*model.Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeSummary(&sb, Summarize(results))
	for _, r := range results {
		if r != nil {
			w.writeDocument(&sb, r)
		}
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          REDACTION AUDIT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s Summary) {
	fmt.Fprintf(sb, "Documents:  %d (%d succeeded, %d failed)\n", s.Documents, s.Succeeded, s.Failed)
	fmt.Fprintf(sb, "Requested:  %d\n", s.Requested)
	fmt.Fprintf(sb, "Applied:    %d\n", s.Applied)
	fmt.Fprintf(sb, "Rejected:   %d\n", s.Rejected)
	for _, kind := range s.Kinds() {
		fmt.Fprintf(sb, "  %-22s %d\n", KindLabel(kind)+":", s.RejectedByKind[kind])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDocument(sb *strings.Builder, r *model.Result) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "DOCUMENT %s\n", r.DocumentID)
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Status:      %s\n", status(r))
	if !r.Succeeded() {
		fmt.Fprintf(sb, "  Error:       %s\n", r.ErrorMessage)
	}
	fmt.Fprintf(sb, "  Requested:   %d\n", r.Requested)
	fmt.Fprintf(sb, "  Applied:     %d\n", r.Applied)
	fmt.Fprintf(sb, "  Paragraphs:  %s\n", joinInts(r.RedactedParagraphs))

	if w.verbose {
		if r.InputDigest != "" {
			fmt.Fprintf(sb, "  Input:       %s\n", r.InputDigest)
		}
		if r.OutputDigest != "" {
			fmt.Fprintf(sb, "  Output:      %s\n", r.OutputDigest)
		}
		if len(r.Steps) > 0 {
			fmt.Fprintf(sb, "  Steps:       %s\n", strings.Join(r.Steps, " > "))
		}
		fmt.Fprintf(sb, "  Elapsed:     %s\n", r.Elapsed)
	}

	if len(r.Diagnostics) > 0 {
		sb.WriteString("\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(sb, "  [!] #%d %s %s: %s\n", d.Index, d.Request, d.Kind, d.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
