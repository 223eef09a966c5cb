package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docredact/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, e.g. attaching
// the audit of a redaction to a review.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the audit of one result in Markdown format.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	return w.WriteAll([]*model.Result{result})
}

// WriteAll outputs the audit of several results in Markdown format.
func (w *MarkdownWriter) WriteAll(results []*model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(results)

	md.H1("Redaction Audit")
	md.PlainText("")

	w.writeSummary(md, summary)
	for _, r := range results {
		if r != nil {
			w.writeDocument(md, r)
		}
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the totals table, the chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Documents", strconv.Itoa(s.Documents)},
			{"Succeeded", strconv.Itoa(s.Succeeded)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Requested", strconv.Itoa(s.Requested)},
			{"Applied", strconv.Itoa(s.Applied)},
			{"Rejected", strconv.Itoa(s.Rejected)},
		},
	})
	md.PlainText("")

	if s.Requested > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of applied requests and
// rejections per kind.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Redaction Requests"),
		piechart.WithShowData(true),
	)

	if s.Applied > 0 {
		chart.LabelAndIntValue("Applied", uint64(s.Applied))
	}
	for _, kind := range s.Kinds() {
		chart.LabelAndIntValue(KindLabel(kind), uint64(s.RejectedByKind[kind]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s Summary) {
	switch {
	case s.Failed > 0:
		md.Cautionf("%d document(s) could not be redacted and produced no output.", s.Failed)
	case s.Rejected > 0:
		md.Warningf("%d of %d request(s) were rejected and left the text unchanged.", s.Rejected, s.Requested)
	case s.Requested == 0:
		md.Note("No redactions were requested.")
	default:
		md.Tip("Every requested range was redacted.")
	}
	md.PlainText("")
}

// writeDocument writes the section of one document.
func (w *MarkdownWriter) writeDocument(md *markdown.Markdown, r *model.Result) {
	md.H2("Document `" + r.DocumentID + "`")
	md.PlainText("")

	rows := [][]string{
		{"Status", status(r)},
		{"Requested", strconv.Itoa(r.Requested)},
		{"Applied", strconv.Itoa(r.Applied)},
		{"Rejected", strconv.Itoa(r.Rejected())},
		{"Redacted Paragraphs", joinInts(r.RedactedParagraphs)},
	}
	if r.InputDigest != "" {
		rows = append(rows, []string{"Input SHA3-256", "`" + r.InputDigest + "`"})
	}
	if r.OutputDigest != "" {
		rows = append(rows, []string{"Output SHA3-256", "`" + r.OutputDigest + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if !r.Succeeded() {
		md.Cautionf("%s", r.ErrorMessage)
		md.PlainText("")
	}

	if len(r.Diagnostics) == 0 {
		return
	}

	md.H3("Rejected Requests")
	md.PlainText("")

	diagRows := make([][]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		diagRows[i] = []string{
			strconv.Itoa(d.Index),
			strconv.Itoa(d.Request.ParagraphID),
			strconv.Itoa(d.Request.StartPos),
			strconv.Itoa(d.Request.EndPos),
			KindLabel(d.Kind.String()),
			truncateString(d.Message, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Paragraph", "Start", "End", "Kind", "Message"},
		Rows:   diagRows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by docredact*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
