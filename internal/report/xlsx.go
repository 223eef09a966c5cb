package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/docredact/internal/model"
)

// Sheet names of the XLSX audit.
const (
	SummarySheet     = "Summary"
	DiagnosticsSheet = "Diagnostics"
)

// XLSXWriter outputs the audit as an Excel workbook.
// The Summary sheet has one row per document; the Diagnostics sheet has
// one row per rejected request.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the audit of one result as a workbook.
func (w *XLSXWriter) Write(result *model.Result) (int, error) {
	return w.WriteAll([]*model.Result{result})
}

// WriteAll outputs the audit of several results as a workbook.
func (w *XLSXWriter) WriteAll(results []*model.Result) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return 0, fmt.Errorf("xlsx summary sheet: %w", err)
	}
	if _, err := f.NewSheet(DiagnosticsSheet); err != nil {
		return 0, fmt.Errorf("xlsx diagnostics sheet: %w", err)
	}

	if err := writeSummarySheet(f, results); err != nil {
		return 0, err
	}
	if err := writeDiagnosticsSheet(f, results); err != nil {
		return 0, err
	}

	index, err := f.GetSheetIndex(SummarySheet)
	if err != nil {
		return 0, fmt.Errorf("xlsx summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	n, err := f.WriteTo(w.output)
	if err != nil {
		return int(n), fmt.Errorf("xlsx write: %w", err)
	}
	return int(n), nil
}

func writeSummarySheet(f *excelize.File, results []*model.Result) error {
	headers := []any{
		"Document", "Status", "Requested", "Applied", "Rejected",
		"Redacted Paragraphs", "Input SHA3-256", "Output SHA3-256", "Error",
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &headers); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	row := 2
	for _, r := range results {
		if r == nil {
			continue
		}
		values := []any{
			r.DocumentID,
			status(r),
			r.Requested,
			r.Applied,
			r.Rejected(),
			joinInts(r.RedactedParagraphs),
			r.InputDigest,
			r.OutputDigest,
			r.ErrorMessage,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return fmt.Errorf("xlsx row %d: %w", row, err)
		}
		row++
	}

	_ = f.SetColWidth(SummarySheet, "A", "A", 38) // document
	_ = f.SetColWidth(SummarySheet, "B", "B", 28) // status
	_ = f.SetColWidth(SummarySheet, "F", "F", 20) // paragraphs
	_ = f.SetColWidth(SummarySheet, "G", "H", 66) // digests
	_ = f.SetColWidth(SummarySheet, "I", "I", 48) // error
	return nil
}

func writeDiagnosticsSheet(f *excelize.File, results []*model.Result) error {
	headers := []any{"Document", "Request", "Paragraph", "Start", "End", "Kind", "Message"}
	if err := f.SetSheetRow(DiagnosticsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	row := 2
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, d := range r.Diagnostics {
			values := []any{
				r.DocumentID,
				d.Index,
				d.Request.ParagraphID,
				d.Request.StartPos,
				d.Request.EndPos,
				KindLabel(d.Kind.String()),
				d.Message,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(DiagnosticsSheet, cell, &values); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
			row++
		}
	}

	_ = f.SetColWidth(DiagnosticsSheet, "A", "A", 38)
	_ = f.SetColWidth(DiagnosticsSheet, "F", "F", 24)
	_ = f.SetColWidth(DiagnosticsSheet, "G", "G", 60)
	return nil
}
