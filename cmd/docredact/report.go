package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/report"
	"github.com/nao1215/docredact/internal/storage"
)

// newReportWriter returns the audit writer selected by cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	case cfg.XLSXReport:
		return report.NewXLSXWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the audit report for results to cfg.ReportFile,
// or to stdout when no file is set.
func outputReport(cmd *cobra.Command, cfg *config.Config, results []*model.Result) error {
	if cfg.ReportFile == "" {
		if _, err := newReportWriter(cfg, cmd.OutOrStdout()).WriteAll(results); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if _, err := newReportWriter(cfg, &buf).WriteAll(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := storage.WriteFileAtomic(cmd.Context(), cfg.ReportFile, buf.Bytes(), storage.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	return nil
}

// addReportFlags registers the audit report flags shared by apply and redact.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --xlsx)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --xlsx)")
	cmd.Flags().Bool("xlsx", false,
		"Output XLSX report (requires --report-file)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write report to specified file path (creates directories if needed)")
}
