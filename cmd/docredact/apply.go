package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/engine"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/render"
	"github.com/nao1215/docredact/internal/storage"
)

// NewApplyCmd creates the apply command.
func NewApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <document-id>",
		Short: "Apply the marked redactions and write the redacted document",
		Long: `Apply rewrites a registered document with its marked redactions.

Every marked character is replaced with █. In lenient mode (default) bad
requests are skipped and listed in the report; in strict mode any bad
request rejects the whole batch and nothing is written.

The output is rendered in memory and published to its path in one rename.
Only after it is in place are the session, its requests and the stored
original deleted. A failed apply or a failed write keeps them so the
requests or the output path can be corrected and apply run again.

Examples:
  # Write redacted_<name>.docx to the current directory
  docredact apply 3f2a...

  # Write a plain text view instead of a Word document
  docredact apply --format txt -o out/report.txt 3f2a...

  # Reject the batch if any request is invalid, write a JSON report
  docredact apply --validation strict --json 3f2a...`,
		Args: cobra.ExactArgs(1),
		RunE: runApplyCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output file path (default: redacted_<name> in the output directory)")
	cmd.Flags().StringP("format", "f", string(render.FormatDOCX),
		"Output format: docx, txt, html or md")
	addReportFlags(cmd)

	return cmd
}

func runApplyCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := prepare(cmd)
	if err != nil {
		return err
	}

	format, err := render.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}

	eng, err := openEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	path := stringFlag(cmd, "output")
	applied, err := eng.Publish(cmd.Context(), args[0], func(applied *engine.Applied) error {
		if path == "" {
			path = defaultOutputPath(cfg, ".", format, applied.Session.OriginalName)
		}
		return writeDocument(cmd.Context(), path, format, applied.Session.OriginalName, applied.Result)
	})
	if applied == nil {
		return err
	}
	if err != nil {
		if reportErr := outputReport(cmd, cfg, []*model.Result{applied.Result}); reportErr != nil {
			logger.Error("report failed", "document", args[0], "error", reportErr)
		}
		return fmt.Errorf("apply failed, the session was kept: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Redacted document written to %s\n", path)

	return outputReport(cmd, cfg, []*model.Result{applied.Result})
}

// defaultOutputPath places the redacted copy of name in cfg.OutputDir,
// or in fallbackDir when no output directory is configured.
func defaultOutputPath(cfg *config.Config, fallbackDir string, format render.Format, name string) string {
	dir := cfg.OutputDir
	if dir == "" {
		dir = fallbackDir
	}
	return filepath.Join(dir, format.FileName(name))
}

// writeDocument renders result and publishes it to path in one rename,
// so a failed write never leaves a truncated document behind.
func writeDocument(ctx context.Context, path string, format render.Format, title string, result *model.Result) error {
	var buf bytes.Buffer
	if err := render.Write(&buf, format, title, result); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := storage.WriteFileAtomic(ctx, path, buf.Bytes(), storage.DefaultFileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
