package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/engine"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/render"
	"github.com/nao1215/docredact/internal/schema"
)

// sidecarSuffix names the per-document requests file used when
// --requests is not given: report.docx reads report.redactions.json.
const sidecarSuffix = ".redactions.json"

// NewRedactCmd creates the redact command.
func NewRedactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact <file.docx>...",
		Short: "Redact documents in one step without storing anything",
		Long: `Redact extracts, plans and rewrites one or more documents in a single
step. Nothing is stored; each document is processed in memory.

Requests are read from the file given with --requests and applied to every
document. Without --requests, each document reads its own sidecar file:
report.docx uses report.redactions.json next to it.

With --detect, each document is also scanned for sensitive text and the
findings at or above --min-severity are redacted. A missing sidecar is not
an error then.

Documents are processed concurrently (see batch_size in the configuration
file). A failing document does not stop the others.

Examples:
  # Redact one document
  docredact redact --requests requests.json contract.docx

  # Redact several documents, each with its own sidecar requests file
  docredact redact a.docx b.docx c.docx

  # Redact whatever the detectors find, plus a custom employee ID pattern
  docredact redact --detect --pattern 'EMP-[0-9]{6}' a.docx

  # Write Markdown views into out/ and a spreadsheet audit
  docredact redact --format md -d out --xlsx -r audit.xlsx a.docx b.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRedactCmd,
	}

	cmd.Flags().StringP("requests", "q", "",
		"Requests file applied to every document (default: per-document sidecar)")
	cmd.Flags().StringP("output-dir", "d", "",
		"Directory for redacted documents (default: next to each input)")
	cmd.Flags().StringP("format", "f", string(render.FormatDOCX),
		"Output format: docx, txt, html or md")
	cmd.Flags().Bool("detect", false, "Also redact sensitive text found by the detectors")
	addDetectFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runRedactCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := prepare(cmd)
	if err != nil {
		return err
	}
	if dir := stringFlag(cmd, "output-dir"); dir != "" {
		cfg.OutputDir = dir
	}

	format, err := render.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}

	eng, err := statelessEngine(cfg, logger)
	if err != nil {
		return err
	}

	inputs, err := redactInputs(cmd, args)
	if err != nil {
		return err
	}
	if boolFlag(cmd, "detect") {
		if err := addDetected(cmd, eng, inputs); err != nil {
			return err
		}
	}

	logger.Info("starting redaction",
		"documents", len(inputs),
		"validation", cfg.Validation.String(),
		"batchSize", cfg.BatchSize,
	)

	results, err := eng.RedactMany(cmd.Context(), inputs)
	if err != nil {
		return err
	}

	failed := 0
	for i, result := range results {
		if !result.Succeeded() {
			failed++
			continue
		}
		path := defaultOutputPath(cfg, filepath.Dir(args[i]), format, args[i])
		if err := writeDocument(cmd.Context(), path, format, filepath.Base(args[i]), result); err != nil {
			logger.Error("failed to write redacted document", "document", result.DocumentID, "error", err)
			result.Fail(err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s -> %s\n", i+1, len(results), args[i], path)
	}

	if err := outputReport(cmd, cfg, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) could not be redacted", failed, len(results))
	}
	return nil
}

// redactInputs reads every document and its requests.
func redactInputs(cmd *cobra.Command, paths []string) ([]engine.Input, error) {
	var shared []model.RedactionRequest
	if path := stringFlag(cmd, "requests"); path != "" {
		reqs, err := readRequests(cmd, path)
		if err != nil {
			return nil, err
		}
		shared = reqs
	}

	detect := boolFlag(cmd, "detect")
	inputs := make([]engine.Input, 0, len(paths))
	for _, path := range paths {
		if path == "-" {
			return nil, errors.New("documents cannot be read from stdin; pass file paths")
		}
		data, err := readInput(cmd, path)
		if err != nil {
			return nil, err
		}

		reqs := shared
		if reqs == nil {
			reqs, err = readRequests(cmd, sidecarPath(path))
			switch {
			case err == nil:
			case detect && errors.Is(err, fs.ErrNotExist):
				reqs = nil
			default:
				return nil, fmt.Errorf("%w (use --requests to share one requests file)", err)
			}
		}

		inputs = append(inputs, engine.Input{
			DocumentID: path,
			Data:       data,
			Requests:   reqs,
		})
	}
	return inputs, nil
}

// addDetected appends the detected redactions of every input to its
// requests. Documents that cannot be extracted are left alone; the pipeline
// reports them.
func addDetected(cmd *cobra.Command, eng *engine.Engine, inputs []engine.Input) error {
	for i := range inputs {
		in := &inputs[i]
		paragraphs, err := eng.Extract(in.Data)
		if err != nil {
			continue
		}
		suggestions, err := eng.Detect(cmd.Context(), in.DocumentID, paragraphs)
		if err != nil {
			return err
		}
		in.Requests = slices.Concat(in.Requests, suggestions.Redactions)
	}
	return nil
}

// readRequests reads and validates a requests file.
func readRequests(cmd *cobra.Command, path string) ([]model.RedactionRequest, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	reqs, err := schema.DecodeRequests(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// sidecarPath returns the requests file that belongs to a document.
func sidecarPath(document string) string {
	return strings.TrimSuffix(document, filepath.Ext(document)) + sidecarSuffix
}
