package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/engine"
	"github.com/nao1215/docredact/internal/model"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file.docx>",
		Short: "Extract paragraphs and register a document for redaction",
		Long: `Extract reads a Word document, prints its paragraphs and stores the
original so that redactions can be marked and applied later.

Paragraph IDs are positions in document order, empty paragraphs included.
Redaction offsets are character (not byte) offsets into the paragraph text.

Examples:
  # Register a document and print its paragraphs
  docredact extract contract.docx

  # Print the extraction as JSON
  docredact extract --json contract.docx

  # Only print the paragraphs, do not store anything
  docredact extract --no-session contract.docx

  # Also list e-mail addresses, keys and other sensitive text
  docredact extract --suggest --min-severity high contract.docx`,
		Args: cobra.ExactArgs(1),
		RunE: runExtractCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	cmd.Flags().Bool("no-session", false, "Do not register a session")
	cmd.Flags().BoolP("suggest", "s", false, "Detect sensitive text and print suggested redactions")
	addDetectFlags(cmd)

	return cmd
}

// extraction is the JSON output of the extract command.
type extraction struct {
	DocumentID string          `json:"documentId,omitempty"`
	Filename   string          `json:"filename"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Paragraphs []paragraphText `json:"paragraphs"`

	Suggestions *engine.Suggestions `json:"suggestions,omitempty"`
}

// paragraphText is the {id, text} shape clients mark offsets against.
type paragraphText struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := prepare(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	out := extraction{Filename: filepath.Base(path)}
	var (
		eng        *engine.Engine
		paragraphs []model.Paragraph
	)

	if boolFlag(cmd, "no-session") {
		eng, err = statelessEngine(cfg, logger)
		if err != nil {
			return err
		}
		paragraphs, err = eng.Extract(data)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", path, err)
		}
	} else {
		eng, err = openEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		reg, err := eng.Register(cmd.Context(), out.Filename, data)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", path, err)
		}
		paragraphs = reg.Paragraphs
		out.DocumentID = reg.Session.ID
		if !reg.Session.ExpiresAt.IsZero() {
			expires := reg.Session.ExpiresAt
			out.ExpiresAt = &expires
		}
	}

	out.Paragraphs = make([]paragraphText, 0, len(paragraphs))
	for _, p := range paragraphs {
		out.Paragraphs = append(out.Paragraphs, paragraphText{ID: p.ID, Text: p.FlatText})
	}

	if boolFlag(cmd, "suggest") {
		id := out.DocumentID
		if id == "" {
			id = out.Filename
		}
		out.Suggestions, err = eng.Detect(cmd.Context(), id, paragraphs)
		if err != nil {
			return err
		}
	}

	if boolFlag(cmd, "json") {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}
	writeExtraction(cmd.OutOrStdout(), out)
	return nil
}

func writeExtraction(w io.Writer, out extraction) {
	if out.DocumentID != "" {
		fmt.Fprintf(w, "Document ID: %s\n", out.DocumentID)
	}
	fmt.Fprintf(w, "File:        %s\n", out.Filename)
	if out.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:     %s\n", out.ExpiresAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Paragraphs:  %d\n\n", len(out.Paragraphs))

	for _, p := range out.Paragraphs {
		fmt.Fprintf(w, "[%d] %s\n", p.ID, p.Text)
	}

	if out.Suggestions == nil {
		return
	}
	fmt.Fprintf(w, "\nFindings:    %d (redacting %s and above)\n", len(out.Suggestions.Findings), out.Suggestions.Threshold)
	for _, f := range out.Suggestions.Findings {
		fmt.Fprintf(w, "  [%d] %d-%d %-10s %s\n", f.ParagraphID, f.StartPos, f.EndPos, f.Severity, f.Type)
	}
	if len(out.Suggestions.Redactions) > 0 {
		fmt.Fprintln(w, "\nSuggested requests:")
		data, _ := json.Marshal(out.Suggestions.Redactions)
		fmt.Fprintf(w, "  %s\n", data)
	}
}
