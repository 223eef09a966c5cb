// Package render produces downloadable views of a redacted document:
// the rewritten package itself, or its paragraphs as plain text, HTML or
// Markdown.
package render

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/docredact/internal/model"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output format of a redacted document.
type Format string

// Supported formats.
const (
	FormatDOCX     Format = "docx"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// Formats lists every supported format.
var Formats = []Format{FormatDOCX, FormatText, FormatHTML, FormatMarkdown}

// ParseFormat parses a format name. The empty string selects docx;
// "text" and "markdown" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "docx":
		return FormatDOCX, nil
	case "txt", "text":
		return FormatText, nil
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
}

// FileName returns the download name for a redacted copy of original,
// e.g. "redacted_report.txt" for "report.docx" in text format.
func (f Format) FileName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "document.docx"
	}
	return "redacted_" + strings.TrimSuffix(base, filepath.Ext(base)) + "." + string(f)
}

// Write renders result in format f. The title is used by the HTML and
// Markdown views.
func Write(w io.Writer, f Format, title string, result *model.Result) error {
	if result == nil || !result.Succeeded() {
		return errors.New("result has no output")
	}

	switch f {
	case FormatDOCX:
		_, err := w.Write(result.Output)
		return err
	case FormatText:
		return Text(w, result.Paragraphs)
	case FormatHTML:
		return HTML(w, title, result.Paragraphs)
	case FormatMarkdown:
		return Markdown(w, title, result.Paragraphs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}
