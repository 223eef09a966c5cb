package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/nao1215/docredact/internal/model"
)

// TextHeader starts every plain text view.
const TextHeader = "REDACTED DOCUMENT"

// Text writes the non-blank paragraphs as plain text, separated by blank lines.
func Text(w io.Writer, paragraphs []model.Paragraph) error {
	bw := bufio.NewWriter(w)

	_, _ = bw.WriteString(TextHeader + "\n")
	_, _ = bw.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, p := range paragraphs {
		if strings.TrimSpace(p.FlatText) == "" {
			continue
		}
		_, _ = bw.WriteString(p.FlatText)
		_, _ = bw.WriteString("\n\n")
	}
	return bw.Flush()
}
