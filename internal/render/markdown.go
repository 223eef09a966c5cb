package render

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/docredact/internal/model"
)

// markdownEscaper escapes characters that would start Markdown syntax.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
)

// orderedMarker matches an ordered list marker such as "1." or "2)".
var orderedMarker = regexp.MustCompile(`^ {0,3}\d{1,9}[.)]`)

// escapeMarkdown escapes inline markup and, on every line, a leading
// marker that would open a block.
func escapeMarkdown(s string) string {
	lines := strings.Split(markdownEscaper.Replace(s), "\n")
	for i, line := range lines {
		lines[i] = escapeBlockMarker(line)
	}
	return strings.Join(lines, "\n")
}

// escapeBlockMarker escapes the marker of a list item, a setext underline,
// a thematic break or a tilde fence at the start of line.
func escapeBlockMarker(line string) string {
	rest := strings.TrimLeft(line, " ")
	indent := len(line) - len(rest)
	if indent > 3 || rest == "" {
		return line
	}
	if strings.IndexByte("-+=~", rest[0]) >= 0 {
		return line[:indent] + `\` + rest
	}
	if m := orderedMarker.FindStringIndex(line); m != nil {
		return line[:m[1]-1] + `\` + line[m[1]-1:]
	}
	return line
}

// Markdown writes the non-blank paragraphs as Markdown paragraphs under
// an optional title. Markup characters in the text are escaped, so every
// paragraph renders as literal text.
func Markdown(w io.Writer, title string, paragraphs []model.Paragraph) error {
	md := markdown.NewMarkdown(w)
	if title != "" {
		md.H1(markdownEscaper.Replace(title))
		md.PlainText("")
	}

	for _, p := range paragraphs {
		if strings.TrimSpace(p.FlatText) == "" {
			continue
		}
		md.PlainText(escapeMarkdown(p.FlatText))
		md.PlainText("")
	}
	return md.Build()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
