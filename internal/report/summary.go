package report

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/docredact/internal/model"
)

// Summary aggregates the counts of several results.
type Summary struct {
	Documents int `json:"documents"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Requested int `json:"requested"`
	Applied   int `json:"applied"`
	Rejected  int `json:"rejected"`

	// RejectedByKind counts diagnostics per error kind name.
	RejectedByKind map[string]int `json:"rejectedByKind,omitempty"`
}

// Summarize computes the summary of results. Nil results are skipped.
func Summarize(results []*model.Result) Summary {
	s := Summary{RejectedByKind: map[string]int{}}
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Documents++
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Requested += r.Requested
		s.Applied += r.Applied
		s.Rejected += r.Rejected()
		for _, d := range r.Diagnostics {
			s.RejectedByKind[d.Kind.String()]++
		}
	}
	return s
}

// Kinds returns the rejection kind names in a stable order.
func (s Summary) Kinds() []string {
	kinds := make([]string, 0, len(s.RejectedByKind))
	for k := range s.RejectedByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// KindLabel turns an error kind name into a title-cased label,
// e.g. "ParagraphOutOfRange" becomes "Paragraph Out Of Range".
// Acronyms such as "IO" are kept.
func KindLabel(kind string) string {
	words := splitCamel(kind)
	for i, word := range words {
		if strings.ToUpper(word) != word {
			words[i] = strings.ToLower(word)
		}
	}
	return cases.Title(language.English, cases.NoLower).String(strings.Join(words, " "))
}

// splitCamel splits a CamelCase identifier into words. A run of capitals
// followed by a lowercase letter ends before its last capital.
func splitCamel(s string) []string {
	runes := []rune(s)
	var (
		words []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		next := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if unicode.IsUpper(cur) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && next)) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

// status describes the outcome of a result in one short phrase.
func status(r *model.Result) string {
	switch {
	case !r.Succeeded():
		return "Failed (" + KindLabel(r.ErrorKind.String()) + ")"
	case r.Rejected() > 0:
		return "Partial"
	default:
		return "Complete"
	}
}

// joinInts formats paragraph IDs as a comma separated list.
func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = itoa(id)
	}
	return strings.Join(parts, ", ")
}
