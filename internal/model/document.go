package model

import (
	"strings"
	"unicode/utf8"
)

// Run is a formatting-homogeneous span of text inside a paragraph.
// It corresponds to one w:r element owned by exactly one paragraph.
type Run struct {
	// Index is the zero-based position of the run within its paragraph.
	Index int `json:"index"`

	// Text is the concatenation of every text node in the run.
	// A run without text nodes has an empty Text.
	Text string `json:"text"`

	// TextNodes is the number of w:t elements found in the run.
	TextNodes int `json:"textNodes"`
}

// Len returns the run length in characters.
func (r Run) Len() int {
	return utf8.RuneCountInString(r.Text)
}

// RunSpan maps one run onto the paragraph's flat text.
// Start and End are half-open character offsets.
type RunSpan struct {
	Run   int `json:"run"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Paragraph is one w:p element of the document body.
//
// ID equals the paragraph's position in document order, including empty
// paragraphs, so that the index a client sees is the index the rewriter uses.
type Paragraph struct {
	// ID is the stable positional identifier of the paragraph.
	ID int `json:"id"`

	// Runs are the paragraph's runs in document order.
	Runs []Run `json:"runs,omitempty"`

	// FlatText is the concatenation of all run texts in order.
	// Redaction offsets are expressed against this string.
	FlatText string `json:"text"`

	// Offsets holds one span per run and partitions [0, Len()).
	Offsets []RunSpan `json:"offsets,omitempty"`
}

// NewParagraph builds a paragraph from its runs and computes FlatText and Offsets.
func NewParagraph(id int, runs []Run) Paragraph {
	var sb strings.Builder
	offsets := make([]RunSpan, 0, len(runs))
	pos := 0
	for i, r := range runs {
		runs[i].Index = i
		n := r.Len()
		offsets = append(offsets, RunSpan{Run: i, Start: pos, End: pos + n})
		pos += n
		sb.WriteString(r.Text)
	}
	return Paragraph{
		ID:       id,
		Runs:     runs,
		FlatText: sb.String(),
		Offsets:  offsets,
	}
}

// Len returns the length of the flat text in characters.
func (p Paragraph) Len() int {
	return utf8.RuneCountInString(p.FlatText)
}

// RunAt returns the index of the run covering the character offset pos.
// Zero-length runs never cover an offset. It returns -1 if pos is outside
// the paragraph.
func (p Paragraph) RunAt(pos int) int {
	for _, span := range p.Offsets {
		if pos >= span.Start && pos < span.End {
			return span.Run
		}
	}
	return -1
}

// ExtractedParagraph is the wire shape of one paragraph returned to clients.
type ExtractedParagraph struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Extraction is the wire shape returned after a document is opened.
type Extraction struct {
	// DocumentID identifies the session the paragraphs belong to.
	// It is empty for one-shot extraction.
	DocumentID string `json:"documentId,omitempty"`

	// Filename is the original name of the uploaded document.
	Filename string `json:"filename,omitempty"`

	// Paragraphs lists every paragraph, empty ones included.
	Paragraphs []ExtractedParagraph `json:"paragraphs"`
}

// NewExtraction converts paragraphs into the client-facing wire shape.
func NewExtraction(documentID, filename string, paragraphs []Paragraph) *Extraction {
	out := make([]ExtractedParagraph, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = ExtractedParagraph{ID: p.ID, Text: p.FlatText}
	}
	return &Extraction{
		DocumentID: documentID,
		Filename:   filename,
		Paragraphs: out,
	}
}

// NonEmpty returns the number of paragraphs with visible text.
func (e *Extraction) NonEmpty() int {
	n := 0
	for _, p := range e.Paragraphs {
		if strings.TrimSpace(p.Text) != "" {
			n++
		}
	}
	return n
}
