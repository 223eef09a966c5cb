package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/docredact/internal/model"
)

// WordprocessingML is the namespace of the main document part elements.
const WordprocessingML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// xmlNamespace is the namespace bound to the reserved xml prefix.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Local names of the elements that make up the text model.
const (
	elemParagraph = "p"
	elemRun       = "r"
	elemText      = "t"
)

// textNode records where one w:t element sits in the document part.
type textNode struct {
	// start and end delimit the whole element, tags included.
	start, end int

	// contentStart and contentEnd delimit the character data.
	contentStart, contentEnd int

	// selfClosing is true for <w:t/>.
	selfClosing bool

	// qname is the element name as written, e.g. "w:t".
	qname string

	// hasSpace is true when the start tag carries an xml:space attribute.
	hasSpace bool
}

// runLayout records where one w:r element sits in the document part.
type runLayout struct {
	// start and end delimit the whole element.
	start, end int

	// endTagStart is the offset of the end tag; equal to end for <w:r/>.
	endTagStart int

	selfClosing bool

	// prefix is the namespace prefix used by the run, possibly empty.
	prefix string

	texts []textNode
	text  strings.Builder
}

// paragraphLayout holds the runs owned by one paragraph.
type paragraphLayout struct {
	runs []*runLayout
}

// Document is the parsed text model of a main document part together with
// the byte layout needed to rewrite it.
type Document struct {
	// Paragraphs lists every w:p element in document order.
	// Paragraph IDs equal their index in this slice.
	Paragraphs []model.Paragraph

	// xml is the document part the model was extracted from.
	xml []byte

	// layouts is parallel to Paragraphs.
	layouts []paragraphLayout
}

// XML returns the document part the model was extracted from.
func (d *Document) XML() []byte {
	return d.xml
}

// Paragraph returns the paragraph with the given ID.
func (d *Document) Paragraph(id int) (model.Paragraph, bool) {
	if id < 0 || id >= len(d.Paragraphs) {
		return model.Paragraph{}, false
	}
	return d.Paragraphs[id], true
}

// elementKind tags entries of the open element stack.
type elementKind int

const (
	kindOther elementKind = iota
	kindParagraph
	kindRun
	kindText
)

// openElement is one entry of the open element stack.
type openElement struct {
	kind elementKind

	// paragraph is the index of the paragraph for kindParagraph, and the
	// owning paragraph (or -1) for kindRun and kindText.
	paragraph int

	// run is the owning run for kindRun and kindText, nil when the element
	// is not owned by any paragraph.
	run *runLayout

	// text is the node being recorded for kindText.
	text *textNode
}

// Extract parses a main document part into its paragraph and run model.
//
// Every w:p element becomes a paragraph, including empty ones, so that a
// paragraph's ID equals its position in document order. Each w:r belongs to
// the innermost paragraph enclosing it; the text of a run is the
// concatenation of all of its w:t elements. Elements are matched by
// namespace URI, so any prefix bound to WordprocessingML is accepted.
//
// Malformed XML fails with model.ErrMalformedDocument.
func Extract(documentXML []byte) (*Document, error) {
	doc := &Document{xml: documentXML}

	dec := xml.NewDecoder(bytes.NewReader(documentXML))
	dec.Strict = true

	var (
		stack      []openElement
		paragraphs []int // open paragraph indices, innermost last
		sawRoot    bool
	)

	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrMalformedDocument, err)
		}
		end := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			el := openElement{kind: kindOther, paragraph: -1}
			if t.Name.Space == WordprocessingML {
				switch t.Name.Local {
				case elemParagraph:
					doc.layouts = append(doc.layouts, paragraphLayout{})
					el.kind = kindParagraph
					el.paragraph = len(doc.layouts) - 1
					paragraphs = append(paragraphs, el.paragraph)
				case elemRun:
					el.kind = kindRun
					if len(paragraphs) > 0 {
						el.paragraph = paragraphs[len(paragraphs)-1]
						prefix, _ := rawName(documentXML[start:end])
						el.run = &runLayout{
							start:       start,
							selfClosing: isSelfClosing(documentXML[start:end]),
							prefix:      prefix,
						}
						layout := &doc.layouts[el.paragraph]
						layout.runs = append(layout.runs, el.run)
					}
				case elemText:
					el.kind = kindText
					if parent := innermostRun(stack); parent != nil && parent.paragraph == lastOr(paragraphs, -1) {
						el.paragraph = parent.paragraph
						el.run = parent.run
						prefix, local := rawName(documentXML[start:end])
						el.text = &textNode{
							start:        start,
							contentStart: end,
							selfClosing:  isSelfClosing(documentXML[start:end]),
							qname:        qualify(prefix, local),
							hasSpace:     hasXMLSpace(t.Attr),
						}
					}
				}
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected end element %s", model.ErrMalformedDocument, t.Name.Local)
			}
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch el.kind {
			case kindParagraph:
				paragraphs = paragraphs[:len(paragraphs)-1]
			case kindRun:
				if el.run != nil {
					el.run.end = end
					el.run.endTagStart = start
					if el.run.selfClosing {
						el.run.endTagStart = end
					}
				}
			case kindText:
				if el.text != nil {
					el.text.contentEnd = start
					el.text.end = end
					if el.text.selfClosing {
						el.text.contentEnd = el.text.contentStart
					}
					el.run.texts = append(el.run.texts, *el.text)
				}
			case kindOther:
			}

		case xml.CharData:
			if len(stack) > 0 {
				if top := stack[len(stack)-1]; top.kind == kindText && top.text != nil {
					top.run.text.Write(t)
				}
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", model.ErrMalformedDocument)
	}

	doc.Paragraphs = make([]model.Paragraph, len(doc.layouts))
	for i, layout := range doc.layouts {
		runs := make([]model.Run, len(layout.runs))
		for j, r := range layout.runs {
			runs[j] = model.Run{Text: r.text.String(), TextNodes: len(r.texts)}
		}
		doc.Paragraphs[i] = model.NewParagraph(i, runs)
	}

	return doc, nil
}

// innermostRun returns the closest open run element, or nil.
func innermostRun(stack []openElement) *openElement {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == kindRun {
			if stack[i].run == nil {
				return nil
			}
			return &stack[i]
		}
	}
	return nil
}

func lastOr(s []int, def int) int {
	if len(s) == 0 {
		return def
	}
	return s[len(s)-1]
}

// rawName returns the prefix and local name of a start tag as written.
func rawName(tag []byte) (prefix, local string) {
	name := bytes.TrimPrefix(tag, []byte("<"))
	if i := bytes.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}
	if i := bytes.IndexByte(name, ':'); i >= 0 {
		return string(name[:i]), string(name[i+1:])
	}
	return "", string(name)
}

// qualify joins a prefix and a local name.
func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// hasXMLSpace reports whether attrs include xml:space.
func hasXMLSpace(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == "space" && (a.Name.Space == xmlNamespace || a.Name.Space == "xml") {
			return true
		}
	}
	return false
}

// isSelfClosing reports whether a start tag is written as <x/>.
func isSelfClosing(tag []byte) bool {
	return bytes.HasSuffix(tag, []byte("/>"))
}
