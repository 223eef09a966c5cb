package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"

	"github.com/nao1215/docredact/internal/model"
)

// edit replaces document bytes [start, end) with repl.
// An insertion has start == end.
type edit struct {
	start, end int
	repl       []byte
}

// Rewrite writes new flat texts back into the run structure and returns the
// new document part. changes maps paragraph IDs to their final flat text.
//
// For every changed paragraph the content of all of its text nodes is
// cleared and the whole new text is placed into the first run's first text
// node, whose start tag is kept as written. If the first run has no text node, one is appended to it. A
// paragraph without runs is left untouched. Run-level formatting inside a
// changed paragraph therefore collapses into the first run's formatting.
//
// Bytes outside the affected text nodes are copied unchanged. An unknown
// paragraph ID fails with model.ErrParagraphOutOfRange and nothing is
// rewritten.
func (d *Document) Rewrite(changes map[int]string) ([]byte, error) {
	ids := make([]int, 0, len(changes))
	for id := range changes {
		if id < 0 || id >= len(d.layouts) {
			return nil, fmt.Errorf("%w: paragraph %d of %d", model.ErrParagraphOutOfRange, id, len(d.layouts))
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var edits []edit
	for _, id := range ids {
		edits = append(edits, d.layouts[id].edits(d.xml, changes[id])...)
	}
	if len(edits) == 0 {
		return d.xml, nil
	}

	return splice(d.xml, edits)
}

// RewriteParagraph rewrites a single paragraph. It is shorthand for
// Rewrite with a one-entry change set.
func (d *Document) RewriteParagraph(id int, newFlatText string) ([]byte, error) {
	return d.Rewrite(map[int]string{id: newFlatText})
}

// edits computes the byte edits that store text in the paragraph.
// src is the document part the layout was recorded from.
func (l paragraphLayout) edits(src []byte, text string) []edit {
	if len(l.runs) == 0 {
		return nil
	}

	var out []edit
	first := l.runs[0]

	if len(first.texts) == 0 {
		out = append(out, first.insertText(text))
	}

	for i, r := range l.runs {
		for j, t := range r.texts {
			if i == 0 && j == 0 {
				out = append(out, edit{
					start: t.start,
					end:   t.end,
					repl:  t.refill(src, text),
				})
				continue
			}
			if t.contentEnd > t.contentStart {
				out = append(out, edit{start: t.contentStart, end: t.contentEnd})
			}
		}
	}

	return out
}

// insertText returns the edit that appends a text node as the run's last child.
func (r *runLayout) insertText(text string) edit {
	node := textElement(qualify(r.prefix, elemText), text)

	if !r.selfClosing {
		return edit{start: r.endTagStart, end: r.endTagStart, repl: node}
	}

	// <w:r .../> becomes <w:r ...><w:t>text</w:t></w:r>; "/>" is always
	// the last two bytes of an empty-element tag.
	var buf bytes.Buffer
	buf.WriteByte('>')
	buf.Write(node)
	buf.WriteString("</")
	buf.WriteString(qualify(r.prefix, elemRun))
	buf.WriteByte('>')
	return edit{start: r.end - 2, end: r.end, repl: buf.Bytes()}
}

// preserveSpace is the attribute every rewritten text node carries.
const preserveSpace = `xml:space="preserve"`

// xmlSpaceAttr matches an xml:space attribute inside a raw start tag.
var xmlSpaceAttr = regexp.MustCompile(`xml:space\s*=\s*("[^"]*"|'[^']*')`)

// refill renders the text node with s as its content. The original start
// tag is kept byte for byte, so namespace declarations and attributes
// survive; only xml:space is set to preserve. <w:t/> is expanded into a
// start and end tag pair.
func (t textNode) refill(src []byte, s string) []byte {
	tag := src[t.start:t.contentStart]
	head := bytes.TrimSuffix(tag, []byte(">"))
	if t.selfClosing {
		head = bytes.TrimSuffix(head, []byte("/"))
	}

	var buf bytes.Buffer
	if t.hasSpace {
		buf.Write(xmlSpaceAttr.ReplaceAll(head, []byte(preserveSpace)))
	} else {
		buf.Write(head)
		buf.WriteByte(' ')
		buf.WriteString(preserveSpace)
	}
	buf.WriteByte('>')
	_ = xml.EscapeText(&buf, []byte(s)) //nolint:errcheck // bytes.Buffer writes never fail

	if t.selfClosing {
		buf.WriteString("</")
		buf.WriteString(t.qname)
		buf.WriteByte('>')
	} else {
		buf.Write(src[t.contentEnd:t.end])
	}
	return buf.Bytes()
}

// textElement renders a text node holding s with whitespace preserved.
func textElement(qname, s string) []byte {
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(qname)
	buf.WriteByte(' ')
	buf.WriteString(preserveSpace)
	buf.WriteByte('>')
	_ = xml.EscapeText(&buf, []byte(s)) //nolint:errcheck // bytes.Buffer writes never fail
	buf.WriteString("</")
	buf.WriteString(qname)
	buf.WriteByte('>')
	return buf.Bytes()
}

// splice applies non-overlapping edits to src.
func splice(src []byte, edits []edit) ([]byte, error) {
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})

	var buf bytes.Buffer
	buf.Grow(len(src))

	pos := 0
	for _, e := range edits {
		if e.start < pos || e.end < e.start || e.end > len(src) {
			return nil, fmt.Errorf("overlapping rewrite at byte %d", e.start)
		}
		buf.Write(src[pos:e.start])
		buf.Write(e.repl)
		pos = e.end
	}
	buf.Write(src[pos:])

	return buf.Bytes(), nil
}
