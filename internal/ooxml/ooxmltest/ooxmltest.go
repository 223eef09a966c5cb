// Package ooxmltest builds in-memory .docx packages for tests.
package ooxmltest

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

// Namespaces declared on the root element of generated document parts.
const Namespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// Comment is the archive comment written by Package.
const Comment = "docredact fixture"

// Modified is the timestamp stamped on every generated entry.
var Modified = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

// Entry is one file of a generated package.
type Entry struct {
	Name   string
	Data   []byte
	Method uint16
}

// PNG is a tiny stand-in for an embedded image. It is stored uncompressed
// so tests can check that raw entry bytes survive untouched.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 1, 2, 3, 4}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Default Extension="png" ContentType="image/png"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const styles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles ` + Namespaces + `><w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style></w:styles>`

const core = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Fixture</dc:title></cp:coreProperties>`

// Rels returns a package relationships part pointing at target.
func Rels(target string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="` + target + `"/>` +
		`</Relationships>`)
}

// DocumentXML wraps body in a complete main document part.
func DocumentXML(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + Namespaces + `><w:body>` + body + `<w:sectPr/></w:body></w:document>`)
}

// Paragraph renders a paragraph with one run per text.
func Paragraph(texts ...string) string {
	var sb bytes.Buffer
	sb.WriteString("<w:p>")
	for _, t := range texts {
		sb.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
		sb.WriteString(t)
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Entries returns the entries of a typical package around documentXML.
func Entries(documentXML []byte) []Entry {
	return []Entry{
		{Name: "[Content_Types].xml", Data: []byte(contentTypes), Method: zip.Deflate},
		{Name: "_rels/.rels", Data: Rels("word/document.xml"), Method: zip.Deflate},
		{Name: "word/document.xml", Data: documentXML, Method: zip.Deflate},
		{Name: "word/styles.xml", Data: []byte(styles), Method: zip.Deflate},
		{Name: "word/media/image1.png", Data: PNG, Method: zip.Store},
		{Name: "docProps/core.xml", Data: []byte(core), Method: zip.Deflate},
	}
}

// Build writes entries into a ZIP archive.
func Build(tb testing.TB, entries []Entry, comment string) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   e.Method,
			Modified: Modified,
		})
		if err != nil {
			tb.Fatalf("failed to create entry %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			tb.Fatalf("failed to write entry %s: %v", e.Name, err)
		}
	}
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			tb.Fatalf("failed to set comment: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}

// Package builds a complete .docx whose body holds the given paragraphs.
func Package(tb testing.TB, paragraphs ...string) []byte {
	tb.Helper()
	body := ""
	for _, p := range paragraphs {
		body += p
	}
	return Build(tb, Entries(DocumentXML(body)), Comment)
}

// RawEntry is an entry as stored in the archive.
type RawEntry struct {
	Name     string
	Method   uint16
	Modified time.Time
	Raw      []byte
	Content  []byte
}

// ReadEntries returns every entry of an archive in order, with both the
// raw compressed bytes and the decompressed content.
func ReadEntries(tb testing.TB, data []byte) []RawEntry {
	tb.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		tb.Fatalf("failed to read archive: %v", err)
	}

	out := make([]RawEntry, 0, len(zr.File))
	for _, f := range zr.File {
		raw, err := readAll(f.OpenRaw())
		if err != nil {
			tb.Fatalf("failed to read raw %s: %v", f.Name, err)
		}
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("failed to open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			tb.Fatalf("failed to read %s: %v", f.Name, err)
		}
		out = append(out, RawEntry{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
			Raw:      raw,
			Content:  content,
		})
	}
	return out
}

// Part returns the decompressed content of the named entry.
func Part(tb testing.TB, data []byte, name string) []byte {
	tb.Helper()
	for _, e := range ReadEntries(tb, data) {
		if e.Name == name {
			return e.Content
		}
	}
	tb.Fatalf("entry %s not found", name)
	return nil
}

func readAll(r io.Reader, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
