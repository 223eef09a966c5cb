package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/nao1215/docredact/internal/model"
)

const (
	// DefaultDocumentPart is the conventional name of the main document part.
	DefaultDocumentPart = "word/document.xml"

	// DefaultMaxPartSize bounds the uncompressed size of any part we read.
	// It protects against archives that inflate to unreasonable sizes.
	DefaultMaxPartSize int64 = 64 << 20

	// packageRelationshipsPart lists the package-level relationships,
	// including the one pointing at the main document part.
	packageRelationshipsPart = "_rels/.rels"

	// officeDocumentRelSuffix identifies the main document relationship type.
	// Transitional and strict OOXML use different prefixes for the same suffix.
	officeDocumentRelSuffix = "/officeDocument"

	// zip64ExtraID is the header ID of the ZIP64 extended information field.
	zip64ExtraID = 0x0001

	// extTimeExtraID is the header ID of the extended timestamp field.
	extTimeExtraID = 0x5455
)

// Package is an opened OOXML archive.
// It keeps the original bytes so that every untouched entry can be copied
// into the output without recompression.
type Package struct {
	// raw is the original archive.
	raw []byte

	// reader indexes the entries of raw.
	reader *zip.Reader

	// documentFile is the entry holding the main document part.
	documentFile *zip.File

	// documentXML is the decompressed main document part.
	documentXML []byte

	// maxPartSize limits how many bytes a single part may inflate to.
	maxPartSize int64
}

// OpenOption configures Open.
type OpenOption func(*Package)

// WithMaxPartSize sets the maximum uncompressed size of a part.
// Values less than or equal to zero keep the default.
func WithMaxPartSize(n int64) OpenOption {
	return func(p *Package) {
		if n > 0 {
			p.maxPartSize = n
		}
	}
}

// Open parses data as an OOXML package and reads its main document part.
//
// It fails with model.ErrArchiveCorrupt when data is not a readable ZIP
// archive, and with model.ErrPartMissing when the archive has no main
// document part.
func Open(data []byte, opts ...OpenOption) (*Package, error) {
	p := &Package{
		raw:         data,
		maxPartSize: DefaultMaxPartSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrArchiveCorrupt, err)
	}
	p.reader = zr

	p.documentFile = p.findDocumentPart()
	if p.documentFile == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPartMissing, DefaultDocumentPart)
	}

	p.documentXML, err = p.readFile(p.documentFile)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// findDocumentPart locates the main document entry.
// The package relationships are consulted first; the conventional name is
// the fallback when they are absent, unreadable or point at a missing entry.
func (p *Package) findDocumentPart() *zip.File {
	if name := p.resolveOfficeDocument(); name != "" {
		if f := p.file(name); f != nil {
			return f
		}
	}
	return p.file(DefaultDocumentPart)
}

// relationships mirrors the subset of a .rels part we need.
type relationships struct {
	Relationships []struct {
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// resolveOfficeDocument returns the part name targeted by the package's
// officeDocument relationship, or an empty string.
func (p *Package) resolveOfficeDocument() string {
	f := p.file(packageRelationshipsPart)
	if f == nil {
		return ""
	}
	data, err := p.readFile(f)
	if err != nil {
		return ""
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return ""
	}
	for _, rel := range rels.Relationships {
		if !strings.HasSuffix(rel.Type, officeDocumentRelSuffix) {
			continue
		}
		if strings.EqualFold(rel.TargetMode, "External") {
			continue
		}
		return strings.TrimPrefix(path.Clean("/"+rel.Target), "/")
	}
	return ""
}

// file returns the first entry with the given name.
func (p *Package) file(name string) *zip.File {
	for _, f := range p.reader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readFile decompresses an entry, enforcing the part size limit.
func (p *Package) readFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(p.maxPartSize) { //nolint:gosec // maxPartSize is always positive
		return nil, fmt.Errorf("%w: part %s exceeds %d bytes", model.ErrArchiveCorrupt, f.Name, p.maxPartSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", model.ErrArchiveCorrupt, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, p.maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", model.ErrArchiveCorrupt, f.Name, err)
	}
	if int64(len(data)) > p.maxPartSize {
		return nil, fmt.Errorf("%w: part %s exceeds %d bytes", model.ErrArchiveCorrupt, f.Name, p.maxPartSize)
	}

	return data, nil
}

// DocumentPart returns the name of the main document part.
func (p *Package) DocumentPart() string {
	return p.documentFile.Name
}

// DocumentXML returns the decompressed main document part.
// The returned slice must not be modified.
func (p *Package) DocumentXML() []byte {
	return p.documentXML
}

// Bytes returns the original archive.
func (p *Package) Bytes() []byte {
	return p.raw
}

// Entries returns the names of all entries in archive order.
func (p *Package) Entries() []string {
	names := make([]string, len(p.reader.File))
	for i, f := range p.reader.File {
		names[i] = f.Name
	}
	return names
}

// ReadPart returns the decompressed content of the named part.
func (p *Package) ReadPart(name string) ([]byte, error) {
	f := p.file(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPartMissing, name)
	}
	return p.readFile(f)
}

// Write assembles a new archive in which the main document part holds
// newDocumentXML and every other entry is copied unchanged.
//
// Untouched entries are copied in their raw compressed form, so their
// compression method, data and metadata are identical to the input. Entry
// order and the archive comment are preserved. When newDocumentXML equals
// the original part, that entry is copied raw as well.
func (p *Package) Write(newDocumentXML []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(p.raw) + len(newDocumentXML) - len(p.documentXML))

	zw := zip.NewWriter(&buf)
	if p.reader.Comment != "" {
		if err := zw.SetComment(p.reader.Comment); err != nil {
			return nil, fmt.Errorf("failed to set archive comment: %w", err)
		}
	}

	unchanged := bytes.Equal(newDocumentXML, p.documentXML)

	for _, f := range p.reader.File {
		if f != p.documentFile || unchanged {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("failed to copy %s: %w", f.Name, err)
			}
			continue
		}

		header := rewriteHeader(f.FileHeader)
		w, err := zw.CreateHeader(&header)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", f.Name, err)
		}
		if _, err := w.Write(newDocumentXML); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// rewriteHeader prepares a copy of an entry header for freshly written data.
// Sizes and checksum are recomputed by the zip writer, which also emits its
// own extended timestamp from Modified. Stale ZIP64 and timestamp extra
// fields are dropped so they are not duplicated or contradicted.
func rewriteHeader(h zip.FileHeader) zip.FileHeader {
	h.CRC32 = 0
	h.CompressedSize = 0   //nolint:staticcheck // zeroed for consistency with the 64-bit fields
	h.UncompressedSize = 0 //nolint:staticcheck // zeroed for consistency with the 64-bit fields
	h.CompressedSize64 = 0
	h.UncompressedSize64 = 0
	h.Extra = stripExtraField(h.Extra, zip64ExtraID, extTimeExtraID)
	return h
}

// stripExtraField removes every extra field record with one of the given
// header IDs. Malformed trailing bytes are dropped.
func stripExtraField(extra []byte, ids ...uint16) []byte {
	if len(extra) == 0 {
		return nil
	}
	out := make([]byte, 0, len(extra))
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if 4+size > len(extra) {
			break
		}
		if !slices.Contains(ids, tag) {
			out = append(out, extra[:4+size]...)
		}
		extra = extra[4+size:]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// WritePackage replaces the main document part of original with
// newDocumentXML and returns the new archive.
func WritePackage(original, newDocumentXML []byte) ([]byte, error) {
	p, err := Open(original)
	if err != nil {
		return nil, err
	}
	return p.Write(newDocumentXML)
}
