// Package ooxml reads and writes Office Open XML word-processing packages.
//
// It provides three pieces of the redaction engine:
//   - Package: opens a .docx archive, locates the main document part and
//     reassembles an archive in which only that part is replaced
//   - Extract: builds the paragraph/run text model of the document part
//   - Document.Rewrite: writes redacted flat text back into the run structure
package ooxml
