// Package redact turns a batch of redaction requests into the new flat text
// of every affected paragraph.
//
// The planner works on the text model only. It never touches XML; the
// ooxml package writes the planned texts back into the document part.
package redact
