// Package model defines the core data structures shared by docredact.
//
// This package contains the following main types:
//   - Paragraph, Run and RunSpan: the text model extracted from a document part
//   - RedactionRequest and Batch: the ranges a client marks for redaction
//   - Diagnostic and ErrorKind: per-request rejections and the error taxonomy
//   - Session: an uploaded document awaiting redaction
//   - Result: the outcome of applying a batch to a document
package model
