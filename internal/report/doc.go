// Package report renders the audit of redaction runs.
//
// An audit lists, per document, how many requests were applied and why the
// others were rejected, plus the SHA3 digests of input and output. The
// formats are:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: one JSON document for tooling
//   - MarkdownWriter: tables and a mermaid pie of applied vs rejected
//   - XLSXWriter: a workbook with a summary sheet and a diagnostics sheet
//
// Audits never contain paragraph text, only positions and error kinds.
package report
