// Package engine is the entry point for redacting documents.
//
// An Engine combines the pure redaction pipeline (open, extract, plan,
// rewrite, assemble) with the document session lifecycle used by the CLI
// and the HTTP API:
//
//  1. Register stores an uploaded original and returns its paragraphs.
//  2. Mark saves the pending redaction batch of a registered document;
//     Append adds to it.
//  3. Apply runs the pipeline over the stored original and the pending
//     batch. Publish does the same, hands the output to the caller and
//     destroys the session only once the caller has published it.
//
// Sessions that are never applied expire after the configured TTL and are
// removed by Purge. Redact and RedactMany skip the session layer entirely.
package engine
