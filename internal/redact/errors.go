package redact

import "errors"

// ErrBatchRejected is returned in strict mode when any request of the batch
// is invalid. The error also wraps the sentinel of the first diagnostic.
var ErrBatchRejected = errors.New("redaction batch rejected")
