package model

import "fmt"

// ErrorKind classifies failures of the redaction engine.
//
// Archive-level kinds abort the whole operation. Request-level kinds
// (ParagraphOutOfRange, InvalidRange) only reject the offending request.
type ErrorKind int

const (
	// KindNone means no failure.
	KindNone ErrorKind = iota

	// KindArchiveCorrupt means the container could not be read as a ZIP archive.
	KindArchiveCorrupt

	// KindPartMissing means the main document part is absent from the package.
	KindPartMissing

	// KindMalformedDocument means the document part is not well-formed XML.
	KindMalformedDocument

	// KindParagraphOutOfRange means a request names a paragraph that does not exist.
	KindParagraphOutOfRange

	// KindInvalidRange means a request's offsets are out of bounds or not increasing.
	KindInvalidRange

	// KindIOFailure means reading or writing at the storage boundary failed or timed out.
	KindIOFailure

	// KindInvalidRequest means client input was rejected before reaching the engine.
	KindInvalidRequest

	// KindNotFound means the referenced document session does not exist.
	KindNotFound
)

var kindNames = map[ErrorKind]string{
	KindNone:                "None",
	KindArchiveCorrupt:      "ArchiveCorrupt",
	KindPartMissing:         "PartMissing",
	KindMalformedDocument:   "MalformedDocument",
	KindParagraphOutOfRange: "ParagraphOutOfRange",
	KindInvalidRange:        "InvalidRange",
	KindIOFailure:           "IOFailure",
	KindInvalidRequest:      "InvalidRequest",
	KindNotFound:            "NotFound",
}

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", string(text))
}

// IsRequestLevel reports whether the kind only rejects a single request.
func (k ErrorKind) IsRequestLevel() bool {
	return k == KindParagraphOutOfRange || k == KindInvalidRange
}

// Diagnostic records one rejected redaction request.
type Diagnostic struct {
	// Index is the position of the request within its batch.
	Index int `json:"index"`

	// Request is the rejected request as received.
	Request RedactionRequest `json:"request"`

	// Kind is ParagraphOutOfRange or InvalidRange.
	Kind ErrorKind `json:"kind"`

	// Message explains the rejection in human-readable form.
	Message string `json:"message"`
}

// Err returns the diagnostic as an error wrapping the matching sentinel.
func (d Diagnostic) Err() error {
	return fmt.Errorf("%w: request %d %s: %s", d.Kind.Sentinel(), d.Index, d.Request, d.Message)
}
