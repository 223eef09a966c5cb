package model

import "errors"

// Engine errors.
// Callers match them with errors.Is; every layer wraps with %w so the
// original kind survives up to the CLI and the HTTP API.
var (
	// ErrArchiveCorrupt is returned when the package is not a readable ZIP archive.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrPartMissing is returned when the main document part is absent.
	ErrPartMissing = errors.New("document part missing")

	// ErrMalformedDocument is returned when the document part is not well-formed XML.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrParagraphOutOfRange is returned when a request references a missing paragraph.
	ErrParagraphOutOfRange = errors.New("paragraph out of range")

	// ErrInvalidRange is returned when request offsets violate 0 <= start < end <= len.
	ErrInvalidRange = errors.New("invalid range")

	// ErrIOFailure is returned when storage I/O fails or times out.
	ErrIOFailure = errors.New("i/o failure")

	// ErrInvalidRequest is returned when client input fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned when a document session does not exist.
	ErrNotFound = errors.New("document not found")
)

// Sentinel returns the sentinel error matching the kind, or nil for KindNone.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindArchiveCorrupt:
		return ErrArchiveCorrupt
	case KindPartMissing:
		return ErrPartMissing
	case KindMalformedDocument:
		return ErrMalformedDocument
	case KindParagraphOutOfRange:
		return ErrParagraphOutOfRange
	case KindInvalidRange:
		return ErrInvalidRange
	case KindIOFailure:
		return ErrIOFailure
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// KindOf classifies err into the engine taxonomy.
// Deadline, cancellation and unclassified errors count as I/O failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrArchiveCorrupt):
		return KindArchiveCorrupt
	case errors.Is(err, ErrPartMissing):
		return KindPartMissing
	case errors.Is(err, ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(err, ErrParagraphOutOfRange):
		return KindParagraphOutOfRange
	case errors.Is(err, ErrInvalidRange):
		return KindInvalidRange
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		// ErrIOFailure, context deadlines and anything else raised at the
		// storage boundary.
		return KindIOFailure
	}
}
