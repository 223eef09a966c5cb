package model

import "time"

// Session is an uploaded document waiting for its redaction batch to be applied.
// It is created when a document is registered and destroyed after a
// successful apply or when it expires.
type Session struct {
	// ID is the document identifier clients use for mark and apply.
	ID string `json:"documentId"`

	// OriginalName is the file name the document was uploaded with.
	OriginalName string `json:"filename"`

	// BlobKey is the storage key of the original package bytes.
	BlobKey string `json:"-"`

	// Digest is the SHA3-256 hex digest of the original package.
	Digest string `json:"digest"`

	// Size is the original package size in bytes.
	Size int64 `json:"size"`

	// Paragraphs is the number of paragraphs extracted at upload time.
	Paragraphs int `json:"paragraphs"`

	// CreatedAt is when the session was registered.
	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt is when the session becomes eligible for purge.
	// A zero value means the session never expires.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session has expired at the given time.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
