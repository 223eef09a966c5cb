package model

import (
	"fmt"
	"time"
)

// RedactionRequest marks the half-open character interval [StartPos, EndPos)
// of one paragraph's flat text for redaction.
type RedactionRequest struct {
	ParagraphID int `json:"paragraphId"`
	StartPos    int `json:"startPos"`
	EndPos      int `json:"endPos"`
}

// Len returns the number of characters covered by the request.
// A non-monotonic request has length zero.
func (r RedactionRequest) Len() int {
	if r.EndPos <= r.StartPos {
		return 0
	}
	return r.EndPos - r.StartPos
}

// String returns a compact representation used in logs and reports.
func (r RedactionRequest) String() string {
	return fmt.Sprintf("p%d[%d:%d]", r.ParagraphID, r.StartPos, r.EndPos)
}

// Batch is the ordered set of redaction requests pending for one document.
// It is persisted between the mark and apply steps.
type Batch struct {
	// DocumentID identifies the document the batch belongs to.
	DocumentID string `json:"documentId"`

	// Redactions are the requests in the order the client marked them.
	Redactions []RedactionRequest `json:"redactions"`

	// Timestamp is the Unix time in seconds when the batch was saved.
	Timestamp float64 `json:"timestamp"`

	// Count always equals len(Redactions).
	Count int `json:"count"`
}

// NewBatch creates a batch stamped with the given time.
func NewBatch(documentID string, redactions []RedactionRequest, at time.Time) Batch {
	if redactions == nil {
		redactions = []RedactionRequest{}
	}
	return Batch{
		DocumentID: documentID,
		Redactions: redactions,
		Timestamp:  float64(at.UnixNano()) / float64(time.Second),
		Count:      len(redactions),
	}
}

// IsEmpty reports whether the batch holds no requests.
func (b Batch) IsEmpty() bool {
	return len(b.Redactions) == 0
}

// SavedAt converts Timestamp back to a time.Time.
func (b Batch) SavedAt() time.Time {
	if b.Timestamp == 0 {
		return time.Time{}
	}
	sec := int64(b.Timestamp)
	nsec := int64((b.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
