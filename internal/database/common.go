package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/docredact/internal/model"
)

// sessionColumns is the column list shared by every session query.
const sessionColumns = `id, original_name, blob_key, digest, size, paragraphs, created_at, expires_at`

// timestampLayout is a fixed-width UTC layout; values written with it
// sort correctly as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// formatTimestamp formats t for the sessions table.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// decodeBatch rebuilds a stored batch from its JSON request list.
func decodeBatch(documentID string, redactions []byte, timestamp float64) (model.Batch, error) {
	var reqs []model.RedactionRequest
	if err := json.Unmarshal(redactions, &reqs); err != nil {
		return model.Batch{}, fmt.Errorf("%w: failed to parse stored batch: %w", model.ErrIOFailure, err)
	}
	if reqs == nil {
		reqs = []model.RedactionRequest{}
	}
	return model.Batch{
		DocumentID: documentID,
		Redactions: reqs,
		Timestamp:  timestamp,
		Count:      len(reqs),
	}, nil
}
