package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestKindOf tests classification of wrapped errors into the taxonomy.
func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil is none", err: nil, want: KindNone},
		{name: "wrapped archive corrupt", err: fmt.Errorf("open: %w", ErrArchiveCorrupt), want: KindArchiveCorrupt},
		{name: "part missing", err: ErrPartMissing, want: KindPartMissing},
		{name: "malformed document", err: fmt.Errorf("extract: %w", ErrMalformedDocument), want: KindMalformedDocument},
		{name: "paragraph out of range", err: ErrParagraphOutOfRange, want: KindParagraphOutOfRange},
		{name: "invalid range", err: ErrInvalidRange, want: KindInvalidRange},
		{name: "not found", err: fmt.Errorf("load: %w", ErrNotFound), want: KindNotFound},
		{name: "invalid request", err: ErrInvalidRequest, want: KindInvalidRequest},
		{name: "io failure", err: fmt.Errorf("write: %w", ErrIOFailure), want: KindIOFailure},
		{name: "deadline exceeded counts as io failure", err: context.DeadlineExceeded, want: KindIOFailure},
		{name: "unknown error counts as io failure", err: errors.New("disk on fire"), want: KindIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestErrorKindText tests kind names and their text encoding.
func TestErrorKindText(t *testing.T) {
	t.Parallel()

	t.Run("every kind has a sentinel except none", func(t *testing.T) {
		t.Parallel()

		for kind := range kindNames {
			if kind == KindNone {
				if kind.Sentinel() != nil {
					t.Error("expected no sentinel for KindNone")
				}
				continue
			}
			if KindOf(kind.Sentinel()) != kind {
				t.Errorf("sentinel of %s does not classify back to itself", kind)
			}
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		if ErrorKind(99).String() != "Unknown" {
			t.Errorf("expected Unknown, got %s", ErrorKind(99))
		}
	})

	t.Run("diagnostic kind serializes by name", func(t *testing.T) {
		t.Parallel()

		d := Diagnostic{
			Index:   1,
			Request: RedactionRequest{ParagraphID: 9, StartPos: 0, EndPos: 1},
			Kind:    KindParagraphOutOfRange,
			Message: "paragraph 9 does not exist",
		}
		data, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"kind":"ParagraphOutOfRange"`) {
			t.Errorf("expected kind name in %s", data)
		}

		var back Diagnostic
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back.Kind != KindParagraphOutOfRange {
			t.Errorf("expected kind to decode, got %s", back.Kind)
		}
	})

	t.Run("unknown kind name fails to decode", func(t *testing.T) {
		t.Parallel()

		var k ErrorKind
		if err := k.UnmarshalText([]byte("Bogus")); err == nil {
			t.Error("expected error for unknown kind name")
		}
	})

	t.Run("diagnostic error wraps sentinel", func(t *testing.T) {
		t.Parallel()

		d := Diagnostic{Kind: KindInvalidRange, Message: "end before start"}
		if !errors.Is(d.Err(), ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", d.Err())
		}
	})
}

// TestResultFail tests recording abort-level errors.
func TestResultFail(t *testing.T) {
	t.Parallel()

	r := NewResult("doc")
	r.Output = []byte("partial")
	r.Fail(fmt.Errorf("open: %w", ErrPartMissing))

	if r.Succeeded() {
		t.Error("expected failed result")
	}
	if r.Output != nil {
		t.Error("expected output to be discarded on failure")
	}
	if r.ErrorKind != KindPartMissing {
		t.Errorf("expected PartMissing, got %s", r.ErrorKind)
	}
	if !strings.Contains(r.ErrorMessage, "document part missing") {
		t.Errorf("unexpected message %q", r.ErrorMessage)
	}
}
