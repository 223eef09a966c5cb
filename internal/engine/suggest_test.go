package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/detect"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml/ooxmltest"
)

func contactPackage(t *testing.T) []byte {
	t.Helper()
	return ooxmltest.Package(t,
		ooxmltest.Paragraph("Mail ", "admin@example.com now"),
		ooxmltest.Paragraph("Ask bob@gmail.com"),
		ooxmltest.Paragraph("Badge EMP-123456"),
	)
}

func TestNewScanner(t *testing.T) {
	t.Parallel()

	t.Run("adds custom patterns", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DetectPatterns = []string{`EMP-\d{6}`}
		cfg.DetectMinSeverity = "medium"

		scanner, threshold, err := NewScanner(cfg, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if threshold != detect.SeverityMedium {
			t.Errorf("expected MEDIUM, got %s", threshold)
		}
		names := scanner.Detectors()
		if names[len(names)-1] != detect.CategoryCustom {
			t.Errorf("expected custom detector last, got %v", names)
		}
	})

	tests := []struct {
		name     string
		patterns []string
		severity string
	}{
		{name: "bad severity", severity: "severe"},
		{name: "bad pattern", patterns: []string{"("}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.DetectPatterns = tt.patterns
			cfg.DetectMinSeverity = tt.severity

			if _, _, err := NewScanner(cfg, discardLogger()); !errors.Is(err, model.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestEngineSuggest(t *testing.T) {
	t.Parallel()

	t.Run("detect uses the engine threshold", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, WithThreshold(detect.SeverityHigh))
		paragraphs, err := f.engine.Extract(contactPackage(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, err := f.engine.Detect(context.Background(), "doc", paragraphs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Findings) != 2 {
			t.Fatalf("expected 2 findings, got %+v", s.Findings)
		}
		want := model.RedactionRequest{ParagraphID: 0, StartPos: 5, EndPos: 22}
		if len(s.Redactions) != 1 || s.Redactions[0] != want {
			t.Errorf("expected %+v, got %+v", want, s.Redactions)
		}
	})

	t.Run("suggest scans the stored original", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DetectPatterns = []string{`EMP-\d{6}`}
		scanner, _, err := NewScanner(cfg, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f := newFixture(t, WithScanner(scanner))
		ctx := context.Background()
		reg, err := f.engine.Register(ctx, "contacts.docx", contactPackage(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, err := f.engine.Suggest(ctx, reg.Session.ID, detect.SeverityMedium)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []model.RedactionRequest{
			{ParagraphID: 0, StartPos: 5, EndPos: 22},
			{ParagraphID: 1, StartPos: 4, EndPos: 17},
			{ParagraphID: 2, StartPos: 6, EndPos: 16},
		}
		if len(s.Redactions) != len(want) {
			t.Fatalf("expected %d redactions, got %+v", len(want), s.Redactions)
		}
		for i := range want {
			if s.Redactions[i] != want[i] {
				t.Errorf("redaction %d: expected %+v, got %+v", i, want[i], s.Redactions[i])
			}
		}
		if s.DocumentID != reg.Session.ID {
			t.Errorf("expected document %s, got %s", reg.Session.ID, s.DocumentID)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		if _, err := f.engine.Suggest(context.Background(), "missing", detect.SeverityInfo); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("no findings yields empty slices", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		paragraphs, err := f.engine.Extract(secretPackage(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, err := f.engine.Detect(context.Background(), "doc", paragraphs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Findings == nil || s.Redactions == nil || len(s.Findings) != 0 {
			t.Errorf("expected empty non-nil slices, got %+v", s)
		}
	})
}
