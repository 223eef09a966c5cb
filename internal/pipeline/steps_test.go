package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml"
	"github.com/nao1215/docredact/internal/ooxml/ooxmltest"
	"github.com/nao1215/docredact/internal/redact"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func standard(mode config.ValidationMode) *Pipeline {
	logger := discardLogger()
	planner := redact.NewPlanner(redact.WithMode(mode), redact.WithLogger(logger))
	return Standard(planner, 0, logger)
}

func batchOf(reqs ...model.RedactionRequest) model.Batch {
	return model.NewBatch("doc-1", reqs, time.Unix(1700000000, 0))
}

// TestStandardPipeline runs complete redactions through every step.
func TestStandardPipeline(t *testing.T) {
	t.Parallel()

	t.Run("step names", func(t *testing.T) {
		t.Parallel()

		want := []string{StepOpen, StepExtract, StepPlan, StepRewrite, StepAssemble}
		got := standard(config.ValidationLenient).StepNames()
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("redacts across runs and keeps other parts", func(t *testing.T) {
		t.Parallel()

		input := ooxmltest.Package(t,
			ooxmltest.Paragraph("Hello World, ", "this is secret."),
			ooxmltest.Paragraph("untouched"),
		)
		job := NewJob("doc-1", input, batchOf(model.RedactionRequest{ParagraphID: 0, StartPos: 21, EndPos: 27}))

		if err := standard(config.ValidationLenient).Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := job.Result
		if !res.Succeeded() || res.Output == nil {
			t.Fatalf("expected output, got error %v", res.Err)
		}
		if res.Requested != 1 || res.Applied != 1 || res.Rejected() != 0 {
			t.Errorf("unexpected counts %d/%d/%d", res.Requested, res.Applied, res.Rejected())
		}
		if len(res.RedactedParagraphs) != 1 || res.RedactedParagraphs[0] != 0 {
			t.Errorf("unexpected redacted paragraphs %v", res.RedactedParagraphs)
		}
		if res.InputDigest != Digest(input) || res.OutputDigest != Digest(res.Output) {
			t.Error("unexpected digests")
		}
		if len(res.InputDigest) != 64 {
			t.Errorf("expected a 256-bit hex digest, got %q", res.InputDigest)
		}

		if got := res.Paragraphs[0].FlatText; got != "Hello World, this is ██████." {
			t.Errorf("unexpected redacted text %q", got)
		}
		if got := res.Paragraphs[1].FlatText; got != "untouched" {
			t.Errorf("unexpected second paragraph %q", got)
		}

		before := ooxmltest.ReadEntries(t, input)
		after := ooxmltest.ReadEntries(t, res.Output)
		if len(before) != len(after) {
			t.Fatalf("expected %d entries, got %d", len(before), len(after))
		}
		for i := range before {
			if before[i].Name != after[i].Name {
				t.Errorf("entry %d: expected %s, got %s", i, before[i].Name, after[i].Name)
			}
			if before[i].Name == ooxml.DefaultDocumentPart {
				continue
			}
			if !bytes.Equal(before[i].Raw, after[i].Raw) {
				t.Errorf("entry %s changed", before[i].Name)
			}
		}
	})

	t.Run("empty batch leaves the document part byte-identical", func(t *testing.T) {
		t.Parallel()

		input := ooxmltest.Package(t, ooxmltest.Paragraph("nothing to hide"))
		job := NewJob("doc-1", input, batchOf())

		if err := standard(config.ValidationLenient).Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := ooxmltest.Part(t, input, ooxml.DefaultDocumentPart)
		got := ooxmltest.Part(t, job.Result.Output, ooxml.DefaultDocumentPart)
		if !bytes.Equal(want, got) {
			t.Error("expected the document part to be unchanged")
		}
		if job.Result.Applied != 0 || len(job.Result.RedactedParagraphs) != 0 {
			t.Errorf("expected nothing applied, got %+v", job.Result)
		}
	})

	t.Run("lenient mode reports bad requests and applies the rest", func(t *testing.T) {
		t.Parallel()

		input := ooxmltest.Package(t, ooxmltest.Paragraph("abcdef"))
		job := NewJob("doc-1", input, batchOf(
			model.RedactionRequest{ParagraphID: 0, StartPos: 1, EndPos: 4},
			model.RedactionRequest{ParagraphID: 9, StartPos: 0, EndPos: 1},
			model.RedactionRequest{ParagraphID: 0, StartPos: 2, EndPos: 6},
			model.RedactionRequest{ParagraphID: 0, StartPos: 5, EndPos: 7},
		))

		if err := standard(config.ValidationLenient).Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		res := job.Result
		if got := res.Paragraphs[0].FlatText; got != "a█████" {
			t.Errorf("expected %q, got %q", "a█████", got)
		}
		if res.Applied != 2 || res.Rejected() != 2 {
			t.Errorf("expected 2 applied and 2 rejected, got %d and %d", res.Applied, res.Rejected())
		}
		if res.CountByKind(model.KindParagraphOutOfRange) != 1 || res.CountByKind(model.KindInvalidRange) != 1 {
			t.Errorf("unexpected diagnostics %+v", res.Diagnostics)
		}
	})

	t.Run("strict mode aborts without output", func(t *testing.T) {
		t.Parallel()

		input := ooxmltest.Package(t, ooxmltest.Paragraph("abcdef"))
		job := NewJob("doc-1", input, batchOf(
			model.RedactionRequest{ParagraphID: 0, StartPos: 1, EndPos: 4},
			model.RedactionRequest{ParagraphID: 0, StartPos: 4, EndPos: 2},
		))

		err := standard(config.ValidationStrict).Execute(context.Background(), job)
		if !errors.Is(err, redact.ErrBatchRejected) {
			t.Fatalf("expected ErrBatchRejected, got %v", err)
		}

		res := job.Result
		if res.Output != nil || res.Succeeded() {
			t.Error("expected no output")
		}
		if res.ErrorKind != model.KindInvalidRange {
			t.Errorf("expected kind InvalidRange, got %v", res.ErrorKind)
		}
		if res.Rejected() != 1 || res.Requested != 2 {
			t.Errorf("expected the diagnostics to be reported, got %+v", res.Diagnostics)
		}
		if job.Committed {
			t.Error("expected the job not to be committed")
		}
	})

	t.Run("archive errors abort before planning", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			input []byte
			kind  model.ErrorKind
		}{
			{name: "not a zip", input: []byte("plain text"), kind: model.KindArchiveCorrupt},
			{
				name:  "missing document part",
				input: ooxmltest.Build(t, []ooxmltest.Entry{{Name: "word/styles.xml", Data: []byte("<x/>")}}, ""),
				kind:  model.KindPartMissing,
			},
			{
				name: "malformed document part",
				input: ooxmltest.Build(t, []ooxmltest.Entry{
					{Name: ooxml.DefaultDocumentPart, Data: []byte("<w:document><w:body>")},
				}, ""),
				kind: model.KindMalformedDocument,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				job := NewJob("doc-1", tt.input, batchOf(model.RedactionRequest{ParagraphID: 0, StartPos: 0, EndPos: 1}))
				if err := standard(config.ValidationLenient).Execute(context.Background(), job); err == nil {
					t.Fatal("expected error")
				}
				if job.Result.ErrorKind != tt.kind {
					t.Errorf("expected %v, got %v", tt.kind, job.Result.ErrorKind)
				}
				if job.Plan != nil {
					t.Error("expected planning to be skipped")
				}
			})
		}
	})
}

func TestAssembleStepVerifiesChanges(t *testing.T) {
	t.Parallel()

	prepare := func(t *testing.T, body string) *Job {
		t.Helper()

		job := NewJob("doc-1", ooxmltest.Package(t, body), batchOf())
		for _, step := range []Step{NewOpenStep(0), NewExtractStep()} {
			if err := step.Do(context.Background(), job); err != nil {
				t.Fatalf("%s failed: %v", step.Name(), err)
			}
		}
		return job
	}

	t.Run("rewrite that loses the planned text is rejected", func(t *testing.T) {
		t.Parallel()

		job := prepare(t, ooxmltest.Paragraph("secret"))
		job.Plan = &redact.Plan{Changes: map[int]string{0: "██████"}}
		job.Rewritten = job.Document.XML()

		err := NewAssembleStep(discardLogger()).Do(context.Background(), job)
		if !errors.Is(err, model.ErrMalformedDocument) {
			t.Fatalf("expected ErrMalformedDocument, got %v", err)
		}
		if job.Result.Output != nil {
			t.Error("expected no output")
		}
	})

	t.Run("text node with a local prefix is redacted", func(t *testing.T) {
		t.Parallel()

		body := `<w:p><w:r><x:t xmlns:x="` + ooxml.WordprocessingML + `">secret</x:t></w:r></w:p>`
		job := NewJob("doc-1", ooxmltest.Package(t, body),
			batchOf(model.RedactionRequest{ParagraphID: 0, StartPos: 0, EndPos: 6}))
		if err := standard(config.ValidationStrict).Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := job.Result.Paragraphs[0].FlatText; got != "██████" {
			t.Errorf("unexpected text %q", got)
		}
	})
}

func TestDigest(t *testing.T) {
	t.Parallel()

	// SHA3-256 of the empty string.
	const empty = "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	if got := Digest(nil); got != empty {
		t.Errorf("expected %s, got %s", empty, got)
	}
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("expected different inputs to have different digests")
	}
}
