package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/ooxml/ooxmltest"
)

const employeePattern = `EMP-\d{6}`

// writeContacts writes a document holding an e-mail address and an
// employee badge number.
func writeContacts(t *testing.T, dir, name string) string {
	t.Helper()

	data := ooxmltest.Package(t,
		ooxmltest.Paragraph("Mail ", "admin@example.com now"),
		ooxmltest.Paragraph("Badge EMP-123456"),
	)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	return path
}

var redactedContacts = []string{
	"Mail " + strings.Repeat("█", 17) + " now",
	"Badge " + strings.Repeat("█", 10),
}

func assertParagraphs(t *testing.T, path string, want []string) {
	t.Helper()

	got := paragraphTexts(t, path)
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %q", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestExtractSuggest(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		doc := writeContacts(t, dir, "contacts.docx")

		res := runCLI(t, "", "extract", "--config", cfgPath, "--no-session", "--suggest", "--json", doc)
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		var out extraction
		if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
			t.Fatalf("failed to decode extraction: %v\n%s", err, res.stdout)
		}
		if out.Suggestions == nil {
			t.Fatal("expected suggestions")
		}
		if out.Suggestions.DocumentID != "contacts.docx" {
			t.Errorf("expected the file name as document ID, got %q", out.Suggestions.DocumentID)
		}
		want := model.RedactionRequest{ParagraphID: 0, StartPos: 5, EndPos: 22}
		if len(out.Suggestions.Redactions) != 1 || out.Suggestions.Redactions[0] != want {
			t.Errorf("expected %+v, got %+v", want, out.Suggestions.Redactions)
		}
	})

	t.Run("text with a custom pattern", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		doc := writeContacts(t, dir, "contacts.docx")

		res := runCLI(t, "", "extract", "--config", cfgPath, "--no-session", "--suggest",
			"--pattern", employeePattern, doc)
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		for _, want := range []string{
			"Findings:    2",
			"email_address",
			"[1] 6-16",
			`{"paragraphId":1,"startPos":6,"endPos":16}`,
		} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("without the flag", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		res := runCLI(t, "", "extract", "--config", cfgPath, "--no-session", writeContacts(t, dir, "c.docx"))
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if strings.Contains(res.stdout, "Findings") {
			t.Errorf("unexpected findings:\n%s", res.stdout)
		}
	})
}

func TestMarkDetect(t *testing.T) {
	t.Parallel()

	t.Run("marks detected text", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "detect:\n  patterns:\n    - '"+employeePattern+"'\n")
		ext := extractJSON(t, cfgPath, writeContacts(t, dir, "contacts.docx"))

		res := runCLI(t, "", "mark", "--config", cfgPath, "--detect", ext.DocumentID)
		if res.err != nil {
			t.Fatalf("mark --detect failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Saved 2 redaction(s)") || !strings.Contains(res.stdout, "(2 detected)") {
			t.Errorf("unexpected mark output: %q", res.stdout)
		}

		output := filepath.Join(dir, "redacted.docx")
		res = runCLI(t, "", "apply", "--config", cfgPath, "-o", output, ext.DocumentID)
		if res.err != nil {
			t.Fatalf("apply failed: %v (stderr: %s)", res.err, res.stderr)
		}
		assertParagraphs(t, output, redactedContacts)
	})

	t.Run("threshold above every finding", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		ext := extractJSON(t, cfgPath, writeContacts(t, dir, "contacts.docx"))

		res := runCLI(t, "", "mark", "--config", cfgPath, "--detect", "--min-severity", "critical", ext.DocumentID)
		if res.err != nil {
			t.Fatalf("mark --detect failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Saved 0 redaction(s)") {
			t.Errorf("unexpected mark output: %q", res.stdout)
		}
	})

	t.Run("combined with a requests file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		ext := extractJSON(t, cfgPath, writeContacts(t, dir, "contacts.docx"))
		requests := writeFile(t, dir, "requests.json", `[{"paragraphId":1,"startPos":0,"endPos":5}]`)

		res := runCLI(t, "", "mark", "--config", cfgPath, "--detect", ext.DocumentID, requests)
		if res.err != nil {
			t.Fatalf("mark --detect failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Saved 2 redaction(s)") || !strings.Contains(res.stdout, "(1 detected)") {
			t.Errorf("unexpected mark output: %q", res.stdout)
		}
	})

	t.Run("invalid severity", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		res := runCLI(t, "", "mark", "--config", cfgPath, "--detect", "--min-severity", "severe", "some-id")
		if !errors.Is(res.err, model.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", res.err)
		}
	})
}

func TestRedactDetect(t *testing.T) {
	t.Parallel()

	t.Run("no sidecar needed", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		doc := writeContacts(t, dir, "contacts.docx")

		res := runCLI(t, "", "redact", "--config", cfgPath, "--detect", "--pattern", employeePattern, doc)
		if res.err != nil {
			t.Fatalf("unexpected error: %v (stderr: %s)", res.err, res.stderr)
		}
		assertParagraphs(t, filepath.Join(dir, "redacted_contacts.docx"), redactedContacts)
	})

	t.Run("shared requests are not mixed between documents", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		requests := writeFile(t, dir, "requests.json", `[{"paragraphId":1,"startPos":0,"endPos":6}]`)
		memo := writeMemo(t, dir, "memo.docx")
		contacts := writeContacts(t, dir, "contacts.docx")

		res := runCLI(t, "", "redact", "--config", cfgPath, "--detect", "-q", requests, contacts, memo)
		if res.err != nil {
			t.Fatalf("unexpected error: %v (stderr: %s)", res.err, res.stderr)
		}
		assertParagraphs(t, filepath.Join(dir, "redacted_memo.docx"),
			[]string{"Hello World, this is secret.", "██████ paragraph"})
		assertParagraphs(t, filepath.Join(dir, "redacted_contacts.docx"),
			[]string{redactedContacts[0], "██████EMP-123456"})
	})

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		res := runCLI(t, "", "redact", "--config", cfgPath, "--detect", "--pattern", "(", writeContacts(t, dir, "c.docx"))
		if !errors.Is(res.err, model.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", res.err)
		}
	})
}
