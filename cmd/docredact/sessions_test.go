package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docredact/internal/model"
)

func listSessions(t *testing.T, cfgPath string) []*model.Session {
	t.Helper()

	res := runCLI(t, "", "sessions", "--config", cfgPath, "--json")
	if res.err != nil {
		t.Fatalf("sessions failed: %v", res.err)
	}
	var sessions []*model.Session
	if err := json.Unmarshal([]byte(res.stdout), &sessions); err != nil {
		t.Fatalf("failed to decode sessions: %v\n%s", err, res.stdout)
	}
	return sessions
}

func TestSessionsCmd(t *testing.T) {
	t.Parallel()

	t.Run("list and discard", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")

		if got := listSessions(t, cfgPath); len(got) != 0 {
			t.Fatalf("expected no sessions, got %d", len(got))
		}

		first := extractJSON(t, cfgPath, writeMemo(t, dir, "first.docx"))
		extractJSON(t, cfgPath, writeMemo(t, dir, "second.docx"))

		if got := listSessions(t, cfgPath); len(got) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(got))
		}

		res := runCLI(t, "", "sessions", "--config", cfgPath)
		if res.err != nil {
			t.Fatalf("sessions failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "first.docx") || !strings.Contains(res.stdout, "second.docx") {
			t.Errorf("expected both files in listing, got %q", res.stdout)
		}

		res = runCLI(t, "", "sessions", "--config", cfgPath, "--discard", first.DocumentID)
		if res.err != nil {
			t.Fatalf("discard failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "Discarded "+first.DocumentID) {
			t.Errorf("unexpected output: %q", res.stdout)
		}

		got := listSessions(t, cfgPath)
		if len(got) != 1 || got[0].OriginalName != "second.docx" {
			t.Errorf("expected only second.docx to remain, got %+v", got)
		}

		res = runCLI(t, "", "sessions", "--config", cfgPath, "--discard", first.DocumentID)
		if !errors.Is(res.err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", res.err)
		}
	})

	t.Run("purge expired", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeConfig(t, dir, "")
		shortPath := writeFile(t, dir, "short.yaml",
			"store:\n  driver: sqlite\ndata_dir: \""+dataDirOf(dir)+"\"\nsession_ttl: 1ms\n")

		extractJSON(t, shortPath, writeMemo(t, dir, "old.docx"))
		time.Sleep(5 * time.Millisecond)
		extractJSON(t, cfgPath, writeMemo(t, dir, "fresh.docx"))

		res := runCLI(t, "", "sessions", "--config", cfgPath, "--purge")
		if res.err != nil {
			t.Fatalf("purge failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "1 expired session(s) purged") {
			t.Errorf("unexpected output: %q", res.stdout)
		}

		got := listSessions(t, cfgPath)
		if len(got) != 1 || got[0].OriginalName != "fresh.docx" {
			t.Errorf("expected only fresh.docx to remain, got %+v", got)
		}
	})

	t.Run("purge and discard are exclusive", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeConfig(t, t.TempDir(), "")
		res := runCLI(t, "", "sessions", "--config", cfgPath, "--purge", "--discard", "x")
		if res.err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriteSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		writeSessions(&buf, nil, now)
		if buf.String() != "No sessions.\n" {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("expiry column", func(t *testing.T) {
		t.Parallel()
		sessions := []*model.Session{
			{ID: "a", OriginalName: "a.docx", Paragraphs: 3, ExpiresAt: now.Add(-time.Minute)},
			{ID: "b", OriginalName: "b.docx", Paragraphs: 1},
			{ID: "c", OriginalName: "c.docx", Paragraphs: 2, ExpiresAt: now.Add(time.Hour)},
		}

		var buf bytes.Buffer
		writeSessions(&buf, sessions, now)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "DOCUMENT ID") {
			t.Errorf("unexpected header: %q", lines[0])
		}
		if !strings.Contains(lines[1], "expired") {
			t.Errorf("expected expired session, got %q", lines[1])
		}
		if !strings.Contains(lines[2], "never") {
			t.Errorf("expected non-expiring session, got %q", lines[2])
		}
		if !strings.Contains(lines[3], now.Add(time.Hour).Local().Format("2006-01-02")) {
			t.Errorf("expected expiry date, got %q", lines[3])
		}
	})
}
