package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"docredact version ", "commit: ", "built: "} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got %q", want, got)
		}
	}
}

func TestVersionCmdJSON(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "", "version", "--json")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	var info buildInfo
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", res.stdout, err)
	}
	if info.Version != getVersion() || info.GoVersion == "" {
		t.Errorf("unexpected build info %+v", info)
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("expected non-empty version")
	}
	if getCommit() == "" {
		t.Error("expected non-empty commit")
	}
	if getDate() == "" {
		t.Error("expected non-empty date")
	}
}
