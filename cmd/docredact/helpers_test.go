package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/ooxml/ooxmltest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.StoreDriver = config.DriverMemory
	return cfg
}

// cliResult is the captured output of one command invocation.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with args, feeding stdin.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// writeConfig writes a configuration file that keeps all state in dir.
func writeConfig(t *testing.T, dir string, extra string) string {
	t.Helper()

	content := "validation: lenient\n" +
		"store:\n  driver: sqlite\n" +
		"data_dir: \"" + dataDirOf(dir) + "\"\n" +
		"session_ttl: 1h\n" + extra
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// dataDirOf returns the data directory writeConfig uses for dir.
func dataDirOf(dir string) string {
	return filepath.ToSlash(filepath.Join(dir, "data"))
}

// writeMemo writes the two-paragraph fixture document and returns its path.
func writeMemo(t *testing.T, dir, name string) string {
	t.Helper()

	data := ooxmltest.Package(t,
		ooxmltest.Paragraph("Hello World, ", "this is secret."),
		ooxmltest.Paragraph("Second paragraph"),
	)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	return path
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// paragraphTexts extracts a document without registering it.
func paragraphTexts(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	eng, err := statelessEngine(testConfig(), discardLogger())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	paragraphs, err := eng.Extract(data)
	if err != nil {
		t.Fatalf("failed to extract %s: %v", path, err)
	}
	texts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		texts[i] = p.FlatText
	}
	return texts
}
