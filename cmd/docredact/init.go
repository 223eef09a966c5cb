package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/config"
)

//go:embed templates/docredact.yaml
var configTemplate embed.FS

const templatePath = "templates/docredact.yaml"

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a documented docredact configuration file",
		Long: `Init writes a configuration file with every setting documented and set
to its default: validation mode, session store, data directory, limits,
the HTTP server and sensitive-text detection.

By default the file is .docredact in the current directory. --xdg writes
the per-user file that is used when no .docredact exists.

Examples:
  # Create .docredact in the current directory
  docredact init

  # Create the per-user configuration (~/.config/docredact/config.yaml)
  docredact init --xdg

  # Inspect the template without writing anything
  docredact init --stdout

  # Replace an existing file
  docredact init -o deploy/docredact.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName, "Path of the configuration file")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	cmd.Flags().Bool("xdg", false, "Write to the XDG config directory")
	cmd.Flags().Bool("stdout", false, "Print the template instead of writing a file")
	cmd.MarkFlagsMutuallyExclusive("output", "xdg", "stdout")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if boolFlag(cmd, "stdout") {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	path := stringFlag(cmd, "output")
	if boolFlag(cmd, "xdg") {
		path = filepath.Join(config.XDGConfigDir(), "config.yaml")
	}

	if err := writeTemplate(path, content, boolFlag(cmd, "force")); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", path)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Strict or lenient validation of redaction requests")
	fmt.Fprintln(out, "  - The session store (SQLite or PostgreSQL)")
	fmt.Fprintln(out, "  - Session lifetime and size limits")
	fmt.Fprintln(out, "  - Detection patterns and the severity threshold")
	return nil
}

// writeTemplate writes content to path. Without force an existing file is
// left untouched.
func writeTemplate(path string, content []byte, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
		}
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
