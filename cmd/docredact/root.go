package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docredact.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docredact",
		Short: "Redact sensitive text from Word documents",
		Long: `docredact redacts character ranges in Word (.docx) documents.

A document is registered with "extract", which prints its paragraphs and a
document ID. Ranges are then marked with "mark" and written out with "apply".
"redact" does all three steps in one go without keeping any state, and
"serve" exposes the same workflow over HTTP.

Redacted characters are replaced one for one with █, so paragraph lengths
never change. Note that run-level formatting of a redacted paragraph
collapses into its first run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .docredact in current or home directory)")
	cmd.PersistentFlags().String("validation", "",
		"Validation mode for redaction requests: lenient or strict")
	cmd.PersistentFlags().String("store", "",
		"Session store driver: sqlite, postgres or memory")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory holding the session database and stored originals")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewMarkCmd())
	cmd.AddCommand(NewApplyCmd())
	cmd.AddCommand(NewRedactCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. An interrupt cancels the command context,
// which stops batch redaction and shuts the HTTP server down gracefully.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}
