package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/model"
)

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, discard or purge registered documents",
		Long: `Sessions lists the documents registered with extract that have not been
applied yet, including expired ones.

Examples:
  # List sessions
  docredact sessions

  # Delete expired sessions and their stored originals
  docredact sessions --purge

  # Delete one session without applying it
  docredact sessions --discard 3f2a...`,
		Args: cobra.NoArgs,
		RunE: runSessionsCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	cmd.Flags().Bool("purge", false, "Delete expired sessions")
	cmd.Flags().String("discard", "", "Delete the session with the given document ID")
	cmd.MarkFlagsMutuallyExclusive("purge", "discard")

	return cmd
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := prepare(cmd)
	if err != nil {
		return err
	}

	eng, err := openEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	out := cmd.OutOrStdout()

	if id := stringFlag(cmd, "discard"); id != "" {
		if err := eng.Discard(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Discarded %s\n", id)
		return nil
	}

	if boolFlag(cmd, "purge") {
		purged, err := eng.Purge(cmd.Context())
		for _, s := range purged {
			fmt.Fprintf(out, "Purged %s (%s)\n", s.ID, s.OriginalName)
		}
		fmt.Fprintf(out, "%d expired session(s) purged\n", len(purged))
		return err
	}

	sessions, err := eng.Sessions(cmd.Context())
	if err != nil {
		return err
	}

	if boolFlag(cmd, "json") {
		if sessions == nil {
			sessions = []*model.Session{}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sessions)
	}
	writeSessions(out, sessions, time.Now())
	return nil
}

func writeSessions(w io.Writer, sessions []*model.Session, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-20s  %s\n", "DOCUMENT ID", "PARAGRAPHS", "EXPIRES", "FILE")
	for _, s := range sessions {
		expires := "never"
		switch {
		case s.Expired(now):
			expires = "expired"
		case !s.ExpiresAt.IsZero():
			expires = s.ExpiresAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-36s  %-10d  %-20s  %s\n", s.ID, s.Paragraphs, expires, s.OriginalName)
	}
}
