package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/schema"
)

// NewMarkCmd creates the mark command.
func NewMarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark <document-id> [requests.json]",
		Short: "Mark character ranges of a registered document for redaction",
		Long: `Mark saves the redaction requests for a document registered with extract.

Requests are read from the given file, or from stdin when the file is
omitted or "-". They are a JSON array of objects:

  [{"paragraphId": 0, "startPos": 21, "endPos": 27}]

startPos is inclusive and endPos exclusive. By default the new requests
replace any previously marked ones; use --append to add to them. Requests
are validated against the paragraph text when the batch is applied.

With --detect, the stored document is scanned for sensitive text (e-mail
addresses, keys, tokens, passwords, wallet addresses and any --pattern)
and the findings at or above --min-severity are marked too. The requests
file is optional then.

Examples:
  # Mark ranges from a file
  docredact mark 3f2a... requests.json

  # Add more ranges from stdin
  echo '[{"paragraphId":2,"startPos":0,"endPos":5}]' | docredact mark --append 3f2a...

  # Mark everything the detectors rate high or critical
  docredact mark --detect --min-severity high 3f2a...

  # Show the pending requests without changing them
  docredact mark --list 3f2a...`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runMarkCmd,
	}

	cmd.Flags().BoolP("append", "a", false, "Add to the pending requests instead of replacing them")
	cmd.Flags().BoolP("list", "l", false, "Print the pending requests as JSON and exit")
	cmd.Flags().Bool("detect", false, "Also mark sensitive text found by the detectors")
	addDetectFlags(cmd)

	return cmd
}

func runMarkCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := prepare(cmd)
	if err != nil {
		return err
	}

	eng, err := openEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	id := args[0]
	out := cmd.OutOrStdout()

	if boolFlag(cmd, "list") {
		batch, err := eng.Pending(cmd.Context(), id)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(batch)
	}

	detect := boolFlag(cmd, "detect")

	var requests []model.RedactionRequest
	if len(args) == 2 || !detect {
		var path string
		if len(args) == 2 {
			path = args[1]
		}
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		requests, err = schema.DecodeRequests(data)
		if err != nil {
			return err
		}
	}

	detected := 0
	if detect {
		suggestions, err := eng.Suggest(cmd.Context(), id, eng.Threshold())
		if err != nil {
			return err
		}
		detected = len(suggestions.Redactions)
		requests = append(requests, suggestions.Redactions...)
	}

	var batch model.Batch
	if boolFlag(cmd, "append") {
		batch, err = eng.Append(cmd.Context(), id, requests)
	} else {
		batch, err = eng.Mark(cmd.Context(), id, requests)
	}
	if err != nil {
		return err
	}

	if detect {
		fmt.Fprintf(out, "Saved %d redaction(s) for %s (%d detected)\n", batch.Count, id, detected)
		return nil
	}
	fmt.Fprintf(out, "Saved %d redaction(s) for %s\n", batch.Count, id)
	return nil
}
