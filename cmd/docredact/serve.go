package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the redaction workflow over HTTP",
		Long: `Serve starts an HTTP API for uploading, marking and downloading documents.

Endpoints:
  GET    /api/health
  POST   /api/upload              multipart form with a "file" field (.docx)
  POST   /api/redactions          {"documentId": "...", "redactions": [...]}
  GET    /api/download/:id        ?format=docx|txt|html|md
  GET    /api/documents/:id       session and pending requests
  DELETE /api/documents/:id       discard a session

Downloading applies the pending requests and removes the session.

Examples:
  # Listen on the configured address (default 127.0.0.1:8080)
  docredact serve

  # Listen on all interfaces with JSON logs
  docredact serve --addr :8080 --log-json`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (default: server.addr from the configuration)")
	cmd.Flags().Int64("max-upload-size", 0, "Largest accepted upload in bytes (default: server.max_upload_size)")
	addDetectFlags(cmd)

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr := stringFlag(cmd, "addr"); addr != "" {
		cfg.ServerAddr = addr
	}
	if n, err := cmd.Flags().GetInt64("max-upload-size"); err == nil && n > 0 {
		cfg.MaxUploadSize = n
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cmd, cfg)

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	eng, err := openEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if purged, err := eng.Purge(cmd.Context()); err != nil {
		logger.Warn("failed to purge expired sessions", "error", err)
	} else if len(purged) > 0 {
		logger.Info("purged expired sessions", "count", len(purged))
	}

	srv := server.New(eng,
		server.WithLogger(logger),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
		server.WithVersion(getVersion()),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "docredact %s listening on http://%s\n", getVersion(), cfg.ServerAddr)
	return srv.Run(cmd.Context(), cfg.ServerAddr)
}
