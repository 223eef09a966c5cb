// Package server exposes the redaction engine over HTTP.
//
// The API mirrors the upload, mark and download flow of a browser client:
//
//	POST   /api/upload          multipart "file" (.docx) -> document ID and paragraphs
//	POST   /api/redactions      {documentId, redactions} -> saved batch size
//	GET    /api/download/:id    ?format=docx|txt|html|md -> redacted document
//	GET    /api/documents/:id   session and pending batch
//	GET    /api/documents/:id/suggestions   ?minSeverity= -> detected sensitive text
//	DELETE /api/documents/:id   discard the session
//	GET    /api/health
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/engine"
)

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Server serves the HTTP API.
type Server struct {
	engine        *engine.Engine
	logger        *slog.Logger
	maxUploadSize int64
	version       string
	router        *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxUploadSize limits the size of uploaded packages.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a Server for the engine.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:        eng,
		maxUploadSize: config.DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/upload", s.upload)
		api.POST("/redactions", s.mark)
		api.GET("/download/:id", s.download)

		documents := api.Group("/documents")
		{
			documents.GET("/:id", s.document)
			documents.GET("/:id/suggestions", s.suggestions)
			documents.DELETE("/:id", s.discard)
		}
	}
	return r
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Redactions-Applied, X-Redactions-Rejected")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
