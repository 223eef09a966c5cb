package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/docredact/internal/detect"
	"github.com/nao1215/docredact/internal/engine"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/render"
	"github.com/nao1215/docredact/internal/schema"
)

// paragraphView is the wire shape of an extracted paragraph.
type paragraphView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

func paragraphViews(paragraphs []model.Paragraph) []paragraphView {
	out := make([]paragraphView, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = paragraphView{ID: p.ID, Text: p.FlatText}
	}
	return out
}

// uploadResponse is returned by POST /api/upload.
type uploadResponse struct {
	Success    bool            `json:"success"`
	DocumentID string          `json:"documentId"`
	Filename   string          `json:"filename"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Paragraphs []paragraphView `json:"paragraphs"`
}

// markResponse is returned by POST /api/redactions.
type markResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	Count      int    `json:"count"`
	Message    string `json:"message"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error       string             `json:"error"`
	Kind        string             `json:"kind,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    s.version,
		"validation": s.engine.Mode().String(),
	})
}

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: upload exceeds %d bytes", model.ErrInvalidRequest, s.maxUploadSize))
			return
		}
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: no file part", model.ErrInvalidRequest))
		return
	}
	if file.Filename == "" {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: no selected file", model.ErrInvalidRequest))
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".docx") {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: only .docx files are allowed", model.ErrInvalidRequest))
		return
	}

	f, err := file.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
		return
	}

	reg, err := s.engine.Register(c.Request.Context(), file.Filename, data)
	if err != nil {
		s.fail(c, 0, err)
		return
	}

	resp := uploadResponse{
		Success:    true,
		DocumentID: reg.Session.ID,
		Filename:   reg.Session.OriginalName,
		Paragraphs: paragraphViews(reg.Paragraphs),
	}
	if !reg.Session.ExpiresAt.IsZero() {
		resp.ExpiresAt = &reg.Session.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) mark(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
		return
	}

	req, err := schema.DecodeMarkRequest(body)
	if err != nil {
		s.fail(c, 0, err)
		return
	}

	batch, err := s.engine.Mark(c.Request.Context(), req.DocumentID, req.Redactions)
	if err != nil {
		s.fail(c, 0, err)
		return
	}

	c.JSON(http.StatusOK, markResponse{
		Success:    true,
		DocumentID: batch.DocumentID,
		Count:      batch.Count,
		Message:    fmt.Sprintf("Saved %d redactions", batch.Count),
	})
}

func (s *Server) download(c *gin.Context) {
	format, err := render.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
		return
	}

	// The body is rendered before anything is sent; the session is consumed
	// only once the response has been handed to the client.
	applied, err := s.engine.Publish(c.Request.Context(), c.Param("id"), func(applied *engine.Applied) error {
		var buf bytes.Buffer
		name := applied.Session.OriginalName
		if err := render.Write(&buf, format, name, applied.Result); err != nil {
			return err
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(name)))
		c.Header("X-Redactions-Applied", strconv.Itoa(applied.Result.Applied))
		c.Header("X-Redactions-Rejected", strconv.Itoa(applied.Result.Rejected()))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
		return nil
	})
	if err != nil {
		resp := errorResponse{Error: err.Error(), Kind: model.KindOf(err).String()}
		if applied != nil {
			resp.Diagnostics = applied.Result.Diagnostics
		}
		s.respondError(c, statusFor(err), err, resp)
		return
	}
}

func (s *Server) document(c *gin.Context) {
	id := c.Param("id")
	session, err := s.engine.Session(c.Request.Context(), id)
	if err != nil {
		s.fail(c, 0, err)
		return
	}
	batch, err := s.engine.Pending(c.Request.Context(), id)
	if err != nil {
		s.fail(c, 0, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"pending": batch,
	})
}

// suggestions proposes redactions for sensitive text in a registered
// document. minSeverity overrides the configured threshold.
func (s *Server) suggestions(c *gin.Context) {
	threshold := s.engine.Threshold()
	if name := c.Query("minSeverity"); name != "" {
		sev, err := detect.ParseSeverity(name)
		if err != nil {
			s.fail(c, 0, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err))
			return
		}
		threshold = sev
	}

	suggestions, err := s.engine.Suggest(c.Request.Context(), c.Param("id"), threshold)
	if err != nil {
		s.fail(c, 0, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

func (s *Server) discard(c *gin.Context) {
	if err := s.engine.Discard(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, 0, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail writes an error response. A zero status is derived from err.
func (s *Server) fail(c *gin.Context, status int, err error) {
	if status == 0 {
		status = statusFor(err)
	}
	s.respondError(c, status, err, errorResponse{Error: err.Error(), Kind: model.KindOf(err).String()})
}

func (s *Server) respondError(c *gin.Context, status int, err error, body errorResponse) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "kind", body.Kind, "error", err)
		// Storage details stay in the log.
		body.Error = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, body)
}

// statusFor maps the engine error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, engine.ErrNoBackend) {
		return http.StatusServiceUnavailable
	}
	switch model.KindOf(err) {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidRequest:
		return http.StatusBadRequest
	case model.KindArchiveCorrupt, model.KindPartMissing, model.KindMalformedDocument,
		model.KindParagraphOutOfRange, model.KindInvalidRange:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
