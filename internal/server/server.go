// Package server exposes analysis sessions over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/analyzer"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/prompts"
)

const (
	fullEvaluation      = "full"
	fullEvaluationTitle = "full-evaluation"
	analysisErrorHeader = "X-Analysis-Error"
	formOverhead        = 1 << 20
	shutdownTimeout     = 10 * time.Second
)

// Config tunes the HTTP layer.
type Config struct {
	Address        string   `mapstructure:"address" json:"address" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed-origins" json:"allowed-origins"`
	MaxSessions    int      `mapstructure:"max-sessions" json:"max-sessions" validate:"gte=0"`
	// MaxUploadBytes bounds the resume file; copied from the pipeline section.
	MaxUploadBytes int64 `mapstructure:"-" json:"-"`
}

// JobFetcher downloads a job posting as text.
type JobFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Server struct {
	cfg      Config
	registry *Registry
	jobs     JobFetcher
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(cfg Config, factory SessionFactory, jobs JobFetcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = document.DefaultMaxBytes
	}

	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(factory, cfg.MaxSessions),
		jobs:     jobs,
		logger:   log,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(s.logger),
		gin.Recovery(),
		corsMiddleware(s.cfg.AllowedOrigins),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api/v1")
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/analyses", s.analyze)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

type sessionView struct {
	ID        string `json:"id"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

func viewOf(e *entry) sessionView {
	return sessionView{
		ID:        e.id,
		Used:      e.session.Used(),
		Remaining: e.session.Remaining(),
		Limit:     e.session.Limit(),
	}
}

func (s *Server) createSession(c *gin.Context) {
	e, err := s.registry.Create()
	if err != nil {
		s.renderError(c, err)
		return
	}

	logger.WithSession(s.logger, e.id).Info("session created", zap.Int("limit", e.session.Limit()))
	c.JSON(http.StatusCreated, viewOf(e))
}

func (s *Server) getSession(c *gin.Context) {
	e, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c.JSON(http.StatusOK, viewOf(e))
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.registry.Delete(c.Param("id")); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) analyze(c *gin.Context) {
	e, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+formOverhead)
	if err := c.Request.ParseMultipartForm(s.cfg.MaxUploadBytes + formOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.renderError(c, formError(err))
		return
	}

	typeName := strings.TrimSpace(c.PostForm("type"))
	if typeName == "" {
		s.renderError(c, apperr.NewValidation("type", "Please choose an analysis type."))
		return
	}

	req, err := s.buildRequest(c)
	if err != nil {
		s.renderError(c, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := c.Request.Context()
	download := c.Query("download") == "1" || c.Query("download") == "true"

	if strings.EqualFold(typeName, fullEvaluation) {
		full, err := e.session.FullEvaluation(ctx, req)
		if err != nil && (full == nil || full.Evaluation == nil) {
			s.renderError(c, err)
			return
		}
		if err != nil {
			s.renderPartial(c, e, full, err, download)
			return
		}
		if download {
			name := analyzer.DownloadName(fullEvaluationTitle, full.Evaluation.CreatedAt)
			s.attachment(c, name, fullText(full))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"evaluation":       full.Evaluation,
			"percentage_match": full.PercentageMatch,
			"session":          viewOf(e),
		})
		return
	}

	typ, err := prompts.ParseType(typeName)
	if err != nil {
		s.renderError(c, apperr.NewValidation("type", err.Error()))
		return
	}
	req.Type = typ

	result, err := e.session.Analyze(ctx, req)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if download {
		s.attachment(c, result.DownloadName(), result.Text)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"session": viewOf(e),
	})
}

// buildRequest reads the multipart form. A job URL is fetched only when no
// job description text was sent.
func (s *Server) buildRequest(c *gin.Context) (analyzer.Request, error) {
	req := analyzer.Request{
		JobDescription: c.PostForm("job_description"),
		ResumeText:     c.PostForm("resume_text"),
	}

	fh, err := c.FormFile("resume")
	switch {
	case err == nil:
		upload, err := readUpload(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, fh.Open, s.cfg.MaxUploadBytes)
		if err != nil {
			return req, err
		}
		req.Upload = upload
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return req, formError(err)
	}

	if strings.TrimSpace(req.JobDescription) == "" {
		if jobURL := strings.TrimSpace(c.PostForm("job_url")); jobURL != "" && s.jobs != nil {
			text, err := s.jobs.Fetch(c.Request.Context(), jobURL)
			if err != nil {
				return req, err
			}
			req.JobDescription = text
		}
	}

	return req, nil
}

func readUpload(name, mimeType string, size int64, open func() (multipart.File, error), limit int64) (*document.Upload, error) {
	if size > limit {
		return nil, apperr.NewExtraction(apperr.ReasonTooLarge, fmt.Errorf("%d bytes exceeds %d", size, limit))
	}

	f, err := open()
	if err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, err)
	}

	return &document.Upload{Name: name, MIMEType: mimeType, Size: max(size, int64(len(data))), Data: data}, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.NewExtraction(apperr.ReasonTooLarge, err)
	}
	return apperr.NewValidation("form", fmt.Sprintf("Could not read the form: %v", err))
}

func fullText(full *analyzer.FullEvaluation) string {
	var b strings.Builder
	for _, r := range []*analyzer.Result{full.Evaluation, full.PercentageMatch} {
		if r == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n\n%s\n", r.Title, r.Text)
	}
	return b.String()
}

func (s *Server) attachment(c *gin.Context, name, text string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// renderPartial answers a full evaluation whose second half failed. The
// evaluation was already charged, so it is returned next to the error.
func (s *Server) renderPartial(c *gin.Context, e *entry, full *analyzer.FullEvaluation, err error, download bool) {
	d := apperr.Describe(err)
	s.logger.Warn("full evaluation incomplete",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("category", d.Category),
		zap.Error(err),
	)

	if download {
		c.Header(analysisErrorHeader, d.Category)
		name := analyzer.DownloadName(fullEvaluationTitle, full.Evaluation.CreatedAt)
		s.attachment(c, name, fullText(full))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evaluation":       full.Evaluation,
		"percentage_match": nil,
		"error":            d,
		"session":          viewOf(e),
	})
}

func (s *Server) renderError(c *gin.Context, err error) {
	if errors.Is(err, errSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.Description{
			Category: "not_found",
			Message:  "Session not found. Start a new session.",
		}})
		return
	}

	d := apperr.Describe(err)
	log := s.logger.With(zap.String("request_id", c.GetString(requestIDKey)))
	if d.Status >= http.StatusInternalServerError {
		log.Error("analysis request failed", zap.Error(err), zap.String("category", d.Category))
	} else {
		log.Info("analysis request rejected", zap.Error(err), zap.String("category", d.Category))
	}

	c.JSON(d.Status, gin.H{"error": d})
}
