package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/prompts"
	"github.com/spigell/resume-analyzer/internal/throttle"
	"github.com/spigell/resume-analyzer/internal/utils"
)

const defaultMaxLogLength = 200

// Config tunes a Client.
type Config struct {
	PrimaryModel  string
	FallbackModel string
	MinInterval   time.Duration
	MaxLogLength  int
}

// Client calls the generator with a minimum interval between calls and a
// single fallback attempt. One Client belongs to one session and is not
// safe for concurrent use.
type Client struct {
	gen    Generator
	gate   *throttle.Gate
	cfg    Config
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithGate replaces the throttle gate built from Config.MinInterval.
func WithGate(g *throttle.Gate) Option {
	return func(c *Client) {
		if g != nil {
			c.gate = g
		}
	}
}

func NewClient(gen Generator, cfg Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if gen == nil {
		return nil, apperr.NewConfiguration("model generator is not initialized", nil)
	}

	cfg.PrimaryModel = strings.TrimSpace(cfg.PrimaryModel)
	cfg.FallbackModel = strings.TrimSpace(cfg.FallbackModel)
	if cfg.PrimaryModel == "" {
		return nil, apperr.NewConfiguration("primary model is required", nil)
	}
	if cfg.FallbackModel == cfg.PrimaryModel {
		cfg.FallbackModel = ""
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	c := &Client{
		gen:    gen,
		gate:   throttle.New(cfg.MinInterval),
		cfg:    cfg,
		logger: logger.WithFields(log),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildParts assembles the prompt: instructions, resume, job description.
// Only the first page of an image document is sent.
func BuildParts(tmpl prompts.Template, doc *document.Document, jobDescription string) ([]Part, error) {
	if strings.TrimSpace(tmpl.Text) == "" {
		return nil, apperr.NewConfiguration(fmt.Sprintf("empty template for %s", tmpl.Type), nil)
	}
	if doc == nil {
		return nil, apperr.NewValidation("resume", "resume is required")
	}

	parts := []Part{TextPart(tmpl.Text)}

	switch doc.Kind {
	case document.KindText:
		parts = append(parts, TextPart("Resume:\n"+doc.Content))
	case document.KindImageSet:
		page, ok := doc.FirstPage()
		if !ok {
			return nil, apperr.NewExtraction(apperr.ReasonNoPages, errors.New("image document has no pages"))
		}
		parts = append(parts, InlinePart(page.MIMEType, page.Data))
	default:
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("unknown document kind %q", doc.Kind))
	}

	parts = append(parts, TextPart("Job description:\n"+jobDescription))
	return parts, nil
}

// Call sends one analysis to the model. Failures are returned as
// *apperr.RemoteError carrying the classified kind.
func (c *Client) Call(ctx context.Context, tmpl prompts.Template, doc *document.Document, jobDescription string) (*Reply, error) {
	parts, err := BuildParts(tmpl, doc, jobDescription)
	if err != nil {
		return nil, err
	}

	waited, err := c.gate.Wait(ctx)
	if err != nil {
		return nil, &apperr.RemoteError{
			Kind:  apperr.RemoteUnknown,
			Model: c.cfg.PrimaryModel,
			Err:   fmt.Errorf("waiting for the request interval: %w", err),
		}
	}
	if waited > 0 {
		c.logger.Debug("request throttled", zap.Duration("waited", waited))
	}

	text, primaryErr := c.generate(ctx, c.cfg.PrimaryModel, tmpl.Type, parts)
	if primaryErr == nil {
		return &Reply{Text: text, Model: c.cfg.PrimaryModel, Throttled: waited}, nil
	}

	kind := Classify(primaryErr)
	// No fallback once the caller has gone away.
	if surfacesImmediately(kind) || c.cfg.FallbackModel == "" || ctx.Err() != nil {
		return nil, &apperr.RemoteError{Kind: kind, Model: c.cfg.PrimaryModel, Err: primaryErr}
	}

	logger.WithCommonFields(c.logger, c.gen.Provider(), c.cfg.PrimaryModel).Warn("falling back to secondary model",
		zap.String("fallback_model", c.cfg.FallbackModel),
		zap.String("kind", string(kind)),
		zap.String("reason", utils.OneLine(primaryErr.Error())),
	)

	text, fallbackErr := c.generate(ctx, c.cfg.FallbackModel, tmpl.Type, parts)
	if fallbackErr == nil {
		return &Reply{Text: text, Model: c.cfg.FallbackModel, Fallback: true, Throttled: waited}, nil
	}

	return nil, &apperr.RemoteError{
		Kind:  Classify(fallbackErr),
		Model: c.cfg.FallbackModel,
		Err:   fmt.Errorf("%s failed: %v; %s failed: %w", c.cfg.PrimaryModel, primaryErr, c.cfg.FallbackModel, fallbackErr),
	}
}

func (c *Client) generate(ctx context.Context, model string, typ prompts.Type, parts []Part) (string, error) {
	log := logger.WithFields(
		logger.WithCommonFields(c.logger, c.gen.Provider(), model),
		zap.String(logger.FieldAnalysisType, string(typ)),
	)

	log.Debug("generate content request",
		zap.Int("parts", len(parts)),
		zap.String("prompt_preview", utils.TruncateForLog(parts[0].Text, c.cfg.MaxLogLength)),
	)

	start := time.Now()
	text, err := c.gen.Generate(ctx, model, parts)
	if err != nil {
		log.Debug("generate content failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty response")
	}

	log.Debug("generate content response",
		zap.Duration("took", time.Since(start)),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, c.cfg.MaxLogLength)),
	)

	return text, nil
}

func (c *Client) PrimaryModel() string  { return c.cfg.PrimaryModel }
func (c *Client) FallbackModel() string { return c.cfg.FallbackModel }
