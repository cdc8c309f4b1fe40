package analyzer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/prompts"
	"github.com/spigell/resume-analyzer/internal/quota"
	"github.com/spigell/resume-analyzer/internal/throttle"
)

// Request is one analysis request. The resume is taken from Document,
// Upload or ResumeText, in that order.
type Request struct {
	JobDescription string
	Upload         *document.Upload
	ResumeText     string
	Document       *document.Document
	Type           prompts.Type
}

// Result is a successful analysis. Text is never empty.
type Result struct {
	Type     prompts.Type `json:"type"`
	Title    string       `json:"title"`
	Text     string       `json:"text"`
	Model    string       `json:"model"`
	Fallback bool         `json:"fallback"`
	// MatchPercent is parsed from percentage-match answers when present.
	MatchPercent *float64  `json:"match_percent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DownloadName is the file name offered when the result is saved.
func (r *Result) DownloadName() string { return DownloadName(r.Type, r.CreatedAt) }

// FullEvaluation holds the two answers of the combined mode.
type FullEvaluation struct {
	Evaluation      *Result `json:"evaluation"`
	PercentageMatch *Result `json:"percentage_match"`
}

// Session owns the quota counter and the throttled model client of one user.
// It is not safe for concurrent use.
type Session struct {
	cfg       Config
	catalog   *prompts.Catalog
	extractor *document.Extractor
	gen       ai.Generator
	newGate   func(time.Duration) *throttle.Gate
	logger    *zap.Logger
	now       func() time.Time

	client *ai.Client
	guard  *quota.Guard
}

// Option customizes a Session.
type Option func(*Session)

// WithGateFactory replaces how the throttle gate is built on every reset.
func WithGateFactory(newGate func(time.Duration) *throttle.Gate) Option {
	return func(s *Session) {
		if newGate != nil {
			s.newGate = newGate
		}
	}
}

// WithClock replaces the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(cfg Config, gen ai.Generator, catalog *prompts.Catalog, logger *zap.Logger, opts ...Option) (*Session, error) {
	if catalog == nil {
		return nil, apperr.NewConfiguration("prompt catalog is not loaded", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		cfg:       cfg,
		catalog:   catalog,
		extractor: document.NewExtractor(cfg.documentConfig(), logger),
		gen:       gen,
		logger:    logger,
		now:       time.Now,
		newGate:   throttle.New,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset starts the session over: a fresh quota and a fresh throttle.
func (s *Session) Reset() error {
	gate := s.newGate(s.cfg.MinInterval)
	client, err := ai.NewClient(s.gen, s.cfg.clientConfig(), s.logger, ai.WithGate(gate))
	if err != nil {
		return err
	}
	s.client = client
	s.guard = quota.NewGuard(s.cfg.MaxAnalyses)

	s.logger.Debug("session reset",
		zap.String("primary_model", client.PrimaryModel()),
		zap.String("fallback_model", client.FallbackModel()),
		zap.Duration("min_interval", gate.Interval()),
		zap.Int("max_analyses", s.guard.Limit()),
	)
	return nil
}

// Remaining reports how many analyses the session may still run.
func (s *Session) Remaining() int { return s.guard.Remaining() }

func (s *Session) Used() int  { return s.guard.Used() }
func (s *Session) Limit() int { return s.guard.Limit() }

// Analyze runs one analysis. It stops at the first failure and returns it
// unchanged.
func (s *Session) Analyze(ctx context.Context, req Request) (*Result, error) {
	jd, err := validate(req, s.cfg.PageCap)
	if err != nil {
		return nil, err
	}

	var doc *document.Document
	return s.run(ctx, req, req.Type, jd, &doc)
}

// FullEvaluation runs Evaluation and then PercentageMatch over the same
// resume. Each half is charged and throttled on its own. When the second
// half fails the first result is returned along with the error.
func (s *Session) FullEvaluation(ctx context.Context, req Request) (*FullEvaluation, error) {
	jd, err := validate(req, s.cfg.PageCap)
	if err != nil {
		return nil, err
	}

	var doc *document.Document
	evaluation, err := s.run(ctx, req, prompts.Evaluation, jd, &doc)
	if err != nil {
		return nil, err
	}

	full := &FullEvaluation{Evaluation: evaluation}
	match, err := s.run(ctx, req, prompts.PercentageMatch, jd, &doc)
	if err != nil {
		return full, err
	}
	full.PercentageMatch = match

	return full, nil
}

// run charges one quota unit, resolves the template, extracts the resume
// once per doc pointer and calls the model.
func (s *Session) run(ctx context.Context, req Request, typ prompts.Type, jd string, doc **document.Document) (*Result, error) {
	log := s.logger.With(zap.String("analysis_type", string(typ)))

	if err := s.guard.CheckAndReserve(); err != nil {
		log.Info("analysis rejected", zap.Int("limit", s.guard.Limit()))
		return nil, err
	}

	tmpl, err := s.catalog.TemplateFor(typ)
	if err != nil {
		return nil, err
	}

	if *doc == nil {
		d, err := s.resume(ctx, req)
		if err != nil {
			return nil, err
		}
		log.Debug("resume prepared", zap.Int("pages", len(d.Pages)), zap.Int("size", d.Size()))
		*doc = d
	}

	reply, err := s.client.Call(ctx, tmpl, *doc, jd)
	if err != nil {
		log.Warn("analysis failed", zap.Error(err), zap.Int("remaining", s.guard.Remaining()))
		return nil, err
	}

	result := &Result{
		Type:      typ,
		Title:     prompts.Title(typ),
		Text:      reply.Text,
		Model:     reply.Model,
		Fallback:  reply.Fallback,
		CreatedAt: s.now(),
	}
	if typ == prompts.PercentageMatch {
		if pct, ok := ParseMatchPercent(reply.Text); ok {
			result.MatchPercent = &pct
		}
	}

	log.Info("analysis completed",
		zap.String("model", reply.Model),
		zap.Bool("fallback", reply.Fallback),
		zap.Duration("throttled", reply.Throttled),
		zap.Int("remaining", s.guard.Remaining()),
	)

	return result, nil
}

func (s *Session) resume(ctx context.Context, req Request) (*document.Document, error) {
	switch {
	case req.Document != nil:
		return req.Document, nil
	case req.Upload != nil:
		return s.extractor.Extract(ctx, req.Upload)
	default:
		doc, err := document.FromText(req.ResumeText)
		if err != nil {
			return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, err)
		}
		return doc, nil
	}
}

// validate checks the caller input before anything is charged and returns
// the trimmed job description.
func validate(req Request, pageCap int) (string, error) {
	jd := strings.TrimSpace(req.JobDescription)
	if jd == "" {
		return "", apperr.NewValidation("job_description", "Please provide the job description.")
	}

	switch {
	case req.Document != nil:
		if err := req.Document.Validate(pageCap); err != nil {
			return "", apperr.NewValidation("resume", err.Error())
		}
	case req.Upload != nil:
		if len(req.Upload.Data) == 0 {
			return "", apperr.NewValidation("resume", "The uploaded resume is empty.")
		}
	default:
		if strings.TrimSpace(req.ResumeText) == "" {
			return "", apperr.NewValidation("resume", "Please upload a resume or paste its text.")
		}
	}

	return jd, nil
}
