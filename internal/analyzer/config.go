// Package analyzer runs resume analyses for one user session: it validates
// input, charges the session quota, extracts the resume and calls the model.
package analyzer

import (
	"time"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/document"
)

const (
	DefaultPrimaryModel   = "gemini-2.5-flash"
	DefaultFallbackModel  = "gemini-2.5-pro"
	DefaultMinInterval    = 2 * time.Second
	DefaultMaxAnalyses    = 10
	DefaultRequestTimeout = 2 * time.Minute
)

// Config holds every pipeline tunable. Deployments differ only in these
// values.
type Config struct {
	InputMode      document.InputMode `mapstructure:"input-mode" json:"input-mode" validate:"omitempty,oneof=text image"`
	PageCap        int                `mapstructure:"page-cap" json:"page-cap" validate:"gte=0,lte=20"`
	DPI            int                `mapstructure:"dpi" json:"dpi" validate:"gte=0,lte=600"`
	JPEGQuality    int                `mapstructure:"jpeg-quality" json:"jpeg-quality" validate:"gte=0,lte=100"`
	MaxUploadBytes int64              `mapstructure:"max-upload-bytes" json:"max-upload-bytes" validate:"gte=0"`
	MinInterval    time.Duration      `mapstructure:"min-interval" json:"min-interval" validate:"gte=0"`
	MaxAnalyses    int                `mapstructure:"max-analyses" json:"max-analyses" validate:"gte=0"`
	RequestTimeout time.Duration      `mapstructure:"request-timeout" json:"request-timeout" validate:"gte=0"`

	// Model identifiers are configured under the provider section.
	PrimaryModel  string `mapstructure:"-" json:"primary-model" validate:"required"`
	FallbackModel string `mapstructure:"-" json:"fallback-model"`
	MaxLogLength  int    `mapstructure:"-" json:"-"`
}

func DefaultConfig() Config {
	doc := document.DefaultConfig()
	return Config{
		InputMode:      doc.Mode,
		PageCap:        doc.PageCap,
		DPI:            doc.DPI,
		JPEGQuality:    doc.JPEGQuality,
		MaxUploadBytes: doc.MaxBytes,
		MinInterval:    DefaultMinInterval,
		MaxAnalyses:    DefaultMaxAnalyses,
		RequestTimeout: DefaultRequestTimeout,
		PrimaryModel:   DefaultPrimaryModel,
		FallbackModel:  DefaultFallbackModel,
	}
}

func (c Config) documentConfig() document.Config {
	return document.Config{
		Mode:        c.InputMode,
		PageCap:     c.PageCap,
		DPI:         c.DPI,
		JPEGQuality: c.JPEGQuality,
		MaxBytes:    c.MaxUploadBytes,
	}
}

func (c Config) clientConfig() ai.Config {
	return ai.Config{
		PrimaryModel:  c.PrimaryModel,
		FallbackModel: c.FallbackModel,
		MinInterval:   c.MinInterval,
		MaxLogLength:  c.MaxLogLength,
	}
}
