package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

const (
	DefaultPageCap     = 2
	DefaultDPI         = 150
	DefaultJPEGQuality = 85
	DefaultMaxBytes    = 5 << 20
)

// Config controls extraction.
type Config struct {
	Mode        InputMode
	PageCap     int
	DPI         int
	JPEGQuality int
	MaxBytes    int64
}

// DefaultConfig prefers the text layer, so no multimodal payload is needed.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeText,
		PageCap:     DefaultPageCap,
		DPI:         DefaultDPI,
		JPEGQuality: DefaultJPEGQuality,
		MaxBytes:    DefaultMaxBytes,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.PageCap <= 0 {
		c.PageCap = d.PageCap
	}
	if c.DPI <= 0 {
		c.DPI = d.DPI
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = d.MaxBytes
	}
	return c
}

// Extractor converts uploads into Documents.
type Extractor struct {
	cfg      Config
	renderer renderer
	logger   *zap.Logger
}

func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		cfg:      cfg.withDefaults(),
		renderer: fitzRenderer{},
		logger:   logger,
	}
}

type fileKind int

const (
	fileUnknown fileKind = iota
	fileText
	filePDF
)

// Extract normalizes up. The size ceiling is checked before any conversion.
func (e *Extractor) Extract(ctx context.Context, up *Upload) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, err)
	}

	if up == nil || len(up.Data) == 0 {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, errors.New("no file uploaded"))
	}

	size := max(up.Size, int64(len(up.Data)))
	if size > e.cfg.MaxBytes {
		return nil, apperr.NewExtraction(apperr.ReasonTooLarge,
			fmt.Errorf("file is %d bytes, limit is %d", size, e.cfg.MaxBytes))
	}

	kind, detected := detect(up)
	e.logger.Debug("extracting resume",
		zap.String("file", up.Name),
		zap.String("declared_type", up.MIMEType),
		zap.String("detected_type", detected),
		zap.Int64("size", size),
		zap.String("mode", string(e.cfg.Mode)),
	)

	var (
		doc *Document
		err error
	)
	switch kind {
	case fileText:
		doc, err = fromTextUpload(up.Data)
	case filePDF:
		if e.cfg.Mode == ModeImage {
			doc, err = e.rasterize(up.Data)
		} else {
			doc, err = textLayer(up.Data)
		}
	default:
		err = apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("unsupported file type %s", detected))
	}
	if err != nil {
		return nil, err
	}

	doc.Source = up.Name
	return doc, nil
}

func fromTextUpload(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, errors.New("text file is not valid UTF-8"))
	}

	content := strings.TrimPrefix(string(data), "\ufeff")
	doc, err := FromText(content)
	if err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, err)
	}
	return doc, nil
}

// detect trusts a specific declared type, then content sniffing, then the
// file extension.
func detect(up *Upload) (fileKind, string) {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(up.MIMEType, ";")[0]))
	switch {
	case declared == MIMEPDF:
		return filePDF, declared
	case strings.HasPrefix(declared, "text/"):
		return fileText, declared
	}

	sniffed := mimetype.Detect(up.Data)
	switch {
	case sniffed.Is(MIMEPDF):
		return filePDF, sniffed.String()
	case sniffed.Is(MIMEText):
		return fileText, sniffed.String()
	}

	switch strings.ToLower(filepath.Ext(up.Name)) {
	case ".pdf":
		return filePDF, MIMEPDF
	case ".txt", ".md", ".text":
		return fileText, MIMEText
	}

	return fileUnknown, sniffed.String()
}
