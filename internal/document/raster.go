package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

type renderer interface {
	Open(data []byte) (renderedDoc, error)
}

type renderedDoc interface {
	NumPage() int
	// Render draws the zero-based page n at the given resolution.
	Render(n int, dpi float64) (image.Image, error)
	Close() error
}

type fitzRenderer struct{}

func (fitzRenderer) Open(data []byte) (renderedDoc, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc: doc}, nil
}

type fitzDoc struct {
	doc *fitz.Document
}

func (d fitzDoc) NumPage() int { return d.doc.NumPage() }

func (d fitzDoc) Render(n int, dpi float64) (image.Image, error) {
	return d.doc.ImageDPI(n, dpi)
}

func (d fitzDoc) Close() error { return d.doc.Close() }

// rasterize renders at most PageCap pages to base64 JPEG.
func (e *Extractor) rasterize(data []byte) (*Document, error) {
	doc, err := e.renderer.Open(data)
	if err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("open pdf: %w", err))
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return nil, apperr.NewExtraction(apperr.ReasonNoPages, errors.New("pdf has no pages"))
	}

	count := min(total, e.cfg.PageCap)
	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		img, err := doc.Render(i, float64(e.cfg.DPI))
		if err != nil {
			return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("render page %d: %w", i+1, err))
		}

		encoded, err := encodeJPEG(img, e.cfg.JPEGQuality)
		if err != nil {
			return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("encode page %d: %w", i+1, err))
		}
		pages = append(pages, Page{MIMEType: MIMEJPEG, Data: encoded})
	}

	return &Document{Kind: KindImageSet, Pages: pages}, nil
}

func encodeJPEG(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
