package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

// textLayer extracts the embedded text of every page.
func textLayer(data []byte) (doc *Document, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("parse pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("open pdf: %w", err))
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, apperr.NewExtraction(apperr.ReasonNoPages, errors.New("pdf has no pages"))
	}

	fonts := make(map[string]*pdf.Font)
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, apperr.NewExtraction(apperr.ReasonDecodeFailure, fmt.Errorf("read page %d: %w", i, err))
		}

		if text, ok := pageText(text); ok {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, apperr.NewExtraction(apperr.ReasonNoPages, errors.New("pdf has no extractable text; try image input mode"))
	}

	return &Document{Kind: KindText, Content: strings.Join(pages, PageSeparator)}, nil
}

// pageText drops trailing whitespace and the line breaks the parser emits
// before each text object. Leading indentation is kept. A page of nothing
// but whitespace is reported as empty.
func pageText(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return strings.TrimRightFunc(strings.TrimLeft(text, "\r\n"), unicode.IsSpace), true
}
