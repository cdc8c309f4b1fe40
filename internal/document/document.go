// Package document turns uploaded resumes into payloads the model accepts:
// plain text, or a bounded set of JPEG page images.
package document

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind tells how a Document carries the resume.
type Kind string

const (
	KindText     Kind = "text"
	KindImageSet Kind = "image_set"
)

// InputMode selects how PDFs are converted.
type InputMode string

const (
	// ModeText extracts the embedded text layer.
	ModeText InputMode = "text"
	// ModeImage renders pages to JPEG images for multimodal input.
	ModeImage InputMode = "image"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
)

// PageSeparator joins the text of consecutive PDF pages.
const PageSeparator = "\n\n--- page break ---\n\n"

// Page is one rendered page. Data is base64 encoded.
type Page struct {
	MIMEType string
	Data     string
}

// Document is a normalized resume.
type Document struct {
	Kind    Kind
	Content string
	Pages   []Page
	// Source is the uploaded file name, if any.
	Source string
}

// Upload is a file handed over by the caller.
type Upload struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// FromText builds a Text document from free text.
func FromText(content string) (*Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("resume text is empty")
	}
	if !utf8.ValidString(content) {
		return nil, errors.New("resume text is not valid UTF-8")
	}
	return &Document{Kind: KindText, Content: content}, nil
}

// Validate checks the document invariants. pageCap <= 0 disables the upper
// bound check.
func (d *Document) Validate(pageCap int) error {
	if d == nil {
		return errors.New("document is nil")
	}

	switch d.Kind {
	case KindText:
		if strings.TrimSpace(d.Content) == "" {
			return errors.New("text document is empty")
		}
	case KindImageSet:
		if len(d.Pages) == 0 {
			return errors.New("image document has no pages")
		}
		if pageCap > 0 && len(d.Pages) > pageCap {
			return fmt.Errorf("image document has %d pages, cap is %d", len(d.Pages), pageCap)
		}
		for i, p := range d.Pages {
			if p.MIMEType == "" || p.Data == "" {
				return fmt.Errorf("page %d is empty", i+1)
			}
		}
	default:
		return fmt.Errorf("unknown document kind %q", d.Kind)
	}
	return nil
}

// FirstPage returns the first page of an image document.
func (d *Document) FirstPage() (Page, bool) {
	if d == nil || len(d.Pages) == 0 {
		return Page{}, false
	}
	return d.Pages[0], true
}

// Size approximates the payload size in bytes, for logging.
func (d *Document) Size() int {
	if d == nil {
		return 0
	}
	n := len(d.Content)
	for _, p := range d.Pages {
		n += len(p.Data)
	}
	return n
}
