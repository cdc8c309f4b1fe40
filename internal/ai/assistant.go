// Package ai calls a remote language model on behalf of the analysis
// pipeline. Provider adapters live in subpackages.
package ai

import (
	"context"
	"time"
)

// Part is one element of a prompt: text, or inline binary data encoded as
// base64 and tagged with its MIME type.
type Part struct {
	Text     string
	MIMEType string
	Data     string
}

func TextPart(text string) Part { return Part{Text: text} }

func InlinePart(mimeType, base64Data string) Part {
	return Part{MIMEType: mimeType, Data: base64Data}
}

// IsInline reports whether p carries binary data.
func (p Part) IsInline() bool { return p.Data != "" }

// Generator is the remote model: it turns prompt parts into text or fails.
type Generator interface {
	Generate(ctx context.Context, model string, parts []Part) (string, error)
	Provider() string
}

// Reply is a successful model answer.
type Reply struct {
	Text  string
	Model string
	// Fallback is set when the primary model failed and the fallback model
	// produced the text.
	Fallback bool
	// Throttled is the time spent waiting for the minimum interval.
	Throttled time.Duration
}
