// Package gemini adapts the Google GenAI SDK to the ai.Generator interface.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/logger"
)

const (
	ProviderName = "gemini"

	BackendGeminiAPI = "gemini-api"
	BackendVertexAI  = "vertex-ai"

	quotaFailureType = "type.googleapis.com/google.rpc.QuotaFailure"
)

// Options configure the SDK client.
type Options struct {
	APIKey   string
	Backend  string
	Project  string
	Location string
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator sends prompts to Gemini models.
type Generator struct {
	models modelsAPI
	logger *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Generator for the Gemini API or Vertex AI backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	cfg, err := clientConfig(opts)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, apperr.NewConfiguration("create genai client", err)
	}

	return &Generator{models: client.Models, logger: logger.WithFields(log)}, nil
}

func clientConfig(opts Options) (*genai.ClientConfig, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendGeminiAPI:
		apiKey := strings.TrimSpace(opts.APIKey)
		if apiKey == "" {
			return nil, apperr.NewConfiguration("gemini api key is required", nil)
		}
		return &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, nil
	case BackendVertexAI:
		if strings.TrimSpace(opts.Project) == "" || strings.TrimSpace(opts.Location) == "" {
			return nil, apperr.NewConfiguration("vertex ai backend requires project and location", nil)
		}
		return &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  strings.TrimSpace(opts.Project),
			Location: strings.TrimSpace(opts.Location),
		}, nil
	default:
		return nil, apperr.NewConfiguration(fmt.Sprintf("unknown gemini backend %q", opts.Backend), nil)
	}
}

func (g *Generator) Provider() string { return ProviderName }

// Generate sends parts as one user turn and returns the concatenated text of
// the response.
func (g *Generator) Generate(ctx context.Context, model string, parts []ai.Part) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	content, err := toContent(parts)
	if err != nil {
		return "", err
	}

	resp, err := g.models.GenerateContent(ctx, model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", providerError(err))
	}

	if reason := blockReason(resp); reason != "" {
		logger.WithCommonFields(g.logger, ProviderName, model).Warn("gemini response blocked", zap.String("reason", reason))
		return "", &ai.SafetyError{Reason: reason}
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func toContent(parts []ai.Part) (*genai.Content, error) {
	if len(parts) == 0 {
		return nil, errors.New("prompt must not be empty")
	}

	out := make([]*genai.Part, 0, len(parts))
	for i, p := range parts {
		if !p.IsInline() {
			out = append(out, &genai.Part{Text: p.Text})
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline part %d: %w", i, err)
		}
		out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: data}})
	}

	return &genai.Content{Role: genai.RoleUser, Parts: out}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// blockReason returns the reason the provider withheld the answer, or "".
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	if fb := resp.PromptFeedback; fb != nil {
		if reason := string(fb.BlockReason); reason != "" && reason != "BLOCKED_REASON_UNSPECIFIED" {
			return reason
		}
	}

	if responseText(resp) != "" {
		return ""
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if reason := string(candidate.FinishReason); blockedFinishReasons[reason] {
			return reason
		}
	}

	return ""
}

// providerError converts SDK API errors into ai.ProviderError so the client
// can classify them without knowing the SDK.
func providerError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}

	return err
}

func fromAPIError(apiErr genai.APIError, cause error) *ai.ProviderError {
	return &ai.ProviderError{
		Code:     apiErr.Code,
		Status:   apiErr.Status,
		Message:  apiErr.Message,
		QuotaIDs: quotaIDs(apiErr.Details),
		Err:      cause,
	}
}

func quotaIDs(details []map[string]any) []string {
	var ids []string
	for _, detail := range details {
		if t, _ := detail["@type"].(string); t != quotaFailureType {
			continue
		}
		violations, _ := detail["violations"].([]any)
		for _, v := range violations {
			violation, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := violation["quotaId"].(string); id != "" {
				ids = append(ids, id)
				continue
			}
			if metric, _ := violation["quotaMetric"].(string); metric != "" {
				ids = append(ids, metric)
			}
		}
		if len(violations) == 0 {
			ids = append(ids, "unspecified")
		}
	}
	return ids
}
