package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

// ProviderError is a structured failure reported by the provider API.
type ProviderError struct {
	Code    int
	Status  string
	Message string
	// QuotaIDs lists the quota identifiers from a QuotaFailure detail.
	QuotaIDs []string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d %s: %s", e.Code, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SafetyError reports a response withheld by the provider's content filter.
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string {
	return "content blocked by safety filter: " + e.Reason
}

// Classify maps a generator failure onto a remote error kind. Structured
// provider information wins; message matching is the last resort.
func Classify(err error) apperr.RemoteKind {
	if err == nil {
		return apperr.RemoteUnknown
	}

	var safety *SafetyError
	if errors.As(err, &safety) {
		return apperr.RemoteSafetyBlocked
	}

	var provider *ProviderError
	if errors.As(err, &provider) {
		if kind, ok := provider.kind(); ok {
			return kind
		}
	}

	return classifyMessage(err.Error())
}

func (e *ProviderError) kind() (apperr.RemoteKind, bool) {
	if len(e.QuotaIDs) > 0 {
		for _, id := range e.QuotaIDs {
			lower := strings.ToLower(id)
			if strings.Contains(lower, "perminute") || strings.Contains(lower, "persecond") {
				return apperr.RemoteRateLimit, true
			}
		}
		return apperr.RemoteQuota, true
	}

	if e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED" {
		if strings.Contains(strings.ToLower(e.Message), "quota") {
			return apperr.RemoteQuota, true
		}
		return apperr.RemoteRateLimit, true
	}

	return "", false
}

var (
	quotaMarkers     = []string{"quota"}
	rateLimitMarkers = []string{"rate limit", "rate-limit", "ratelimit", "too many requests"}
	safetyMarkers    = []string{"safety"}
)

func classifyMessage(msg string) apperr.RemoteKind {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, quotaMarkers):
		return apperr.RemoteQuota
	case containsAny(lower, rateLimitMarkers):
		return apperr.RemoteRateLimit
	case containsAny(lower, safetyMarkers):
		return apperr.RemoteSafetyBlocked
	default:
		return apperr.RemoteUnknown
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// surfacesImmediately reports whether a failure of kind must not trigger
// the fallback model.
func surfacesImmediately(kind apperr.RemoteKind) bool {
	return kind == apperr.RemoteQuota || kind == apperr.RemoteSafetyBlocked
}
