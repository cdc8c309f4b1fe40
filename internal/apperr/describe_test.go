package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
		kind     string
		status   int
	}{
		{
			name:     "validation",
			err:      NewValidation("job_description", "job description is required"),
			category: CategoryValidation,
			kind:     "job_description",
			status:   http.StatusBadRequest,
		},
		{
			name:     "too large",
			err:      NewExtraction(ReasonTooLarge, errors.New("6MB")),
			category: CategoryExtraction,
			kind:     string(ReasonTooLarge),
			status:   http.StatusRequestEntityTooLarge,
		},
		{
			name:     "no pages",
			err:      fmt.Errorf("analyze: %w", NewExtraction(ReasonNoPages, nil)),
			category: CategoryExtraction,
			kind:     string(ReasonNoPages),
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "configuration",
			err:      NewConfiguration("unknown analysis type", nil),
			category: CategoryConfiguration,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "quota exceeded",
			err:      &QuotaExceededError{Limit: 10},
			category: CategoryQuotaExceeded,
			status:   http.StatusTooManyRequests,
		},
		{
			name:     "remote safety",
			err:      &RemoteError{Kind: RemoteSafetyBlocked, Err: errors.New("blocked")},
			category: CategoryRemote,
			kind:     string(RemoteSafetyBlocked),
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "remote unknown",
			err:      &RemoteError{Kind: RemoteUnknown, Err: errors.New("boom")},
			category: CategoryRemote,
			kind:     string(RemoteUnknown),
			status:   http.StatusBadGateway,
		},
		{
			name:     "plain error",
			err:      errors.New("something else"),
			category: CategoryInternal,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(tt.err)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.status, d.Status)
			assert.NotEmpty(t, d.Message)
		})
	}
}

func TestDescribeRemoteUnknownKeepsRawMessage(t *testing.T) {
	d := Describe(&RemoteError{Kind: RemoteUnknown, Err: errors.New("upstream 500: internal")})
	assert.Contains(t, d.Message, "upstream 500: internal")
}

func TestQuotaExceededMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &QuotaExceededError{Limit: 3})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "limit of 3")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&RemoteError{Kind: RemoteRateLimit, Err: errors.New("x")}))
	assert.True(t, Retryable(&RemoteError{Kind: RemoteQuota, Err: errors.New("x")}))
	assert.False(t, Retryable(&RemoteError{Kind: RemoteSafetyBlocked, Err: errors.New("x")}))
	assert.False(t, Retryable(NewValidation("resume", "missing")))
}
