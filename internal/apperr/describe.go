package apperr

import (
	"errors"
	"net/http"
)

// Category names used in rendered errors.
const (
	CategoryValidation    = "validation"
	CategoryExtraction    = "extraction"
	CategoryConfiguration = "configuration"
	CategoryQuotaExceeded = "quota_exceeded"
	CategoryRemote        = "remote"
	CategoryInternal      = "internal"
)

// Description is the user-facing rendering of a pipeline error.
type Description struct {
	Category string `json:"category"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message"`
	Status   int    `json:"-"`
}

// Describe maps err onto a category, a message a person can act on and an
// HTTP status.
func Describe(err error) Description {
	var (
		validation    *ValidationError
		extraction    *ExtractionError
		configuration *ConfigurationError
		quota         *QuotaExceededError
		remote        *RemoteError
	)

	switch {
	case err == nil:
		return Description{}
	case errors.As(err, &validation):
		return Description{
			Category: CategoryValidation,
			Kind:     validation.Field,
			Message:  validation.Message,
			Status:   http.StatusBadRequest,
		}
	case errors.As(err, &extraction):
		return describeExtraction(extraction)
	case errors.As(err, &configuration):
		return Description{
			Category: CategoryConfiguration,
			Message:  configuration.Error(),
			Status:   http.StatusInternalServerError,
		}
	case errors.As(err, &quota):
		return Description{
			Category: CategoryQuotaExceeded,
			Message:  "You have used all analyses for this session. Start a new session to continue.",
			Status:   http.StatusTooManyRequests,
		}
	case errors.As(err, &remote):
		return describeRemote(remote)
	default:
		return Description{
			Category: CategoryInternal,
			Message:  err.Error(),
			Status:   http.StatusInternalServerError,
		}
	}
}

func describeExtraction(e *ExtractionError) Description {
	d := Description{Category: CategoryExtraction, Kind: string(e.Reason), Status: http.StatusUnprocessableEntity}
	switch e.Reason {
	case ReasonTooLarge:
		d.Message = "The resume file is too large. Upload a smaller file."
		d.Status = http.StatusRequestEntityTooLarge
	case ReasonNoPages:
		d.Message = "The resume does not contain any readable pages."
	default:
		d.Message = "The resume could not be read. Upload a PDF or plain text file."
	}
	return d
}

func describeRemote(e *RemoteError) Description {
	d := Description{Category: CategoryRemote, Kind: string(e.Kind)}
	switch e.Kind {
	case RemoteQuota:
		d.Message = "The AI service quota is exhausted. Please try again later."
		d.Status = http.StatusServiceUnavailable
	case RemoteRateLimit:
		d.Message = "Too many requests to the AI service. Please wait a moment and try again."
		d.Status = http.StatusTooManyRequests
	case RemoteSafetyBlocked:
		d.Message = "The content was blocked by the AI safety filter. Review the resume and job description."
		d.Status = http.StatusUnprocessableEntity
	default:
		d.Message = "The AI service failed: " + e.Err.Error()
		d.Status = http.StatusBadGateway
	}
	return d
}

// Retryable reports whether trying again later with the same input can
// succeed.
func Retryable(err error) bool {
	kind, ok := RemoteKindOf(err)
	if !ok {
		return false
	}
	return kind == RemoteQuota || kind == RemoteRateLimit || kind == RemoteUnknown
}
