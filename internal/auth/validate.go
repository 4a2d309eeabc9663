package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/noksha/internal/metrics"
)

// ValidationError represents a specific type of API key or provider failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey verifies the key with a minimal text call against model.
// It returns nil if the key works, or a *ValidationError describing why not.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = Classify(err)
		result = valErr.Type.String()
	case resp == nil || len(resp.Candidates) == 0:
		log.Warn().Msg("API key validation returned empty response")
		valErr = &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
		result = "empty_response"
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()

	if valErr != nil {
		return valErr
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

// Classify analyzes a provider error and returns a ValidationError with the
// appropriate type. It returns nil for a nil error.
func Classify(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyAPIError(*apiErrPtr, err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "permission denied"):
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid or has been revoked",
			Err:     err,
		}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API quota exceeded or rate limited",
			Err:     err,
		}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "Network error - check your internet connection",
			Err:     err,
		}

	default:
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "Provider call failed",
			Err:     err,
		}
	}
}

func classifyAPIError(apiErr genai.APIError, cause error) *ValidationError {
	switch apiErr.Code {
	case 400:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "Bad request - API key may be malformed", Err: cause}
	case 401, 403:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "API key is invalid, expired, or lacks permissions", Err: cause}
	case 429:
		return &ValidationError{Type: ErrTypeQuotaExceeded, Message: "API rate limit exceeded - try again later", Err: cause}
	case 500, 502, 503, 504:
		return &ValidationError{Type: ErrTypeNetworkError, Message: "Gemini API server error - try again later", Err: cause}
	default:
		return &ValidationError{Type: ErrTypeUnknown, Message: apiErr.Message, Err: cause}
	}
}
