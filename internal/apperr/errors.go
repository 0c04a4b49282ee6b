package apperr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match with errors.Is; handlers map each kind
// to a distinct user-facing message.
var (
	// ErrValidation marks missing or malformed input, detected before any
	// external call.
	ErrValidation = errors.New("validation failed")
	// ErrQuotaExceeded marks a usage-governor denial.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrGenerationFailed marks a provider-side failure or timeout. Retryable.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrInsufficientData marks a style analysis attempted on an empty corpus.
	ErrInsufficientData = errors.New("insufficient data")
)

// Validationf wraps a formatted message in ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Generationf wraps an underlying provider error in ErrGenerationFailed.
// The provider's own error shape is kept only as wrapped context and never
// inspected by callers.
func Generationf(err error, format string, args ...any) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrGenerationFailed, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("%w: %s: %v", ErrGenerationFailed, fmt.Sprintf(format, args...), err)
}

// QuotaExceededf wraps a formatted message in ErrQuotaExceeded.
func QuotaExceededf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrQuotaExceeded, fmt.Sprintf(format, args...))
}

// Retryable reports whether the error is worth presenting as "try again".
func Retryable(err error) bool {
	return errors.Is(err, ErrGenerationFailed)
}
