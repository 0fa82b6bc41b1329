package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalService marks transient failures of the generation engine,
	// image service, social platform, or reply capability. Retryable.
	ErrExternalService = errors.New("external service error")
	// ErrStore marks record-store failures. Callers degrade to the local
	// backend and keep operating.
	ErrStore = errors.New("store error")
	// ErrQuotaExceeded is a normal skip condition, never logged as a failure.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrOutsideWindow is a normal skip condition for publication ticks.
	ErrOutsideWindow = errors.New("outside publishing window")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout marks a bounded external call that ran out of time.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsSkip reports whether an error represents a normal skip condition
// (quota or window) rather than a failure.
func IsSkip(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrOutsideWindow)
}

// IsRetryable reports whether a tick error should be retried with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalService) || errors.Is(err, ErrStore) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
