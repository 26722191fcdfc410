package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks infrastructure failures (store or registry
	// unavailable) that are expected to succeed on a later attempt.
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks payloads the registry rejected or that fail local
	// validation; retrying cannot succeed.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a remote record the registry no longer knows.
	ErrNotFound = errors.New("not found")
	// ErrClaimLost marks a status transition rejected because another
	// process already advanced the item; the caller must abort without
	// writing.
	ErrClaimLost = errors.New("claim lost")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a failed attempt may be rescheduled. Validation,
// configuration, and not-found failures are terminal; everything else is
// assumed transient.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
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
