package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the service answers without content.
	ErrEmptyResponse = errors.New("oracle returned an empty response")

	// ErrUnavailable is returned when no oracle is reachable.
	ErrUnavailable = errors.New("oracle unavailable")
)

// Oracle is the external language-understanding completion capability.
// Implementations must be thread-safe for concurrent use.
type Oracle interface {
	// Complete sends system instructions and user content and returns the raw
	// completion text, expected to be JSON-shaped. Callers must parse defensively.
	Complete(ctx context.Context, systemInstructions, userContent string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Oracle returns the completion service.
	// The returned Oracle is safe for concurrent use.
	Oracle() Oracle

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
