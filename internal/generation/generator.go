// Package generation wraps the external generative-text service.
package generation

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPrompt indicates an empty prompt.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrGenerationFailed indicates the generation service call failed.
	ErrGenerationFailed = errors.New("text generation failed")
)

// Generator maps a prompt to a text completion. A response that carries no
// text is a recoverable empty result, not an error. Implementations do not
// retry; retry policy belongs to the caller.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
