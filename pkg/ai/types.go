package ai

import (
	"context"
	"errors"
)

// ErrGenerationFailed is the single failure surfaced for any completion call
// that did not produce text. Provider-specific causes (rate limits, auth,
// malformed requests) are collapsed into it; callers decide whether to skip,
// retry, or abort, and the underlying cause stays in the error chain for logs.
var ErrGenerationFailed = errors.New("generation failed")

// Completer produces text from a fully rendered prompt.
type Completer interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	GenerateSummary(ctx context.Context, text string) (string, error)
}
