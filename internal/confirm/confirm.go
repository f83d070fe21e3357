package confirm

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout reports that the confirmation call exceeded its deadline.
var ErrTimeout = errors.New("confirmation timed out")

// ErrUnavailable reports that the confirmation service could not be reached.
var ErrUnavailable = errors.New("confirmation service unavailable")

// Result is the raw outcome of one confirmation call.
type Result struct {
	// Text is the model's free-text answer, lowercased and trimmed.
	Text string
	// Latency is the wall-clock duration of the call.
	Latency time.Duration
}

// Confirmer poses a yes/no question about content to a vision-language model.
// This is the expensive, high-precision stage of the cascade; callers make a
// single attempt per (sample, category) pair and fall back fail-safe on error.
type Confirmer interface {
	Confirm(ctx context.Context, content any, prompt string) (*Result, error)

	// Available reports whether the service is reachable. A false return
	// switches the cascade into degraded mode, where the broad stage is
	// trusted directly.
	Available(ctx context.Context) bool
}
