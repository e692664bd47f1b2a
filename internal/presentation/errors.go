package presentation

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled marks a run that was cancelled mid-flight. Side effects that
// committed before the cancellation (a persisted assignment, a cached
// artifact) are not rolled back.
var ErrCancelled = errors.New("presentation cancelled")

// cancelErr maps context errors onto ErrCancelled so callers can test with
// a single sentinel regardless of which stage observed the cancellation.
func cancelErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
