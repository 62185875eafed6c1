package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
)

// WithTimeout bounds fn to limit. fn runs on its own goroutine so that a
// callee ignoring ctx cannot hold the caller past the deadline. Overruns
// come back as *apperrors.DeadlineError; a cancelled parent is reported as
// such. A non-positive limit runs fn inline.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(bounded) }()

	select {
	case err := <-result:
		if err != nil && bounded.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return &apperrors.DeadlineError{Op: op, Limit: limit, Cause: err}
		}
		return err
	case <-bounded.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: cancelled: %w", op, err)
	}
	return &apperrors.DeadlineError{Op: op, Limit: limit, Cause: context.DeadlineExceeded}
}
