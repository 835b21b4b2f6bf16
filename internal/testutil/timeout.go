package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTestBuffer is the buffer time subtracted from test deadline
// to allow for cleanup operations before the test times out.
const DefaultTestBuffer = 10 * time.Second

// ContextWithTestDeadline creates a context that respects the test's deadline.
// It subtracts a buffer from the test deadline to allow time for cleanup.
// If the test has no deadline, it falls back to the provided fallback duration.
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadlineBuffer(t, fallback, DefaultTestBuffer)
}

// ContextWithTestDeadlineBuffer is ContextWithTestDeadline with a custom
// buffer. If the test deadline minus buffer is already past, the fallback
// is used instead.
func ContextWithTestDeadlineBuffer(t *testing.T, fallback, buffer time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjustedDeadline := deadline.Add(-buffer)
		if time.Until(adjustedDeadline) > 0 {
			return context.WithDeadline(context.Background(), adjustedDeadline)
		}
	}

	return context.WithTimeout(context.Background(), fallback)
}

// ShortOperationContext creates a context with a short timeout (10 seconds)
// for servers and watchers started by a test. It respects the test deadline
// if one is set.
func ShortOperationContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadline(t, 10*time.Second)
}
