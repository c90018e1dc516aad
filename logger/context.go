package logger

import (
	"context"
	"sync/atomic"
	"time"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// apiCounterKey is the context key for tracking API calls per command
	apiCounterKey contextKey = "api_call_counter"
	// apiElapsedKey is the context key for tracking total API elapsed time per command
	apiElapsedKey contextKey = "api_elapsed_nanos"
)

// WithAPICounter creates a new context with an API call counter and elapsed time tracker
func WithAPICounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, apiCounterKey, &counter)
	ctx = context.WithValue(ctx, apiElapsedKey, &elapsed)
	return ctx
}

// RecordAPICall counts one finished call and adds its elapsed time. It is a
// no-op when ctx carries no counter.
func RecordAPICall(ctx context.Context, elapsed time.Duration) {
	if counter, ok := ctx.Value(apiCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
	if total, ok := ctx.Value(apiElapsedKey).(*int64); ok && total != nil {
		atomic.AddInt64(total, int64(elapsed))
	}
}

// GetAPICounter returns the number of calls recorded in the context
func GetAPICounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(apiCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// GetAPIElapsed returns the total elapsed time recorded in the context
func GetAPIElapsed(ctx context.Context) time.Duration {
	if elapsed, ok := ctx.Value(apiElapsedKey).(*int64); ok && elapsed != nil {
		return time.Duration(atomic.LoadInt64(elapsed))
	}
	return 0
}
