//go:build !trace

package tracing

import "context"

// Without the trace build tag the task and region helpers compile to no-ops.

func Start() error { return nil }

func Stop() {}

func StartTask(ctx context.Context, name string) (context.Context, func()) {
	return ctx, func() {}
}

func StartRegion(ctx context.Context, name string) func() {
	return func() {}
}

func Log(ctx context.Context, category, message string) {}
