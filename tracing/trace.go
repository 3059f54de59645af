//go:build trace

package tracing

import (
	"context"
	"os"
	"runtime/trace"
)

// DefaultTraceFile receives the execution trace unless PICPICK_TRACE_FILE
// names another file.
const DefaultTraceFile = "trace.out"

var traceFile *os.File

// Start writes a runtime execution trace for the whole run.
func Start() error {
	path := os.Getenv("PICPICK_TRACE_FILE")
	if path == "" {
		path = DefaultTraceFile
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		f.Close()
		return err
	}
	traceFile = f
	return nil
}

func Stop() {
	trace.Stop()
	if traceFile != nil {
		traceFile.Close()
		traceFile = nil
	}
}

// StartTask groups the work for one unit, such as a single file, under name.
func StartTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

func StartRegion(ctx context.Context, name string) func() {
	return trace.StartRegion(ctx, name).End
}

func Log(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}
