package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"picpick/logger"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

// Options configures a Watchdog. A zero StallAfter or a nil ProgressFn
// disables it.
type Options struct {
	StallAfter         time.Duration
	Dir                string
	ProgressFn         func() int64
	InFlightFn         func() []string
	DumpFlightRecorder func(path string) error
	NowFn              func() time.Time
	ProfileLookupFn    func(name string) profileWriter
}

// Watchdog polls a progress counter and writes a stall report, a goroutine
// profile and the flight recorder window when the counter stops moving.
type Watchdog struct {
	opts Options

	mu             sync.Mutex
	lastProgress   int64
	lastProgressAt time.Time
	lastDumpAt     time.Time
	dumps          int

	stopCh chan struct{}
	doneCh chan struct{}
}

type stallEvent struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	Progress  int64    `json:"files_done"`
	StalledMS int64    `json:"stalled_ms"`
	LimitMS   int64    `json:"stall_after_ms"`
	InFlight  []string `json:"in_flight,omitempty"`
}

func NewWatchdog(opts Options) *Watchdog {
	if opts.NowFn == nil {
		opts.NowFn = time.Now
	}
	if opts.ProfileLookupFn == nil {
		opts.ProfileLookupFn = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Watchdog{opts: opts}
}

func (w *Watchdog) enabled() bool {
	return w != nil && w.opts.StallAfter > 0 && w.opts.ProgressFn != nil
}

// Start polls until ctx is done or Close is called.
func (w *Watchdog) Start(ctx context.Context) {
	if !w.enabled() || w.stopCh != nil {
		return
	}
	w.mu.Lock()
	w.lastProgress = w.opts.ProgressFn()
	w.lastProgressAt = w.opts.NowFn()
	w.mu.Unlock()

	interval := min(max(w.opts.StallAfter/2, 100*time.Millisecond), 2*time.Second)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.check(w.opts.NowFn())
			}
		}
	}()
}

func (w *Watchdog) Close() {
	if w == nil || w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
	w.doneCh = nil
}

// Dumps reports how many stall reports have been written.
func (w *Watchdog) Dumps() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dumps
}

// check compares the counter with the last observation and dumps at most
// once per StallAfter while progress is flat.
func (w *Watchdog) check(now time.Time) {
	if !w.enabled() {
		return
	}
	progress := w.opts.ProgressFn()

	w.mu.Lock()
	if progress != w.lastProgress || w.lastProgressAt.IsZero() {
		w.lastProgress = progress
		w.lastProgressAt = now
		w.mu.Unlock()
		return
	}
	stalledFor := now.Sub(w.lastProgressAt)
	due := stalledFor >= w.opts.StallAfter &&
		(w.lastDumpAt.IsZero() || now.Sub(w.lastDumpAt) >= w.opts.StallAfter)
	if due {
		w.lastDumpAt = now
		w.dumps++
	}
	w.mu.Unlock()

	if !due {
		return
	}
	var inFlight []string
	if w.opts.InFlightFn != nil {
		inFlight = w.opts.InFlightFn()
		sort.Strings(inFlight)
	}
	logger.Warnf("No file finished reading for %s (%d done, %d in flight)", stalledFor.Round(time.Millisecond), progress, len(inFlight))
	if err := w.dump(now, stallEvent{
		Event:     "metadata_read_stalled",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Progress:  progress,
		StalledMS: stalledFor.Milliseconds(),
		LimitMS:   w.opts.StallAfter.Milliseconds(),
		InFlight:  inFlight,
	}); err != nil {
		logger.Warnf("Stall diagnostics failed: %v", err)
	}
}

func (w *Watchdog) dump(now time.Time, event stallEvent) error {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")

	b, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.opts.Dir, "picpick-stall-"+ts+".json"), b, 0o600); err != nil {
		return err
	}

	if err := w.writeProfile("goroutine", ts); err != nil {
		logger.Warnf("Goroutine profile dump failed: %v", err)
	}
	if w.opts.DumpFlightRecorder != nil {
		if err := w.opts.DumpFlightRecorder(filepath.Join(w.opts.Dir, "picpick-flight-"+ts+".out")); err != nil {
			logger.Warnf("Flight recorder dump failed: %v", err)
		}
	}
	return nil
}

func (w *Watchdog) writeProfile(name, ts string) error {
	profile := w.opts.ProfileLookupFn(name)
	if profile == nil {
		return fmt.Errorf("pprof profile %q unavailable", name)
	}
	f, err := os.OpenFile(filepath.Join(w.opts.Dir, fmt.Sprintf("picpick-%s-%s.pprof", name, ts)), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return profile.WriteTo(f, 2)
}
