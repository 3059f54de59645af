package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"picpick/config"
	"picpick/diag"
	"picpick/logger"
	"picpick/metadata"
	"picpick/output"
	"picpick/systeminfo"
	"picpick/tracing"
	"picpick/utils"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// ScanPhotos enumerates every start path and extracts metadata from each file
// with a bounded worker pool. Results come back in traversal order. Only an
// unreadable start path is an error; per-file failures yield results without
// metadata. On cancellation the files extracted so far are returned.
func ScanPhotos(ctx context.Context, cfg *config.Config, metrics *output.Metrics) ([]metadata.Result, error) {
	roots := utils.UniqueRoots(cfg.StartPaths)
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("cannot read start path %s: %w", root, err)
		}
	}

	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	opts := metadata.Options{
		MaxBytes:    cfg.MetadataMaxBytes,
		ReadMode:    cfg.ContentReadMode,
		MmapMinSize: cfg.MmapMinSize,
	}

	var bar *progressbar.ProgressBar
	if cfg.SkipCount {
		logger.Info("Skipping total file count")
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Reading metadata"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetVisibility(progressVisible()),
			progressbar.OptionFullWidth(),
		)
	} else {
		logger.Info("Counting total number of files...")
		totalFiles := 0
		for _, root := range roots {
			count, err := countTotalFiles(ctx, root, roots, cfg, matcher)
			if err != nil {
				logger.Warnf("Failed to count files in %s: %v", root, err)
				continue
			}
			totalFiles += count
		}
		logger.Infof("Total files to scan: %d", totalFiles)
		bar = progressbar.NewOptions(totalFiles,
			progressbar.OptionSetDescription("Reading metadata"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetVisibility(progressVisible()),
			progressbar.OptionFullWidth(),
		)
	}

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	adjustConcurrency(cfg)

	filesChan := make(chan FileRef, cfg.ConcurrencyLevel)
	results := newCollector()
	reading := newInFlight()
	var enumerated, finished, withMetadata atomic.Int64
	var walkErr error

	watchdog := diag.NewWatchdog(diag.Options{
		StallAfter:         cfg.StallTimeout,
		Dir:                cfg.DiagDir,
		ProgressFn:         finished.Load,
		InFlightFn:         reading.list,
		DumpFlightRecorder: tracing.WriteFlightRecorder,
	})
	watchdog.Start(ctx)
	defer watchdog.Close()

	go func() {
		defer close(filesChan)
		seen := make(map[string]struct{})
		next := 0
		for _, root := range roots {
			err := selectedWalk(ctx, root, roots, cfg, matcher, func(ref FileRef) error {
				if _, ok := seen[ref.Path]; ok {
					return nil
				}
				seen[ref.Path] = struct{}{}
				ref.Index = next
				next++
				enumerated.Add(1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case filesChan <- ref:
				}
				if ioLimiter != nil {
					return ioLimiter.Wait(ctx)
				}
				return nil
			})
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					logger.Warn("Scan interrupted; unread files are left out of the report")
					return
				}
				walkErr = err
				return
			}
		}
	}()

	var progressWG sync.WaitGroup
	progressCh := make(chan int, maxInt(cfg.ConcurrencyLevel*4, 64))
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		for delta := range progressCh {
			_ = bar.Add(delta)
		}
	}()

	var wg sync.WaitGroup
	for range cfg.ConcurrencyLevel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range filesChan {
				if ctx.Err() != nil {
					continue
				}
				reading.add(ref)
				res := extractFile(ctx, ref, opts)
				reading.done(ref)
				finished.Add(1)
				if res.HasMetadata() {
					withMetadata.Add(1)
				}
				results.put(ref, res)
				progressCh <- 1
			}
		}()
	}

	wg.Wait()
	close(progressCh)
	progressWG.Wait()
	_ = bar.Finish()

	if walkErr != nil {
		return nil, walkErr
	}

	if metrics != nil {
		metrics.TotalFiles = int(enumerated.Load())
		metrics.FilesScanned = results.len()
		metrics.FilesWithMetadata = int(withMetadata.Load())
	}
	return results.ordered(), nil
}

func extractFile(ctx context.Context, ref FileRef, opts metadata.Options) metadata.Result {
	ctx, endTask := tracing.StartTask(ctx, "extract_metadata")
	defer endTask()
	tracing.Log(ctx, "file", ref.Path)

	return metadata.Extract(ref.Path, opts)
}

// selectedWalk enumerates the files under root that pass the filters. A
// failure to read root itself is returned; deeper failures are logged.
func selectedWalk(ctx context.Context, root string, roots []string, cfg *config.Config, matcher *utils.PatternMatcher, emit func(FileRef) error) error {
	return selectWalker().Walk(ctx, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("cannot read start path %s: %w", root, err)
			}
			logger.Warnf("Failed to access %s: %v", path, err)
			return nil
		}
		if d == nil || d.IsDir() {
			return nil
		}
		if !matcher.ShouldInclude(path) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 && !utils.IsPathWithin(path, roots) {
			logger.Debugf("Skipping symlink outside target paths: %s", path)
			return nil
		}
		if cfg.MaxFileSize > 0 {
			if info, err := d.Info(); err == nil && info.Size() > cfg.MaxFileSize {
				logger.Debugf("Skipping large file %s", path)
				return nil
			}
		}
		return emit(FileRef{Path: path, Name: filepath.Base(path)})
	})
}

func countTotalFiles(ctx context.Context, root string, roots []string, cfg *config.Config, matcher *utils.PatternMatcher) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var total int
	err := selectedWalk(ctx, root, roots, cfg, matcher, func(FileRef) error {
		total++
		return nil
	})
	return total, err
}

func adjustConcurrency(cfg *config.Config) {
	if cfg.ConcurrencySet {
		return
	}
	switch cfg.NiceLevel {
	case "high":
		cfg.ConcurrencyLevel = runtime.NumCPU()
	case "medium":
		cfg.ConcurrencyLevel = systeminfo.PhysicalCores()
	case "low":
		cfg.ConcurrencyLevel = 1
	}
	if cfg.ConcurrencyLevel < 1 {
		cfg.ConcurrencyLevel = 1
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("PICPICK_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
