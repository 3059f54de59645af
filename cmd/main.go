package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picpick/burst"
	"picpick/config"
	"picpick/logger"
	"picpick/output"
	"picpick/report"
	"picpick/scanner"
	"picpick/systeminfo"
	"picpick/tracing"
	"picpick/version"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := tracing.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	logger.Debugf("picpick %s", version.Version)

	if cfg.TraceFlight {
		if err := tracing.StartFlightRecorder(cfg.TraceFlightMaxBytes, cfg.TraceFlightMinAge); err != nil {
			logger.Warnf("Failed to start flight recorder: %v", err)
		} else {
			defer func() {
				if err := tracing.WriteFlightRecorder(cfg.TraceFlightFile); err != nil {
					logger.Warnf("Failed to write flight recorder: %v", err)
				}
				tracing.StopFlightRecorder()
			}()
		}
	}

	metrics := output.Metrics{
		StartTime: time.Now().Format(time.RFC3339),
	}

	var sysInfo *systeminfo.SystemInfo
	if cfg.CollectSystemInfo {
		sysInfo = systeminfo.GetSystemInfo()
	}

	writer, err := output.New(cfg, sysInfo, &metrics)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleSignals(cancel, &metrics, writer, cfg.TraceFlight, cfg.TraceFlightFile)

	rep, err := run(ctx, cfg, &metrics, writer)
	if err != nil {
		logger.Fatalf("Grouping failed: %v", err)
	}

	for _, line := range rep.Lines() {
		logger.Info(line)
	}
	if writer.Active() {
		logger.Debugf("Exported %d records", writer.Written())
	}

	metrics.EndTime = time.Now().Format(time.RFC3339)
	writer.SetMetrics(metrics)
}

// run reads every configured start path and groups the photos that carry a
// capture timestamp into bursts. Records are sent to w when it has a sink.
func run(ctx context.Context, cfg *config.Config, metrics *output.Metrics, w *output.Writer) (report.Report, error) {
	loc, err := cfg.Location()
	if err != nil {
		return report.Report{}, err
	}

	results, err := scanner.ScanPhotos(ctx, cfg, metrics)
	if err != nil {
		return report.Report{}, err
	}

	endRegion := tracing.StartRegion(ctx, "cluster")
	entries, excluded := burst.Filter(results, loc)
	groups := burst.Cluster(burst.Sort(entries), cfg.Threshold())
	endRegion()

	rep := report.Summarize(groups, report.Options{
		Rounding:  cfg.Rounding,
		Threshold: cfg.Threshold(),
		Excluded:  excluded,
	})
	logger.WithFields(logrus.Fields{
		"files":    len(results),
		"eligible": len(entries),
		"excluded": excluded,
		"groups":   len(groups),
	}).Debug("Grouping finished")

	if metrics != nil {
		metrics.EligibleEntries = len(entries)
		metrics.ExcludedEntries = excluded
		metrics.Groups = len(groups)
	}

	if w != nil && w.Active() {
		opts := output.RecordOptions{HashAlgorithms: cfg.HashAlgorithms, FuzzyHash: cfg.FuzzyHash}
		for _, rec := range output.PhotoRecords(groups, opts) {
			w.WritePhoto(rec)
		}
		w.WriteReport(rep)
	}
	return rep, nil
}

func handleSignals(cancelFunc context.CancelFunc, metrics *output.Metrics, w *output.Writer, traceFlight bool, traceFlightFile string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	handleSignalEvent(cancelFunc, metrics, w, traceFlight, traceFlightFile, sigChan)
}

func handleSignalEvent(cancelFunc context.CancelFunc, metrics *output.Metrics, w *output.Writer, traceFlight bool, traceFlightFile string, sigChan <-chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Finishing with the photos read so far...")

	metrics.EndTime = time.Now().Format(time.RFC3339)
	w.SetMetrics(*metrics)

	if traceFlight {
		if err := tracing.WriteFlightRecorder(traceFlightFile); err != nil {
			logger.Warnf("Failed to write flight recorder: %v", err)
		}
		tracing.StopFlightRecorder()
	}

	cancelFunc()
}
