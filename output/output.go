package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"picpick/config"
	"picpick/logger"
	"picpick/report"
	"picpick/systeminfo"
)

// SchemaVersion is stamped on every exported record.
const SchemaVersion = "1.0"

const (
	RecordHost    = "host"
	RecordPhoto   = "photo"
	RecordGroup   = "group"
	RecordSummary = "summary"
	RecordMetrics = "metrics"
)

type Metrics struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	TotalFiles        int    `json:"total_files"`
	FilesScanned      int    `json:"files_scanned"`
	FilesWithMetadata int    `json:"files_with_metadata"`
	EligibleEntries   int    `json:"eligible_entries"`
	ExcludedEntries   int    `json:"excluded_entries"`
	Groups            int    `json:"groups"`
}

type ndjsonRecord struct {
	RecordType    string      `json:"record_type"`
	SchemaVersion string      `json:"schema_version"`
	Payload       interface{} `json:"payload"`
}

// Writer exports report records to an optional file (NDJSON or CSV) and to
// an optional OTLP log endpoint. A Writer with neither configured is a no-op.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	csvw    *csv.Writer
	format  string
	metrics *Metrics
	otel    *otelLogger
	written int
}

func New(cfg *config.Config, sysInfo *systeminfo.SystemInfo, m *Metrics) (*Writer, error) {
	w := &Writer{metrics: m, format: "json"}
	if cfg == nil {
		return w, nil
	}
	if format := strings.ToLower(strings.TrimSpace(cfg.OutputFormat)); format != "" {
		w.format = format
	}

	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}

	if cfg.OutputFileName != "" {
		if err := w.openFile(cfg.OutputFileName); err != nil {
			return nil, fmt.Errorf("open output %s: %w", cfg.OutputFileName, err)
		}
	}

	if sysInfo != nil {
		w.mu.Lock()
		w.writeRecordLocked(RecordHost, sysInfo)
		w.mu.Unlock()
	}
	return w, nil
}

func (w *Writer) openFile(name string) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 256*1024)
	if w.format == "csv" {
		w.csvw = csv.NewWriter(w.buf)
		if err := w.csvw.Write(csvHeader); err != nil {
			return err
		}
	}
	return nil
}

// WritePhoto exports one grouped photo.
func (w *Writer) WritePhoto(rec PhotoRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeRecordLocked(RecordPhoto, rec)
}

// WriteReport exports one record per group followed by the summary.
func (w *Writer) WriteReport(rep report.Report) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, g := range rep.Groups {
		w.writeRecordLocked(RecordGroup, g)
	}
	w.writeRecordLocked(RecordSummary, SummaryRecord{
		GroupCount:       len(rep.Groups),
		TotalEntries:     rep.TotalEntries,
		ExcludedEntries:  rep.Excluded,
		AverageGroupSize: rep.Average,
		Rounding:         rep.Rounding,
		ThresholdSeconds: int64(rep.Threshold / time.Second),
	})
	w.flushLocked()
}

func (w *Writer) SetMetrics(m Metrics) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics = &m
}

// Active reports whether any sink is configured.
func (w *Writer) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf != nil || w.otel != nil
}

// Written reports how many records have been exported so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close writes the metrics record and releases the file and exporter.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics != nil {
		w.writeRecordLocked(RecordMetrics, w.metrics)
	}
	w.flushLocked()
	if w.file != nil {
		_ = w.file.Sync()
		_ = w.file.Close()
		w.file = nil
	}
	if w.otel != nil {
		w.otel.Shutdown()
		w.otel = nil
	}
}

func (w *Writer) writeRecordLocked(recordType string, payload interface{}) {
	if w.buf != nil {
		var err error
		if w.csvw != nil {
			err = w.csvw.Write(csvRow(recordType, payload))
		} else {
			err = writeNDJSON(w.buf, recordType, payload)
		}
		if err != nil {
			logger.Warnf("Failed to write %s record: %v", recordType, err)
		}
	}
	if w.otel != nil {
		w.otel.Emit(recordType, payload)
	}
	w.written++
}

func (w *Writer) flushLocked() {
	if w.csvw != nil {
		w.csvw.Flush()
		if err := w.csvw.Error(); err != nil {
			logger.Warnf("Failed to flush CSV output: %v", err)
		}
	}
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			logger.Warnf("Failed to flush output: %v", err)
		}
	}
}

func writeNDJSON(buf *bufio.Writer, recordType string, payload interface{}) error {
	data, err := json.Marshal(ndjsonRecord{
		RecordType:    recordType,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	return buf.WriteByte('\n')
}

var csvHeader = []string{
	"record_type",
	"schema_version",
	"group",
	"position",
	"path",
	"name",
	"mime_type",
	"capture_time",
	"width",
	"height",
	"orientation",
	"mod_time",
	"creation_time",
	"access_time",
	"hashes",
	"fuzzy_hashes",
	"photo_count",
	"newest",
	"oldest",
	"span_seconds",
	"payload",
}

func csvRow(recordType string, payload interface{}) []string {
	row := make([]string, len(csvHeader))
	row[0] = recordType
	row[1] = SchemaVersion
	switch v := payload.(type) {
	case PhotoRecord:
		row[2] = strconv.Itoa(v.Group)
		row[3] = strconv.Itoa(v.Position)
		row[4] = v.Path
		row[5] = v.Name
		row[6] = v.MimeType
		row[7] = v.CaptureTime
		row[8] = intField(v.Width)
		row[9] = intField(v.Height)
		row[10] = intField(v.Orientation)
		row[11] = v.ModTime
		row[12] = v.CreationTime
		row[13] = v.AccessTime
		row[14] = jsonString(v.Hashes)
		row[15] = jsonString(v.FuzzyHashes)
	case report.GroupSummary:
		row[2] = strconv.Itoa(v.Index)
		row[16] = strconv.Itoa(v.Count)
		row[17] = v.Newest.Format(time.RFC3339)
		row[18] = v.Oldest.Format(time.RFC3339)
		row[19] = strconv.FormatInt(int64(v.Span/time.Second), 10)
	default:
		row[20] = jsonString(payload)
	}
	return row
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func jsonString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case map[string]string:
		if len(v) == 0 {
			return ""
		}
	}
	bytes, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(bytes)
}
