package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"picpick/version"

	"github.com/joho/godotenv"
)

type Config struct {
	StartPaths          []string          `json:"start_paths"`
	ThresholdSeconds    int               `json:"threshold_seconds"`
	Rounding            string            `json:"rounding"`
	Timezone            string            `json:"timezone"`
	ConcurrencyLevel    int               `json:"concurrency_level"`
	NiceLevel           string            `json:"nice_level"`
	IncludePatterns     []string          `json:"include_patterns"`
	ExcludePatterns     []string          `json:"exclude_patterns"`
	MaxFileSize         int64             `json:"max_file_size"`
	MetadataMaxBytes    int64             `json:"metadata_max_bytes"`
	ContentReadMode     string            `json:"content_read_mode"`
	MmapMinSize         int64             `json:"mmap_min_size"`
	MaxIOPerSecond      int               `json:"max_io_per_second"`
	SkipCount           bool              `json:"skip_count"`
	HashAlgorithms      []string          `json:"hash_algorithms"`
	FuzzyHash           bool              `json:"fuzzy_hash"`
	OutputFileName      string            `json:"output_file_name"`
	OutputFormat        string            `json:"output_format"`
	LogLevel            string            `json:"log_level"`
	CollectSystemInfo   bool              `json:"collect_system_info"`
	ConfigFile          string            `json:"config_file"`
	EnvFile             string            `json:"env_file"`
	OtelEndpoint        string            `json:"otel_endpoint"`
	OtelFromEnv         bool              `json:"otel_from_env"`
	OtelHeaders         map[string]string `json:"otel_headers"`
	OtelServiceName     string            `json:"otel_service_name"`
	OtelTimeout         time.Duration     `json:"otel_timeout"`
	OtelExportPaths     bool              `json:"otel_export_paths"`
	TraceFlight         bool              `json:"trace_flight"`
	TraceFlightFile     string            `json:"trace_flight_file"`
	TraceFlightMaxBytes uint64            `json:"trace_flight_max_bytes"`
	TraceFlightMinAge   time.Duration     `json:"trace_flight_min_age"`
	StallTimeout        time.Duration     `json:"stall_timeout"`
	DiagDir             string            `json:"diag_dir"`
	ConcurrencySet      bool              `json:"-"`
}

// Threshold returns the burst gap as a duration.
func (cfg *Config) Threshold() time.Duration {
	return time.Duration(cfg.ThresholdSeconds) * time.Second
}

// Location resolves the zone used for capture times that carry none.
func (cfg *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(cfg.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		StartPaths:        []string{"."},
		ThresholdSeconds:  5,
		Rounding:          "half-up",
		Timezone:          "Local",
		ConcurrencyLevel:  runtime.NumCPU(),
		NiceLevel:         "medium",
		IncludePatterns:   []string{},
		ExcludePatterns:   []string{},
		MaxFileSize:       200 * 1024 * 1024,
		MetadataMaxBytes:  4 * 1024 * 1024,
		ContentReadMode:   "auto",
		MmapMinSize:       8 * 1024 * 1024,
		MaxIOPerSecond:    0,
		SkipCount:         true,
		HashAlgorithms:    []string{},
		OutputFormat:      "json",
		LogLevel:          "info",
		CollectSystemInfo: true,
		OtelHeaders:       map[string]string{},
		OtelServiceName:   "picpick",
		OtelTimeout:       5 * time.Second,
		TraceFlightFile:   "trace-flight.out",
		DiagDir:           ".",
	}

	startPath := flag.String("path", strings.Join(cfg.StartPaths, ","), fmt.Sprintf("Comma-separated list of folders to scan (default: %s).", strings.Join(cfg.StartPaths, ",")))
	threshold := flag.Int("threshold", cfg.ThresholdSeconds, fmt.Sprintf("Maximum gap in seconds between consecutive photos of a burst (default: %d).", cfg.ThresholdSeconds))
	rounding := flag.String("rounding", cfg.Rounding, "Rounding for the average group size: half-up or half-even (default: half-up).")
	timezone := flag.String("timezone", cfg.Timezone, "Zone for capture times without offset, IANA name or Local (default: Local).")
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Number of extraction workers (default: %d).", cfg.ConcurrencyLevel))
	nice := flag.String("nice", cfg.NiceLevel, fmt.Sprintf("Nice level: high, medium, or low (default: %s).", cfg.NiceLevel))
	includes := flag.String("include", "", "Comma-separated list of include patterns, globs or regexes (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns, globs or regexes (default: none).")
	maxFileSize := flag.Int64("max-file-size", cfg.MaxFileSize, fmt.Sprintf("Skip files larger than this many bytes, 0 means unlimited (default: %d).", cfg.MaxFileSize))
	metadataMaxBytes := flag.Int64(
		"metadata-max-bytes",
		cfg.MetadataMaxBytes,
		fmt.Sprintf(
			"Maximum bytes the EXIF decoder may read per file (default: %d, 0 means unlimited).",
			cfg.MetadataMaxBytes,
		),
	)
	contentReadMode := flag.String("content-read-mode", cfg.ContentReadMode, "File read mode: auto, stream, or mmap (default: auto).")
	mmapMinSize := flag.Int64("mmap-min-size", cfg.MmapMinSize, fmt.Sprintf("Minimum file size in bytes for mmap reads in auto mode (default: %d).", cfg.MmapMinSize))
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum files opened per second, 0 means unlimited (default: 0).")
	skipCount := flag.Bool("skip-count", cfg.SkipCount, "Skip initial file counting to start scanning immediately")
	hashes := flag.String("hashes", "", "Comma-separated hash algorithms for exported photo records: md5, sha1, sha256, blake3, xxhash (default: none).")
	fuzzyHash := flag.Bool("fuzzy-hash", cfg.FuzzyHash, fmt.Sprintf("Add TLSH fuzzy hashes to exported photo records (default: %t).", cfg.FuzzyHash))
	output := flag.String("output", cfg.OutputFileName, "Write the report to this file (default: none).")
	format := flag.String("format", cfg.OutputFormat, fmt.Sprintf("Report file format: json or csv (default: %s).", cfg.OutputFormat))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, fmt.Sprintf("Describe the host in the report file (default: %t).", cfg.CollectSystemInfo))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	envFile := flag.String("env-file", "", "Path to a dotenv file with PICPICK_* settings (default: none).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: picpick).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include file paths in OTEL payloads (default: false).")
	traceFlight := flag.Bool("trace-flight", cfg.TraceFlight, fmt.Sprintf("Enable flight recorder tracing (default: %t).", cfg.TraceFlight))
	traceFlightFile := flag.String("trace-flight-file", cfg.TraceFlightFile, fmt.Sprintf("Flight recorder output file (default: %s).", cfg.TraceFlightFile))
	traceFlightMaxBytes := flag.Uint64("trace-flight-max-bytes", cfg.TraceFlightMaxBytes, "Max bytes for flight recorder buffer (default: 0 for runtime default).")
	traceFlightMinAge := flag.Duration("trace-flight-min-age", cfg.TraceFlightMinAge, "Minimum age of trace events to retain (default: 0).")
	stallTimeout := flag.Duration("stall-timeout", cfg.StallTimeout, "Dump diagnostics when no file finishes for this long, 0 disables (default: 0).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, fmt.Sprintf("Directory for stall diagnostics (default: %s).", cfg.DiagDir))
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("picpick version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if *envFile != "" {
		cfg.EnvFile = *envFile
	}
	if cfg.EnvFile != "" {
		if err := cfg.loadFromEnvFile(cfg.EnvFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.StartPaths = parseCommaSeparated(*startPath)
		case "threshold":
			cfg.ThresholdSeconds = *threshold
		case "rounding":
			cfg.Rounding = *rounding
		case "timezone":
			cfg.Timezone = *timezone
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "nice":
			cfg.NiceLevel = *nice
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "max-file-size":
			cfg.MaxFileSize = *maxFileSize
		case "metadata-max-bytes":
			cfg.MetadataMaxBytes = *metadataMaxBytes
		case "content-read-mode":
			cfg.ContentReadMode = *contentReadMode
		case "mmap-min-size":
			cfg.MmapMinSize = *mmapMinSize
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "skip-count":
			cfg.SkipCount = *skipCount
		case "hashes":
			cfg.HashAlgorithms = parseCommaSeparated(*hashes)
		case "fuzzy-hash":
			cfg.FuzzyHash = *fuzzyHash
		case "output":
			cfg.OutputFileName = *output
		case "format":
			cfg.OutputFormat = *format
		case "log-level":
			cfg.LogLevel = *logLevel
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		case "trace-flight":
			cfg.TraceFlight = *traceFlight
		case "trace-flight-file":
			cfg.TraceFlightFile = *traceFlightFile
		case "trace-flight-max-bytes":
			cfg.TraceFlightMaxBytes = *traceFlightMaxBytes
		case "trace-flight-min-age":
			cfg.TraceFlightMinAge = *traceFlightMinAge
		case "stall-timeout":
			cfg.StallTimeout = *stallTimeout
		case "diag-dir":
			cfg.DiagDir = *diagDir
		}
	})
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("picpick - group photos into bursts by capture time")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  picpick [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  picpick --path ~/Pictures/DCIM")
	fmt.Println("  picpick --path \"/mnt/card1,/mnt/card2\" --threshold 2")
	fmt.Println("  picpick --path . --output bursts.ndjson --hashes sha256")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	if _, ok := raw["concurrency_level"]; ok {
		cfg.ConcurrencySet = true
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	return nil
}

// loadFromEnvFile applies PICPICK_* keys from a dotenv file. Keys already
// present in the process environment win over the file.
func (cfg *Config) loadFromEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("could not read env file: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}
	if v, ok := lookup("PICPICK_PATH"); ok {
		cfg.StartPaths = parseCommaSeparated(v)
	}
	if v, ok := lookup("PICPICK_THRESHOLD_SECONDS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PICPICK_THRESHOLD_SECONDS: %w", err)
		}
		cfg.ThresholdSeconds = n
	}
	if v, ok := lookup("PICPICK_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("PICPICK_ROUNDING"); ok {
		cfg.Rounding = v
	}
	if v, ok := lookup("PICPICK_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	cfg.Rounding = strings.ToLower(strings.TrimSpace(cfg.Rounding))
	cfg.ContentReadMode = strings.ToLower(strings.TrimSpace(cfg.ContentReadMode))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.HashAlgorithms = normalizeAlgorithms(cfg.HashAlgorithms)
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.Rounding == "" {
		cfg.Rounding = "half-up"
	}
	if cfg.ContentReadMode == "" {
		cfg.ContentReadMode = "auto"
	}
	if cfg.TraceFlight && cfg.TraceFlightFile == "" {
		cfg.TraceFlightFile = "trace-flight.out"
	}
	if len(cfg.StartPaths) == 0 {
		cfg.StartPaths = []string{"."}
	}
}

func (cfg *Config) validate() error {
	if len(cfg.StartPaths) == 0 {
		return fmt.Errorf("at least one start path must be specified")
	}
	if cfg.ThresholdSeconds <= 0 {
		return fmt.Errorf("threshold must be a positive number of seconds")
	}
	if cfg.Rounding != "half-up" && cfg.Rounding != "half-even" {
		return fmt.Errorf("invalid rounding value: %s", cfg.Rounding)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	if cfg.OutputFormat != "json" && cfg.OutputFormat != "csv" {
		return fmt.Errorf("invalid output format: %s (json or csv)", cfg.OutputFormat)
	}
	if cfg.ContentReadMode != "stream" && cfg.ContentReadMode != "mmap" && cfg.ContentReadMode != "auto" {
		return fmt.Errorf("invalid content-read-mode value: %s", cfg.ContentReadMode)
	}
	for _, algo := range cfg.HashAlgorithms {
		if !containsString(supportedHashes, algo) {
			return fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("max-file-size must be zero or positive")
	}
	if cfg.MetadataMaxBytes < 0 {
		return fmt.Errorf("metadata-max-bytes must be zero or positive")
	}
	if cfg.MmapMinSize < 0 {
		return fmt.Errorf("mmap-min-size must be zero or positive")
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.TraceFlightMinAge < 0 {
		return fmt.Errorf("trace-flight-min-age must be zero or positive")
	}
	if cfg.StallTimeout < 0 {
		return fmt.Errorf("stall-timeout must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.NiceLevel != "high" && cfg.NiceLevel != "medium" && cfg.NiceLevel != "low" {
		return fmt.Errorf("invalid nice level: %s", cfg.NiceLevel)
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

var supportedHashes = []string{"md5", "sha1", "sha256", "blake3", "xxhash"}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	items := strings.Split(input, ",")
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

func normalizeAlgorithms(items []string) []string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		normalized = append(normalized, item)
	}
	return normalized
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
