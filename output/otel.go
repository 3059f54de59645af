package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"picpick/config"
	"picpick/logger"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths bool
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.OtelServiceName
	if serviceName == "" {
		serviceName = "picpick"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("picpick"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy:   otelPolicy{includePaths: cfg.OtelExportPaths},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Emit(recordType string, payload interface{}) {
	if o == nil || o.logger == nil {
		return
	}
	data := sanitizePayload(recordType, payloadToMap(payload), o.policy)

	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName("picpick.record")
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	if attrs := semanticAttributes(recordType, data, o.policy); len(attrs) > 0 {
		record.AddAttributes(attrs...)
	}
	if data != nil {
		record.SetBody(toLogValue(data))
	}

	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

// sanitizePayload returns a copy of data with file system locations removed
// unless the policy allows them. The input map is never modified.
func sanitizePayload(recordType string, data map[string]interface{}, policy otelPolicy) map[string]interface{} {
	if data == nil || policy.includePaths {
		return data
	}
	switch recordType {
	case RecordPhoto:
		sanitized := cloneMap(data)
		delete(sanitized, "path")
		return sanitized
	case RecordHost:
		sanitized := cloneMap(data)
		delete(sanitized, "hostname")
		return sanitized
	default:
		return data
	}
}

func cloneMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func payloadToMap(payload interface{}) map[string]interface{} {
	if v, ok := payload.(map[string]interface{}); ok {
		return v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	return decoded
}

func toLogValue(value interface{}) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		if v == float64(int64(v)) {
			return otelLog.Int64Value(int64(v))
		}
		return otelLog.Float64Value(v)
	case map[string]interface{}:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, item := range v {
			kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(item)})
		}
		return otelLog.MapValue(kvs...)
	case map[string]string:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, item := range v {
			kvs = append(kvs, otelLog.String(key, item))
		}
		return otelLog.MapValue(kvs...)
	case []interface{}:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.StringValue(fmt.Sprint(v))
	}
}

func semanticAttributes(recordType string, data map[string]interface{}, policy otelPolicy) []otelLog.KeyValue {
	if len(data) == 0 {
		return nil
	}
	switch recordType {
	case RecordPhoto:
		return photoSemanticAttributes(data, policy)
	case RecordGroup:
		var kvs []otelLog.KeyValue
		kvs = appendInt64Attr(kvs, "picpick.group.index", data, "index")
		kvs = appendInt64Attr(kvs, "picpick.group.photo_count", data, "photo_count")
		return kvs
	case RecordSummary:
		var kvs []otelLog.KeyValue
		kvs = appendInt64Attr(kvs, "picpick.summary.group_count", data, "group_count")
		kvs = appendInt64Attr(kvs, "picpick.summary.total_entries", data, "total_entries")
		kvs = appendInt64Attr(kvs, "picpick.summary.excluded_entries", data, "excluded_entries")
		kvs = appendInt64Attr(kvs, "picpick.summary.average_group_size", data, "average_group_size")
		return kvs
	case RecordMetrics:
		var kvs []otelLog.KeyValue
		kvs = appendStringAttr(kvs, "picpick.metrics.start_time", getStringField(data, "start_time"))
		kvs = appendStringAttr(kvs, "picpick.metrics.end_time", getStringField(data, "end_time"))
		kvs = appendInt64Attr(kvs, "picpick.metrics.total_files", data, "total_files")
		kvs = appendInt64Attr(kvs, "picpick.metrics.files_scanned", data, "files_scanned")
		kvs = appendInt64Attr(kvs, "picpick.metrics.files_with_metadata", data, "files_with_metadata")
		return kvs
	default:
		return nil
	}
}

func photoSemanticAttributes(data map[string]interface{}, policy otelPolicy) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue

	path := getStringField(data, "path")
	if policy.includePaths && path != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FilePathKey), path))
		kvs = append(kvs, otelLog.String(string(semconv.FileDirectoryKey), filepath.Dir(path)))
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			kvs = append(kvs, otelLog.String(string(semconv.FileExtensionKey), ext))
		}
	}
	kvs = appendStringAttr(kvs, string(semconv.FileNameKey), getStringField(data, "name"))
	kvs = appendStringAttr(kvs, "picpick.photo.mime_type", getStringField(data, "mime_type"))
	kvs = appendStringAttr(kvs, "picpick.photo.capture_time", getStringField(data, "capture_time"))
	kvs = appendInt64Attr(kvs, "picpick.photo.group", data, "group")
	kvs = appendInt64Attr(kvs, "picpick.photo.position", data, "position")
	return kvs
}

func getStringField(values map[string]interface{}, key string) string {
	value, ok := values[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprint(value)
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}

func appendInt64Attr(kvs []otelLog.KeyValue, key string, values map[string]interface{}, field string) []otelLog.KeyValue {
	switch v := values[field].(type) {
	case int:
		return append(kvs, otelLog.Int64(key, int64(v)))
	case int64:
		return append(kvs, otelLog.Int64(key, v))
	case float64:
		return append(kvs, otelLog.Int64(key, int64(v)))
	default:
		return kvs
	}
}
