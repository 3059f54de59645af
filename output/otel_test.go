package output

import (
	"testing"

	"picpick/config"
	"picpick/report"

	otelLog "go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

func findAttr(kvs []otelLog.KeyValue, key string) (otelLog.Value, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return otelLog.Value{}, false
}

func TestResolveOtelEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "https://logs.example.test/v1/logs")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://fallback.example.test")

	cfg := &config.Config{OtelEndpoint: "  https://explicit.example.test  ", OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://explicit.example.test" {
		t.Fatalf("expected explicit endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://logs.example.test/v1/logs" {
		t.Fatalf("expected logs env endpoint, got %q", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	if got := resolveOtelEndpoint(cfg); got != "https://fallback.example.test" {
		t.Fatalf("expected fallback env endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: false}
	if got := resolveOtelEndpoint(cfg); got != "" {
		t.Fatalf("expected empty endpoint when env fallback disabled, got %q", got)
	}
}

func TestNewOtelLoggerDisabledWithoutEndpoint(t *testing.T) {
	o, err := newOtelLogger(&config.Config{})
	if err != nil || o != nil {
		t.Fatalf("expected no exporter, got %v %v", o, err)
	}
	if _, err := newOtelLogger(&config.Config{OtelEndpoint: "collector:4318"}); err == nil {
		t.Fatal("expected scheme error")
	}
	// Emit and Shutdown tolerate a nil exporter.
	o.Emit(RecordPhoto, PhotoRecord{})
	o.Shutdown()
}

func TestSanitizePayloadStripsPaths(t *testing.T) {
	photo := payloadToMap(PhotoRecord{Path: "/photos/a.jpg", Name: "a.jpg", Group: 1})
	sanitized := sanitizePayload(RecordPhoto, photo, otelPolicy{})
	if _, ok := sanitized["path"]; ok {
		t.Fatal("expected photo path to be stripped")
	}
	if sanitized["name"] != "a.jpg" {
		t.Fatalf("expected name to survive, got %v", sanitized["name"])
	}
	if _, ok := photo["path"]; !ok {
		t.Fatal("expected original payload to remain unchanged")
	}

	kept := sanitizePayload(RecordPhoto, photo, otelPolicy{includePaths: true})
	if kept["path"] != "/photos/a.jpg" {
		t.Fatalf("expected path with includePaths, got %v", kept["path"])
	}

	host := sanitizePayload(RecordHost, map[string]interface{}{"hostname": "box", "os": "linux"}, otelPolicy{})
	if _, ok := host["hostname"]; ok {
		t.Fatal("expected hostname to be stripped")
	}
	if host["os"] != "linux" {
		t.Fatalf("unexpected host payload: %v", host)
	}
}

func TestPhotoSemanticAttributes(t *testing.T) {
	data := payloadToMap(PhotoRecord{Path: "/photos/a.jpg", Name: "a.jpg", Group: 2, Position: 3})

	kvs := semanticAttributes(RecordPhoto, data, otelPolicy{})
	if _, ok := findAttr(kvs, string(semconv.FilePathKey)); ok {
		t.Fatal("expected no path attribute without includePaths")
	}
	if v, ok := findAttr(kvs, "picpick.photo.group"); !ok || v.AsInt64() != 2 {
		t.Fatalf("unexpected group attribute: %v", v)
	}

	kvs = semanticAttributes(RecordPhoto, data, otelPolicy{includePaths: true})
	if v, ok := findAttr(kvs, string(semconv.FileExtensionKey)); !ok || v.AsString() != "jpg" {
		t.Fatalf("unexpected extension attribute: %v", v)
	}
}

func TestSummarySemanticAttributes(t *testing.T) {
	avg := 3
	data := payloadToMap(SummaryRecord{GroupCount: 2, TotalEntries: 5, AverageGroupSize: &avg})
	kvs := semanticAttributes(RecordSummary, data, otelPolicy{})
	if v, ok := findAttr(kvs, "picpick.summary.average_group_size"); !ok || v.AsInt64() != 3 {
		t.Fatalf("unexpected average attribute: %v", v)
	}

	data = payloadToMap(SummaryRecord{})
	kvs = semanticAttributes(RecordSummary, data, otelPolicy{})
	if _, ok := findAttr(kvs, "picpick.summary.average_group_size"); ok {
		t.Fatal("expected no average attribute without groups")
	}

	group := payloadToMap(report.GroupSummary{Index: 1, Count: 4})
	kvs = semanticAttributes(RecordGroup, group, otelPolicy{})
	if v, ok := findAttr(kvs, "picpick.group.photo_count"); !ok || v.AsInt64() != 4 {
		t.Fatalf("unexpected photo count attribute: %v", v)
	}
}

func TestToLogValue(t *testing.T) {
	v := toLogValue(map[string]interface{}{"a": float64(2), "b": []interface{}{"x"}, "c": 1.5})
	if v.Kind() != otelLog.KindMap || len(v.AsMap()) != 3 {
		t.Fatalf("unexpected value: %v", v)
	}
	if toLogValue(nil).Kind() != otelLog.KindEmpty {
		t.Fatal("expected empty value for nil")
	}
	if toLogValue(float64(7)).Kind() != otelLog.KindInt64 {
		t.Fatal("expected whole floats to become ints")
	}
}
