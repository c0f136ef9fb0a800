package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	logger.Info(context.Background(), "configured provider", "key", "api_key=sk-abcdefghijklmnopqrstuvwx1234567890abcdef")

	out := buf.String()
	if strings.Contains(out, "sk-abcdefghijklmnop") {
		t.Errorf("API key leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker in output: %s", out)
	}
}

func TestLogger_ContextCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-7")
	ctx = context.WithValue(ctx, UserIDKey, "user-1")
	logger.Info(ctx, "handling request")

	out := buf.String()
	for _, want := range []string{"req-42", "sess-7", "user-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing context field %q: %s", want, out)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	logger.Debug(context.Background(), "debug message")
	logger.Info(context.Background(), "info message")
	if buf.Len() != 0 {
		t.Errorf("below-threshold messages were logged: %s", buf.String())
	}

	logger.Warn(context.Background(), "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message not logged at warn level")
	}
}

func TestNewMetrics_RegistersOnProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RunCounter.WithLabelValues("fresh", "completed").Inc()
	m.WireEventCounter.WithLabelValues("text_delta").Add(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["parley_agent_runs_total"] {
		t.Error("parley_agent_runs_total not registered")
	}
	if !names["parley_wire_events_total"] {
		t.Error("parley_wire_events_total not registered")
	}
}
