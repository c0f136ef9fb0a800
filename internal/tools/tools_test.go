package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/parley/internal/observability"
)

func testLogger() *observability.Logger { return observability.NopLogger() }

func exec(t *testing.T, tool interface {
	Execute(context.Context, json.RawMessage) (string, error)
}, args string) string {
	t.Helper()
	out, err := tool.Execute(context.Background(), json.RawMessage(args))
	if err != nil {
		t.Fatalf("Execute(%s): %v", args, err)
	}
	return out
}

func TestCalculator_Evaluates(t *testing.T) {
	calc := NewCalculator(testLogger())
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 2", "4"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"2 ^ 10", "1024"},
		{"2 ^ 3 ^ 2", "512"},
		{"-5 + 3", "-2"},
		{"10 % 3", "1"},
		{"1.5 * 2", "3"},
	}
	for _, tt := range tests {
		got := exec(t, calc, `{"expression": "`+tt.expr+`"}`)
		if got != tt.want {
			t.Errorf("eval(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestCalculator_Errors(t *testing.T) {
	calc := NewCalculator(testLogger())
	tests := []struct {
		expr    string
		wantErr string
	}{
		{"1 / 0", "division by zero"},
		{"5 % 0", "division by zero"},
		{"(1 + 2", "missing closing parenthesis"},
		{"2 +", "unexpected end of expression"},
		{"2 + abc", "unexpected character"},
	}
	for _, tt := range tests {
		_, err := calc.Execute(context.Background(), json.RawMessage(`{"expression": "`+tt.expr+`"}`))
		if err == nil {
			t.Errorf("eval(%q): expected error", tt.expr)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("eval(%q) error = %q, want containing %q", tt.expr, err, tt.wantErr)
		}
	}
}

func TestCurrentTime_KnownTimezone(t *testing.T) {
	tool := NewCurrentTime(testLogger())
	tool.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	got := exec(t, tool, `{"timezone": "UTC"}`)
	want := "Current time in UTC: 2025-06-15 12:00:00 UTC"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCurrentTime_DefaultsToUTC(t *testing.T) {
	tool := NewCurrentTime(testLogger())
	tool.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	got := exec(t, tool, `{}`)
	if !strings.HasPrefix(got, "Current time in UTC:") {
		t.Errorf("got %q, want UTC default", got)
	}
}

func TestCurrentTime_UnknownTimezone(t *testing.T) {
	tool := NewCurrentTime(testLogger())
	got := exec(t, tool, `{"timezone": "Mars/Olympus"}`)
	if !strings.HasPrefix(got, "Unknown timezone: Mars/Olympus.") {
		t.Errorf("got %q", got)
	}
}

func TestDateCalculator(t *testing.T) {
	tool := NewDateCalculator(testLogger())
	tests := []struct {
		args string
		want string
	}{
		{`{"date": "2024-12-29", "operation": "add", "days": 3}`, "Result: 2025-01-01 (Wednesday, January 01, 2025)"},
		{`{"date": "2025-01-01", "operation": "subtract", "days": 1}`, "Result: 2024-12-31 (Tuesday, December 31, 2024)"},
		{`{"date": "not-a-date", "operation": "add", "days": 1}`, "Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-12-29)"},
		{`{"date": "2024-12-29", "operation": "multiply", "days": 2}`, "Invalid operation: multiply. Use 'add' or 'subtract'"},
	}
	for _, tt := range tests {
		got := exec(t, tool, tt.args)
		if got != tt.want {
			t.Errorf("args %s: got %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestDateDifference(t *testing.T) {
	tool := NewDateDifference(testLogger())
	tests := []struct {
		args string
		want string
	}{
		{`{"start_date": "2025-01-01", "end_date": "2025-01-11"}`, "10 days between 2025-01-01 and 2025-01-11"},
		{`{"start_date": "2025-01-11", "end_date": "2025-01-01"}`, "10 days between 2025-01-01 and 2025-01-11 (dates reversed)"},
		{`{"start_date": "2025-01-01", "end_date": "2025-01-01"}`, "The dates are the same"},
		{`{"start_date": "bogus", "end_date": "2025-01-01"}`, "Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-12-29)"},
	}
	for _, tt := range tests {
		got := exec(t, tool, tt.args)
		if got != tt.want {
			t.Errorf("args %s: got %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestUnitConverter(t *testing.T) {
	tool := NewUnitConverter(testLogger())
	tests := []struct {
		args string
		want string
	}{
		{`{"value": 100, "from_unit": "celsius", "to_unit": "fahrenheit"}`, "100 celsius = 212.0000 fahrenheit"},
		{`{"value": 32, "from_unit": "fahrenheit", "to_unit": "celsius"}`, "32 fahrenheit = 0.0000 celsius"},
		{`{"value": 1, "from_unit": "meters", "to_unit": "feet"}`, "1 meters = 3.2808 feet"},
		{`{"value": 3.28084, "from_unit": "feet", "to_unit": "meters"}`, "3.28084 feet = 1.0000 meters"},
		{`{"value": 10, "from_unit": "liters", "to_unit": "gallons"}`, "10 liters = 2.6417 gallons"},
		{`{"value": 5, "from_unit": "meters", "to_unit": "meters"}`, "5 meters = 5.0000 meters"},
		{`{"value": 5, "from_unit": "meters", "to_unit": "pounds"}`, "Conversion from meters to pounds is not supported"},
	}
	for _, tt := range tests {
		got := exec(t, tool, tt.args)
		if got != tt.want {
			t.Errorf("args %s: got %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestWeather(t *testing.T) {
	tool := NewWeather(testLogger())
	got := exec(t, tool, `{"lat": 48.8566, "long": 2.3522}`)
	want := "The weather in 48.8566 2.3522 is sunny"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGeocoder_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Paris, France" {
			t.Errorf("q = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "48.8566", "lon": "2.3522"}]`))
	}))
	defer srv.Close()

	tool := NewGeocoder(testLogger(), srv.Client())
	tool.baseURL = srv.URL

	got := exec(t, tool, `{"place": "Paris, France"}`)
	want := "Latitude: 48.8566, Longitude: 2.3522"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGeocoder_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tool := NewGeocoder(testLogger(), srv.Client())
	tool.baseURL = srv.URL

	got := exec(t, tool, `{"place": "Atlantis"}`)
	want := "Could not find coordinates for: Atlantis"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCurrencyConverter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/latest/USD" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rates": {"EUR": 0.85, "GBP": 0.73}}`))
	}))
	defer srv.Close()

	tool := NewCurrencyConverter(testLogger(), srv.Client())
	tool.baseURL = srv.URL

	got := exec(t, tool, `{"amount": 100, "from_currency": "usd", "to_currency": "eur"}`)
	want := "100 USD = 85.00 EUR (Rate: 1 USD = 0.8500 EUR)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = exec(t, tool, `{"amount": 100, "from_currency": "USD", "to_currency": "XYZ"}`)
	want = "Error: XYZ is not a supported currency"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewRegistry_RegistersBuiltins(t *testing.T) {
	r, err := NewRegistry(testLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, name := range []string{
		"calculator", "get_current_time", "date_calculator", "date_difference",
		"unit_converter", "get_weather", "get_latitude_and_longitude", "currency_converter",
	} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("builtin %q not registered", name)
		}
	}
}
