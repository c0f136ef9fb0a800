package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
)

const (
	defaultGeocoderBaseURL = "https://nominatim.openstreetmap.org"
	defaultCurrencyBaseURL = "https://api.exchangerate-api.com"
)

// Weather reports the weather at a coordinate pair.
type Weather struct {
	logger *observability.Logger
}

// NewWeather creates the weather tool.
func NewWeather(logger *observability.Logger) *Weather {
	return &Weather{logger: logger}
}

func (t *Weather) Name() string { return "get_weather" }

func (t *Weather) Description() string {
	return "Get the weather for a given latitude and longitude."
}

func (t *Weather) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {"type": "number", "description": "The latitude of the city"},
			"long": {"type": "number", "description": "The longitude of the city"}
		},
		"required": ["lat", "long"]
	}`)
}

func (t *Weather) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Get current weather conditions for any location using latitude and longitude coordinates",
	}
}

func (t *Weather) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	t.logger.Info(ctx, "weather lookup", "lat", in.Lat, "long", in.Long)
	return fmt.Sprintf("The weather in %v %v is sunny", in.Lat, in.Long), nil
}

// Geocoder resolves a place name to coordinates using a Nominatim-style
// search endpoint.
type Geocoder struct {
	logger  *observability.Logger
	client  *http.Client
	baseURL string
}

// NewGeocoder creates the geocoder tool. A nil client uses a default with
// a 10 second timeout.
func NewGeocoder(logger *observability.Logger, client *http.Client) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{logger: logger, client: client, baseURL: defaultGeocoderBaseURL}
}

func (t *Geocoder) Name() string { return "get_latitude_and_longitude" }

func (t *Geocoder) Description() string {
	return "Get the latitude and longitude coordinates for a given place name."
}

func (t *Geocoder) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"place": {"type": "string", "description": "The name of the place or address to geocode"}
		},
		"required": ["place"]
	}`)
}

func (t *Geocoder) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Get latitude and longitude coordinates for any place name or address",
	}
}

func (t *Geocoder) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Place string `json:"place"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(in.Place) == "" {
		return "Could not find coordinates for: ", nil
	}
	t.logger.Info(ctx, "geocoding place", "place", in.Place)

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", t.baseURL, url.QueryEscape(in.Place))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "parley/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("Could not find coordinates for: %s", in.Place), nil
	}
	return fmt.Sprintf("Latitude: %v, Longitude: %v", results[0].Lat, results[0].Lon), nil
}

// CurrencyConverter converts an amount between currencies using live
// exchange rates.
type CurrencyConverter struct {
	logger  *observability.Logger
	client  *http.Client
	baseURL string
}

// NewCurrencyConverter creates the currency-converter tool. A nil client
// uses a default with a 10 second timeout.
func NewCurrencyConverter(logger *observability.Logger, client *http.Client) *CurrencyConverter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CurrencyConverter{logger: logger, client: client, baseURL: defaultCurrencyBaseURL}
}

func (t *CurrencyConverter) Name() string { return "currency_converter" }

func (t *CurrencyConverter) Description() string {
	return "Convert an amount between two currencies using current exchange rates."
}

func (t *CurrencyConverter) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"amount": {"type": "number", "description": "The amount of money to convert"},
			"from_currency": {"type": "string", "description": "The source currency code (e.g., 'USD')"},
			"to_currency": {"type": "string", "description": "The target currency code (e.g., 'EUR')"}
		},
		"required": ["amount", "from_currency", "to_currency"]
	}`)
}

func (t *CurrencyConverter) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Convert currency amounts using real-time exchange rates",
	}
}

func (t *CurrencyConverter) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Amount       float64 `json:"amount"`
		FromCurrency string  `json:"from_currency"`
		ToCurrency   string  `json:"to_currency"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	from := strings.ToUpper(strings.TrimSpace(in.FromCurrency))
	to := strings.ToUpper(strings.TrimSpace(in.ToCurrency))
	t.logger.Info(ctx, "currency conversion", "amount", in.Amount, "from", from, "to", to)

	endpoint := fmt.Sprintf("%s/v4/latest/%s", t.baseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building exchange rate request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange rate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error: Unable to fetch exchange rates (status %d)", resp.StatusCode), nil
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding exchange rate response: %w", err)
	}
	rate, ok := payload.Rates[to]
	if !ok {
		return fmt.Sprintf("Error: %s is not a supported currency", to), nil
	}
	converted := in.Amount * rate
	return fmt.Sprintf("%v %s = %.2f %s (Rate: 1 %s = %.4f %s)", in.Amount, from, converted, to, from, rate, to), nil
}
