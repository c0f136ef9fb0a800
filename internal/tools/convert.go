package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
)

type unitPair struct{ from, to string }

// conversionFactors covers length, weight, and volume. Temperature is
// handled separately since it is affine, not linear.
var conversionFactors = map[unitPair]float64{
	{"meters", "feet"}:                3.28084,
	{"feet", "meters"}:                0.3048,
	{"meters", "yards"}:               1.09361,
	{"yards", "meters"}:               0.9144,
	{"kilometers", "miles"}:           0.621371,
	{"miles", "kilometers"}:           1.60934,
	{"centimeters", "inches"}:         0.393701,
	{"inches", "centimeters"}:         2.54,
	{"kilograms", "pounds"}:           2.20462,
	{"pounds", "kilograms"}:           0.453592,
	{"grams", "ounces"}:               0.035274,
	{"ounces", "grams"}:               28.3495,
	{"tons", "pounds"}:                2000,
	{"pounds", "tons"}:                0.0005,
	{"liters", "gallons"}:             0.264172,
	{"gallons", "liters"}:             3.78541,
	{"milliliters", "fluid_ounces"}:   0.033814,
	{"fluid_ounces", "milliliters"}:   29.5735,
	{"cubic_meters", "cubic_feet"}:    35.3147,
	{"cubic_feet", "cubic_meters"}:    0.0283168,
}

// UnitConverter converts between units of length, weight, volume, and
// temperature.
type UnitConverter struct {
	logger *observability.Logger
}

// NewUnitConverter creates the unit-converter tool.
func NewUnitConverter(logger *observability.Logger) *UnitConverter {
	return &UnitConverter{logger: logger}
}

func (t *UnitConverter) Name() string { return "unit_converter" }

func (t *UnitConverter) Description() string {
	return "Convert between different units of measurement."
}

func (t *UnitConverter) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"value": {"type": "number", "description": "The numeric value to convert"},
			"from_unit": {"type": "string", "description": "The unit to convert from (e.g., 'meters', 'feet', 'kg', 'pounds', 'celsius', 'fahrenheit')"},
			"to_unit": {"type": "string", "description": "The unit to convert to"}
		},
		"required": ["value", "from_unit", "to_unit"]
	}`)
}

func (t *UnitConverter) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Convert between different units of measurement (length, weight, temperature, volume)",
	}
}

func (t *UnitConverter) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Value    float64 `json:"value"`
		FromUnit string  `json:"from_unit"`
		ToUnit   string  `json:"to_unit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	t.logger.Info(ctx, "unit conversion", "value", in.Value, "from", in.FromUnit, "to", in.ToUnit)

	from := normalizeUnit(in.FromUnit)
	to := normalizeUnit(in.ToUnit)

	result, ok := convert(in.Value, from, to)
	if !ok {
		return fmt.Sprintf("Conversion from %s to %s is not supported", in.FromUnit, in.ToUnit), nil
	}
	return fmt.Sprintf("%v %s = %.4f %s", in.Value, in.FromUnit, result, in.ToUnit), nil
}

func normalizeUnit(u string) string {
	return strings.ReplaceAll(strings.ToLower(u), " ", "_")
}

func convert(value float64, from, to string) (float64, bool) {
	if isTemperature(from) && isTemperature(to) {
		return convertTemperature(value, from, to), true
	}
	if from == to {
		return value, true
	}
	if factor, ok := conversionFactors[unitPair{from, to}]; ok {
		return value * factor, true
	}
	if factor, ok := conversionFactors[unitPair{to, from}]; ok {
		return value / factor, true
	}
	return 0, false
}

func isTemperature(u string) bool {
	return u == "celsius" || u == "fahrenheit" || u == "kelvin"
}

func convertTemperature(value float64, from, to string) float64 {
	// Convert to celsius first, then out.
	var c float64
	switch from {
	case "celsius":
		c = value
	case "fahrenheit":
		c = (value - 32) * 5 / 9
	case "kelvin":
		c = value - 273.15
	}
	switch to {
	case "fahrenheit":
		return c*9/5 + 32
	case "kelvin":
		return c + 273.15
	default:
		return c
	}
}
