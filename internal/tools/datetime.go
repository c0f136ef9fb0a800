package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
)

const dateLayout = "2006-01-02"

// CurrentTime reports the current time in a requested timezone.
type CurrentTime struct {
	logger *observability.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewCurrentTime creates the current-time tool.
func NewCurrentTime(logger *observability.Logger) *CurrentTime {
	return &CurrentTime{logger: logger, now: time.Now}
}

func (t *CurrentTime) Name() string { return "get_current_time" }

func (t *CurrentTime) Description() string {
	return "Get the current time in a specific timezone."
}

func (t *CurrentTime) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"timezone": {
				"type": "string",
				"description": "The timezone name (e.g., 'America/New_York', 'Europe/London', 'Asia/Tokyo')"
			}
		},
		"required": []
	}`)
}

func (t *CurrentTime) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Get current time in any timezone with formatted output",
	}
}

func (t *CurrentTime) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Timezone string `json:"timezone"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	t.logger.Info(ctx, "getting current time", "timezone", in.Timezone)

	loc, err := time.LoadLocation(in.Timezone)
	if err != nil {
		examples := "UTC, America/New_York, Europe/London, Asia/Tokyo, Australia/Sydney"
		return fmt.Sprintf("Unknown timezone: %s. Some valid timezones are: %s...", in.Timezone, examples), nil
	}
	now := t.now().In(loc)
	return fmt.Sprintf("Current time in %s: %s", in.Timezone, now.Format("2006-01-02 15:04:05 MST")), nil
}

// DateCalculator adds or subtracts days from a date.
type DateCalculator struct {
	logger *observability.Logger
}

// NewDateCalculator creates the date-calculator tool.
func NewDateCalculator(logger *observability.Logger) *DateCalculator {
	return &DateCalculator{logger: logger}
}

func (t *DateCalculator) Name() string { return "date_calculator" }

func (t *DateCalculator) Description() string {
	return "Add or subtract days from a date."
}

func (t *DateCalculator) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"date": {"type": "string", "description": "The starting date in YYYY-MM-DD format"},
			"operation": {"type": "string", "enum": ["add", "subtract"]},
			"days": {"type": "integer", "description": "Number of days to add or subtract"}
		},
		"required": ["date", "operation", "days"]
	}`)
}

func (t *DateCalculator) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Calculate dates by adding or subtracting days from a given date",
	}
}

func (t *DateCalculator) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Date      string `json:"date"`
		Operation string `json:"operation"`
		Days      int    `json:"days"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	t.logger.Info(ctx, "date calculation", "operation", in.Operation, "days", in.Days, "date", in.Date)

	start, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return "Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-12-29)", nil
	}

	var result time.Time
	switch strings.ToLower(in.Operation) {
	case "add":
		result = start.AddDate(0, 0, in.Days)
	case "subtract":
		result = start.AddDate(0, 0, -in.Days)
	default:
		return fmt.Sprintf("Invalid operation: %s. Use 'add' or 'subtract'", in.Operation), nil
	}
	return fmt.Sprintf("Result: %s (%s)", result.Format(dateLayout), result.Format("Monday, January 02, 2006")), nil
}

// DateDifference reports the number of days between two dates.
type DateDifference struct {
	logger *observability.Logger
}

// NewDateDifference creates the date-difference tool.
func NewDateDifference(logger *observability.Logger) *DateDifference {
	return &DateDifference{logger: logger}
}

func (t *DateDifference) Name() string { return "date_difference" }

func (t *DateDifference) Description() string {
	return "Calculate the difference between two dates."
}

func (t *DateDifference) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start_date": {"type": "string", "description": "The starting date in YYYY-MM-DD format"},
			"end_date": {"type": "string", "description": "The ending date in YYYY-MM-DD format"}
		},
		"required": ["start_date", "end_date"]
	}`)
}

func (t *DateDifference) Metadata() agent.ToolMetadata {
	return agent.ToolMetadata{
		Name:        t.Name(),
		Description: "Calculate the difference between two dates in days",
	}
}

func (t *DateDifference) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return "Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-12-29)", nil
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return "Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-12-29)", nil
	}

	days := int(end.Sub(start).Hours() / 24)
	switch {
	case days == 0:
		return "The dates are the same", nil
	case days > 0:
		return fmt.Sprintf("%d days between %s and %s", days, in.StartDate, in.EndDate), nil
	default:
		return fmt.Sprintf("%d days between %s and %s (dates reversed)", -days, in.EndDate, in.StartDate), nil
	}
}
