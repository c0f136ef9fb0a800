// Package tools implements the built-in server-side tools available to
// agent definitions.
package tools

import (
	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
)

// NewRegistry builds a tool registry with every built-in tool registered.
func NewRegistry(logger *observability.Logger) (*agent.ToolRegistry, error) {
	r := agent.NewToolRegistry()
	builtins := []agent.Tool{
		NewCalculator(logger),
		NewCurrentTime(logger),
		NewDateCalculator(logger),
		NewDateDifference(logger),
		NewUnitConverter(logger),
		NewWeather(logger),
		NewGeocoder(logger, nil),
		NewCurrencyConverter(logger, nil),
	}
	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
