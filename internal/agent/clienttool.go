package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/pkg/models"
)

// defaultParamsSchema is used when a client tool definition omits one.
const defaultParamsSchema = `{"type":"object","properties":{},"required":[]}`

// CallBoundTool is implemented by tools that need the provider-assigned call
// id at invocation time.
type CallBoundTool interface {
	Tool
	ExecuteCall(ctx context.Context, callID string, args json.RawMessage) (string, error)
}

// clientTool delegates execution to the client. Invoking it never runs
// anything server-side; it returns a structured pending payload that the
// engine persists until the client reports the real result.
type clientTool struct {
	name        string
	description string
	params      json.RawMessage
	schema      *jsonschema.Schema
	logger      *observability.Logger
}

// NewClientTool wraps a request-supplied client tool definition. The params
// schema is compiled up front so malformed definitions are rejected before
// the run starts.
func NewClientTool(def models.ClientToolDefinition, logger *observability.Logger) (Tool, error) {
	params := def.ParamsSchema
	if len(params) == 0 {
		params = json.RawMessage(defaultParamsSchema)
	}

	schema, err := jsonschema.CompileString(def.Name+".json", string(params))
	if err != nil {
		return nil, fmt.Errorf("invalid params schema for tool %q: %w", def.Name, err)
	}

	return &clientTool{
		name:        def.Name,
		description: def.Description,
		params:      params,
		schema:      schema,
		logger:      logger,
	}, nil
}

func (t *clientTool) Name() string                { return t.name }
func (t *clientTool) Description() string         { return t.description }
func (t *clientTool) Parameters() json.RawMessage { return t.params }

func (t *clientTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.ExecuteCall(ctx, "", args)
}

func (t *clientTool) ExecuteCall(ctx context.Context, callID string, args json.RawMessage) (string, error) {
	parameters := map[string]any{}
	if err := json.Unmarshal(args, &parameters); err != nil {
		parameters = map[string]any{}
	}

	if err := t.schema.Validate(parameters); err != nil {
		t.logger.Warn(ctx, "client tool arguments failed schema validation",
			"tool", t.name, "error", err)
	}

	t.logger.Info(ctx, "client tool invoked, deferring to client",
		"tool", t.name, "call_id", callID)

	payload, err := json.Marshal(map[string]any{
		"status":       string(models.StatusPending),
		"tool_name":    t.name,
		"tool_call_id": callID,
		"parameters":   parameters,
		"message":      fmt.Sprintf("Waiting for client execution of %s", t.name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode pending payload: %w", err)
	}
	return string(payload), nil
}

// BuildClientTools converts request-supplied definitions into tools and
// returns the names the run must stop at. Definitions with invalid schemas
// are skipped rather than failing the whole request.
func BuildClientTools(defs []models.ClientToolDefinition, logger *observability.Logger) ([]Tool, []string) {
	if len(defs) == 0 {
		return nil, nil
	}

	tools := make([]Tool, 0, len(defs))
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		tool, err := NewClientTool(def, logger)
		if err != nil {
			logger.Error(context.Background(), "failed to convert client tool",
				"tool", def.Name, "error", err)
			continue
		}
		tools = append(tools, tool)
		names = append(names, def.Name)
	}
	return tools, names
}
