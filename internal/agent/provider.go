package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/parley/pkg/models"
)

// ChunkType identifies one unit of a streamed completion.
type ChunkType string

const (
	// ChunkTextDelta carries an incremental piece of assistant text.
	ChunkTextDelta ChunkType = "text_delta"

	// ChunkToolCallDelta carries an incremental piece of tool call
	// arguments while the model is still emitting them.
	ChunkToolCallDelta ChunkType = "tool_call_delta"

	// ChunkToolCall carries one fully assembled tool call.
	ChunkToolCall ChunkType = "tool_call"

	// ChunkDone terminates the stream and carries usage totals.
	ChunkDone ChunkType = "done"

	// ChunkError terminates the stream with a provider failure.
	ChunkError ChunkType = "error"
)

// CompletionChunk is one streamed unit from an LLM provider.
type CompletionChunk struct {
	Type     ChunkType
	Text     string
	ToolCall *models.ToolCall
	Usage    *models.UsageData
	Err      error
}

// ChatMessage is one provider-facing conversation message.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []models.ToolCall
	ToolCallID string
}

// ToolSchema describes a callable tool to the provider.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ModelSettings tunes generation per agent definition.
type ModelSettings struct {
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	MaxTokens        int
}

// CompletionRequest is a single generation turn sent to a provider.
type CompletionRequest struct {
	Model        string
	Instructions string
	Messages     []ChatMessage
	Tools        []ToolSchema
	Settings     ModelSettings
}

// LLMProvider streams completions from one model vendor.
//
// Complete returns a channel of chunks; the provider closes it when the
// response finishes or fails. A failed stream ends with a ChunkError.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
}

// ModelResolver maps a logical model key (e.g. "default", "cheap_model") to
// a provider and concrete model name.
type ModelResolver interface {
	Resolve(modelKey string) (LLMProvider, string, error)
}
