// Package providers implements LLM provider adapters for the execution
// engine.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/pkg/models"
)

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIProvider streams chat completions from the OpenAI API (or any
// compatible endpoint via BaseURL).
type OpenAIProvider struct {
	client *openai.Client
	logger *observability.Logger
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig, logger *observability.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete opens a streaming chat completion and translates the response
// into engine chunks on the returned channel.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	oreq := buildRequest(req)

	var stream *openai.ChatCompletionStream
	err := withRetry(ctx, p.logger, func() error {
		var err error
		stream, err = p.client.CreateChatCompletionStream(ctx, oreq)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}

	out := make(chan *agent.CompletionChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		p.pump(ctx, stream, out)
	}()
	return out, nil
}

func (p *OpenAIProvider) pump(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- *agent.CompletionChunk) {
	// Tool calls arrive as argument fragments keyed by index; they are
	// assembled here and emitted whole once the stream ends.
	type pendingCall struct {
		id   string
		name string
		args string
	}
	var (
		calls []*pendingCall
		usage *models.UsageData
	)

	send := func(chunk *agent.CompletionChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			send(&agent.CompletionChunk{Type: agent.ChunkError, Err: err})
			return
		}

		if resp.Usage != nil {
			usage = &models.UsageData{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			if !send(&agent.CompletionChunk{Type: agent.ChunkTextDelta, Text: delta.Content}) {
				return
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			for len(calls) <= idx {
				calls = append(calls, &pendingCall{})
			}
			call := calls[idx]
			if tc.ID != "" {
				call.id = tc.ID
			}
			if tc.Function.Name != "" {
				call.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				call.args += tc.Function.Arguments
				if !send(&agent.CompletionChunk{
					Type:     agent.ChunkToolCallDelta,
					Text:     tc.Function.Arguments,
					ToolCall: &models.ToolCall{ID: call.id, Name: call.name},
				}) {
					return
				}
			}
		}
	}

	for _, call := range calls {
		if call.name == "" {
			continue
		}
		args := call.args
		if args == "" {
			args = "{}"
		}
		if !send(&agent.CompletionChunk{
			Type: agent.ChunkToolCall,
			ToolCall: &models.ToolCall{
				ID:    call.id,
				Name:  call.name,
				Input: json.RawMessage(args),
			},
		}) {
			return
		}
	}
	send(&agent.CompletionChunk{Type: agent.ChunkDone, Usage: usage})
}

func buildRequest(req *agent.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, m := range req.Messages {
		om := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Input),
				},
			})
		}
		messages = append(messages, om)
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		Tools:            tools,
		Temperature:      req.Settings.Temperature,
		TopP:             req.Settings.TopP,
		FrequencyPenalty: req.Settings.FrequencyPenalty,
		PresencePenalty:  req.Settings.PresencePenalty,
		MaxTokens:        req.Settings.MaxTokens,
		Stream:           true,
		StreamOptions:    &openai.StreamOptions{IncludeUsage: true},
	}
}
