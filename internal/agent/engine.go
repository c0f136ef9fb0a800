package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/pkg/models"
)

// DefaultMaxTurns bounds generation turns per run.
const DefaultMaxTurns = 5

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	// MaxTurns is the generation turn budget per run. Default: 5.
	MaxTurns int
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{MaxTurns: DefaultMaxTurns}
}

// Engine drives the agent execution loop: it alternates model generations
// and tool invocations until the model stops calling tools, the turn budget
// runs out, or a client tool suspends the run.
type Engine struct {
	resolver ModelResolver
	logger   *observability.Logger
	metrics  *observability.Metrics
	config   EngineConfig
}

// NewEngine creates an execution engine.
func NewEngine(resolver ModelResolver, logger *observability.Logger, metrics *observability.Metrics, cfg EngineConfig) *Engine {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &Engine{resolver: resolver, logger: logger, metrics: metrics, config: cfg}
}

// RunRequest describes one engine run.
type RunRequest struct {
	Definition *Definition

	// Session persists run items. May be nil for sessionless runs such as
	// title generation.
	Session sessions.Session

	// Message is the fresh-run user input. Ignored on continuation.
	Message string

	// ToolResults marks the run as a continuation after client tool
	// execution. The run is a continuation exactly when this is non-empty.
	ToolResults []models.ClientToolResult

	// MaxTurns overrides the engine turn budget when positive.
	MaxTurns int
}

// IsContinuation reports whether the request resumes a suspended run.
func (r *RunRequest) IsContinuation() bool { return len(r.ToolResults) > 0 }

// Run executes the loop, emitting events to sink in order. On a client tool
// invocation the pending sentinel is persisted and the run returns without a
// done event; a later continuation request picks the session back up.
func (e *Engine) Run(ctx context.Context, req *RunRequest, sink EventSink) error {
	def := req.Definition
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = e.config.MaxTurns
	}

	provider, model, err := e.resolver.Resolve(def.ModelKey)
	if err != nil {
		return err
	}

	sink(RawEvent{Kind: RawAgentUpdated, Agent: def.Name})

	var history []models.TurnItem
	if req.IsContinuation() {
		history, err = e.prepareContinuation(ctx, req)
		if err != nil {
			return err
		}
	} else {
		if strings.TrimSpace(req.Message) == "" {
			return ErrEmptyMessage
		}
		history = e.loadHistory(ctx, req.Session)
		userItem := models.UserItem(req.Message)
		history = append(history, userItem)
		e.persist(ctx, req.Session, userItem)
	}

	mode := "fresh"
	if req.IsContinuation() {
		mode = "continuation"
	}

	for turn := 1; turn <= maxTurns; turn++ {
		text, calls, err := e.generate(ctx, provider, model, def, history, sink)
		if err != nil {
			e.observeRun(def.Key, mode, "error", turn)
			return err
		}

		assistant := models.AssistantItem(text, calls)
		history = append(history, assistant)
		e.persist(ctx, req.Session, assistant)

		if text != "" {
			sink(RawEvent{Kind: RawRunItem, Item: RunItemMessageOutput, Content: text})
		}

		if len(calls) == 0 {
			sink(RawEvent{Kind: RawControl, Control: ControlDone})
			e.observeRun(def.Key, mode, "completed", turn)
			return nil
		}

		suspended := false
		for _, call := range calls {
			sink(RawEvent{
				Kind:      RawRunItem,
				Item:      RunItemToolCalled,
				ToolName:  call.Name,
				Arguments: parseArguments(call.Input),
				CallID:    call.ID,
			})

			output := e.invokeTool(ctx, def, call)
			sink(RawEvent{Kind: RawRunItem, Item: RunItemToolOutput, CallID: call.ID, Output: output})

			if def.StopsAt(call.Name) {
				pending := models.PendingToolItem(call.ID, output)
				history = append(history, pending)
				e.persist(ctx, req.Session, pending)
				e.emitSuspension(req, call, sink)
				suspended = true
				continue
			}

			result := models.ToolResultItem(call.ID, output)
			history = append(history, result)
			e.persist(ctx, req.Session, result)
		}

		if suspended {
			e.observeRun(def.Key, mode, "suspended", turn)
			return nil
		}
	}

	e.logger.Warn(ctx, "turn budget exhausted", "agent", def.Key, "max_turns", maxTurns)
	sink(RawEvent{Kind: RawControl, Control: ControlDone})
	e.observeRun(def.Key, mode, "budget_exhausted", maxTurns)
	return nil
}

// prepareContinuation rewrites the session history so every pending tool
// sentinel matched by a reported result carries the real output, then runs
// the clear-and-rewrite so ordering survives exactly.
func (e *Engine) prepareContinuation(ctx context.Context, req *RunRequest) ([]models.TurnItem, error) {
	if req.Session == nil {
		return nil, ErrSessionRequired
	}

	items, err := req.Session.GetItems(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read session for continuation: %w", err)
	}

	updated := make([]models.TurnItem, 0, len(items))
	for _, item := range items {
		if !item.IsPendingToolResult() {
			updated = append(updated, item)
			continue
		}
		for _, tr := range req.ToolResults {
			if item.ToolCallID() != tr.ToolCallID {
				continue
			}
			content := tr.Result
			if content == "" {
				content = fmt.Sprintf("Tool %s executed successfully", tr.ToolName)
			}
			updated = append(updated, item.WithContent(content))
			e.logger.Info(ctx, "replaced pending result", "tool", tr.ToolName, "call_id", tr.ToolCallID)
			break
		}
		// Pending items with no reported result are dropped so the model
		// never sees an unresolved sentinel.
	}

	if err := req.Session.ClearSession(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear session for continuation: %w", err)
	}
	if err := req.Session.AddItems(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to rewrite session for continuation: %w", err)
	}
	return updated, nil
}

// generate runs one model turn, streaming response fragments to the sink,
// and returns the accumulated text and tool calls.
func (e *Engine) generate(ctx context.Context, provider LLMProvider, model string, def *Definition, history []models.TurnItem, sink EventSink) (string, []models.ToolCall, error) {
	responseID := "resp_" + uuid.NewString()
	itemID := "msg_" + uuid.NewString()

	sink(RawEvent{
		Kind:       RawResponse,
		Response:   RespCreated,
		ResponseID: responseID,
		Model:      model,
		Status:     "in_progress",
	})

	creq := &CompletionRequest{
		Model:        model,
		Instructions: def.Instructions,
		Messages:     historyToMessages(history),
		Tools:        def.ToolSchemas(),
		Settings:     def.Settings,
	}

	start := time.Now()
	stream, err := provider.Complete(ctx, creq)
	if err != nil {
		return "", nil, fmt.Errorf("completion request failed: %w", err)
	}

	var (
		text   strings.Builder
		calls  []models.ToolCall
		usage  *models.UsageData
		opened bool
	)
	for chunk := range stream {
		switch chunk.Type {
		case ChunkTextDelta:
			if !opened {
				sink(RawEvent{
					Kind: RawResponse, Response: RespOutputItemAdded,
					ItemID: itemID, PartType: "message",
				})
				sink(RawEvent{
					Kind: RawResponse, Response: RespContentPartAdded,
					ItemID: itemID, PartType: "output_text",
				})
				opened = true
			}
			text.WriteString(chunk.Text)
			sink(RawEvent{Kind: RawResponse, Response: RespTextDelta, Delta: chunk.Text})
		case ChunkToolCallDelta:
			callItemID := itemID
			if chunk.ToolCall != nil && chunk.ToolCall.ID != "" {
				callItemID = chunk.ToolCall.ID
			}
			sink(RawEvent{
				Kind: RawResponse, Response: RespFunctionArgsDelta,
				Delta: chunk.Text, ItemID: callItemID,
			})
		case ChunkToolCall:
			if chunk.ToolCall != nil {
				calls = append(calls, *chunk.ToolCall)
			}
		case ChunkDone:
			usage = chunk.Usage
		case ChunkError:
			return "", nil, fmt.Errorf("completion stream failed: %w", chunk.Err)
		}
	}

	if opened {
		sink(RawEvent{
			Kind: RawResponse, Response: RespContentPartDone,
			ItemID: itemID, Content: text.String(),
		})
		sink(RawEvent{
			Kind: RawResponse, Response: RespOutputItemDone,
			ItemID: itemID, Status: "completed", Content: text.String(),
		})
	}
	sink(RawEvent{
		Kind: RawResponse, Response: RespCompleted,
		ResponseID: responseID, Model: model, Status: "completed", Usage: usage,
	})

	if e.metrics != nil {
		e.metrics.LLMRequestDuration.WithLabelValues(provider.Name(), model).
			Observe(time.Since(start).Seconds())
		if usage != nil {
			e.metrics.LLMTokensUsed.WithLabelValues(provider.Name(), model, "prompt").
				Add(float64(usage.InputTokens))
			e.metrics.LLMTokensUsed.WithLabelValues(provider.Name(), model, "completion").
				Add(float64(usage.OutputTokens))
		}
	}
	return text.String(), calls, nil
}

func (e *Engine) invokeTool(ctx context.Context, def *Definition, call models.ToolCall) string {
	tool, ok := def.ToolByName(call.Name)
	if !ok {
		e.logger.Warn(ctx, "model called unknown tool", "tool", call.Name)
		e.observeTool(call.Name, "missing")
		return fmt.Sprintf("Tool %s not found", call.Name)
	}

	var (
		output string
		err    error
	)
	if cbt, isBound := tool.(CallBoundTool); isBound {
		output, err = cbt.ExecuteCall(ctx, call.ID, call.Input)
	} else {
		output, err = tool.Execute(ctx, call.Input)
	}
	if err != nil {
		e.logger.Error(ctx, "tool execution failed", "tool", call.Name, "error", err)
		e.observeTool(call.Name, "error")
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	e.observeTool(call.Name, "ok")
	return output
}

func (e *Engine) emitSuspension(req *RunRequest, call models.ToolCall, sink EventSink) {
	sessionID := ""
	if req.Session != nil {
		sessionID = req.Session.SessionID()
	}
	params := parseArguments(call.Input)

	sink(RawEvent{Kind: RawControl, Control: ControlClientToolCall, ClientTool: &models.ClientToolExecutionData{
		ToolName:   call.Name,
		Parameters: params,
		ToolCallID: call.ID,
		SessionID:  sessionID,
		Message:    fmt.Sprintf("Client tool '%s' requires execution on the client side", call.Name),
	}})

	required := &models.ClientToolExecutionData{
		ToolName:   call.Name,
		Parameters: params,
		ToolCallID: call.ID,
		SessionID:  sessionID,
		Message:    fmt.Sprintf("Client must execute '%s' and provide the result to continue the conversation.", call.Name),
	}
	sink(RawEvent{Kind: RawControl, Control: ControlExecutionPaused, ClientTool: required})
	sink(RawEvent{Kind: RawControl, Control: ControlClientToolExecute, ClientTool: required})
}

// loadHistory reads the full session history. A read failure on a fresh run
// degrades to an empty history rather than failing the request.
func (e *Engine) loadHistory(ctx context.Context, sess sessions.Session) []models.TurnItem {
	if sess == nil {
		return nil
	}
	items, err := sess.GetItems(ctx, 0)
	if err != nil {
		e.logger.Warn(ctx, "failed to read session history, starting fresh", "error", err)
		return nil
	}
	return items
}

// persist appends one item, logging failures without aborting the run.
func (e *Engine) persist(ctx context.Context, sess sessions.Session, item models.TurnItem) {
	if sess == nil {
		return
	}
	if err := sess.AddItems(ctx, []models.TurnItem{item}); err != nil {
		e.logger.Warn(ctx, "failed to persist item", "error", err)
	}
}

func (e *Engine) observeRun(agentKey, mode, outcome string, turns int) {
	if e.metrics == nil {
		return
	}
	e.metrics.RunCounter.WithLabelValues(mode, outcome).Inc()
	e.metrics.RunTurns.WithLabelValues(agentKey).Observe(float64(turns))
}

func (e *Engine) observeTool(name, status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.ToolExecutionCounter.WithLabelValues(name, status).Inc()
}

func parseArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// historyToMessages converts stored turn items into provider messages.
// Items with no recognizable role are skipped.
func historyToMessages(history []models.TurnItem) []ChatMessage {
	out := make([]ChatMessage, 0, len(history))
	for _, item := range history {
		switch item.Role() {
		case models.RoleUser, models.RoleSystem:
			out = append(out, ChatMessage{Role: string(item.Role()), Content: item.Content()})
		case models.RoleAssistant:
			out = append(out, ChatMessage{
				Role:      string(models.RoleAssistant),
				Content:   item.Content(),
				ToolCalls: item.ToolCalls(),
			})
		case models.RoleTool:
			out = append(out, ChatMessage{
				Role:       string(models.RoleTool),
				Content:    item.Content(),
				ToolCallID: item.ToolCallID(),
			})
		}
	}
	return out
}
