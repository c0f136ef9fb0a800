package agent

import (
	"context"
	"fmt"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/pkg/models"
)

// Normalizer translates engine events into the closed set of wire events.
// Events with no wire mapping are dropped; clients never see raw engine
// internals.
type Normalizer struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewNormalizer creates a normalizer with the given observability hooks.
func NewNormalizer(logger *observability.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{logger: logger, metrics: metrics}
}

// Normalize maps one engine event to its wire form. A nil return means the
// event is dropped from the stream.
func (n *Normalizer) Normalize(ctx context.Context, ev RawEvent) *models.WireEvent {
	out := normalize(ev)
	if out == nil {
		n.logger.Debug(ctx, "dropping unhandled engine event",
			"kind", string(ev.Kind), "item", string(ev.Item),
			"response", string(ev.Response), "control", string(ev.Control))
		return nil
	}
	if n.metrics != nil {
		n.metrics.WireEventCounter.WithLabelValues(string(out.Type)).Inc()
	}
	return out
}

func normalize(ev RawEvent) *models.WireEvent {
	switch ev.Kind {
	case RawAgentUpdated:
		return &models.WireEvent{
			Type: models.WireAgentUpdated,
			Data: models.AgentUpdatedData{AgentName: ev.Agent},
		}
	case RawRunItem:
		return normalizeRunItem(ev)
	case RawResponse:
		return normalizeResponse(ev)
	case RawControl:
		return normalizeControl(ev)
	}
	return nil
}

func normalizeRunItem(ev RawEvent) *models.WireEvent {
	switch ev.Item {
	case RunItemToolCalled:
		args := ev.Arguments
		if args == nil {
			args = map[string]any{}
		}
		return &models.WireEvent{
			Type:   models.WireToolCall,
			CallID: ev.CallID,
			Data: models.ToolCallData{
				ToolName:  ev.ToolName,
				Arguments: args,
				Message:   fmt.Sprintf("Calling %s", ev.ToolName),
			},
		}
	case RunItemToolOutput:
		return &models.WireEvent{
			Type: models.WireToolOutput,
			Data: models.ToolOutputData{CallID: ev.CallID, Output: ev.Output},
		}
	case RunItemMessageOutput:
		return &models.WireEvent{
			Type: models.WireMessageOutput,
			Data: models.MessageOutputData{Content: ev.Content},
		}
	case RunItemHandoffRequested:
		return noticeEvent(models.WireHandoffRequested, "Agent handoff requested", ev.ItemID)
	case RunItemReasoningCreated:
		return noticeEvent(models.WireReasoningCreated, "Reasoning step created", ev.ItemID)
	case RunItemMCPApprovalRequested:
		return noticeEvent(models.WireMCPApprovalRequested, "MCP approval requested", ev.ItemID)
	case RunItemMCPListTools:
		return noticeEvent(models.WireMCPListTools, "MCP tools listed", ev.ItemID)
	}
	return nil
}

func normalizeResponse(ev RawEvent) *models.WireEvent {
	switch ev.Response {
	case RespTextDelta:
		// text_delta carries the raw delta string, not an object.
		return &models.WireEvent{Type: models.WireTextDelta, Data: ev.Delta}
	case RespCreated:
		return &models.WireEvent{
			Type: models.WireResponseCreated,
			Data: models.ResponseCreatedData{
				ResponseID: ev.ResponseID,
				Model:      ev.Model,
				Status:     ev.Status,
			},
		}
	case RespOutputItemAdded:
		return &models.WireEvent{
			Type: models.WireOutputItemAdded,
			Data: models.OutputItemAddedData{
				ItemID:      ev.ItemID,
				ItemType:    ev.PartType,
				OutputIndex: ev.OutputIndex,
			},
		}
	case RespContentPartAdded:
		return &models.WireEvent{
			Type: models.WireContentPartAdded,
			Data: models.ContentPartAddedData{
				ItemID:       ev.ItemID,
				ContentIndex: ev.ContentIndex,
				PartType:     ev.PartType,
			},
		}
	case RespContentPartDone:
		return &models.WireEvent{
			Type: models.WireContentPartDone,
			Data: models.ContentPartDoneData{
				ItemID:       ev.ItemID,
				ContentIndex: ev.ContentIndex,
				Content:      ev.Content,
			},
		}
	case RespOutputItemDone:
		return &models.WireEvent{
			Type: models.WireOutputItemDone,
			Data: models.OutputItemDoneData{
				ItemID:  ev.ItemID,
				Status:  ev.Status,
				Content: ev.Content,
			},
		}
	case RespFunctionArgsDelta:
		return &models.WireEvent{
			Type: models.WireFunctionCallArgumentsDelta,
			Data: models.FunctionCallArgumentsDeltaData{
				Delta:       ev.Delta,
				ItemID:      ev.ItemID,
				OutputIndex: ev.OutputIndex,
			},
		}
	case RespCompleted:
		return &models.WireEvent{
			Type: models.WireResponseCompleted,
			Data: models.ResponseCompletedData{
				ResponseID: ev.ResponseID,
				Model:      ev.Model,
				Status:     ev.Status,
				Usage:      ev.Usage,
			},
		}
	}
	return nil
}

func normalizeControl(ev RawEvent) *models.WireEvent {
	switch ev.Control {
	case ControlClientToolCall:
		return &models.WireEvent{Type: models.WireClientToolCall, Data: ev.ClientTool}
	case ControlExecutionPaused:
		return &models.WireEvent{Type: models.WireExecutionPaused, Data: ev.ClientTool}
	case ControlClientToolExecute:
		return &models.WireEvent{Type: models.WireClientToolExecution, Data: ev.ClientTool}
	case ControlDone:
		// done carries a null payload as the stream terminator.
		return &models.WireEvent{Type: models.WireDone, Data: nil}
	}
	return nil
}

func noticeEvent(t models.WireEventType, message, itemID string) *models.WireEvent {
	if itemID == "" {
		itemID = "unknown"
	}
	return &models.WireEvent{
		Type: t,
		Data: models.ItemNoticeData{Message: message, ItemID: itemID},
	}
}
