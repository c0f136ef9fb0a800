package agent

import "github.com/haasonsaas/parley/pkg/models"

// RawEventKind is the top-level discriminator for events the engine emits
// before normalization.
type RawEventKind string

const (
	// RawAgentUpdated announces which agent is handling the run.
	RawAgentUpdated RawEventKind = "agent_updated_stream_event"

	// RawRunItem marks a semantic step of the run: a tool invocation, a
	// tool output, a completed message, or an auxiliary item.
	RawRunItem RawEventKind = "run_item_stream_event"

	// RawResponse carries a low-level fragment of the model response
	// stream.
	RawResponse RawEventKind = "raw_response_event"

	// RawControl carries loop control signals synthesized by the engine.
	RawControl RawEventKind = "control_event"
)

// RunItemName names a semantic run step.
type RunItemName string

const (
	RunItemToolCalled           RunItemName = "tool_called"
	RunItemToolOutput           RunItemName = "tool_output"
	RunItemMessageOutput        RunItemName = "message_output_created"
	RunItemHandoffRequested     RunItemName = "handoff_requested"
	RunItemReasoningCreated     RunItemName = "reasoning_item_created"
	RunItemMCPApprovalRequested RunItemName = "mcp_approval_requested"
	RunItemMCPListTools         RunItemName = "mcp_list_tools"
)

// ResponseEventName names a model response stream fragment.
type ResponseEventName string

const (
	RespCreated           ResponseEventName = "response.created"
	RespOutputItemAdded   ResponseEventName = "response.output_item.added"
	RespContentPartAdded  ResponseEventName = "response.content_part.added"
	RespTextDelta         ResponseEventName = "response.output_text.delta"
	RespFunctionArgsDelta ResponseEventName = "response.function_call_arguments.delta"
	RespContentPartDone   ResponseEventName = "response.content_part.done"
	RespOutputItemDone    ResponseEventName = "response.output_item.done"
	RespCompleted         ResponseEventName = "response.completed"
)

// ControlName names an engine-synthesized control signal.
type ControlName string

const (
	ControlClientToolCall    ControlName = "client_tool_call"
	ControlExecutionPaused   ControlName = "execution_paused"
	ControlClientToolExecute ControlName = "client_tool_execution_required"
	ControlDone              ControlName = "done"
)

// RawEvent is one pre-normalization event. Kind selects which of the name
// fields is meaningful; payload fields are populated as each event type
// needs them.
type RawEvent struct {
	Kind RawEventKind

	// Agent name, for RawAgentUpdated.
	Agent string

	// Run item fields, for RawRunItem.
	Item      RunItemName
	ToolName  string
	Arguments map[string]any
	CallID    string
	Output    string
	Content   string
	ItemID    string

	// Response fragment fields, for RawResponse.
	Response     ResponseEventName
	ResponseID   string
	Model        string
	Status       string
	Delta        string
	OutputIndex  int
	ContentIndex int
	PartType     string
	Usage        *models.UsageData

	// Control fields, for RawControl.
	Control    ControlName
	ClientTool *models.ClientToolExecutionData
}

// EventSink receives engine events in emission order.
type EventSink func(RawEvent)
