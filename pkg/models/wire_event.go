package models

// WireEventType identifies the kind of event emitted on the NDJSON stream.
// The set is closed: the normalizer only ever produces these values, and
// unrecognized engine events are dropped rather than surfaced.
type WireEventType string

const (
	WireAgentUpdated               WireEventType = "agent_updated"
	WireTextDelta                  WireEventType = "text_delta"
	WireToolCall                   WireEventType = "tool_call"
	WireToolOutput                 WireEventType = "tool_output"
	WireMessageOutput              WireEventType = "message_output"
	WireHandoffRequested           WireEventType = "handoff_requested"
	WireReasoningCreated           WireEventType = "reasoning_created"
	WireMCPApprovalRequested       WireEventType = "mcp_approval_requested"
	WireMCPListTools               WireEventType = "mcp_list_tools"
	WireResponseCreated            WireEventType = "response_created"
	WireOutputItemAdded            WireEventType = "output_item_added"
	WireContentPartAdded           WireEventType = "content_part_added"
	WireContentPartDone            WireEventType = "content_part_done"
	WireOutputItemDone             WireEventType = "output_item_done"
	WireFunctionCallArgumentsDelta WireEventType = "function_call_arguments_delta"
	WireResponseCompleted          WireEventType = "response_completed"
	WireClientToolCall             WireEventType = "client_tool_call"
	WireClientToolExecution        WireEventType = "client_tool_execution_required"
	WireExecutionPaused            WireEventType = "execution_paused"
	WireDone                       WireEventType = "done"
)

// WireEvent is the externally visible unit of the event stream: one line of
// the NDJSON response. Immutable once emitted; produced in emission order.
type WireEvent struct {
	Type WireEventType `json:"type"`

	// CallID accompanies tool_call events at the top level, mirroring the
	// payload shape streamed to existing clients.
	CallID string `json:"call_id,omitempty"`

	// Data is the type-specific payload. For text_delta it is the raw delta
	// string; for done it is null.
	Data any `json:"data"`
}

// AgentUpdatedData is the payload for agent_updated events.
type AgentUpdatedData struct {
	AgentName string `json:"agent_name"`
}

// ToolCallData is the payload for tool_call events.
type ToolCallData struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Message   string         `json:"message"`
}

// ToolOutputData is the payload for tool_output events.
type ToolOutputData struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// MessageOutputData is the payload for message_output events.
type MessageOutputData struct {
	Content string `json:"content"`
}

// ItemNoticeData is the payload for handoff_requested, reasoning_created,
// mcp_approval_requested, and mcp_list_tools events.
type ItemNoticeData struct {
	Message string `json:"message"`
	ItemID  string `json:"item_id"`
}

// ResponseCreatedData is the payload for response_created events.
type ResponseCreatedData struct {
	ResponseID string `json:"response_id"`
	Model      string `json:"model"`
	Status     string `json:"status"`
}

// OutputItemAddedData is the payload for output_item_added events.
type OutputItemAddedData struct {
	ItemID      string `json:"item_id"`
	ItemType    string `json:"item_type"`
	OutputIndex int    `json:"output_index"`
}

// ContentPartAddedData is the payload for content_part_added events.
type ContentPartAddedData struct {
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	PartType     string `json:"part_type"`
}

// ContentPartDoneData is the payload for content_part_done events.
type ContentPartDoneData struct {
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Content      string `json:"content"`
}

// OutputItemDoneData is the payload for output_item_done events.
type OutputItemDoneData struct {
	ItemID  string `json:"item_id"`
	Status  string `json:"status"`
	Content string `json:"content"`
}

// FunctionCallArgumentsDeltaData is the payload for
// function_call_arguments_delta events.
type FunctionCallArgumentsDeltaData struct {
	Delta       string `json:"delta"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
}

// UsageData reports token consumption for a completed response.
type UsageData struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ResponseCompletedData is the payload for response_completed events.
type ResponseCompletedData struct {
	ResponseID string     `json:"response_id"`
	Model      string     `json:"model"`
	Status     string     `json:"status"`
	Usage      *UsageData `json:"usage"`
}

// ClientToolExecutionData is the payload for client_tool_call and
// client_tool_execution_required events.
type ClientToolExecutionData struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	ToolCallID string         `json:"tool_call_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Message    string         `json:"message"`
}
