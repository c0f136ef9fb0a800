// Package models provides domain types for the Parley agent backend.
package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role indicates the author of a turn item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ItemStatus marks the execution state of a tool-result item.
type ItemStatus string

const (
	// StatusPending marks a tool result awaiting client-side execution.
	StatusPending ItemStatus = "PENDING_CLIENT_EXECUTION"

	// StatusFulfilled marks a tool result that has been filled in on resume.
	StatusFulfilled ItemStatus = "fulfilled"
)

// PendingMarker is the legacy sentinel embedded in a pending tool result's
// content. Older clients wrote it as free text inside the content field, so
// detection falls back to a substring match when the typed status is absent.
const PendingMarker = "PENDING_CLIENT_EXECUTION"

// TurnItem is one unit of conversation state: a user message, an assistant
// message, a tool invocation, or a tool result.
//
// The underlying JSON is stored and re-emitted verbatim so that fields this
// server does not understand survive a round trip through the session store.
// Only the markers needed by the execution engine are interpreted: the
// author role, the content text, the tool call id, and the pending status.
type TurnItem struct {
	raw json.RawMessage
}

// ParseTurnItem wraps raw JSON as a turn item. The input must be a JSON
// object; anything else is rejected so corrupted rows never re-enter the
// history.
func ParseTurnItem(raw []byte) (TurnItem, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return TurnItem{}, false
	}
	return TurnItem{raw: append(json.RawMessage(nil), trimmed...)}, true
}

// UserItem builds a user-authored turn item.
func UserItem(content string) TurnItem {
	return mustItem(map[string]any{"role": string(RoleUser), "content": content})
}

// AssistantItem builds an assistant message item, optionally carrying the
// tool calls the assistant requested in the same turn.
func AssistantItem(content string, calls []ToolCall) TurnItem {
	m := map[string]any{"role": string(RoleAssistant), "content": content}
	if len(calls) > 0 {
		m["tool_calls"] = calls
	}
	return mustItem(m)
}

// ToolResultItem builds a fulfilled tool-result item for the given call.
func ToolResultItem(callID, content string) TurnItem {
	return mustItem(map[string]any{
		"role":         string(RoleTool),
		"tool_call_id": callID,
		"content":      content,
	})
}

// PendingToolItem builds a tool-result item carrying the pending-execution
// sentinel for a client tool call. The content mirrors the sentinel payload
// for backward read-compatibility; the typed status field is authoritative.
func PendingToolItem(callID, content string) TurnItem {
	return mustItem(map[string]any{
		"role":         string(RoleTool),
		"tool_call_id": callID,
		"content":      content,
		"status":       string(StatusPending),
	})
}

func mustItem(m map[string]any) TurnItem {
	raw, err := json.Marshal(m)
	if err != nil {
		// Maps of strings never fail to marshal.
		panic(err)
	}
	return TurnItem{raw: raw}
}

// MarshalJSON emits the stored JSON verbatim.
func (t TurnItem) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// UnmarshalJSON stores the incoming JSON verbatim.
func (t *TurnItem) UnmarshalJSON(data []byte) error {
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the backing JSON.
func (t TurnItem) Raw() json.RawMessage { return t.raw }

// IsZero reports whether the item carries no data.
func (t TurnItem) IsZero() bool { return len(t.raw) == 0 }

func (t TurnItem) fields() map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t.raw, &m); err != nil {
		return nil
	}
	return m
}

func (t TurnItem) stringField(name string) string {
	m := t.fields()
	raw, ok := m[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Role returns the item's author role, or "" when absent or malformed.
func (t TurnItem) Role() Role { return Role(t.stringField("role")) }

// Content returns the item's text content. String content is returned as is;
// structured content parts are flattened to their concatenated text.
func (t TurnItem) Content() string {
	m := t.fields()
	raw, ok := m["content"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" || p.Type == "output_text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolCallID returns the call id this tool-result item answers.
func (t TurnItem) ToolCallID() string { return t.stringField("tool_call_id") }

// ToolCalls returns the tool calls carried by an assistant item.
func (t TurnItem) ToolCalls() []ToolCall {
	m := t.fields()
	raw, ok := m["tool_calls"]
	if !ok {
		return nil
	}
	var calls []ToolCall
	if err := json.Unmarshal(raw, &calls); err != nil {
		return nil
	}
	return calls
}

// IsEmptyUserMessage reports whether the item is a user message with empty
// or whitespace-only content. Such items are filtered at write time and
// never persisted.
func (t TurnItem) IsEmptyUserMessage() bool {
	if t.Role() != RoleUser {
		return false
	}
	return strings.TrimSpace(t.Content()) == ""
}

// IsPendingToolResult reports whether the item is a tool result still
// awaiting client-side execution. The typed status field is checked first;
// the legacy content marker keeps old rows readable.
func (t TurnItem) IsPendingToolResult() bool {
	if t.Role() != RoleTool {
		return false
	}
	if ItemStatus(t.stringField("status")) == StatusPending {
		return true
	}
	return strings.Contains(t.Content(), PendingMarker)
}

// WithContent returns a copy of the item whose content is replaced by the
// given text. All other fields pass through unchanged; a pending status is
// flipped to fulfilled since replacement only happens on resume.
func (t TurnItem) WithContent(content string) TurnItem {
	var m map[string]any
	if err := json.Unmarshal(t.raw, &m); err != nil {
		return ToolResultItem(t.ToolCallID(), content)
	}
	m["content"] = content
	if ItemStatus(t.stringField("status")) == StatusPending {
		m["status"] = string(StatusFulfilled)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return t
	}
	return TurnItem{raw: raw}
}
