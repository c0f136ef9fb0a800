package models

import (
	"encoding/json"
	"time"
)

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Conversation is the durable record of one session: a titled, user-owned
// container for an ordered sequence of turn items.
type Conversation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Title      string    `json:"title"`
	UserID     string    `json:"user_id"`
	IsArchived bool      `json:"is_archived"`
	IsStarred  bool      `json:"is_starred"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StoredItem is a persisted turn item row together with its storage metadata.
type StoredItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Item      TurnItem  `json:"message_data"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents an authenticated user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientToolDefinition declares a tool the caller can execute on its side.
// It has no identity beyond the request it arrived in and is never persisted.
type ClientToolDefinition struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	ParamsSchema json.RawMessage `json:"params_schema,omitempty"`
}

// ClientToolResult carries the outcome of a client-side tool execution back
// into a suspended session.
type ClientToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}
