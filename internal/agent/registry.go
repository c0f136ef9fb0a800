package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Tool is a server-side tool an agent can invoke during a run.
type Tool interface {
	Name() string
	Description() string

	// Parameters returns the JSON schema for the tool's arguments.
	Parameters() json.RawMessage

	// Execute runs the tool. The returned string becomes the tool output
	// persisted to the session and shown to the model.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolMetadata carries human-readable tool information for discovery
// endpoints.
type ToolMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// MetadataProvider is implemented by tools that publish display metadata.
type MetadataProvider interface {
	Metadata() ToolMetadata
}

// ToolRegistry holds the server-side tools available to agent definitions.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]Tool{}}
}

// Register adds a tool, rejecting duplicate names.
func (r *ToolRegistry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the named tool.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MetadataList returns display metadata for every registered tool. Tools
// without a MetadataProvider fall back to name and description.
func (r *ToolRegistry) MetadataList() []ToolMetadata {
	tools := r.List()
	out := make([]ToolMetadata, 0, len(tools))
	for _, t := range tools {
		if mp, ok := t.(MetadataProvider); ok {
			md := mp.Metadata()
			if md.Name == "" {
				md.Name = t.Name()
			}
			out = append(out, md)
			continue
		}
		out = append(out, ToolMetadata{Name: t.Name(), Description: t.Description()})
	}
	return out
}
