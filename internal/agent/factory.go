package agent

import (
	"fmt"
	"strings"
)

// Agent keys addressable by API requests.
const (
	KeyChatTitleRenamer = "chat_title_renamer"
	KeyHistoryTutor     = "history_tutor"
	KeyMathTutor        = "math_tutor"
	KeyTriageAgent      = "triage_agent"
)

// Factory builds fresh agent definitions by key. Every call returns a new
// clone so callers can attach request-scoped tools safely.
type Factory struct {
	registry *ToolRegistry
	defs     map[string]*Definition
}

// NewFactory creates the agent catalog backed by the given tool registry.
func NewFactory(registry *ToolRegistry) *Factory {
	f := &Factory{registry: registry, defs: map[string]*Definition{}}

	f.defs[KeyChatTitleRenamer] = &Definition{
		Key:          KeyChatTitleRenamer,
		Name:         "Chat title renamer",
		Instructions: "You are an expert at providing meaningful titles for the given chat",
		ModelKey:     "cheap_model",
		Settings:     ModelSettings{Temperature: 0.3, MaxTokens: 3000},
	}

	f.defs[KeyHistoryTutor] = &Definition{
		Key:                KeyHistoryTutor,
		Name:               "History Tutor",
		HandoffDescription: "Specialist agent for history questions",
		Instructions:       "You provide help with history problems. Explain your reasoning at each step and include examples",
		ModelKey:           "default",
		Tools:              f.pick("calculator", "get_current_time", "date_calculator", "date_difference"),
		Settings:           ModelSettings{Temperature: 0.3, MaxTokens: 3000},
	}

	f.defs[KeyMathTutor] = &Definition{
		Key:                KeyMathTutor,
		Name:               "Math Tutor",
		HandoffDescription: "Specialist agent for math questions",
		Instructions:       "You provide help with math problems. Explain your reasoning at each step and include examples",
		ModelKey:           "default",
		Tools:              f.pick("calculator", "unit_converter", "currency_converter"),
		Settings:           ModelSettings{Temperature: 0.3, MaxTokens: 3000},
	}

	f.defs[KeyTriageAgent] = &Definition{
		Key:  KeyTriageAgent,
		Name: "Triage Agent",
		Instructions: strings.TrimSpace(`
You are a helpful assistant.
READ ALL THE RULES FIRST AND FOLLOW THEM CAREFULLY.
RULES:
1. Use available tools when needed, and be informative and assist the user with the queries.
2. If you use tools, first tell the user you will be using a tool.
3. Then, use the tool.
4. After that, summarise the tool output and use it to answer the user's query.
`),
		ModelKey: "default",
		Tools: f.pick(
			"calculator", "get_weather", "get_latitude_and_longitude",
			"get_current_time", "date_calculator", "date_difference",
			"unit_converter", "currency_converter",
		),
		Settings: ModelSettings{
			Temperature:      0.8,
			TopP:             0.95,
			FrequencyPenalty: 0.1,
			PresencePenalty:  0.1,
			MaxTokens:        100 * 1024,
		},
	}

	return f
}

// Get returns a fresh definition for the given agent key.
func (f *Factory) Get(key string) (*Definition, error) {
	def, ok := f.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownAgent, key, strings.Join(f.Keys(), ", "))
	}
	return def.Clone(), nil
}

// Keys returns the addressable agent keys in a stable order.
func (f *Factory) Keys() []string {
	return []string{KeyChatTitleRenamer, KeyHistoryTutor, KeyMathTutor, KeyTriageAgent}
}

// Describe returns catalog entries for the discovery endpoint.
func (f *Factory) Describe() []AgentInfo {
	out := make([]AgentInfo, 0, len(f.defs))
	for _, key := range f.Keys() {
		def := f.defs[key]
		tools := make([]string, 0, len(def.Tools))
		for _, t := range def.Tools {
			tools = append(tools, t.Name())
		}
		out = append(out, AgentInfo{
			Key:                key,
			Name:               def.Name,
			HandoffDescription: def.HandoffDescription,
			ModelKey:           def.ModelKey,
			Tools:              tools,
		})
	}
	return out
}

// AgentInfo is one catalog entry.
type AgentInfo struct {
	Key                string   `json:"key"`
	Name               string   `json:"name"`
	HandoffDescription string   `json:"handoff_description,omitempty"`
	ModelKey           string   `json:"model_key"`
	Tools              []string `json:"tools"`
}

func (f *Factory) pick(names ...string) []Tool {
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := f.registry.Get(name); ok {
			out = append(out, t)
		}
	}
	return out
}
