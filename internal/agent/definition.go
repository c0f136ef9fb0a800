package agent

import "encoding/json"

// Definition is an immutable description of one agent: its instructions,
// model binding, and the tools it may call. Runs operate on a clone so
// request-scoped client tools never leak between requests.
type Definition struct {
	Key                string
	Name               string
	Instructions       string
	HandoffDescription string
	ModelKey           string
	Tools              []Tool
	StopAtTools        []string
	Settings           ModelSettings
}

// Clone returns a copy with independent tool slices.
func (d *Definition) Clone() *Definition {
	c := *d
	c.Tools = append([]Tool(nil), d.Tools...)
	c.StopAtTools = append([]string(nil), d.StopAtTools...)
	return &c
}

// WithClientTools returns a clone extended with request-supplied client
// tools. The run stops after any of them is invoked.
func (d *Definition) WithClientTools(tools []Tool, stopNames []string) *Definition {
	c := d.Clone()
	c.Tools = append(c.Tools, tools...)
	c.StopAtTools = append(c.StopAtTools, stopNames...)
	return c
}

// ToolByName returns the named tool from the definition's tool set.
func (d *Definition) ToolByName(name string) (Tool, bool) {
	for _, t := range d.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// StopsAt reports whether invoking the named tool suspends the run.
func (d *Definition) StopsAt(name string) bool {
	for _, n := range d.StopAtTools {
		if n == name {
			return true
		}
	}
	return false
}

// ToolSchemas returns the provider-facing schema for every tool.
func (d *Definition) ToolSchemas() []ToolSchema {
	out := make([]ToolSchema, 0, len(d.Tools))
	for _, t := range d.Tools {
		params := t.Parameters()
		if len(params) == 0 {
			params = json.RawMessage(defaultParamsSchema)
		}
		out = append(out, ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	return out
}
