package gateway

import (
	"net/http"

	"github.com/haasonsaas/parley/internal/agent"
)

// agentSummary is one entry of the agent discovery endpoint.
type agentSummary struct {
	Key                string   `json:"key"`
	Name               string   `json:"name"`
	DescriptionForUser string   `json:"description_for_user"`
	Tools              []string `json:"tools,omitempty"`
}

// userDescriptions holds the user-facing description per agent key. Only
// keys listed here are exposed by the discovery endpoint; the others are
// internal (title generation) or reached through handoffs.
var userDescriptions = map[string]string{
	agent.KeyTriageAgent: "I determine which specialist agent can best help with your question and coordinate responses across different areas of expertise.",
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var out []agentSummary
	for _, info := range s.factory.Describe() {
		desc, visible := userDescriptions[info.Key]
		if !visible {
			continue
		}
		out = append(out, agentSummary{
			Key:                info.Key,
			Name:               info.Name,
			DescriptionForUser: desc,
			Tools:              info.Tools,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.MetadataList())
}
