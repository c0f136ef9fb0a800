package agent

import (
	"errors"
	"testing"
)

func TestFactory_GetReturnsFreshClone(t *testing.T) {
	f := NewFactory(NewToolRegistry())

	a, err := f.Get(KeyTriageAgent)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a.StopAtTools = append(a.StopAtTools, "mobile_play_music")
	a.Tools = append(a.Tools, &fakeTool{name: "mobile_play_music"})

	b, err := f.Get(KeyTriageAgent)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(b.StopAtTools) != 0 {
		t.Errorf("request-scoped stop tools leaked into catalog: %v", b.StopAtTools)
	}
	if _, ok := b.ToolByName("mobile_play_music"); ok {
		t.Error("request-scoped tool leaked into catalog")
	}
}

func TestFactory_UnknownKey(t *testing.T) {
	f := NewFactory(NewToolRegistry())
	if _, err := f.Get("poet_agent"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("err = %v, want ErrUnknownAgent", err)
	}
}

func TestFactory_CatalogEntries(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(&fakeTool{name: "calculator", output: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f := NewFactory(registry)

	infos := f.Describe()
	if len(infos) != 4 {
		t.Fatalf("len(infos) = %d, want 4", len(infos))
	}
	byKey := map[string]AgentInfo{}
	for _, info := range infos {
		byKey[info.Key] = info
	}
	if byKey[KeyChatTitleRenamer].ModelKey != "cheap_model" {
		t.Errorf("title renamer model key = %q", byKey[KeyChatTitleRenamer].ModelKey)
	}
	if byKey[KeyMathTutor].HandoffDescription == "" {
		t.Error("math tutor missing handoff description")
	}
	found := false
	for _, name := range byKey[KeyMathTutor].Tools {
		if name == "calculator" {
			found = true
		}
	}
	if !found {
		t.Errorf("math tutor tools = %v, want calculator present", byKey[KeyMathTutor].Tools)
	}
}
