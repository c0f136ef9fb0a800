package titles

import (
	"context"
	"testing"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/pkg/models"
)

type scriptedProvider struct {
	reply    string
	requests int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	p.requests++
	ch := make(chan *agent.CompletionChunk, 2)
	ch <- &agent.CompletionChunk{Type: agent.ChunkTextDelta, Text: p.reply}
	ch <- &agent.CompletionChunk{Type: agent.ChunkDone}
	close(ch)
	return ch, nil
}

type scriptedResolver struct {
	provider *scriptedProvider
}

func (r *scriptedResolver) Resolve(modelKey string) (agent.LLMProvider, string, error) {
	return r.provider, "test-model", nil
}

func newTestRenamer(t *testing.T, reply string) (*Renamer, sessions.Store, *scriptedProvider) {
	t.Helper()
	provider := &scriptedProvider{reply: reply}
	logger := observability.NopLogger()
	engine := agent.NewEngine(&scriptedResolver{provider: provider}, logger, nil, agent.DefaultEngineConfig())
	store := sessions.NewMemoryStore()
	return NewRenamer(engine, agent.NewFactory(agent.NewToolRegistry()), store, logger, 0), store, provider
}

func seedConversation(t *testing.T, store sessions.Store, sessionID string) {
	t.Helper()
	sess, err := store.OpenSession(context.Background(), sessionID, "user-1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	err = sess.AddItems(context.Background(), []models.TurnItem{
		models.UserItem("What is the capital of France?"),
		models.AssistantItem("The capital of France is Paris.", nil),
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
}

func title(t *testing.T, store sessions.Store, sessionID string) string {
	t.Helper()
	page, err := store.GetConversation(context.Background(), sessionID, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	return page.Conversation.Title
}

func TestGenerateAndUpdate_SetsTitle(t *testing.T) {
	renamer, store, provider := newTestRenamer(t, "French Capital Question")
	seedConversation(t, store, "sess-1")

	if err := renamer.GenerateAndUpdate(context.Background(), "sess-1", "user-1"); err != nil {
		t.Fatalf("GenerateAndUpdate: %v", err)
	}
	if got := title(t, store, "sess-1"); got != "French Capital Question" {
		t.Errorf("title = %q", got)
	}
	if provider.requests != 1 {
		t.Errorf("requests = %d, want 1", provider.requests)
	}
}

func TestGenerateAndUpdate_StripsQuotes(t *testing.T) {
	renamer, store, _ := newTestRenamer(t, `"Geography Quiz"`)
	seedConversation(t, store, "sess-1")

	if err := renamer.GenerateAndUpdate(context.Background(), "sess-1", "user-1"); err != nil {
		t.Fatalf("GenerateAndUpdate: %v", err)
	}
	if got := title(t, store, "sess-1"); got != "Geography Quiz" {
		t.Errorf("title = %q", got)
	}
}

func TestGenerateAndUpdate_SkipsCustomTitle(t *testing.T) {
	renamer, store, provider := newTestRenamer(t, "Should Not Appear")
	seedConversation(t, store, "sess-1")
	if err := store.UpdateTitle(context.Background(), "sess-1", "user-1", "My Notes"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}

	if err := renamer.GenerateAndUpdate(context.Background(), "sess-1", "user-1"); err != nil {
		t.Fatalf("GenerateAndUpdate: %v", err)
	}
	if got := title(t, store, "sess-1"); got != "My Notes" {
		t.Errorf("title = %q, custom title was overwritten", got)
	}
	if provider.requests != 0 {
		t.Errorf("requests = %d, want 0", provider.requests)
	}
}

func TestGenerateAndUpdate_SkipsEmptyConversation(t *testing.T) {
	renamer, store, provider := newTestRenamer(t, "Anything")
	if _, err := store.OpenSession(context.Background(), "sess-empty", "user-1"); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	if err := renamer.GenerateAndUpdate(context.Background(), "sess-empty", "user-1"); err != nil {
		t.Fatalf("GenerateAndUpdate: %v", err)
	}
	if got := title(t, store, "sess-empty"); got != sessions.DefaultTitle {
		t.Errorf("title = %q", got)
	}
	if provider.requests != 0 {
		t.Errorf("requests = %d, want 0", provider.requests)
	}
}

func TestCleanTitle(t *testing.T) {
	long := "This Generated Title Is Definitely Much Too Long To Keep"
	tests := []struct {
		in   string
		want string
	}{
		{`"Quoted Title"`, "Quoted Title"},
		{"'Single Quoted'", "Single Quoted"},
		{"  Padded Title  ", "Padded Title"},
		{long, long[:47] + "..."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
