package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/parley/pkg/models"
)

func openTestSession(t *testing.T, store Store, sessionID, userID string) Session {
	t.Helper()
	sess, err := store.OpenSession(context.Background(), sessionID, userID)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	return sess
}

func TestMemoryStore_LazySessionCreation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	openTestSession(t, store, "sess-1", "user-1")

	page, err := store.GetConversation(ctx, "sess-1", "user-1", 10, 0)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if page.Conversation.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", page.Conversation.Title, DefaultTitle)
	}
	if page.Conversation.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", page.Conversation.SessionID)
	}
}

func TestMemorySession_OrderPreserved(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	batch := []models.TurnItem{
		models.UserItem("first"),
		models.AssistantItem("second", nil),
		models.UserItem("third"),
	}
	if err := sess.AddItems(ctx, batch); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	items, err := sess.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if got := items[i].Content(); got != w {
			t.Errorf("items[%d].Content() = %q, want %q", i, got, w)
		}
	}
}

func TestMemorySession_LimitReturnsMostRecentChronologically(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		if err := sess.AddItems(ctx, []models.TurnItem{models.UserItem(content)}); err != nil {
			t.Fatalf("AddItems(%q): %v", content, err)
		}
	}

	items, err := sess.GetItems(ctx, 2)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Content() != "d" || items[1].Content() != "e" {
		t.Errorf("limited items = [%q, %q], want [d, e]", items[0].Content(), items[1].Content())
	}
}

func TestMemorySession_FiltersEmptyUserMessages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	before, err := store.GetConversation(ctx, "sess-1", "user-1", 10, 0)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	time.Sleep(time.Millisecond)

	batch := []models.TurnItem{
		models.UserItem(""),
		models.UserItem("   "),
	}
	if err := sess.AddItems(ctx, batch); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	items, err := sess.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0 after filtering", len(items))
	}

	// Even a fully filtered batch advances updated_at.
	after, err := store.GetConversation(ctx, "sess-1", "user-1", 10, 0)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !after.Conversation.UpdatedAt.After(before.Conversation.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v",
			before.Conversation.UpdatedAt, after.Conversation.UpdatedAt)
	}
}

func TestMemorySession_MixedBatchKeepsNonEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	batch := []models.TurnItem{
		models.UserItem(""),
		models.UserItem("kept"),
		models.AssistantItem("", nil),
	}
	if err := sess.AddItems(ctx, batch); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	items, err := sess.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	// Assistant items are never filtered, only user items with empty content.
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Content() != "kept" {
		t.Errorf("items[0].Content() = %q, want kept", items[0].Content())
	}
}

func TestMemorySession_PopItem(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	if _, ok, err := sess.PopItem(ctx); err != nil || ok {
		t.Fatalf("PopItem on empty = (%v, %v), want (false, nil)", ok, err)
	}

	if err := sess.AddItems(ctx, []models.TurnItem{
		models.UserItem("one"),
		models.UserItem("two"),
	}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	item, ok, err := sess.PopItem(ctx)
	if err != nil || !ok {
		t.Fatalf("PopItem = (%v, %v), want (true, nil)", ok, err)
	}
	if item.Content() != "two" {
		t.Errorf("popped Content() = %q, want two", item.Content())
	}

	items, _ := sess.GetItems(ctx, 0)
	if len(items) != 1 || items[0].Content() != "one" {
		t.Errorf("remaining items = %v, want single item one", len(items))
	}
}

func TestMemorySession_ClearSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	if err := sess.AddItems(ctx, []models.TurnItem{models.UserItem("hello")}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if err := sess.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	items, err := sess.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d after clear, want 0", len(items))
	}
}

func TestMemoryStore_GetConversationReversePagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := openTestSession(t, store, "sess-1", "user-1")

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		if err := sess.AddItems(ctx, []models.TurnItem{models.UserItem(content)}); err != nil {
			t.Fatalf("AddItems(%q): %v", content, err)
		}
	}

	tests := []struct {
		name     string
		limit    int
		offset   int
		want     []string
		hasMore  bool
		wantSize int
	}{
		{"first page", 2, 0, []string{"m4", "m5"}, true, 2},
		{"second page", 2, 2, []string{"m2", "m3"}, true, 2},
		{"last page", 2, 4, []string{"m1"}, false, 1},
		{"beyond end", 2, 6, nil, false, 0},
		{"all", 10, 0, []string{"m1", "m2", "m3", "m4", "m5"}, false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.GetConversation(ctx, "sess-1", "user-1", tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("GetConversation: %v", err)
			}
			if len(page.Messages) != tt.wantSize {
				t.Fatalf("len(Messages) = %d, want %d", len(page.Messages), tt.wantSize)
			}
			for i, w := range tt.want {
				if got := page.Messages[i].Item.Content(); got != w {
					t.Errorf("Messages[%d] = %q, want %q", i, got, w)
				}
			}
			if page.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.hasMore)
			}
			if page.TotalMessages != 5 {
				t.Errorf("TotalMessages = %d, want 5", page.TotalMessages)
			}
		})
	}
}

func TestMemoryStore_UserIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sessA := openTestSession(t, store, "shared-id", "user-a")
	openTestSession(t, store, "shared-id", "user-b")

	if err := sessA.AddItems(ctx, []models.TurnItem{models.UserItem("private")}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	pageB, err := store.GetConversation(ctx, "shared-id", "user-b", 10, 0)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(pageB.Messages) != 0 {
		t.Errorf("user-b sees %d messages from user-a, want 0", len(pageB.Messages))
	}

	if _, err := store.GetConversation(ctx, "shared-id", "user-c", 10, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("unknown user GetConversation = %v, want ErrConversationNotFound", err)
	}
}

func TestMemoryStore_ConversationManagement(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	openTestSession(t, store, "s1", "user-1")
	time.Sleep(time.Millisecond)
	openTestSession(t, store, "s2", "user-1")
	openTestSession(t, store, "s3", "user-2")

	convs, err := store.ListConversations(ctx, "user-1", ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("len(convs) = %d, want 2", len(convs))
	}
	if convs[0].SessionID != "s2" {
		t.Errorf("convs[0].SessionID = %q, want s2 (most recently updated first)", convs[0].SessionID)
	}

	if err := store.SetArchived(ctx, "s1", "user-1", true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}
	convs, _ = store.ListConversations(ctx, "user-1", ListOptions{Limit: 10})
	if len(convs) != 1 {
		t.Errorf("active convs after archive = %d, want 1", len(convs))
	}
	archived, _ := store.ListConversations(ctx, "user-1", ListOptions{IsArchived: true, Limit: 10})
	if len(archived) != 1 {
		t.Errorf("archived convs = %d, want 1", len(archived))
	}

	if err := store.SetStarred(ctx, "s2", "user-1", true); err != nil {
		t.Fatalf("SetStarred: %v", err)
	}
	if err := store.UpdateTitle(ctx, "s2", "user-1", "Trip planning"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	page, _ := store.GetConversation(ctx, "s2", "user-1", 10, 0)
	if !page.Conversation.IsStarred || page.Conversation.Title != "Trip planning" {
		t.Errorf("conversation = starred:%v title:%q, want starred with new title",
			page.Conversation.IsStarred, page.Conversation.Title)
	}

	if err := store.UpdateTitle(ctx, "missing", "user-1", "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("UpdateTitle on missing = %v, want ErrConversationNotFound", err)
	}

	if err := store.DeleteConversation(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if err := store.DeleteConversation(ctx, "s1", "user-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("second delete = %v, want ErrConversationNotFound", err)
	}

	n, err := store.DeleteAllConversations(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteAllConversations: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count = %d, want 1", n)
	}

	// user-2 is untouched.
	convs, _ = store.ListConversations(ctx, "user-2", ListOptions{Limit: 10})
	if len(convs) != 1 {
		t.Errorf("user-2 convs = %d, want 1", len(convs))
	}
}
