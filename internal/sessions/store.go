// Package sessions provides durable, ordered storage of conversation turn
// items keyed by (session_id, user_id), plus conversation-level management
// operations (listing, deletion, archiving, titles).
package sessions

import (
	"context"
	"errors"

	"github.com/haasonsaas/parley/pkg/models"
)

// ErrConversationNotFound is returned when a conversation does not exist or
// belongs to another user.
var ErrConversationNotFound = errors.New("conversation not found or access denied")

// DefaultTitle is the title assigned to newly created conversations. The
// background title renamer only replaces titles still equal to a default.
const DefaultTitle = "New Chat"

// Session is an ordered, append-only log of turn items bound to one
// (session_id, user_id) pair.
//
// All operations advance the owning conversation's updated_at timestamp,
// including AddItems calls whose entire batch is filtered out.
type Session interface {
	// SessionID returns the bound session identifier.
	SessionID() string

	// UserID returns the bound owning user.
	UserID() string

	// GetItems returns the session history in chronological order. A
	// positive limit returns only the most recent limit items, still in
	// chronological order.
	GetItems(ctx context.Context, limit int) ([]models.TurnItem, error)

	// AddItems appends items as one batch. Empty user messages are filtered
	// out before writing; a fully filtered batch writes no rows but still
	// touches updated_at.
	AddItems(ctx context.Context, items []models.TurnItem) error

	// PopItem removes and returns the most recently added item. The second
	// return is false when the session is empty.
	PopItem(ctx context.Context) (models.TurnItem, bool, error)

	// ClearSession deletes every item for the session.
	ClearSession(ctx context.Context) error
}

// ListOptions controls conversation listing.
type ListOptions struct {
	IsArchived bool
	Limit      int
	Offset     int
}

// ConversationPage is one reverse-paginated page of a conversation: the most
// recent items, returned in chronological order.
type ConversationPage struct {
	Conversation  *models.Conversation
	Messages      []models.StoredItem
	TotalMessages int
	HasMore       bool
}

// Store provides access to sessions and conversation management. Sessions
// are created lazily: OpenSession creates the conversation row on first
// access for an unknown (session_id, user_id) pair.
type Store interface {
	OpenSession(ctx context.Context, sessionID, userID string) (Session, error)

	ListConversations(ctx context.Context, userID string, opts ListOptions) ([]*models.Conversation, error)
	GetConversation(ctx context.Context, sessionID, userID string, limit, offset int) (*ConversationPage, error)
	DeleteConversation(ctx context.Context, sessionID, userID string) error
	DeleteAllConversations(ctx context.Context, userID string) (int, error)
	SetArchived(ctx context.Context, sessionID, userID string, archived bool) error
	SetStarred(ctx context.Context, sessionID, userID string, starred bool) error
	UpdateTitle(ctx context.Context, sessionID, userID, title string) error

	Close() error
}

// FilterWritableItems drops empty user messages from a batch, preserving
// order. Shared by every backend so the write-time filtering rule cannot
// drift between them.
func FilterWritableItems(items []models.TurnItem) []models.TurnItem {
	filtered := make([]models.TurnItem, 0, len(items))
	for _, item := range items {
		if item.IsZero() || item.IsEmptyUserMessage() {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}
