package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/parley/pkg/models"
)

// MemoryStore provides an in-memory Store implementation for testing and
// local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[memKey]*models.Conversation
	items map[memKey][]models.StoredItem
}

type memKey struct {
	sessionID string
	userID    string
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: map[memKey]*models.Conversation{},
		items: map[memKey][]models.StoredItem{},
	}
}

func (m *MemoryStore) OpenSession(ctx context.Context, sessionID, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{sessionID, userID}
	if _, ok := m.convs[key]; !ok {
		now := time.Now().UTC()
		m.convs[key] = &models.Conversation{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			UserID:    userID,
			Title:     DefaultTitle,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return &memorySession{store: m, key: key}, nil
}

func (m *MemoryStore) ListConversations(ctx context.Context, userID string, opts ListOptions) ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Conversation
	for _, conv := range m.convs {
		if conv.UserID != userID || conv.IsArchived != opts.IsArchived {
			continue
		}
		clone := *conv
		out = append(out, &clone)
	}
	// Most recently updated first, matching the SQL backends.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetConversation(ctx context.Context, sessionID, userID string, limit, offset int) (*ConversationPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := memKey{sessionID, userID}
	conv, ok := m.convs[key]
	if !ok {
		return nil, ErrConversationNotFound
	}

	stored := m.items[key]
	total := len(stored)

	// Reverse pagination: take the last limit items, skipping offset from
	// the end, then return them chronologically.
	end := total - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if limit <= 0 || start < 0 {
		start = 0
	}
	page := make([]models.StoredItem, end-start)
	copy(page, stored[start:end])

	clone := *conv
	return &ConversationPage{
		Conversation:  &clone,
		Messages:      page,
		TotalMessages: total,
		HasMore:       offset+limit < total,
	}, nil
}

func (m *MemoryStore) DeleteConversation(ctx context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{sessionID, userID}
	if _, ok := m.convs[key]; !ok {
		return ErrConversationNotFound
	}
	delete(m.convs, key)
	delete(m.items, key)
	return nil
}

func (m *MemoryStore) DeleteAllConversations(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, conv := range m.convs {
		if conv.UserID != userID {
			continue
		}
		delete(m.convs, key)
		delete(m.items, key)
		count++
	}
	return count, nil
}

func (m *MemoryStore) SetArchived(ctx context.Context, sessionID, userID string, archived bool) error {
	return m.updateConv(sessionID, userID, func(c *models.Conversation) { c.IsArchived = archived })
}

func (m *MemoryStore) SetStarred(ctx context.Context, sessionID, userID string, starred bool) error {
	return m.updateConv(sessionID, userID, func(c *models.Conversation) { c.IsStarred = starred })
}

func (m *MemoryStore) UpdateTitle(ctx context.Context, sessionID, userID, title string) error {
	return m.updateConv(sessionID, userID, func(c *models.Conversation) { c.Title = title })
}

func (m *MemoryStore) updateConv(sessionID, userID string, fn func(*models.Conversation)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convs[memKey{sessionID, userID}]
	if !ok {
		return ErrConversationNotFound
	}
	fn(conv)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

type memorySession struct {
	store *MemoryStore
	key   memKey
}

func (s *memorySession) SessionID() string { return s.key.sessionID }
func (s *memorySession) UserID() string    { return s.key.userID }

func (s *memorySession) GetItems(ctx context.Context, limit int) ([]models.TurnItem, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	stored := s.store.items[s.key]
	start := 0
	if limit > 0 && len(stored) > limit {
		start = len(stored) - limit
	}
	out := make([]models.TurnItem, 0, len(stored)-start)
	for _, row := range stored[start:] {
		out = append(out, row.Item)
	}
	return out, nil
}

func (s *memorySession) AddItems(ctx context.Context, items []models.TurnItem) error {
	filtered := FilterWritableItems(items)

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	now := time.Now().UTC()
	if conv, ok := s.store.convs[s.key]; ok {
		conv.UpdatedAt = now
	}
	for _, item := range filtered {
		s.store.items[s.key] = append(s.store.items[s.key], models.StoredItem{
			ID:        uuid.NewString(),
			SessionID: s.key.sessionID,
			UserID:    s.key.userID,
			Item:      item,
			CreatedAt: now,
		})
	}
	return nil
}

func (s *memorySession) PopItem(ctx context.Context) (models.TurnItem, bool, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	stored := s.store.items[s.key]
	if len(stored) == 0 {
		return models.TurnItem{}, false, nil
	}
	last := stored[len(stored)-1]
	s.store.items[s.key] = stored[:len(stored)-1]
	if conv, ok := s.store.convs[s.key]; ok {
		conv.UpdatedAt = time.Now().UTC()
	}
	return last.Item, true, nil
}

func (s *memorySession) ClearSession(ctx context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	delete(s.store.items, s.key)
	if conv, ok := s.store.convs[s.key]; ok {
		conv.UpdatedAt = time.Now().UTC()
	}
	return nil
}
