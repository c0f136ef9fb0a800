package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/pkg/models"
)

// NewInstrumentedStore wraps a store so every operation reports its latency
// and failure count under the given backend label. A nil metrics returns the
// store unwrapped.
func NewInstrumentedStore(store Store, metrics *observability.Metrics, backend string) Store {
	if metrics == nil {
		return store
	}
	return &instrumentedStore{store: store, metrics: metrics, backend: backend}
}

type instrumentedStore struct {
	store   Store
	metrics *observability.Metrics
	backend string
}

// observe records one completed operation. Lookups that miss are client
// errors, not degraded operations, so they are not counted as failures.
func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.StoreOpDuration.WithLabelValues(op, s.backend).
		Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrConversationNotFound) {
		s.metrics.StoreOpErrors.WithLabelValues(op, s.backend).Inc()
	}
}

func (s *instrumentedStore) OpenSession(ctx context.Context, sessionID, userID string) (Session, error) {
	start := time.Now()
	sess, err := s.store.OpenSession(ctx, sessionID, userID)
	s.observe("open_session", start, err)
	if err != nil {
		return nil, err
	}
	return &instrumentedSession{session: sess, store: s}, nil
}

func (s *instrumentedStore) ListConversations(ctx context.Context, userID string, opts ListOptions) ([]*models.Conversation, error) {
	start := time.Now()
	convs, err := s.store.ListConversations(ctx, userID, opts)
	s.observe("list_conversations", start, err)
	return convs, err
}

func (s *instrumentedStore) GetConversation(ctx context.Context, sessionID, userID string, limit, offset int) (*ConversationPage, error) {
	start := time.Now()
	page, err := s.store.GetConversation(ctx, sessionID, userID, limit, offset)
	s.observe("get_conversation", start, err)
	return page, err
}

func (s *instrumentedStore) DeleteConversation(ctx context.Context, sessionID, userID string) error {
	start := time.Now()
	err := s.store.DeleteConversation(ctx, sessionID, userID)
	s.observe("delete_conversation", start, err)
	return err
}

func (s *instrumentedStore) DeleteAllConversations(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	count, err := s.store.DeleteAllConversations(ctx, userID)
	s.observe("delete_all_conversations", start, err)
	return count, err
}

func (s *instrumentedStore) SetArchived(ctx context.Context, sessionID, userID string, archived bool) error {
	start := time.Now()
	err := s.store.SetArchived(ctx, sessionID, userID, archived)
	s.observe("set_archived", start, err)
	return err
}

func (s *instrumentedStore) SetStarred(ctx context.Context, sessionID, userID string, starred bool) error {
	start := time.Now()
	err := s.store.SetStarred(ctx, sessionID, userID, starred)
	s.observe("set_starred", start, err)
	return err
}

func (s *instrumentedStore) UpdateTitle(ctx context.Context, sessionID, userID, title string) error {
	start := time.Now()
	err := s.store.UpdateTitle(ctx, sessionID, userID, title)
	s.observe("update_title", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.store.Close()
}

type instrumentedSession struct {
	session Session
	store   *instrumentedStore
}

func (s *instrumentedSession) SessionID() string { return s.session.SessionID() }
func (s *instrumentedSession) UserID() string    { return s.session.UserID() }

func (s *instrumentedSession) GetItems(ctx context.Context, limit int) ([]models.TurnItem, error) {
	start := time.Now()
	items, err := s.session.GetItems(ctx, limit)
	s.store.observe("get_items", start, err)
	return items, err
}

func (s *instrumentedSession) AddItems(ctx context.Context, items []models.TurnItem) error {
	start := time.Now()
	err := s.session.AddItems(ctx, items)
	s.store.observe("add_items", start, err)
	return err
}

func (s *instrumentedSession) PopItem(ctx context.Context) (models.TurnItem, bool, error) {
	start := time.Now()
	item, ok, err := s.session.PopItem(ctx)
	s.store.observe("pop_item", start, err)
	return item, ok, err
}

func (s *instrumentedSession) ClearSession(ctx context.Context) error {
	start := time.Now()
	err := s.session.ClearSession(ctx)
	s.store.observe("clear_session", start, err)
	return err
}
