package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/parley/pkg/models"
)

// queries holds the backend-specific SQL for one dialect. The store logic is
// shared; only placeholder syntax and DDL differ between postgres and sqlite.
type queries struct {
	schema []string

	convSelectID   string
	convInsert     string
	convTouch      string
	convSelect     string
	convList       string
	convDelete     string
	convCountAll   string
	convDeleteAll  string
	convSetArchive string
	convSetStar    string
	convSetTitle   string

	itemInsert    string
	itemDeleteAll string
	itemSelectAll string
	itemSelectTop string
	itemCount     string
	itemPage      string
	popSelect     string
	popDelete     string
	clearItems    string
}

// sqlStore implements Store over database/sql. Both the postgres and sqlite
// backends delegate to it with their own queries.
type sqlStore struct {
	db      *sql.DB
	backend string
	q       queries
	ownsDB  bool
}

func newSQLStore(db *sql.DB, backend string, q queries, ownsDB bool) (*sqlStore, error) {
	store := &sqlStore{db: db, backend: backend, q: q, ownsDB: ownsDB}
	for _, ddl := range q.schema {
		if _, err := db.Exec(ddl); err != nil {
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return store, nil
}

func (s *sqlStore) OpenSession(ctx context.Context, sessionID, userID string) (Session, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.q.convSelectID, sessionID, userID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		if _, err := s.db.ExecContext(ctx, s.q.convInsert,
			uuid.NewString(), sessionID, userID, DefaultTitle, now, now); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &sqlSession{store: s, sessionID: sessionID, userID: userID}, nil
}

func (s *sqlStore) ListConversations(ctx context.Context, userID string, opts ListOptions) ([]*models.Conversation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.q.convList, userID, opts.IsArchived, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.SessionID, &conv.Title, &conv.UserID,
			&conv.IsArchived, &conv.IsStarred, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (s *sqlStore) getConversation(ctx context.Context, sessionID, userID string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx, s.q.convSelect, sessionID, userID).Scan(
		&conv.ID, &conv.SessionID, &conv.Title, &conv.UserID,
		&conv.IsArchived, &conv.IsStarred, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

func (s *sqlStore) GetConversation(ctx context.Context, sessionID, userID string, limit, offset int) (*ConversationPage, error) {
	conv, err := s.getConversation(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.q.itemCount, sessionID, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.q.itemPage, sessionID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to page messages: %w", err)
	}
	defer rows.Close()

	var page []models.StoredItem
	for rows.Next() {
		var row models.StoredItem
		var data []byte
		if err := rows.Scan(&row.ID, &row.SessionID, &row.UserID, &data, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		item, ok := models.ParseTurnItem(data)
		if !ok {
			// Corrupted rows are skipped rather than failing the page.
			continue
		}
		row.Item = item
		page = append(page, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The page query fetches newest-first; present it chronologically.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	return &ConversationPage{
		Conversation:  conv,
		Messages:      page,
		TotalMessages: total,
		HasMore:       offset+limit < total,
	}, nil
}

func (s *sqlStore) DeleteConversation(ctx context.Context, sessionID, userID string) error {
	if _, err := s.getConversation(ctx, sessionID, userID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.q.clearItems, sessionID, userID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.q.convDelete, sessionID, userID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (s *sqlStore) DeleteAllConversations(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.q.convCountAll, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if _, err := s.db.ExecContext(ctx, s.q.itemDeleteAll, userID); err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.q.convDeleteAll, userID); err != nil {
		return 0, fmt.Errorf("failed to delete conversations: %w", err)
	}
	return count, nil
}

func (s *sqlStore) SetArchived(ctx context.Context, sessionID, userID string, archived bool) error {
	return s.updateConv(ctx, s.q.convSetArchive, archived, sessionID, userID)
}

func (s *sqlStore) SetStarred(ctx context.Context, sessionID, userID string, starred bool) error {
	return s.updateConv(ctx, s.q.convSetStar, starred, sessionID, userID)
}

func (s *sqlStore) UpdateTitle(ctx context.Context, sessionID, userID, title string) error {
	return s.updateConv(ctx, s.q.convSetTitle, title, sessionID, userID)
}

func (s *sqlStore) updateConv(ctx context.Context, query string, value any, sessionID, userID string) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (s *sqlStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// sqlSession implements Session over the shared sqlStore.
type sqlSession struct {
	store     *sqlStore
	sessionID string
	userID    string
}

func (s *sqlSession) SessionID() string { return s.sessionID }
func (s *sqlSession) UserID() string    { return s.userID }

func (s *sqlSession) GetItems(ctx context.Context, limit int) ([]models.TurnItem, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		// Fetch the most recent limit rows newest-first, then reverse so the
		// caller never sees reverse order.
		rows, err = s.store.db.QueryContext(ctx, s.store.q.itemSelectTop, s.sessionID, s.userID, limit)
	} else {
		rows, err = s.store.db.QueryContext(ctx, s.store.q.itemSelectAll, s.sessionID, s.userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	defer rows.Close()

	var items []models.TurnItem
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item, ok := models.ParseTurnItem(data)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

func (s *sqlSession) AddItems(ctx context.Context, items []models.TurnItem) error {
	filtered := FilterWritableItems(items)
	now := time.Now().UTC()

	// A fully filtered batch still advances updated_at.
	if len(filtered) == 0 {
		_, err := s.store.db.ExecContext(ctx, s.store.q.convTouch, now, s.sessionID, s.userID)
		if err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, item := range filtered {
		raw, err := item.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.store.q.itemInsert,
			uuid.NewString(), s.sessionID, s.userID, string(raw), time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.store.q.convTouch, now, s.sessionID, s.userID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return tx.Commit()
}

func (s *sqlSession) PopItem(ctx context.Context) (models.TurnItem, bool, error) {
	var (
		seq  int64
		data []byte
	)
	err := s.store.db.QueryRowContext(ctx, s.store.q.popSelect, s.sessionID, s.userID).Scan(&seq, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TurnItem{}, false, nil
	}
	if err != nil {
		return models.TurnItem{}, false, fmt.Errorf("failed to read last item: %w", err)
	}

	if _, err := s.store.db.ExecContext(ctx, s.store.q.popDelete, seq); err != nil {
		return models.TurnItem{}, false, fmt.Errorf("failed to delete last item: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx, s.store.q.convTouch, time.Now().UTC(), s.sessionID, s.userID); err != nil {
		return models.TurnItem{}, false, fmt.Errorf("failed to touch conversation: %w", err)
	}

	item, ok := models.ParseTurnItem(data)
	if !ok {
		return models.TurnItem{}, false, nil
	}
	return item, true, nil
}

func (s *sqlSession) ClearSession(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, s.store.q.clearItems, s.sessionID, s.userID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx, s.store.q.convTouch, time.Now().UTC(), s.sessionID, s.userID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}
