package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresQueries = queries{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			is_starred BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (session_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			message_data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, user_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, updated_at DESC)`,
	},

	convSelectID: `SELECT id FROM conversations WHERE session_id = $1 AND user_id = $2`,
	convInsert: `INSERT INTO conversations (id, session_id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	convTouch: `UPDATE conversations SET updated_at = $1 WHERE session_id = $2 AND user_id = $3`,
	convSelect: `SELECT id, session_id, title, user_id, is_archived, is_starred, created_at, updated_at
		FROM conversations WHERE session_id = $1 AND user_id = $2`,
	convList: `SELECT id, session_id, title, user_id, is_archived, is_starred, created_at, updated_at
		FROM conversations WHERE user_id = $1 AND is_archived = $2
		ORDER BY updated_at DESC LIMIT $3 OFFSET $4`,
	convDelete:    `DELETE FROM conversations WHERE session_id = $1 AND user_id = $2`,
	convCountAll:  `SELECT COUNT(*) FROM conversations WHERE user_id = $1`,
	convDeleteAll: `DELETE FROM conversations WHERE user_id = $1`,
	convSetArchive: `UPDATE conversations SET is_archived = $1, updated_at = $2
		WHERE session_id = $3 AND user_id = $4`,
	convSetStar: `UPDATE conversations SET is_starred = $1, updated_at = $2
		WHERE session_id = $3 AND user_id = $4`,
	convSetTitle: `UPDATE conversations SET title = $1, updated_at = $2
		WHERE session_id = $3 AND user_id = $4`,

	itemInsert: `INSERT INTO messages (id, session_id, user_id, message_data, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
	itemDeleteAll: `DELETE FROM messages WHERE user_id = $1`,
	itemSelectAll: `SELECT message_data FROM messages
		WHERE session_id = $1 AND user_id = $2 ORDER BY seq ASC`,
	itemSelectTop: `SELECT message_data FROM messages
		WHERE session_id = $1 AND user_id = $2 ORDER BY seq DESC LIMIT $3`,
	itemCount: `SELECT COUNT(*) FROM messages WHERE session_id = $1 AND user_id = $2`,
	itemPage: `SELECT id, session_id, user_id, message_data, created_at FROM messages
		WHERE session_id = $1 AND user_id = $2 ORDER BY seq DESC LIMIT $3 OFFSET $4`,
	popSelect: `SELECT seq, message_data FROM messages
		WHERE session_id = $1 AND user_id = $2 ORDER BY seq DESC LIMIT 1`,
	popDelete:  `DELETE FROM messages WHERE seq = $1`,
	clearItems: `DELETE FROM messages WHERE session_id = $1 AND user_id = $2`,
}

// PostgresOptions configures the postgres-backed store.
type PostgresOptions struct {
	MaxConnections  int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// NewPostgresStore connects to postgres, ensures the schema, and returns a
// Store. The DSN uses lib/pq syntax.
func NewPostgresStore(dsn string, opts PostgresOptions) (Store, error) {
	db, err := openPooledDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxConnections > 0 {
		db.SetMaxOpenConns(opts.MaxConnections)
		db.SetMaxIdleConns(opts.MaxConnections / 2)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newSQLStore(db, "postgres", postgresQueries, false)
}

// NewPostgresStoreWithDB builds a Store over an existing connection, used by
// tests. The store does not close the connection.
func NewPostgresStoreWithDB(db *sql.DB) (Store, error) {
	return &sqlStore{db: db, backend: "postgres", q: postgresQueries}, nil
}
