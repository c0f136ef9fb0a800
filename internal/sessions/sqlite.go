package sessions

import (
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteQueries = queries{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			is_starred BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (session_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			message_data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, user_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, updated_at DESC)`,
	},

	convSelectID: `SELECT id FROM conversations WHERE session_id = ? AND user_id = ?`,
	convInsert: `INSERT INTO conversations (id, session_id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
	convTouch: `UPDATE conversations SET updated_at = ? WHERE session_id = ? AND user_id = ?`,
	convSelect: `SELECT id, session_id, title, user_id, is_archived, is_starred, created_at, updated_at
		FROM conversations WHERE session_id = ? AND user_id = ?`,
	convList: `SELECT id, session_id, title, user_id, is_archived, is_starred, created_at, updated_at
		FROM conversations WHERE user_id = ? AND is_archived = ?
		ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
	convDelete:    `DELETE FROM conversations WHERE session_id = ? AND user_id = ?`,
	convCountAll:  `SELECT COUNT(*) FROM conversations WHERE user_id = ?`,
	convDeleteAll: `DELETE FROM conversations WHERE user_id = ?`,
	convSetArchive: `UPDATE conversations SET is_archived = ?, updated_at = ?
		WHERE session_id = ? AND user_id = ?`,
	convSetStar: `UPDATE conversations SET is_starred = ?, updated_at = ?
		WHERE session_id = ? AND user_id = ?`,
	convSetTitle: `UPDATE conversations SET title = ?, updated_at = ?
		WHERE session_id = ? AND user_id = ?`,

	itemInsert: `INSERT INTO messages (id, session_id, user_id, message_data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
	itemDeleteAll: `DELETE FROM messages WHERE user_id = ?`,
	itemSelectAll: `SELECT message_data FROM messages
		WHERE session_id = ? AND user_id = ? ORDER BY seq ASC`,
	itemSelectTop: `SELECT message_data FROM messages
		WHERE session_id = ? AND user_id = ? ORDER BY seq DESC LIMIT ?`,
	itemCount: `SELECT COUNT(*) FROM messages WHERE session_id = ? AND user_id = ?`,
	itemPage: `SELECT id, session_id, user_id, message_data, created_at FROM messages
		WHERE session_id = ? AND user_id = ? ORDER BY seq DESC LIMIT ? OFFSET ?`,
	popSelect: `SELECT seq, message_data FROM messages
		WHERE session_id = ? AND user_id = ? ORDER BY seq DESC LIMIT 1`,
	popDelete:  `DELETE FROM messages WHERE seq = ?`,
	clearItems: `DELETE FROM messages WHERE session_id = ? AND user_id = ?`,
}

// NewSQLiteStore opens (or creates) a sqlite database at path and returns a
// Store backed by it.
func NewSQLiteStore(path string) (Store, error) {
	db, err := openPooledDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return newSQLStore(db, "sqlite", sqliteQueries, false)
}
