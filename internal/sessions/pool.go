package sessions

import (
	"database/sql"
	"sync"

	"golang.org/x/sync/singleflight"
)

// dbPool shares *sql.DB handles across stores keyed by driver and DSN, so a
// server opening several stores against the same database reuses one
// connection pool.
var dbPool = struct {
	mu    sync.Mutex
	group singleflight.Group
	open  map[string]*sql.DB
}{
	open: map[string]*sql.DB{},
}

func openPooledDB(driver, dsn string) (*sql.DB, error) {
	key := driver + "\x00" + dsn

	dbPool.mu.Lock()
	if db, ok := dbPool.open[key]; ok {
		dbPool.mu.Unlock()
		return db, nil
	}
	dbPool.mu.Unlock()

	v, err, _ := dbPool.group.Do(key, func() (any, error) {
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, err
		}
		dbPool.mu.Lock()
		dbPool.open[key] = db
		dbPool.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// ClosePooledConnections closes every shared database handle. Called once at
// server shutdown; stores built on pooled handles report Close as a no-op.
func ClosePooledConnections() error {
	dbPool.mu.Lock()
	defer dbPool.mu.Unlock()

	var firstErr error
	for key, db := range dbPool.open {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(dbPool.open, key)
	}
	return firstErr
}
