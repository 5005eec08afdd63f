// Package sqlite3 provides an scs session store which uses the sessions table of the sqlite3 migrations.
package sqlite3

import (
	"database/sql"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
)

// NewSessionStore returns a session store which deletes expired sessions at the given interval.
// Call StopCleanup when the store is no longer used.
func NewSessionStore(db *sql.DB, cleanupInterval time.Duration) *sqlite3store.SQLite3Store {
	return sqlite3store.NewWithCleanupInterval(db, cleanupInterval)
}
