// Package mysql provides an scs session store which uses the sessions table of the mysql migrations.
package mysql

import (
	"database/sql"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
)

// NewSessionStore returns a session store which deletes expired sessions at the given interval.
// Call StopCleanup when the store is no longer used.
func NewSessionStore(db *sql.DB, cleanupInterval time.Duration) *mysqlstore.MySQLStore {
	return mysqlstore.NewWithCleanupInterval(db, cleanupInterval)
}
