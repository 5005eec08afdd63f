package sqldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wansing/mvv/core"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

var root = &core.Viewer{Name: "root", Roles: core.AllRoles}

// openTestDB returns a migrated sqlite database in a temporary directory.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.sqlite3")+"?_foreign_keys=1&_busy_timeout=10000&_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, "sqlite3"))
	return db
}

func newTestCoreDB(t *testing.T) *core.CoreDB {
	t.Helper()
	var db = openTestDB(t)
	return &core.CoreDB{
		AccountDB: NewAccountDB(db),
		ClientDB:  NewClientDB(db),
		GroupDB:   NewGroupDB(db),
		UserDB:    NewUserDB(db),
	}
}
