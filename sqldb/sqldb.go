// Package sqldb implements the databases of package core on top of database/sql.
// MySQL and SQLite are supported.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/wansing/mvv/core"
)

//go:embed migrations
var embedMigrations embed.FS

// Migrate brings the database schema up to date. Driver is the name of the sql driver, "mysql" or "sqlite3".
func Migrate(ctx context.Context, db *sql.DB, driver string) error {

	var dialect database.Dialect
	switch driver {
	case "mysql":
		dialect = database.DialectMySQL
	case "sqlite3":
		dialect = database.DialectSQLite3
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	migrationFS, err := fs.Sub(embedMigrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("creating sub filesystem: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, migrationFS)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	if _, err = provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Sprintf("preparing %q: %v", query, err))
	}
	return stmt
}

// notFound translates sql.ErrNoRows into core.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// isDuplicate reports whether err is a unique or primary key violation.
func isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // ER_DUP_ENTRY
	}
	return false
}

// exists translates duplicate key errors into core.ErrExists.
func exists(err error, what string) error {
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w", what, core.ErrExists)
	}
	return err
}

// affected returns core.ErrNotFound if the statement has not affected any rows.
func affected(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
