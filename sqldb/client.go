package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wansing/mvv/core"
)

const clientColumns = "id, email, phone, first_name, last_name, birth_date, active, business"

func scanClient(row scanner) (*core.ClientInfo, error) {
	var c = &core.ClientInfo{}
	if err := row.Scan(&c.ID, &c.Email, &c.Phone, &c.FirstName, &c.LastName, &c.BirthDate, &c.Active, &c.BusinessUser); err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// escapeLike escapes the wildcards of a LIKE pattern. The escape character is '!', because backslash is treated differently by MySQL and SQLite.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

type ClientDB struct {
	*sql.DB
	get       *sql.Stmt
	insert    *sql.Stmt
	search    *sql.Stmt
	setActive *sql.Stmt
	update    *sql.Stmt
}

func NewClientDB(db *sql.DB) *ClientDB {
	var clientDB = &ClientDB{}
	clientDB.DB = db
	clientDB.get = mustPrepare(db, "SELECT "+clientColumns+" FROM client WHERE id = ? LIMIT 1")
	clientDB.insert = mustPrepare(db, "INSERT INTO client (email, phone, first_name, last_name, birth_date, active, business) VALUES (?, ?, ?, ?, ?, ?, ?)")
	// empty filter values match everything
	clientDB.search = mustPrepare(db, `SELECT `+clientColumns+` FROM client
		WHERE (? = '' OR email = ?)
		AND (? = '' OR phone = ?)
		AND (? = '' OR first_name LIKE ? ESCAPE '!' OR last_name LIKE ? ESCAPE '!')
		AND (? < 0 OR active = ?)
		ORDER BY last_name, first_name, id
		LIMIT ? OFFSET ?`)
	clientDB.setActive = mustPrepare(db, "UPDATE client SET active = ? WHERE id = ?")
	clientDB.update = mustPrepare(db, "UPDATE client SET email = ?, phone = ?, first_name = ?, last_name = ?, birth_date = ?, active = ?, business = ? WHERE id = ?")
	return clientDB
}

func (db *ClientDB) GetClient(ctx context.Context, id int64) (*core.ClientInfo, error) {
	return scanClient(db.get.QueryRowContext(ctx, id))
}

func (db *ClientDB) InsertClient(ctx context.Context, c *core.ClientInfo) error {
	result, err := db.insert.ExecContext(ctx, c.Email, c.Phone, c.FirstName, c.LastName, c.BirthDate, boolInt(c.Active), boolInt(c.BusinessUser))
	if err != nil {
		return err
	}
	c.ID, err = result.LastInsertId()
	return err
}

func (db *ClientDB) SearchClients(ctx context.Context, f core.ClientFilter) ([]*core.ClientInfo, error) {

	var active = -1
	if f.Active != nil {
		active = boolInt(*f.Active)
	}

	var namePattern = "%" + escapeLike(f.Name) + "%"

	rows, err := db.search.QueryContext(ctx,
		f.Email, f.Email,
		f.Phone, f.Phone,
		f.Name, namePattern, namePattern,
		active, active,
		f.Limit, f.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients = []*core.ClientInfo{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (db *ClientDB) SetClientActive(ctx context.Context, id int64, active bool) error {
	_, err := db.setActive.ExecContext(ctx, boolInt(active), id)
	return err
}

// UpdateClient overwrites all fields of the client.
func (db *ClientDB) UpdateClient(ctx context.Context, c *core.ClientInfo) error {
	_, err := db.update.ExecContext(ctx, c.Email, c.Phone, c.FirstName, c.LastName, c.BirthDate, boolInt(c.Active), boolInt(c.BusinessUser), c.ID)
	return err
}
