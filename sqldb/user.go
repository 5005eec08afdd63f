package sqldb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/wansing/mvv/core"
	"golang.org/x/crypto/bcrypt"
)

var bcryptCost = bcrypt.DefaultCost

var compareHash = bcrypt.CompareHashAndPassword

// dummyHash is compared against if there is no stored hash, so failed logins take the same time.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("dummy"), bcryptCost)
	return hash
})

func clean(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	return name
}

type user struct {
	id       int64
	name     string
	email    string
	clientID int64
	hash     string // bcrypt, empty if no password has been set
	roles    core.Role
}

func (u *user) ID() int64 {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

func (u *user) Email() string {
	return u.email
}

func (u *user) ClientID() int64 {
	return u.clientID
}

func (u *user) Roles() core.Role {
	return u.roles
}

// SessionHash is derived from the password hash, so changing the password invalidates all sessions.
func (u *user) SessionHash() []byte {
	var sum = sha256.Sum256([]byte(u.hash))
	return sum[:]
}

func (u *user) checkPassword(password string) error {
	if u.hash == "" || password == "" {
		compareHash(dummyHash(), []byte(password))
		return core.ErrAuth
	}
	if err := compareHash([]byte(u.hash), []byte(password)); err != nil {
		return core.ErrAuth
	}
	return nil
}

const userColumns = "id, name, email, client_id, password, roles"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user, error) {
	var u = &user{}
	var clientID sql.NullInt64
	if err := row.Scan(&u.id, &u.name, &u.email, &clientID, &u.hash, &u.roles); err != nil {
		return nil, notFound(err)
	}
	u.clientID = clientID.Int64
	return u, nil
}

type UserDB struct {
	*sql.DB
	delete       *sql.Stmt
	deleteMember *sql.Stmt
	getAll       *sql.Stmt
	get          *sql.Stmt
	getByEmail   *sql.Stmt
	getByName    *sql.Stmt
	insert       *sql.Stmt
	setPassword  *sql.Stmt
	setRoles     *sql.Stmt
}

func NewUserDB(db *sql.DB) *UserDB {
	var userDB = &UserDB{}
	userDB.DB = db
	userDB.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	userDB.deleteMember = mustPrepare(db, "DELETE FROM grp_member WHERE usr_id = ?")
	userDB.get = mustPrepare(db, "SELECT "+userColumns+" FROM usr WHERE id = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT "+userColumns+" FROM usr ORDER BY name LIMIT ? OFFSET ?")
	userDB.getByEmail = mustPrepare(db, "SELECT "+userColumns+" FROM usr WHERE email = ? AND email != '' ORDER BY id LIMIT 1")
	userDB.getByName = mustPrepare(db, "SELECT "+userColumns+" FROM usr WHERE name = ? LIMIT 1")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (name, email, client_id) VALUES (?, ?, ?)") // empty password field is safe because no bcrypt hash equals it
	userDB.setPassword = mustPrepare(db, "UPDATE usr SET password = ? WHERE id = ?")
	userDB.setRoles = mustPrepare(db, "UPDATE usr SET roles = ? WHERE id = ?")
	return userDB
}

func (db *UserDB) ChangePassword(ctx context.Context, u core.DBUser, old, new string) error {
	// read the current hash, u might be outdated
	current, err := scanUser(db.get.QueryRowContext(ctx, u.ID()))
	if err != nil {
		return err
	}
	if err := current.checkPassword(old); err != nil {
		return err
	}
	return db.SetPassword(ctx, u, new)
}

func (db *UserDB) DeleteUser(ctx context.Context, u core.DBUser) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, db.deleteMember).ExecContext(ctx, u.ID()); err != nil {
		return err
	}
	if err := affected(tx.StmtContext(ctx, db.delete).ExecContext(ctx, u.ID())); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *UserDB) GetUser(ctx context.Context, id int64) (core.DBUser, error) {
	u, err := scanUser(db.get.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err // return untyped nil, not (*user)(nil)
	}
	return u, nil
}

func (db *UserDB) GetUserByEmail(ctx context.Context, email string) (core.DBUser, error) {
	u, err := scanUser(db.getByEmail.QueryRowContext(ctx, clean(email)))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *UserDB) GetUserByName(ctx context.Context, name string) (core.DBUser, error) {
	u, err := scanUser(db.getByName.QueryRowContext(ctx, clean(name)))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *UserDB) GetAllUsers(ctx context.Context, limit, offset int) ([]core.DBUser, error) {

	var all = []core.DBUser{}

	rows, err := db.getAll.QueryContext(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}

	return all, rows.Err()
}

func (db *UserDB) InsertUser(ctx context.Context, name, email string, clientID int64) (core.DBUser, error) {

	name = clean(name)

	var nullClientID = sql.NullInt64{Int64: clientID, Valid: clientID != 0}
	result, err := db.insert.ExecContext(ctx, name, email, nullClientID)
	if err != nil {
		return nil, exists(err, "user "+name)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &user{
		id:       id,
		name:     name,
		email:    email,
		clientID: clientID,
	}, nil
}

func (db *UserDB) LoginUser(ctx context.Context, name, password string) (core.DBUser, error) {
	u, err := scanUser(db.getByName.QueryRowContext(ctx, clean(name)))
	if errors.Is(err, core.ErrNotFound) {
		compareHash(dummyHash(), []byte(password))
		return nil, core.ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}
	if err := u.checkPassword(password); err != nil {
		return nil, err // wrong password
	}
	return u, nil
}

func (db *UserDB) SetPassword(ctx context.Context, u core.DBUser, password string) error {

	if password == "" {
		return core.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	if _, err = db.setPassword.ExecContext(ctx, string(hash), u.ID()); err != nil {
		return err
	}

	if u, ok := u.(*user); ok {
		u.hash = string(hash)
	}
	return nil
}

func (db *UserDB) SetRoles(ctx context.Context, u core.DBUser, roles core.Role) error {
	if _, err := db.setRoles.ExecContext(ctx, uint32(roles), u.ID()); err != nil {
		return err
	}
	if u, ok := u.(*user); ok {
		u.roles = roles
	}
	return nil
}
