package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wansing/mvv/core"
)

type group struct {
	id    int64
	name  string
	roles core.Role
}

func (g *group) ID() int64 {
	return g.id
}

func (g *group) Name() string {
	return g.name
}

func (g *group) Roles() core.Role {
	return g.roles
}

func scanGroup(row scanner) (*group, error) {
	var g = &group{}
	if err := row.Scan(&g.id, &g.name, &g.roles); err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

type GroupDB struct {
	*sql.DB
	delete        *sql.Stmt
	deleteMembers *sql.Stmt
	get           *sql.Stmt
	getAll        *sql.Stmt
	getByName     *sql.Stmt
	getGroupsOf   *sql.Stmt
	getMembers    *sql.Stmt
	insert        *sql.Stmt
	join          *sql.Stmt
	leave         *sql.Stmt
	setRoles      *sql.Stmt
}

func NewGroupDB(db *sql.DB) *GroupDB {
	var groupDB = &GroupDB{}
	groupDB.DB = db
	groupDB.delete = mustPrepare(db, "DELETE FROM grp WHERE id = ?")
	groupDB.deleteMembers = mustPrepare(db, "DELETE FROM grp_member WHERE grp_id = ?")
	groupDB.get = mustPrepare(db, "SELECT id, name, roles FROM grp WHERE id = ? LIMIT 1")
	groupDB.getAll = mustPrepare(db, "SELECT id, name, roles FROM grp ORDER BY name LIMIT ? OFFSET ?")
	groupDB.getByName = mustPrepare(db, "SELECT id, name, roles FROM grp WHERE name = ? LIMIT 1")
	groupDB.getGroupsOf = mustPrepare(db, "SELECT g.id, g.name, g.roles FROM grp g JOIN grp_member m ON m.grp_id = g.id WHERE m.usr_id = ? ORDER BY g.name")
	groupDB.getMembers = mustPrepare(db, "SELECT u.id, u.name, u.email, u.client_id, u.password, u.roles FROM usr u JOIN grp_member m ON m.usr_id = u.id WHERE m.grp_id = ? ORDER BY u.name")
	groupDB.insert = mustPrepare(db, "INSERT INTO grp (name) VALUES (?)")
	groupDB.join = mustPrepare(db, "INSERT INTO grp_member (grp_id, usr_id) VALUES (?, ?)")
	groupDB.leave = mustPrepare(db, "DELETE FROM grp_member WHERE grp_id = ? AND usr_id = ?")
	groupDB.setRoles = mustPrepare(db, "UPDATE grp SET roles = ? WHERE id = ?")
	return groupDB
}

func (db *GroupDB) DeleteGroup(ctx context.Context, g core.DBGroup) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, db.deleteMembers).ExecContext(ctx, g.ID()); err != nil {
		return err
	}
	if err := affected(tx.StmtContext(ctx, db.delete).ExecContext(ctx, g.ID())); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *GroupDB) GetGroup(ctx context.Context, id int64) (core.DBGroup, error) {
	g, err := scanGroup(db.get.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *GroupDB) GetGroupByName(ctx context.Context, name string) (core.DBGroup, error) {
	g, err := scanGroup(db.getByName.QueryRowContext(ctx, strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *GroupDB) queryGroups(ctx context.Context, stmt *sql.Stmt, args ...any) ([]core.DBGroup, error) {

	var groups = []core.DBGroup{}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (db *GroupDB) GetAllGroups(ctx context.Context, limit, offset int) ([]core.DBGroup, error) {
	return db.queryGroups(ctx, db.getAll, limit, offset)
}

func (db *GroupDB) GetGroupsOf(ctx context.Context, u core.DBUser) ([]core.DBGroup, error) {
	return db.queryGroups(ctx, db.getGroupsOf, u.ID())
}

func (db *GroupDB) GetMembers(ctx context.Context, g core.DBGroup) ([]core.DBUser, error) {

	var members = []core.DBUser{}

	rows, err := db.getMembers.QueryContext(ctx, g.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, u)
	}

	return members, rows.Err()
}

func (db *GroupDB) InsertGroup(ctx context.Context, name string) (core.DBGroup, error) {
	result, err := db.insert.ExecContext(ctx, name)
	if err != nil {
		return nil, exists(err, "group "+name)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &group{
		id:   id,
		name: name,
	}, nil
}

// Join adds u to g. Joining twice is not an error.
func (db *GroupDB) Join(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	_, err := db.join.ExecContext(ctx, g.ID(), u.ID())
	if isDuplicate(err) {
		return nil
	}
	return err
}

func (db *GroupDB) Leave(ctx context.Context, g core.DBGroup, u core.DBUser) error {
	_, err := db.leave.ExecContext(ctx, g.ID(), u.ID())
	return err
}

func (db *GroupDB) SetGroupRoles(ctx context.Context, g core.DBGroup, roles core.Role) error {
	if _, err := db.setRoles.ExecContext(ctx, uint32(roles), g.ID()); err != nil {
		return err
	}
	if g, ok := g.(*group); ok {
		g.roles = roles
	}
	return nil
}
