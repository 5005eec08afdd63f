package core

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/wansing/mvv/auth"
)

// memDB implements the DB interfaces in memory for testing CoreDB.
type memDB struct {
	mu          sync.Mutex
	accounts    map[string]*Account
	clients     map[int64]*ClientInfo
	users       map[int64]*memUser
	groups      map[int64]*memGroup
	members     map[int64][]int64 // group id -> user ids
	invalidated []string
}

func newMemDB() *memDB {
	return &memDB{
		accounts: make(map[string]*Account),
		clients:  make(map[int64]*ClientInfo),
		users:    make(map[int64]*memUser),
		groups:   make(map[int64]*memGroup),
		members:  make(map[int64][]int64),
	}
}

func newTestCoreDB() (*CoreDB, *memDB) {
	var db = newMemDB()
	return &CoreDB{
		AccountDB:       db,
		ClientDB:        db,
		GroupDB:         db,
		UserDB:          db,
		PermissionCache: db,
	}, db
}

func (db *memDB) Invalidate(ctx context.Context, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.invalidated = append(db.invalidated, name)
	return nil
}

// accounts

func (db *memDB) AddAmount(ctx context.Context, id string, delta int64) (*Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Amount+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	if delta > 0 && a.Amount > math.MaxInt64-delta {
		return nil, ErrAmountTooLarge
	}
	a.Amount += delta
	var copy = *a
	return &copy, nil
}

func (db *memDB) DeleteAccount(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(db.accounts, id)
	return nil
}

func (db *memDB) GetAccount(ctx context.Context, id string) (*Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	var copy = *a
	return &copy, nil
}

func (db *memDB) GetAccountsOf(ctx context.Context, clientID int64) ([]*Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []*Account
	for _, a := range db.accounts {
		if a.ClientID == clientID {
			var copy = *a
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (db *memDB) InsertAccount(ctx context.Context, a *Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var copy = *a
	db.accounts[a.ID] = &copy
	return nil
}

func (db *memDB) RenameAccount(ctx context.Context, id, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Name = name
	return nil
}

func (db *memDB) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	from, ok := db.accounts[fromID]
	if !ok {
		return ErrNotFound
	}
	to, ok := db.accounts[toID]
	if !ok {
		return ErrNotFound
	}
	if from.Amount < amount {
		return ErrInsufficientFunds
	}
	if to.Amount > math.MaxInt64-amount {
		return ErrAmountTooLarge
	}
	from.Amount -= amount
	to.Amount += amount
	return nil
}

// clients

func (db *memDB) GetClient(ctx context.Context, id int64) (*ClientInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	var copy = *c
	return &copy, nil
}

func (db *memDB) InsertClient(ctx context.Context, c *ClientInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = int64(len(db.clients) + 1)
	var copy = *c
	db.clients[c.ID] = &copy
	return nil
}

func (db *memDB) SearchClients(ctx context.Context, f ClientFilter) ([]*ClientInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []*ClientInfo
	for id := int64(1); id <= int64(len(db.clients)); id++ {
		c, ok := db.clients[id]
		if !ok {
			continue
		}
		if f.Email != "" && c.Email != f.Email {
			continue
		}
		if f.Phone != "" && c.Phone != f.Phone {
			continue
		}
		if f.Name != "" && !strings.Contains(c.FullName(), f.Name) {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		var copy = *c
		result = append(result, &copy)
	}
	if f.Offset >= len(result) {
		return nil, nil
	}
	result = result[f.Offset:]
	if len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (db *memDB) SetClientActive(ctx context.Context, id int64, active bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	return nil
}

func (db *memDB) UpdateClient(ctx context.Context, c *ClientInfo) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.clients[c.ID]; !ok {
		return ErrNotFound
	}
	var copy = *c
	db.clients[c.ID] = &copy
	return nil
}

// users

type memUser struct {
	id       int64
	name     string
	email    string
	clientID int64
	password string
	roles    Role
}

func (u *memUser) ID() int64           { return u.id }
func (u *memUser) Name() string        { return u.name }
func (u *memUser) SessionHash() []byte { return []byte(u.password) }
func (u *memUser) ClientID() int64     { return u.clientID }
func (u *memUser) Email() string       { return u.email }
func (u *memUser) Roles() Role         { return u.roles }

func (db *memDB) ChangePassword(ctx context.Context, u DBUser, old, new string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.users[u.ID()].password != old {
		return ErrAuth
	}
	db.users[u.ID()].password = new
	return nil
}

func (db *memDB) DeleteUser(ctx context.Context, u DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.users, u.ID())
	return nil
}

func (db *memDB) GetAllUsers(ctx context.Context, limit, offset int) ([]DBUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []DBUser
	for _, u := range db.users {
		result = append(result, u)
	}
	return result, nil
}

func (db *memDB) GetUser(ctx context.Context, id int64) (DBUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (db *memDB) find(match func(*memUser) bool) (DBUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (db *memDB) GetUserByEmail(ctx context.Context, email string) (DBUser, error) {
	return db.find(func(u *memUser) bool { return u.email == email })
}

func (db *memDB) GetUserByName(ctx context.Context, name string) (DBUser, error) {
	return db.find(func(u *memUser) bool { return u.name == name })
}

func (db *memDB) InsertUser(ctx context.Context, name, email string, clientID int64) (DBUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var u = &memUser{
		id:       int64(len(db.users) + 1),
		name:     name,
		email:    email,
		clientID: clientID,
	}
	db.users[u.id] = u
	return u, nil
}

func (db *memDB) LoginUser(ctx context.Context, name, password string) (DBUser, error) {
	u, err := db.GetUserByName(ctx, name)
	if err != nil {
		return nil, ErrAuth
	}
	if u.(*memUser).password == "" || u.(*memUser).password != password {
		return nil, ErrAuth
	}
	return u, nil
}

func (db *memDB) SetPassword(ctx context.Context, u DBUser, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID()].password = password
	return nil
}

func (db *memDB) SetRoles(ctx context.Context, u DBUser, roles Role) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID()].roles = roles
	return nil
}

// groups

type memGroup struct {
	id    int64
	name  string
	roles Role
}

func (g *memGroup) ID() int64    { return g.id }
func (g *memGroup) Name() string { return g.name }
func (g *memGroup) Roles() Role  { return g.roles }

func (db *memDB) DeleteGroup(ctx context.Context, g DBGroup) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.groups, g.ID())
	delete(db.members, g.ID())
	return nil
}

func (db *memDB) GetAllGroups(ctx context.Context, limit, offset int) ([]DBGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []DBGroup
	for _, g := range db.groups {
		result = append(result, g)
	}
	return result, nil
}

func (db *memDB) GetGroup(ctx context.Context, id int64) (DBGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	g, ok := db.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (db *memDB) GetGroupByName(ctx context.Context, name string) (DBGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, g := range db.groups {
		if g.name == name {
			return g, nil
		}
	}
	return nil, ErrNotFound
}

func (db *memDB) GetGroupsOf(ctx context.Context, u DBUser) ([]DBGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []DBGroup
	for gid, uids := range db.members {
		for _, uid := range uids {
			if uid == u.ID() {
				result = append(result, db.groups[gid])
			}
		}
	}
	return result, nil
}

func (db *memDB) GetMembers(ctx context.Context, g DBGroup) ([]DBUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []DBUser
	for _, uid := range db.members[g.ID()] {
		result = append(result, db.users[uid])
	}
	return result, nil
}

func (db *memDB) InsertGroup(ctx context.Context, name string) (DBGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var g = &memGroup{
		id:   int64(len(db.groups) + 1),
		name: name,
	}
	db.groups[g.id] = g
	return g, nil
}

func (db *memDB) Join(ctx context.Context, g DBGroup, u DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.members[g.ID()] = append(db.members[g.ID()], u.ID())
	return nil
}

func (db *memDB) Leave(ctx context.Context, g DBGroup, u DBUser) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var kept []int64
	for _, uid := range db.members[g.ID()] {
		if uid != u.ID() {
			kept = append(kept, uid)
		}
	}
	db.members[g.ID()] = kept
	return nil
}

func (db *memDB) SetGroupRoles(ctx context.Context, g DBGroup, roles Role) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.groups[g.ID()].roles = roles
	return nil
}

var _ auth.User = &memUser{}
