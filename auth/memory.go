package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var bcryptCost = bcrypt.DefaultCost

var compareHash = bcrypt.CompareHashAndPassword

// dummyHash is compared against for unknown users and users without a password.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("dummy"), bcryptCost)
	return hash
})

type memoryUser struct {
	id   int64
	name string
	hash []byte // bcrypt, empty if the user can't log in with a password
}

func (u *memoryUser) ID() int64 {
	return u.id
}

func (u *memoryUser) Name() string {
	return u.name
}

func (u *memoryUser) SessionHash() []byte {
	return u.hash
}

// MemoryStore keeps users and their permissions in memory. It is safe for concurrent use.
//
// User ids are negative, so they don't collide with ids from a database.
type MemoryStore[P comparable] struct {
	mu     sync.RWMutex
	byName map[string]*memoryUser
	byID   map[int64]*memoryUser
	perms  map[int64][]P
	lastID int64
}

func NewMemoryStore[P comparable]() *MemoryStore[P] {
	return &MemoryStore[P]{
		byName: make(map[string]*memoryUser),
		byID:   make(map[int64]*memoryUser),
		perms:  make(map[int64][]P),
	}
}

// AddUser adds or replaces a user. If password is empty, LoginUser fails for this user.
func (s *MemoryStore[P]) AddUser(name, password string, perms ...P) (User, error) {

	var hash []byte
	if password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var u, ok = s.byName[name]
	if !ok {
		s.lastID--
		u = &memoryUser{
			id:   s.lastID,
			name: name,
		}
		s.byName[name] = u
		s.byID[u.id] = u
	}
	u.hash = hash
	s.perms[u.id] = append([]P(nil), perms...)
	return u, nil
}

func (s *MemoryStore[P]) GetUser(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, ErrUnknownUser
}

func (s *MemoryStore[P]) GetUserByName(_ context.Context, name string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byName[name]; ok {
		return u, nil
	}
	return nil, ErrUnknownUser
}

func (s *MemoryStore[P]) LoginUser(_ context.Context, name, password string) (User, error) {
	s.mu.RLock()
	var u, ok = s.byName[name]
	s.mu.RUnlock()
	if !ok {
		compareHash(dummyHash(), []byte(password))
		return nil, ErrUnknownUser
	}
	if len(u.hash) == 0 {
		compareHash(dummyHash(), []byte(password))
		return nil, ErrAuth
	}
	if compareHash(u.hash, []byte(password)) != nil {
		return nil, ErrAuth
	}
	return u, nil
}

// UserPermissions returns a HashSet. Users from other stores yield ErrUnknownUser.
func (s *MemoryStore[P]) UserPermissions(_ context.Context, u User) (PermissionSet[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if known, ok := s.byID[u.ID()]; !ok || known.name != u.Name() {
		return nil, ErrUnknownUser
	}
	return NewHashSet(s.perms[u.ID()]...), nil
}

// UserStores asks each store in order. Stores which return ErrUnknownUser are skipped.
type UserStores []UserStore

func (stores UserStores) GetUser(ctx context.Context, id int64) (User, error) {
	return stores.first(func(s UserStore) (User, error) { return s.GetUser(ctx, id) })
}

func (stores UserStores) GetUserByName(ctx context.Context, name string) (User, error) {
	return stores.first(func(s UserStore) (User, error) { return s.GetUserByName(ctx, name) })
}

func (stores UserStores) LoginUser(ctx context.Context, name, password string) (User, error) {
	return stores.first(func(s UserStore) (User, error) { return s.LoginUser(ctx, name, password) })
}

func (stores UserStores) first(f func(UserStore) (User, error)) (User, error) {
	for _, s := range stores {
		u, err := f(s)
		if errors.Is(err, ErrUnknownUser) {
			continue
		}
		return u, err
	}
	return nil, ErrUnknownUser
}
