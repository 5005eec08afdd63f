package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

const (
	sessionHashKey = "authhash"
	sessionUIDKey  = "uid"
)

// SessionBackend authenticates requests by a login session. The user logs in through a login form or OAuth2Login.
//
// The session stores the user id and the SessionHash of the user at login time.
// If the hash has changed since then, the session is destroyed.
//
// Requests must pass scs.SessionManager.LoadAndSave before.
type SessionBackend struct {
	Sessions *scs.SessionManager
	Store    UserStore
}

func (b *SessionBackend) Name() string {
	return "session"
}

func (b *SessionBackend) Authenticate(r *http.Request) (User, error) {
	var ctx = r.Context()
	var uid = b.Sessions.GetInt(ctx, sessionUIDKey)
	if uid == 0 {
		return nil, ErrNoCredentials
	}
	u, err := b.Store.GetUser(ctx, int64(uid))
	if errors.Is(err, ErrUnknownUser) {
		_ = b.Sessions.Destroy(ctx)
		return nil, ErrAuth
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(b.Sessions.GetBytes(ctx, sessionHashKey), u.SessionHash()) != 1 {
		_ = b.Sessions.Destroy(ctx)
		return nil, ErrAuth
	}
	return u, nil
}

// Login checks the credentials and stores the user in the session.
func (b *SessionBackend) Login(ctx context.Context, name, password string) (User, error) {
	u, err := b.Store.LoginUser(ctx, name, password)
	if errors.Is(err, ErrUnknownUser) {
		return nil, ErrAuth
	}
	if err != nil {
		return nil, err
	}
	return u, b.LoginUser(ctx, u)
}

// LoginUser stores an already authenticated user in the session. The session token is renewed.
func (b *SessionBackend) LoginUser(ctx context.Context, u User) error {
	if err := b.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	b.Sessions.Put(ctx, sessionUIDKey, int(u.ID()))
	b.Sessions.Put(ctx, sessionHashKey, u.SessionHash())
	return nil
}

// Logout removes the user from the session. Other session data is kept.
func (b *SessionBackend) Logout(ctx context.Context) error {
	b.Sessions.Remove(ctx, sessionUIDKey)
	b.Sessions.Remove(ctx, sessionHashKey)
	return b.Sessions.RenewToken(ctx)
}
