package auth

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrAuth          = errors.New("authentication failed")
	ErrNoCredentials = errors.New("no credentials")
	ErrUnknownUser   = errors.New("unknown user")
)

// A User is an authenticated principal.
type User interface {
	ID() int64
	Name() string

	// SessionHash must change whenever existing login sessions should become invalid,
	// for example when the password is changed. It may be empty for users who can't log in via a session.
	SessionHash() []byte
}

// UserStore looks up users. Get methods return ErrUnknownUser if the user does not exist.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
	LoginUser(ctx context.Context, name, password string) (User, error) // ErrAuth on wrong name or password
}

// A Backend authenticates HTTP requests.
//
// Authenticate returns ErrNoCredentials if the request carries no credentials which the backend understands.
// Any other error means that credentials were found but are not valid.
type Backend interface {
	Name() string
	Authenticate(r *http.Request) (User, error)
}

// A Challenger tells the client how to authenticate, usually by setting the WWW-Authenticate header.
type Challenger interface {
	Challenge(w http.ResponseWriter)
}

type userContextKey struct{}

// WithUser returns a copy of ctx which carries the given user. If u is nil, ctx is returned.
func WithUser(ctx context.Context, u User) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok
}
