package core

import (
	"context"
	"errors"
	"strings"

	"github.com/wansing/mvv/auth"
	"go.uber.org/zap"
)

// PermissionCache is notified when the roles of a user may have changed.
type PermissionCache interface {
	Invalidate(ctx context.Context, name string) error
}

// CoreDB combines the databases and adds validation and authorization.
//
// Methods which take a *Viewer check whether the viewer may perform the operation.
type CoreDB struct {
	AccountDB
	ClientDB
	GroupDB
	UserDB
	PermissionCache PermissionCache // optional
	Logger          *zap.Logger
}

func (c *CoreDB) invalidate(ctx context.Context, name string) error {
	if c.PermissionCache == nil {
		return nil
	}
	return c.PermissionCache.Invalidate(ctx, name)
}

// UserPermissions implements auth.PermissionProvider. Users which are not in the UserDB yield auth.ErrUnknownUser.
func (c *CoreDB) UserPermissions(ctx context.Context, u auth.User) (auth.PermissionSet[Role], error) {
	dbUser, err := c.UserDB.GetUser(ctx, u.ID())
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	if dbUser.Name() != u.Name() {
		return nil, auth.ErrUnknownUser
	}
	roles, err := c.UserRoles(ctx, dbUser)
	if err != nil {
		return nil, err
	}
	return auth.NewBitSet(roles), nil
}

// AuthStore returns an auth.UserStore which is backed by the UserDB.
func (c *CoreDB) AuthStore() auth.UserStore {
	return authStore{c.UserDB}
}

type authStore struct {
	UserDB
}

func (s authStore) GetUser(ctx context.Context, id int64) (auth.User, error) {
	return toAuthUser(s.UserDB.GetUser(ctx, id))
}

func (s authStore) GetUserByName(ctx context.Context, name string) (auth.User, error) {
	return toAuthUser(s.UserDB.GetUserByName(ctx, name))
}

func (s authStore) LoginUser(ctx context.Context, name, password string) (auth.User, error) {
	return toAuthUser(s.UserDB.LoginUser(ctx, name, password))
}

// LookupEmail returns the user with the given email address. It can be used as auth.OAuth2Login.LookupUser.
func (c *CoreDB) LookupEmail(ctx context.Context, email string) (auth.User, error) {
	return toAuthUser(c.UserDB.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email))))
}

func toAuthUser(u DBUser, err error) (auth.User, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
