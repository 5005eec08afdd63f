package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// A PermissionProvider returns the permissions of a user, or ErrUnknownUser.
type PermissionProvider[P comparable] interface {
	UserPermissions(ctx context.Context, u User) (PermissionSet[P], error)
}

// Providers asks each provider in order. Providers which return ErrUnknownUser are skipped.
type Providers[P comparable] []PermissionProvider[P]

func (ps Providers[P]) UserPermissions(ctx context.Context, u User) (PermissionSet[P], error) {
	for _, p := range ps {
		set, err := p.UserPermissions(ctx, u)
		if errors.Is(err, ErrUnknownUser) {
			continue
		}
		return set, err
	}
	return nil, ErrUnknownUser
}

// CachedProvider caches the permissions of users by user name.
// Cache errors are logged and the underlying provider is asked instead.
type CachedProvider[P comparable] struct {
	Provider PermissionProvider[P]
	Cache    Cache[[]P]
	NewSet   func(ps ...P) PermissionSet[P]
	Logger   *zap.Logger
}

func (c *CachedProvider[P]) UserPermissions(ctx context.Context, u User) (PermissionSet[P], error) {

	var key = u.Name()

	cached, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.logger().Warn("reading permission cache", zap.String("user", key), zap.Error(err))
	}
	if ok {
		return c.NewSet(cached...), nil
	}

	set, err := c.Provider.UserPermissions(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := c.Cache.Set(ctx, key, set.Slice()); err != nil {
		c.logger().Warn("writing permission cache", zap.String("user", key), zap.Error(err))
	}
	return set, nil
}

// Invalidate removes the cached permissions of the user with the given name.
func (c *CachedProvider[P]) Invalidate(ctx context.Context, name string) error {
	return c.Cache.Delete(ctx, name)
}

func (c *CachedProvider[P]) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
