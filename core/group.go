package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

type DBGroup interface {
	ID() int64
	Name() string
	Roles() Role
}

type GroupDB interface {
	DeleteGroup(ctx context.Context, g DBGroup) error
	GetAllGroups(ctx context.Context, limit, offset int) ([]DBGroup, error)
	GetGroup(ctx context.Context, id int64) (DBGroup, error)
	GetGroupByName(ctx context.Context, name string) (DBGroup, error)
	GetGroupsOf(ctx context.Context, u DBUser) ([]DBGroup, error)
	GetMembers(ctx context.Context, g DBGroup) ([]DBUser, error)
	InsertGroup(ctx context.Context, name string) (DBGroup, error)
	Join(ctx context.Context, g DBGroup, u DBUser) error
	Leave(ctx context.Context, g DBGroup, u DBUser) error
	SetGroupRoles(ctx context.Context, g DBGroup, roles Role) error
}

// InsertGroup shadows GroupDB.InsertGroup.
func (c *CoreDB) InsertGroup(ctx context.Context, name string) (DBGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty group name", ErrInvalid)
	}
	return c.GroupDB.InsertGroup(ctx, name)
}

// manageGroup returns ErrForbidden unless v may administrate g.
func manageGroup(v *Viewer, g DBGroup) error {
	if !v.CanManage(g.Roles()) {
		return fmt.Errorf("%w: group %s has roles which %s lacks", ErrForbidden, g.Name(), v.Name)
	}
	return nil
}

// Join shadows GroupDB.Join. The viewer must be able to manage both the group and the user.
func (c *CoreDB) Join(ctx context.Context, v *Viewer, g DBGroup, u DBUser) error {
	if err := manageGroup(v, g); err != nil {
		return err
	}
	if err := c.manageUser(ctx, v, u); err != nil {
		return err
	}
	if err := c.GroupDB.Join(ctx, g, u); err != nil {
		return err
	}
	return c.invalidate(ctx, u.Name())
}

// Leave shadows GroupDB.Leave.
func (c *CoreDB) Leave(ctx context.Context, v *Viewer, g DBGroup, u DBUser) error {
	if err := manageGroup(v, g); err != nil {
		return err
	}
	if err := c.manageUser(ctx, v, u); err != nil {
		return err
	}
	if err := c.GroupDB.Leave(ctx, g, u); err != nil {
		return err
	}
	return c.invalidate(ctx, u.Name())
}

// SetGroupRoles shadows GroupDB.SetGroupRoles and invalidates the cached permissions of all members.
func (c *CoreDB) SetGroupRoles(ctx context.Context, v *Viewer, g DBGroup, roles Role) error {
	if !roles.Valid() {
		return fmt.Errorf("%w: roles %s", ErrInvalid, roles)
	}
	if err := manageGroup(v, g); err != nil {
		return err
	}
	if !v.CanManage(roles) {
		return fmt.Errorf("%w: %s can't grant %s", ErrForbidden, v.Name, roles)
	}
	if err := c.GroupDB.SetGroupRoles(ctx, g, roles); err != nil {
		return err
	}
	return c.invalidateMembers(ctx, g)
}

// DeleteGroup shadows GroupDB.DeleteGroup.
func (c *CoreDB) DeleteGroup(ctx context.Context, v *Viewer, g DBGroup) error {
	if err := manageGroup(v, g); err != nil {
		return err
	}
	// members must be collected before they are removed
	members, err := c.GroupDB.GetMembers(ctx, g)
	if err != nil {
		return err
	}
	if err := c.GroupDB.DeleteGroup(ctx, g); err != nil {
		return err
	}
	for _, u := range members {
		err = multierr.Append(err, c.invalidate(ctx, u.Name()))
	}
	return err
}

func (c *CoreDB) invalidateMembers(ctx context.Context, g DBGroup) error {
	members, err := c.GroupDB.GetMembers(ctx, g)
	if err != nil {
		return err
	}
	for _, u := range members {
		err = multierr.Append(err, c.invalidate(ctx, u.Name()))
	}
	return err
}
