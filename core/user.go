package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/wansing/mvv/auth"
)

// DBUser is a user who can log in. It implements auth.User.
type DBUser interface {
	auth.User
	ClientID() int64 // zero if the user is not a bank client
	Email() string
	Roles() Role // without the roles of groups
}

type UserDB interface {
	ChangePassword(ctx context.Context, u DBUser, old, new string) error
	DeleteUser(ctx context.Context, u DBUser) error
	GetAllUsers(ctx context.Context, limit, offset int) ([]DBUser, error)
	GetUser(ctx context.Context, id int64) (DBUser, error)
	GetUserByEmail(ctx context.Context, email string) (DBUser, error)
	GetUserByName(ctx context.Context, name string) (DBUser, error)
	InsertUser(ctx context.Context, name, email string, clientID int64) (DBUser, error)
	LoginUser(ctx context.Context, name, password string) (DBUser, error) // ErrAuth if name or password is wrong
	SetPassword(ctx context.Context, u DBUser, password string) error
	SetRoles(ctx context.Context, u DBUser, roles Role) error
}

// CertUserPrefix starts the names of technical users which authenticate with a client certificate.
// Database users must not use it.
const CertUserPrefix = "cert:"

// InsertUser shadows UserDB.InsertUser.
func (c *CoreDB) InsertUser(ctx context.Context, name, email string, clientID int64) (DBUser, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: empty user name", ErrInvalid)
	}
	if strings.HasPrefix(name, CertUserPrefix) {
		return nil, fmt.Errorf("%w: user name must not start with %q", ErrInvalid, CertUserPrefix)
	}
	if email = strings.TrimSpace(email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: email address: %v", ErrInvalid, err)
		}
	}
	if clientID != 0 {
		if _, err := c.ClientDB.GetClient(ctx, clientID); err != nil {
			return nil, fmt.Errorf("client %d: %w", clientID, err)
		}
	}
	return c.UserDB.InsertUser(ctx, name, strings.ToLower(email), clientID)
}

// manageUser returns ErrForbidden unless v may administrate u.
func (c *CoreDB) manageUser(ctx context.Context, v *Viewer, u DBUser) error {
	if !v.Can(RoleAdmin) {
		return ErrForbidden
	}
	roles, err := c.UserRoles(ctx, u)
	if err != nil {
		return err
	}
	if !v.CanManage(roles) {
		return fmt.Errorf("%w: user %s has roles which %s lacks", ErrForbidden, u.Name(), v.Name)
	}
	return nil
}

// SetPassword shadows UserDB.SetPassword.
func (c *CoreDB) SetPassword(ctx context.Context, v *Viewer, u DBUser, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}
	if err := c.manageUser(ctx, v, u); err != nil {
		return err
	}
	return c.UserDB.SetPassword(ctx, u, password)
}

// ChangePassword shadows UserDB.ChangePassword.
func (c *CoreDB) ChangePassword(ctx context.Context, u DBUser, old, new string) error {
	if strings.TrimSpace(new) == "" {
		return ErrEmptyPassword
	}
	return c.UserDB.ChangePassword(ctx, u, old, new)
}

// SetRoles shadows UserDB.SetRoles and invalidates the cached permissions of the user.
// The viewer can only grant roles which it has itself.
func (c *CoreDB) SetRoles(ctx context.Context, v *Viewer, u DBUser, roles Role) error {
	if !roles.Valid() {
		return fmt.Errorf("%w: roles %s", ErrInvalid, roles)
	}
	if err := c.manageUser(ctx, v, u); err != nil {
		return err
	}
	if !v.CanManage(roles) {
		return fmt.Errorf("%w: %s can't grant %s", ErrForbidden, v.Name, roles)
	}
	if err := c.UserDB.SetRoles(ctx, u, roles); err != nil {
		return err
	}
	return c.invalidate(ctx, u.Name())
}

// DeleteUser shadows UserDB.DeleteUser.
func (c *CoreDB) DeleteUser(ctx context.Context, v *Viewer, u DBUser) error {
	if err := c.manageUser(ctx, v, u); err != nil {
		return err
	}
	if err := c.UserDB.DeleteUser(ctx, u); err != nil {
		return err
	}
	return c.invalidate(ctx, u.Name())
}

// UserRoles returns the effective roles of a user, including the roles of their groups.
func (c *CoreDB) UserRoles(ctx context.Context, u DBUser) (Role, error) {
	var roles = u.Roles()
	groups, err := c.GroupDB.GetGroupsOf(ctx, u)
	if err != nil {
		return 0, err
	}
	for _, g := range groups {
		roles |= g.Roles()
	}
	return roles.Effective(), nil
}
