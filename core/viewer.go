package core

import (
	"context"

	"github.com/wansing/mvv/auth"
)

// A Viewer is the user on whose behalf an operation is performed.
type Viewer struct {
	Name     string
	ClientID int64 // zero if the viewer is not a bank client
	Roles    Role
}

// NewViewer determines the roles of an authenticated user. Technical users, which are not in the UserDB, get their roles from perms too.
func NewViewer(ctx context.Context, u auth.User, perms auth.PermissionProvider[Role]) (*Viewer, error) {
	set, err := perms.UserPermissions(ctx, u)
	if err != nil {
		return nil, err
	}
	var v = &Viewer{
		Name: u.Name(),
	}
	for _, r := range set.Slice() {
		v.Roles |= r
	}
	v.Roles = v.Roles.Effective()
	if dbUser, ok := u.(DBUser); ok {
		v.ClientID = dbUser.ClientID()
	}
	return v, nil
}

func (v *Viewer) Can(r Role) bool {
	return v != nil && r != 0 && v.Roles&r == r
}

// CanManage reports whether the viewer is an admin and has all the given roles, so it may administrate users and groups with these roles.
func (v *Viewer) CanManage(roles Role) bool {
	return v.Can(RoleAdmin) && roles.Effective()&^v.Roles.Effective() == 0
}

func (v *Viewer) isClient(clientID int64) bool {
	return v.Can(RoleClient) && v.ClientID != 0 && v.ClientID == clientID
}

// CanReadClient reports whether the viewer may read the data and accounts of the given client.
func (v *Viewer) CanReadClient(clientID int64) bool {
	return v.Can(RoleRead) || v.isClient(clientID)
}

// CanWriteClient reports whether the viewer may change the data and accounts of the given client.
func (v *Viewer) CanWriteClient(clientID int64) bool {
	return v.Can(RoleWrite) || v.isClient(clientID)
}
