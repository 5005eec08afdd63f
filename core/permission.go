package core

import (
	"fmt"
	"strings"
)

// Role is a bit flag. A user has the roles assigned to them and the roles of their groups.
type Role uint32

const (
	RoleRead      Role = 1 << iota // read all clients and accounts
	RoleWrite                      // modify all clients and accounts, deposit money
	RoleClient                     // access own client data and accounts
	RoleAdmin                      // manage users and groups
	RoleSuperUser                  // implies all other roles
)

const AllRoles = RoleRead | RoleWrite | RoleClient | RoleAdmin | RoleSuperUser

var roleNames = []struct {
	role Role
	name string
}{
	{RoleRead, "read"},
	{RoleWrite, "write"},
	{RoleClient, "client"},
	{RoleAdmin, "admin"},
	{RoleSuperUser, "superuser"},
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var names []string
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			names = append(names, rn.name)
		}
	}
	if r&^AllRoles != 0 {
		names = append(names, fmt.Sprintf("unknown(%#x)", uint32(r&^AllRoles)))
	}
	return strings.Join(names, ",")
}

func (r Role) Valid() bool {
	return r&^AllRoles == 0
}

// Effective returns all roles which r implies.
func (r Role) Effective() Role {
	if r&RoleSuperUser != 0 {
		return AllRoles
	}
	return r
}

// ParseRole parses a comma-separated list of role names. The empty string and "none" yield zero.
func ParseRole(s string) (Role, error) {
	var result Role
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "none" {
			continue
		}
		var found = false
		for _, rn := range roleNames {
			if rn.name == name {
				result |= rn.role
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown role %q", ErrInvalid, name)
		}
	}
	return result, nil
}

// Flags returns the single-bit roles contained in r.
func (r Role) Flags() []Role {
	var flags []Role
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			flags = append(flags, rn.role)
		}
	}
	return flags
}
