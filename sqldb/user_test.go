package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/mvv/core"
	"golang.org/x/crypto/bcrypt"
)

// countCompares counts the bcrypt comparisons until the test ends.
func countCompares(t *testing.T) *int {
	var calls = new(int)
	compareHash = func(hash, password []byte) error {
		*calls++
		return bcrypt.CompareHashAndPassword(hash, password)
	}
	t.Cleanup(func() { compareHash = bcrypt.CompareHashAndPassword })
	return calls
}

func TestLoginComparesHash(t *testing.T) {
	var ctx = context.Background()
	var users = NewUserDB(openTestDB(t))
	var calls = countCompares(t)

	_, err := users.LoginUser(ctx, "mallory", "secret")
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.Equal(t, 1, *calls)

	u, err := users.InsertUser(ctx, "alice", "", 0)
	require.NoError(t, err)
	_, err = users.LoginUser(ctx, "alice", "secret")
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.Equal(t, 2, *calls)

	require.NoError(t, users.SetPassword(ctx, u, "secret"))
	_, err = users.LoginUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.Equal(t, 3, *calls)
}

func TestUserDB(t *testing.T) {
	var ctx = context.Background()
	var users = NewUserDB(openTestDB(t))

	u, err := users.InsertUser(ctx, " Alice ", "alice@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name())
	assert.NotZero(t, u.ID())

	_, err = users.InsertUser(ctx, "alice", "", 0)
	assert.ErrorIs(t, err, core.ErrExists)

	// no password set yet
	_, err = users.LoginUser(ctx, "alice", "")
	assert.ErrorIs(t, err, core.ErrAuth)

	require.NoError(t, users.SetPassword(ctx, u, "secret"))
	var oldHash = u.SessionHash()

	got, err := users.LoginUser(ctx, "ALICE", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), got.ID())
	assert.Equal(t, oldHash, got.SessionHash())

	_, err = users.LoginUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, core.ErrAuth)
	_, err = users.LoginUser(ctx, "mallory", "secret")
	assert.ErrorIs(t, err, core.ErrAuth)

	assert.ErrorIs(t, users.ChangePassword(ctx, u, "wrong", "new"), core.ErrAuth)
	require.NoError(t, users.ChangePassword(ctx, u, "secret", "new"))
	got, err = users.LoginUser(ctx, "alice", "new")
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, got.SessionHash())

	require.NoError(t, users.SetRoles(ctx, u, core.RoleRead|core.RoleWrite))
	got, err = users.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleRead|core.RoleWrite, got.Roles())

	_, err = users.GetUserByEmail(ctx, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := users.GetAllUsers(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, users.DeleteUser(ctx, u))
	_, err = users.GetUser(ctx, u.ID())
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, users.DeleteUser(ctx, u), core.ErrNotFound)
}

func TestGroupDB(t *testing.T) {
	var ctx = context.Background()
	var c = newTestCoreDB(t)

	alice, err := c.InsertUser(ctx, "alice", "", 0)
	require.NoError(t, err)
	bob, err := c.InsertUser(ctx, "bob", "", 0)
	require.NoError(t, err)

	tellers, err := c.InsertGroup(ctx, "tellers")
	require.NoError(t, err)
	_, err = c.InsertGroup(ctx, "tellers")
	assert.ErrorIs(t, err, core.ErrExists)

	require.NoError(t, c.SetGroupRoles(ctx, root, tellers, core.RoleRead))
	require.NoError(t, c.Join(ctx, root, tellers, alice))
	require.NoError(t, c.Join(ctx, root, tellers, alice)) // twice
	require.NoError(t, c.Join(ctx, root, tellers, bob))

	members, err := c.GetMembers(ctx, tellers)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Name())

	roles, err := c.UserRoles(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, core.RoleRead, roles)

	perms, err := c.UserPermissions(ctx, alice)
	require.NoError(t, err)
	assert.True(t, perms.Has(core.RoleRead))

	require.NoError(t, c.Leave(ctx, root, tellers, bob))
	groups, err := c.GetGroupsOf(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, groups)

	g, err := c.GetGroupByName(ctx, "tellers")
	require.NoError(t, err)
	assert.Equal(t, core.RoleRead, g.Roles())

	require.NoError(t, c.DeleteGroup(ctx, root, tellers))
	_, err = c.GetGroup(ctx, tellers.ID())
	assert.ErrorIs(t, err, core.ErrNotFound)

	// deleting a user removes their memberships
	other, err := c.InsertGroup(ctx, "auditors")
	require.NoError(t, err)
	require.NoError(t, c.Join(ctx, root, other, alice))
	require.NoError(t, c.DeleteUser(ctx, root, alice))
	members, err = c.GetMembers(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, members)
}
