package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

type fakeBackend struct {
	name  string
	user  User
	err   error
	calls int
}

func (b *fakeBackend) Name() string {
	return b.name
}

func (b *fakeBackend) Authenticate(*http.Request) (User, error) {
	b.calls++
	return b.user, b.err
}

func (b *fakeBackend) Challenge(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", b.name)
}

func newTestStore(t *testing.T) *MemoryStore[testPerm] {
	t.Helper()
	var store = NewMemoryStore[testPerm]()
	_, err := store.AddUser("alice", "secret", permRead, permWrite)
	require.NoError(t, err)
	_, err = store.AddUser("bob", "hunter2", permRead)
	require.NoError(t, err)
	_, err = store.AddUser("cert:payments", "")
	require.NoError(t, err)
	return store
}

func mustUser(t *testing.T, store UserStore, name string) User {
	t.Helper()
	u, err := store.GetUserByName(context.Background(), name)
	require.NoError(t, err)
	return u
}
