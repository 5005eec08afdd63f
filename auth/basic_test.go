package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicBackend(t *testing.T) {
	var backend = &BasicBackend{Store: newTestStore(t), Realm: "mvv"}

	t.Run("valid credentials", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("alice", "secret")
		u, err := backend.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Name())
	})

	t.Run("wrong password", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("alice", "wrong")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("unknown user", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("mallory", "secret")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("user without password", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("cert:payments", "")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("no authorization header", func(t *testing.T) {
		_, err := backend.Authenticate(httptest.NewRequest("GET", "/", nil))
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("other scheme", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("malformed", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "basic !!!")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrAuth)
	})
}

func TestHasScheme(t *testing.T) {
	assert.True(t, hasScheme("Basic abc", "Basic"))
	assert.True(t, hasScheme("bearer abc", "Bearer"))
	assert.False(t, hasScheme("Basic", "Basic"))
	assert.False(t, hasScheme("Basicabc", "Basic"))
	assert.False(t, hasScheme("", "Basic"))
}
