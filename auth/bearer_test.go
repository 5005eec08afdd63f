package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestBearerBackend(t *testing.T) {
	var backend = &BearerBackend{
		Store:    newTestStore(t),
		Key:      testKey,
		Issuer:   "https://idp.example.com",
		Audience: "mvv",
		Realm:    "mvv",
	}

	var valid = func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":                "https://idp.example.com",
			"aud":                "mvv",
			"sub":                "8f3c",
			"preferred_username": "alice",
			"exp":                time.Now().Add(time.Hour).Unix(),
		}
	}

	var authenticate = func(token string) (User, error) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		return backend.Authenticate(r)
	}

	t.Run("valid token", func(t *testing.T) {
		u, err := authenticate(signToken(t, jwt.SigningMethodHS256, testKey, valid()))
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Name())
	})

	t.Run("falls back to sub", func(t *testing.T) {
		var claims = valid()
		delete(claims, "preferred_username")
		claims["sub"] = "bob"
		u, err := authenticate(signToken(t, jwt.SigningMethodHS256, testKey, claims))
		require.NoError(t, err)
		assert.Equal(t, "bob", u.Name())
	})

	var invalid = map[string]func(jwt.MapClaims){
		"expired":        func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() },
		"no expiration":  func(c jwt.MapClaims) { delete(c, "exp") },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "other" },
		"unknown user":   func(c jwt.MapClaims) { c["preferred_username"] = "mallory" },
	}
	for name, modify := range invalid {
		t.Run(name, func(t *testing.T) {
			var claims = valid()
			modify(claims)
			_, err := authenticate(signToken(t, jwt.SigningMethodHS256, testKey, claims))
			assert.ErrorIs(t, err, ErrAuth)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		_, err := authenticate(signToken(t, jwt.SigningMethodHS256, []byte("another key, another key, 123456"), valid()))
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("unsigned", func(t *testing.T) {
		_, err := authenticate(signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()))
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("basic header", func(t *testing.T) {
		var r = httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("alice", "secret")
		_, err := backend.Authenticate(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}
