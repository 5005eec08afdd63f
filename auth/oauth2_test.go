package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newProvider(t *testing.T, email string) *httptest.Server {
	t.Helper()
	var mux = http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"email": email, "email_verified": true})
	})
	var srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOAuth2App(t *testing.T, email string) (*httptest.Server, *http.Client) {
	t.Helper()

	var store = newTestStore(t)
	var provider = newProvider(t, email)
	var session = &SessionBackend{Sessions: scs.New(), Store: store}
	var login = &OAuth2Login{
		Config: &oauth2.Config{
			ClientID:     "mvv",
			ClientSecret: "mvv-secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  provider.URL + "/authorize",
				TokenURL: provider.URL + "/token",
			},
		},
		UserInfoURL: provider.URL + "/userinfo",
		Session:     session,
		LookupUser: func(ctx context.Context, email string) (User, error) {
			return store.GetUserByName(ctx, strings.TrimSuffix(email, "@example.com"))
		},
	}

	srv, client := newSessionServer(t, session, func(mux *http.ServeMux) {
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			if err := login.Start(w, r); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
		mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
			u, err := login.Callback(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, u.Name())
		})
	})
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return srv, client
}

func startLogin(t *testing.T, client *http.Client, srv *httptest.Server) string {
	t.Helper()
	resp, err := client.Get(srv.URL + "/start")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)
	assert.Equal(t, "mvv", location.Query().Get("client_id"))
	var state = location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func callback(t *testing.T, client *http.Client, srv *httptest.Server, query url.Values) int {
	t.Helper()
	resp, err := client.Get(srv.URL + "/callback?" + query.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestOAuth2Login(t *testing.T) {
	var srv, client = newOAuth2App(t, "alice@example.com")

	var state = startLogin(t, client, srv)
	assert.Equal(t, http.StatusOK, callback(t, client, srv, url.Values{"state": {state}, "code": {"good-code"}}))

	status, name := whoami(t, client, srv)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", name)
}

func TestOAuth2LoginFailures(t *testing.T) {

	t.Run("state mismatch", func(t *testing.T) {
		var srv, client = newOAuth2App(t, "alice@example.com")
		startLogin(t, client, srv)
		assert.Equal(t, http.StatusUnauthorized, callback(t, client, srv, url.Values{"state": {"forged"}, "code": {"good-code"}}))
	})

	t.Run("state is used once", func(t *testing.T) {
		var srv, client = newOAuth2App(t, "alice@example.com")
		var state = startLogin(t, client, srv)
		assert.Equal(t, http.StatusUnauthorized, callback(t, client, srv, url.Values{"state": {state}, "code": {"bad-code"}}))
		assert.Equal(t, http.StatusUnauthorized, callback(t, client, srv, url.Values{"state": {state}, "code": {"good-code"}}))
	})

	t.Run("provider error", func(t *testing.T) {
		var srv, client = newOAuth2App(t, "alice@example.com")
		var state = startLogin(t, client, srv)
		assert.Equal(t, http.StatusUnauthorized, callback(t, client, srv, url.Values{"state": {state}, "error": {"access_denied"}}))
	})

	t.Run("unknown email", func(t *testing.T) {
		var srv, client = newOAuth2App(t, "mallory@example.com")
		var state = startLogin(t, client, srv)
		assert.Equal(t, http.StatusUnauthorized, callback(t, client, srv, url.Values{"state": {state}, "code": {"good-code"}}))
		status, _ := whoami(t, client, srv)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}
