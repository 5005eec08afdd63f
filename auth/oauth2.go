package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wansing/mvv/util"
	"golang.org/x/oauth2"
)

const sessionStateKey = "oauth2state"

// OAuth2Login logs users in with the OAuth2 authorization code flow.
//
// After the code exchange, the email address is read from the userinfo endpoint of the provider.
// The user with that email address is stored in the session of the SessionBackend.
type OAuth2Login struct {
	Config      *oauth2.Config
	UserInfoURL string
	Session     *SessionBackend

	// LookupUser finds the user with the given email address.
	// If nil, Session.Store.GetUserByName is used.
	LookupUser func(ctx context.Context, email string) (User, error)
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// Start redirects the client to the authorization endpoint of the provider.
func (o *OAuth2Login) Start(w http.ResponseWriter, r *http.Request) error {
	state, err := util.RandomString32()
	if err != nil {
		return err
	}
	o.Session.Sessions.Put(r.Context(), sessionStateKey, state)
	http.Redirect(w, r, o.Config.AuthCodeURL(state), http.StatusSeeOther)
	return nil
}

// Callback handles the redirect from the provider and logs the user in.
func (o *OAuth2Login) Callback(r *http.Request) (User, error) {

	var ctx = r.Context()

	var state = o.Session.Sessions.PopString(ctx, sessionStateKey)
	if state == "" || state != r.FormValue("state") {
		return nil, fmt.Errorf("%w: oauth2 state mismatch", ErrAuth)
	}
	if e := r.FormValue("error"); e != "" {
		return nil, fmt.Errorf("%w: oauth2 provider: %s", ErrAuth, e)
	}

	token, err := o.Config.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		return nil, fmt.Errorf("%w: oauth2 code exchange: %v", ErrAuth, err)
	}

	info, err := o.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.Email == "" || (info.EmailVerified != nil && !*info.EmailVerified) {
		return nil, fmt.Errorf("%w: no verified email address", ErrAuth)
	}

	var lookup = o.LookupUser
	if lookup == nil {
		lookup = o.Session.Store.GetUserByName
	}
	u, err := lookup(ctx, info.Email)
	if errors.Is(err, ErrUnknownUser) {
		return nil, fmt.Errorf("%w: no user with email %s", ErrAuth, info.Email)
	}
	if err != nil {
		return nil, err
	}

	return u, o.Session.LoginUser(ctx, u)
}

func (o *OAuth2Login) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	resp, err := o.Config.Client(ctx, token).Get(o.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrAuth, resp.StatusCode)
	}
	var info = &userInfo{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	return info, nil
}
