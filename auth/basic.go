package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// BasicBackend authenticates requests with HTTP Basic authentication.
type BasicBackend struct {
	Store UserStore
	Realm string
}

func (b *BasicBackend) Name() string {
	return "basic"
}

func (b *BasicBackend) Authenticate(r *http.Request) (User, error) {
	var header = r.Header.Get("Authorization")
	if !hasScheme(header, "Basic") {
		return nil, ErrNoCredentials
	}
	name, password, ok := r.BasicAuth()
	if !ok {
		return nil, fmt.Errorf("%w: malformed basic credentials", ErrAuth)
	}
	u, err := b.Store.LoginUser(r.Context(), name, password)
	if errors.Is(err, ErrUnknownUser) {
		return nil, ErrAuth
	}
	return u, err
}

func (b *BasicBackend) Challenge(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", `Basic realm="`+b.Realm+`", charset="UTF-8"`)
}

// hasScheme reports whether an Authorization header value uses the given scheme, ignoring case.
func hasScheme(header, scheme string) bool {
	return len(header) > len(scheme) && header[len(scheme)] == ' ' && strings.EqualFold(header[:len(scheme)], scheme)
}
