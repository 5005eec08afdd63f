package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// BearerBackend authenticates requests which carry an OAuth2 access token in JWT format.
// Tokens must be signed with HMAC and must have an expiration time.
type BearerBackend struct {
	Store     UserStore
	Key       []byte
	Issuer    string // optional
	Audience  string // optional
	NameClaim string // default "preferred_username", falls back to "sub"
	Realm     string
}

func (b *BearerBackend) Name() string {
	return "bearer"
}

func (b *BearerBackend) Authenticate(r *http.Request) (User, error) {
	var header = r.Header.Get("Authorization")
	if !hasScheme(header, "Bearer") {
		return nil, ErrNoCredentials
	}
	var raw = strings.TrimSpace(header[len("Bearer "):])

	var opts = []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if b.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(b.Issuer))
	}
	if b.Audience != "" {
		opts = append(opts, jwt.WithAudience(b.Audience))
	}

	var claims = jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return b.Key, nil }, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	var name = b.userName(claims)
	if name == "" {
		return nil, fmt.Errorf("%w: token without subject", ErrAuth)
	}
	u, err := b.Store.GetUserByName(r.Context(), name)
	if errors.Is(err, ErrUnknownUser) {
		return nil, fmt.Errorf("%w: unknown subject %s", ErrAuth, name)
	}
	return u, err
}

func (b *BearerBackend) userName(claims jwt.MapClaims) string {
	var claim = b.NameClaim
	if claim == "" {
		claim = "preferred_username"
	}
	if name, ok := claims[claim].(string); ok && name != "" {
		return name
	}
	sub, _ := claims.GetSubject()
	return sub
}

func (b *BearerBackend) Challenge(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", `Bearer realm="`+b.Realm+`"`)
}
