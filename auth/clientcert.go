package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// ClientCertBackend authenticates requests by the verified TLS client certificate.
// The user name is Prefix followed by the common name of the certificate subject.
//
// The TLS server must verify client certificates (tls.VerifyClientCertIfGiven or stricter),
// unverified certificates are ignored.
type ClientCertBackend struct {
	Store  UserStore
	Prefix string
}

func (b *ClientCertBackend) Name() string {
	return "clientcert"
}

func (b *ClientCertBackend) Authenticate(r *http.Request) (User, error) {
	if r.TLS == nil || len(r.TLS.VerifiedChains) == 0 || len(r.TLS.VerifiedChains[0]) == 0 {
		return nil, ErrNoCredentials
	}
	var cn = r.TLS.VerifiedChains[0][0].Subject.CommonName
	if cn == "" {
		return nil, fmt.Errorf("%w: certificate without common name", ErrAuth)
	}
	u, err := b.Store.GetUserByName(r.Context(), b.Prefix+cn)
	if errors.Is(err, ErrUnknownUser) {
		return nil, fmt.Errorf("%w: no user for certificate %s", ErrAuth, cn)
	}
	return u, err
}
