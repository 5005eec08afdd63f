package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Chain is a Backend which asks its member backends in order.
//
// A member which returns ErrNoCredentials is skipped. The first member which finds credentials decides,
// a failure is not passed on to the next member.
type Chain struct {
	Backends []Backend
	Metrics  *Metrics // optional
}

func NewChain(backends ...Backend) *Chain {
	return &Chain{
		Backends: backends,
	}
}

func (c *Chain) Name() string {
	return "chain"
}

func (c *Chain) Authenticate(r *http.Request) (User, error) {
	for _, b := range c.Backends {
		u, err := b.Authenticate(r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		if err != nil {
			c.Metrics.observe(b.Name(), resultFailure)
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		c.Metrics.observe(b.Name(), resultSuccess)
		return u, nil
	}
	c.Metrics.observe(c.Name(), resultAnonymous)
	return nil, ErrNoCredentials
}

// Challenge calls Challenge on every member which implements Challenger.
func (c *Chain) Challenge(w http.ResponseWriter) {
	for _, b := range c.Backends {
		if challenger, ok := b.(Challenger); ok {
			challenger.Challenge(w)
		}
	}
}
