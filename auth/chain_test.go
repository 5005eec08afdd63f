package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFirstWithCredentialsDecides(t *testing.T) {
	var store = newTestStore(t)
	var alice = mustUser(t, store, "alice")

	var none = &fakeBackend{name: "none", err: ErrNoCredentials}
	var failing = &fakeBackend{name: "failing", err: ErrAuth}
	var succeeding = &fakeBackend{name: "succeeding", user: alice}

	tests := []struct {
		name     string
		backends []Backend
		wantUser User
		wantErr  error
	}{
		{"skips backends without credentials", []Backend{none, succeeding}, alice, nil},
		{"failure does not fall through", []Backend{none, failing, succeeding}, nil, ErrAuth},
		{"success stops the chain", []Backend{succeeding, failing}, alice, nil},
		{"no backend found credentials", []Backend{none, none}, nil, ErrNoCredentials},
		{"empty chain", nil, nil, ErrNoCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewChain(tt.backends...).Authenticate(httptest.NewRequest("GET", "/", nil))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, u)
		})
	}
}

func TestChainStopsAfterFailure(t *testing.T) {
	var failing = &fakeBackend{name: "failing", err: errors.New("database down")}
	var next = &fakeBackend{name: "next", err: ErrNoCredentials}

	_, err := NewChain(failing, next).Authenticate(httptest.NewRequest("GET", "/", nil))
	assert.EqualError(t, err, "failing: database down")
	assert.Zero(t, next.calls)
}

func TestChainChallenge(t *testing.T) {
	var chain = NewChain(
		&fakeBackend{name: "first"},
		&BasicBackend{Realm: "mvv"},
		&SessionBackend{}, // no Challenger
	)
	var rec = httptest.NewRecorder()
	chain.Challenge(rec)
	assert.Equal(t, []string{"first", `Basic realm="mvv", charset="UTF-8"`}, rec.Header().Values("WWW-Authenticate"))
}

func TestChainMetrics(t *testing.T) {
	var store = newTestStore(t)
	var chain = NewChain(
		&fakeBackend{name: "none", err: ErrNoCredentials},
		&fakeBackend{name: "ok", user: mustUser(t, store, "bob")},
	)
	chain.Metrics = NewMetrics(prometheus.NewRegistry())

	for i := 0; i < 3; i++ {
		_, err := chain.Authenticate(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(chain.Metrics.attempts.WithLabelValues("ok", resultSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(chain.Metrics.attempts.WithLabelValues("none", resultSuccess)))
}
