package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/mvv/core"
)

const testIni = `
[server]
listen = 0.0.0.0:9000
prefix = bank/

[session]
lifetime = 2h
secure = true

[cache]
backend = redis
ttl = 30s

[redis]
addr = localhost:6379
db = 2

[jwt]
secret = s3cret
issuer = https://sso.example.com

[oauth2]
clientid = mvv
secret = abc
authurl = https://sso.example.com/auth
tokenurl = https://sso.example.com/token
userinfourl = https://sso.example.com/userinfo
redirecturl = https://bank.example.com/oauth2/callback
scopes = openid, email, profile

[certusers]
batch = read, write
monitor = read
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testIni))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", c.Server.Listen)
	assert.Equal(t, DefaultDB, c.Server.DB)
	assert.Equal(t, 2*time.Hour, c.Session.Lifetime)
	assert.Equal(t, 5*time.Minute, c.Session.Cleanup)
	assert.True(t, c.Session.Secure)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, "mvv:perms:", c.Redis.Prefix)
	assert.Equal(t, "preferred_username", c.JWT.NameClaim)
	assert.True(t, c.OAuth2.Enabled())
	assert.Equal(t, []string{"openid", "email", "profile"}, c.OAuth2.Scopes)
	assert.False(t, c.TLS.Enabled())
	assert.Equal(t, map[string]core.Role{
		"batch":   core.RoleRead | core.RoleWrite,
		"monitor": core.RoleRead,
	}, c.CertUsers)
}

func TestParseInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"cache backend": "[cache]\nbackend = memcached",
		"redis addr":    "[cache]\nbackend = redis",
		"tls key":       "[tls]\ncert = cert.pem",
		"client ca":     "[tls]\nclientca = ca.pem",
		"oauth2 urls":   "[oauth2]\nclientid = mvv",
		"cert role":     "[certusers]\nbatch = root",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestFlags(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "mvv.ini")
	require.NoError(t, os.WriteFile(path, []byte(testIni), 0600))

	var fl Flags
	var fs = flag.NewFlagSet("mvv", flag.ContinueOnError)
	fl.Register(fs)
	fl.RegisterServer(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-listen", "127.0.0.1:8081", "-debug"}))

	c, err := fl.Config(fs)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", c.Server.Listen) // flag wins
	assert.Equal(t, "/bank", c.Server.Prefix)          // from file, normalized
	assert.Equal(t, DefaultDB, c.Server.DB)            // flag default doesn't override
	assert.True(t, c.Server.Debug)
	assert.Equal(t, "redis", c.Cache.Backend)
}

func TestFlagsWithoutFile(t *testing.T) {
	var fl Flags
	var fs = flag.NewFlagSet("init", flag.ContinueOnError)
	fl.Register(fs)
	require.NoError(t, fs.Parse([]string{"-db", "sqlite3:other.sqlite3"}))

	c, err := fl.Config(fs)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3:other.sqlite3", c.Server.DB)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Empty(t, c.Server.Prefix)
}
