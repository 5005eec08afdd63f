// Package config reads the mvv configuration from an ini file and command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/wansing/mvv/core"
	"gopkg.in/ini.v1"
)

// CertUserPrefix is prepended to the common name of client certificates.
const CertUserPrefix = core.CertUserPrefix

type Config struct {
	Server    Server               `ini:"server"`
	TLS       TLS                  `ini:"tls"`
	Session   Session              `ini:"session"`
	Cache     Cache                `ini:"cache"`
	Redis     Redis                `ini:"redis"`
	JWT       JWT                  `ini:"jwt"`
	OAuth2    OAuth2               `ini:"oauth2"`
	CertUsers map[string]core.Role `ini:"-"` // without CertUserPrefix
}

type Server struct {
	Listen string `ini:"listen"`
	Prefix string `ini:"prefix"`
	DB     string `ini:"db"`
	Debug  bool   `ini:"debug"`
}

type TLS struct {
	Cert     string `ini:"cert"`
	Key      string `ini:"key"`
	ClientCA string `ini:"clientca"`
}

func (t TLS) Enabled() bool {
	return t.Cert != ""
}

type Session struct {
	Lifetime time.Duration `ini:"lifetime"`
	Cleanup  time.Duration `ini:"cleanup"`
	Secure   bool          `ini:"secure"`
}

type Cache struct {
	Backend    string        `ini:"backend"` // memory, redis or none
	TTL        time.Duration `ini:"ttl"`
	MaxEntries int64         `ini:"maxentries"`
}

type Redis struct {
	Addr     string `ini:"addr"`
	Password string `ini:"password"`
	DB       int    `ini:"db"`
	Prefix   string `ini:"prefix"`
}

type JWT struct {
	Secret    string `ini:"secret"`
	Issuer    string `ini:"issuer"`
	Audience  string `ini:"audience"`
	NameClaim string `ini:"nameclaim"`
}

type OAuth2 struct {
	ClientID     string   `ini:"clientid"`
	ClientSecret string   `ini:"secret"`
	AuthURL      string   `ini:"authurl"`
	TokenURL     string   `ini:"tokenurl"`
	UserInfoURL  string   `ini:"userinfourl"`
	RedirectURL  string   `ini:"redirecturl"`
	Scopes       []string `ini:"scopes" delim:","`
}

func (o OAuth2) Enabled() bool {
	return o.ClientID != ""
}

// MySQL: collation should be utf8mb4_unicode_ci
const DefaultDB = "sqlite3:mvv.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&_foreign_keys=1&_txlock=immediate"

func Default() *Config {
	return &Config{
		Server: Server{
			Listen: "127.0.0.1:8080",
			DB:     DefaultDB,
		},
		Session: Session{
			Lifetime: 24 * time.Hour,
			Cleanup:  5 * time.Minute,
		},
		Cache: Cache{
			Backend:    "memory",
			TTL:        time.Minute,
			MaxEntries: 10000,
		},
		Redis: Redis{
			Prefix: "mvv:perms:",
		},
		JWT: JWT{
			NameClaim: "preferred_username",
		},
		OAuth2: OAuth2{
			Scopes: []string{"openid", "email"},
		},
		CertUsers: map[string]core.Role{},
	}
}

// Parse reads ini data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	return load(data)
}

// LoadFile reads an ini file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(source interface{}) (*Config, error) {

	file, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var c = Default()
	if err := file.MapTo(c); err != nil {
		return nil, fmt.Errorf("mapping config: %w", err)
	}

	for name, roles := range file.Section("certusers").KeysHash() {
		role, err := core.ParseRole(roles)
		if err != nil {
			return nil, fmt.Errorf("certificate user %s: %w", name, err)
		}
		c.CertUsers[name] = role
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {

	var errs []error

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.MaxEntries < 1 {
			errs = append(errs, errors.New("cache: maxentries must be positive"))
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis: addr is required for the redis cache"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("cache: unknown backend %q", c.Cache.Backend))
	}

	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		errs = append(errs, errors.New("tls: cert and key must be given together"))
	}
	if c.TLS.ClientCA != "" && !c.TLS.Enabled() {
		errs = append(errs, errors.New("tls: clientca requires cert and key"))
	}

	if c.OAuth2.Enabled() {
		if c.OAuth2.AuthURL == "" || c.OAuth2.TokenURL == "" || c.OAuth2.UserInfoURL == "" || c.OAuth2.RedirectURL == "" {
			errs = append(errs, errors.New("oauth2: authurl, tokenurl, userinfourl and redirecturl are required"))
		}
	}

	if c.JWT.Secret != "" && c.JWT.NameClaim == "" {
		errs = append(errs, errors.New("jwt: nameclaim must not be empty"))
	}

	return errors.Join(errs...)
}

// Flags holds the values of command line flags which override the config file.
type Flags struct {
	config string
	db     string
	debug  bool
	listen string
	prefix string
}

// Register adds the flags -config, -db and -debug to fs.
func (fl *Flags) Register(fs *flag.FlagSet) {
	var def = Default()
	fs.StringVar(&fl.config, "config", "", "read configuration from this ini `file`")
	fs.StringVar(&fl.db, "db", def.Server.DB, "sql database url, see github.com/xo/dburl")
	fs.BoolVar(&fl.debug, "debug", false, "log in development mode")
}

// RegisterServer adds the flags -listen and -prefix to fs.
func (fl *Flags) RegisterServer(fs *flag.FlagSet) {
	var def = Default()
	fs.StringVar(&fl.listen, "listen", def.Server.Listen, "serve HTTP content at this `ip:port`")
	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	fs.StringVar(&fl.prefix, "prefix", "", "strip off this `prefix` from every HTTP request and prepend it to every link")
}

// Config loads the config file, if given, and applies the flags which have been set explicitly. fs must have been parsed.
func (fl *Flags) Config(fs *flag.FlagSet) (*Config, error) {

	var c = Default()
	if fl.config != "" {
		var err error
		c, err = LoadFile(fl.config)
		if err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			c.Server.DB = fl.db
		case "debug":
			c.Server.Debug = fl.debug
		case "listen":
			c.Server.Listen = fl.listen
		case "prefix":
			c.Server.Prefix = fl.prefix
		}
	})

	c.Server.Prefix = strings.Trim(c.Server.Prefix, "/")
	if c.Server.Prefix != "" {
		c.Server.Prefix = "/" + c.Server.Prefix
	}

	return c, nil
}
