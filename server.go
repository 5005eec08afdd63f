package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wansing/mvv/api"
	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/config"
	"github.com/wansing/mvv/core"
	"github.com/wansing/mvv/frontend"
	"github.com/wansing/mvv/sqldb"
	"github.com/wansing/mvv/sqldb/mysql"
	"github.com/wansing/mvv/sqldb/sqlite3"
	"github.com/wansing/mvv/util"
	"github.com/xo/dburl"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// coreModule provides the database and permissions. It is used by the server and by the init command.
var coreModule = fx.Module("core",
	fx.Provide(
		NewLogger,
		NewDatabase,
		NewCoreDB,
		NewCertStore,
		NewPermissionCache,
		NewPermissionProvider,
	),
)

var serverModule = fx.Module("server",
	fx.Provide(
		NewUserStore,
		NewSessions,
		NewSessionBackend,
		NewMetrics,
		NewAuthBackend,
		NewOAuth2Login,
		NewAPI,
		NewFrontend,
		NewHandler,
		NewHTTPServer,
	),
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Database is an open and migrated sql database.
type Database struct {
	*sql.DB
	Driver string
}

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*Database, error) {

	dbURL, err := dburl.Parse(cfg.Server.DB)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		return nil, fmt.Errorf("could not open sql database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("could not ping sql database: %w", err)
	}

	if err := sqldb.Migrate(ctx, sqlDB, dbURL.Driver); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info("using database", zap.String("driver", dbURL.Driver), zap.String("url", dbURL.Redacted()))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing database")
			return sqlDB.Close()
		},
	})

	return &Database{
		DB:     sqlDB,
		Driver: dbURL.Driver,
	}, nil
}

func NewCoreDB(db *Database, log *zap.Logger) *core.CoreDB {
	return &core.CoreDB{
		AccountDB: sqldb.NewAccountDB(db.DB),
		ClientDB:  sqldb.NewClientDB(db.DB),
		GroupDB:   sqldb.NewGroupDB(db.DB),
		UserDB:    sqldb.NewUserDB(db.DB),
		Logger:    log,
	}
}

// NewCertStore returns the technical users which authenticate with a client certificate.
func NewCertStore(cfg *config.Config) (*auth.MemoryStore[core.Role], error) {
	var store = auth.NewMemoryStore[core.Role]()
	for name, roles := range cfg.CertUsers {
		if _, err := store.AddUser(config.CertUserPrefix+name, "", roles.Effective().Flags()...); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewPermissionCache returns nil if caching is disabled.
func NewPermissionCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (auth.Cache[[]core.Role], error) {
	switch cfg.Cache.Backend {
	case "memory":
		cache, err := auth.NewMemoryCache[[]core.Role](cfg.Cache.MaxEntries, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(cache.Close))
		return cache, nil
	case "redis":
		var client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("could not ping redis: %w", err)
				}
				log.Info("caching permissions in redis", zap.String("addr", cfg.Redis.Addr))
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		return auth.NewRedisCache[[]core.Role](client, cfg.Redis.Prefix, cfg.Cache.TTL), nil
	default:
		return nil, nil
	}
}

// NewPermissionProvider asks the database first, then the certificate users.
// If cache is not nil, database permissions are cached and the CoreDB invalidates them on changes.
func NewPermissionProvider(db *core.CoreDB, cache auth.Cache[[]core.Role], certStore *auth.MemoryStore[core.Role], log *zap.Logger) auth.PermissionProvider[core.Role] {
	var provider auth.PermissionProvider[core.Role] = db
	if cache != nil {
		var cached = &auth.CachedProvider[core.Role]{
			Provider: db,
			Cache:    cache,
			NewSet: func(roles ...core.Role) auth.PermissionSet[core.Role] {
				return auth.NewBitSet(roles...)
			},
			Logger: log,
		}
		db.PermissionCache = cached
		provider = cached
	}
	return auth.Providers[core.Role]{provider, certStore}
}

func NewUserStore(db *core.CoreDB, certStore *auth.MemoryStore[core.Role]) auth.UserStore {
	return auth.UserStores{db.AuthStore(), certStore}
}

func NewSessions(lc fx.Lifecycle, cfg *config.Config, db *Database) (*scs.SessionManager, error) {

	var sessions = scs.New()
	sessions.Lifetime = cfg.Session.Lifetime
	sessions.Cookie.Name = "mvv_session"
	sessions.Cookie.Path = cfg.Server.Prefix + "/"
	sessions.Cookie.Secure = cfg.Session.Secure || cfg.TLS.Enabled()

	switch db.Driver {
	case "mysql":
		var store = mysql.NewSessionStore(db.DB, cfg.Session.Cleanup)
		lc.Append(fx.StopHook(store.StopCleanup))
		sessions.Store = store
	case "sqlite3":
		var store = sqlite3.NewSessionStore(db.DB, cfg.Session.Cleanup)
		lc.Append(fx.StopHook(store.StopCleanup))
		sessions.Store = store
	default:
		return nil, fmt.Errorf("unknown database backend: %s", db.Driver)
	}

	return sessions, nil
}

func NewMetrics() (*prometheus.Registry, *auth.Metrics) {
	var reg = prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, auth.NewMetrics(reg)
}

func NewSessionBackend(sessions *scs.SessionManager, store auth.UserStore) *auth.SessionBackend {
	return &auth.SessionBackend{
		Sessions: sessions,
		Store:    store,
	}
}

// NewAuthBackend chains Basic, Bearer (if a JWT secret is configured), client certificates (if a client CA is configured) and the login session.
func NewAuthBackend(cfg *config.Config, store auth.UserStore, session *auth.SessionBackend, metrics *auth.Metrics) auth.Backend {

	const realm = "mvv"

	var backends = []auth.Backend{
		&auth.BasicBackend{
			Store: store,
			Realm: realm,
		},
	}
	if cfg.JWT.Secret != "" {
		backends = append(backends, &auth.BearerBackend{
			Store:     store,
			Key:       []byte(cfg.JWT.Secret),
			Issuer:    cfg.JWT.Issuer,
			Audience:  cfg.JWT.Audience,
			NameClaim: cfg.JWT.NameClaim,
			Realm:     realm,
		})
	}
	if cfg.TLS.ClientCA != "" {
		backends = append(backends, &auth.ClientCertBackend{
			Store:  store,
			Prefix: config.CertUserPrefix,
		})
	}
	backends = append(backends, session)

	var chain = auth.NewChain(backends...)
	chain.Metrics = metrics
	return chain
}

// NewOAuth2Login returns nil if OAuth2 is not configured.
func NewOAuth2Login(cfg *config.Config, session *auth.SessionBackend, db *core.CoreDB) *auth.OAuth2Login {
	if !cfg.OAuth2.Enabled() {
		return nil
	}
	return &auth.OAuth2Login{
		Config: &oauth2.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuth2.AuthURL,
				TokenURL: cfg.OAuth2.TokenURL,
			},
			RedirectURL: cfg.OAuth2.RedirectURL,
			Scopes:      cfg.OAuth2.Scopes,
		},
		UserInfoURL: cfg.OAuth2.UserInfoURL,
		Session:     session,
		LookupUser:  db.LookupEmail,
	}
}

func NewAPI(db *core.CoreDB, backend auth.Backend, perms auth.PermissionProvider[core.Role], log *zap.Logger) *api.API {
	return &api.API{
		DB:      db,
		Backend: backend,
		Perms:   perms,
		Logger:  log.Named("api"),
	}
}

func NewFrontend(cfg *config.Config, db *core.CoreDB, sessions *scs.SessionManager, session *auth.SessionBackend, oauth2Login *auth.OAuth2Login, perms auth.PermissionProvider[core.Role], log *zap.Logger) *frontend.Frontend {
	return &frontend.Frontend{
		DB:       db,
		Sessions: sessions,
		Session:  session,
		OAuth2:   oauth2Login,
		Perms:    perms,
		Logger:   log.Named("frontend"),
		Prefix:   cfg.Server.Prefix,
	}
}

// NewHandler combines the api, the frontend, metrics and the health check below the configured prefix.
func NewHandler(cfg *config.Config, a *api.API, f *frontend.Frontend, db *Database, reg *prometheus.Registry, sessions *scs.SessionManager, log *zap.Logger) http.Handler {

	var mux = http.NewServeMux()
	mux.Handle("/api/", a.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			log.Warn("health check failed", zap.Error(err))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", f.Handler())

	var root = http.NewServeMux()
	util.HandlePrefix(root, cfg.Server.Prefix, mux)

	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		util.LogRequests(log.Named("http")),
		middleware.Recoverer,
		sessions.LoadAndSave,
	).Handler(root)
}

// NewHTTPServer builds an HTTP server that will begin serving requests when the application starts.
// If the server fails, the application is shut down.
func NewHTTPServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, handler http.Handler, log *zap.Logger) (*http.Server, error) {

	var srv = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     zap.NewStdLog(log.Named("http")),
	}

	if cfg.TLS.Enabled() {
		tlsConfig, err := newTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		srv.TLSConfig = tlsConfig
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.TLS.Enabled()), zap.String("prefix", cfg.Server.Prefix))
			go func() {
				var err error
				if cfg.TLS.Enabled() {
					err = srv.ServeTLS(ln, cfg.TLS.Cert, cfg.TLS.Key)
				} else {
					err = srv.Serve(ln)
				}
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error("error serving", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down")
			return srv.Shutdown(ctx)
		},
	})

	return srv, nil
}

// newTLSConfig verifies client certificates if a client CA is given. Requests without a certificate are still accepted.
func newTLSConfig(c config.TLS) (*tls.Config, error) {

	var tlsConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if c.ClientCA != "" {
		pem, err := os.ReadFile(c.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("reading client ca: %w", err)
		}
		var pool = x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.ClientCA)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	return tlsConfig, nil
}
