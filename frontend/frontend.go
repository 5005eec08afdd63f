// Package frontend implements the web interface for bank clients and staff.
package frontend

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/core"
	"go.uber.org/zap"
)

type Frontend struct {
	DB       *core.CoreDB
	Sessions *scs.SessionManager
	Session  *auth.SessionBackend
	OAuth2   *auth.OAuth2Login // optional
	Perms    auth.PermissionProvider[core.Role]
	Logger   *zap.Logger
	Prefix   string // without trailing slash
}

func (f *Frontend) middleware(requireLoggedIn bool, fn func(http.ResponseWriter, *http.Request, *request, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = f.newRequest(w, req)
		defer ctx.Cleanup()

		if requireLoggedIn && !ctx.LoggedIn() {
			ctx.SeeOther("/login")
			return
		}

		if err := fn(w, req, ctx, params); err != nil {
			f.Logger.Debug("frontend", zap.String("path", req.URL.Path), zap.Error(err))
			// probably no template has been executed, so execute error template
			if ctx.statusWritten {
				return
			}
			w.WriteHeader(statusOf(err))
			errorTmpl.Execute(w, struct {
				*request
				Err error
			}{
				request: ctx,
				Err:     err,
			})
		}
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalid), errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var errorTmpl = tmpl(`
	<div class="alert alert-danger" role="alert">
		{{ .Err }}
	</div>`)

// Handler returns the routes of the frontend. Requests must pass the LoadAndSave middleware of the session manager.
func (f *Frontend) Handler() http.Handler {

	var router = httprouter.New()

	var GETAndPOST = func(path string, handle httprouter.Handle) {
		router.GET(path, handle)
		router.POST(path, handle)
	}

	// public
	router.GET("/", f.middleware(false, root))
	GETAndPOST("/login", f.middleware(false, login))
	router.GET("/oauth2/login", f.middleware(false, oauth2Start))
	router.GET("/oauth2/callback", f.middleware(false, oauth2Callback))

	// private
	GETAndPOST("/accounts", f.middleware(true, accounts))
	GETAndPOST("/account/:id", f.middleware(true, account))
	router.GET("/clients", f.middleware(true, clients))
	router.GET("/logout", f.middleware(true, logout))
	GETAndPOST("/password", f.middleware(true, password))

	// admin
	GETAndPOST("/users", f.middleware(true, users))
	GETAndPOST("/user/:id", f.middleware(true, user))
	GETAndPOST("/groups", f.middleware(true, groups))
	GETAndPOST("/group/:id", f.middleware(true, group))

	return router
}

func root(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {
	if ctx.LoggedIn() {
		ctx.SeeOther("/accounts")
	} else {
		ctx.SeeOther("/login")
	}
	return nil
}

func tmpl(text string) *template.Template {
	t := template.Must(baseTmpl.Clone())
	t = template.Must(t.Parse(`{{ define "content" }}` + text + `{{ end }}`))
	return t
}

var baseTmpl = template.Must(template.New("frontend").Parse(`
<!DOCTYPE html>
<html>
	<head>
		<base href="{{ .Prefix }}">
		<meta charset="utf-8">
		<meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">
		<title>MVV Bank</title>

		<style>

			body {
				font-family: sans-serif;
				margin: 0;
				padding-bottom: 1rem;
			}

			nav {
				background-color: #f4f5f6;
				padding: 0.5rem 1rem;
			}

			nav a {
				margin-right: 1rem;
			}

			h1 {
				font-size: 1.5rem;
				margin: 1rem 0 0.7rem;
			}

			h2 {
				font-size: 1.3rem;
				margin: 1.2rem 0 0.5rem;
			}

			table {
				border-collapse: collapse;
				margin-top: 0.5rem;
			}

			td, th {
				border-bottom: 1px solid #dee2e6;
				padding: 0.3rem 0.6rem;
				text-align: left;
			}

			.amount {
				text-align: right;
				white-space: nowrap;
			}

			.alert {
				border-radius: .2rem;
				padding: .5rem .8rem;
			}

			.alert-danger {
				background-color: #f8d7da;
			}

			.alert-success {
				background-color: #d4edda;
			}

			.container {
				margin: auto;
				max-width: 60rem;
				padding: 0 1rem;
			}

		</style>
	</head>
	<body>

		{{ if .LoggedIn }}
			<nav>
				<a href="accounts">Accounts</a>
				{{ if .CanSearchClients }}
					<a href="clients">Clients</a>
				{{ end }}
				{{ if .CanAdmin }}
					<a href="users">Users</a>
					<a href="groups">Groups</a>
				{{ end }}
				<a href="password">{{ .User.Name }}</a>
				<a href="logout">Logout</a>
			</nav>
		{{ end }}

		<div class="container">
			{{ .RenderNotifications }}
			{{ template "content" . }}
		</div>
	</body>
</html>`))
