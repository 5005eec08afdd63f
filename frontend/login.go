package frontend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/core"
	"go.uber.org/zap"
)

var ErrLogin = errors.New("wrong username or password")

var loginTmpl = tmpl(`<h1>Login</h1>
	<form method="post" style="max-width: 20rem; margin: auto;">
		<p>
			<label>User name<br>
			<input type="text" name="name" value="{{ .Name }}" required autofocus></label>
		</p>
		<p>
			<label>Password<br>
			<input type="password" name="password" required></label>
		</p>
		<p>
			<button type="submit" name="login">Login</button>
		</p>
		{{ if .HasOAuth2 }}
			<p><a href="oauth2/login">Login with single sign-on</a></p>
		{{ end }}
	</form>`)

type loginData struct {
	*request
	Name string
}

func login(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if ctx.LoggedIn() {
		ctx.SeeOther("/accounts")
		return nil
	}

	var name string

	if req.Method == http.MethodPost {

		name = req.PostFormValue("name")
		password := req.PostFormValue("password")

		u, err := ctx.f.Session.Login(req.Context(), name, password)
		switch {
		case err == nil:
			ctx.Success("Welcome %s!", u.Name())
			ctx.SeeOther("/accounts")
			return nil
		case errors.Is(err, auth.ErrAuth):
			ctx.f.Logger.Info("login failed", zap.String("user", name))
			ctx.Danger(ErrLogin)
			// keep POST data for name field
		default:
			return err
		}
	}

	return loginTmpl.Execute(w, &loginData{
		request: ctx,
		Name:    name,
	})
}

func logout(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {
	if err := ctx.f.Session.Logout(req.Context()); err != nil {
		return err
	}
	ctx.Success("Goodbye")
	ctx.SeeOther("/login")
	return nil
}

func oauth2Start(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {
	if ctx.f.OAuth2 == nil {
		return core.ErrNotFound
	}
	if err := ctx.f.OAuth2.Start(w, req); err != nil {
		return err
	}
	ctx.statusWritten = true
	return nil
}

func oauth2Callback(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {
	if ctx.f.OAuth2 == nil {
		return core.ErrNotFound
	}
	u, err := ctx.f.OAuth2.Callback(req)
	switch {
	case err == nil:
		ctx.Success("Welcome %s!", u.Name())
		ctx.SeeOther("/accounts")
		return nil
	case errors.Is(err, auth.ErrAuth), errors.Is(err, auth.ErrUnknownUser):
		ctx.f.Logger.Info("oauth2 login failed", zap.Error(err))
		ctx.Danger(errors.New("single sign-on failed"))
		ctx.SeeOther("/login")
		return nil
	default:
		return err
	}
}
