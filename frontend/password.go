package frontend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

var passwordTmpl = tmpl(`<h1>User &raquo;{{ .User.Name }}&laquo;</h1>

	<p>Roles: {{ .Viewer.Roles }}</p>

	<h2>Change Password</h2>

	<form method="post">
		<p>
			<label>Current password<br>
			<input type="password" name="old" required></label>
		</p>
		<p>
			<label>New password<br>
			<input type="password" name="new1" required></label>
		</p>
		<p>
			<label>Repeat new password<br>
			<input type="password" name="new2" required></label>
		</p>
		<button type="submit">Change password</button>
	</form>`)

func password(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if req.Method == http.MethodPost {

		dbUser, ok := ctx.User.(core.DBUser)
		if !ok {
			return errors.New("the password of this user can't be changed")
		}

		var new1 = req.PostFormValue("new1")
		var new2 = req.PostFormValue("new2")

		if new1 != new2 {
			ctx.Danger(errors.New("new passwords don't match"))
			ctx.SeeOther("/password")
			return nil
		}

		switch err := ctx.f.DB.ChangePassword(req.Context(), dbUser, req.PostFormValue("old"), new1); {
		case errors.Is(err, core.ErrAuth):
			ctx.Danger(errors.New("current password is wrong"))
			ctx.SeeOther("/password")
			return nil
		case errors.Is(err, core.ErrEmptyPassword):
			ctx.Danger(err)
			ctx.SeeOther("/password")
			return nil
		case err != nil:
			return err
		}

		// the session hash has changed, so the session must be updated
		updated, err := ctx.f.DB.GetUser(req.Context(), dbUser.ID())
		if err != nil {
			return err
		}
		if err := ctx.f.Session.LoginUser(req.Context(), updated); err != nil {
			return err
		}

		ctx.Success("your password has been changed")
		ctx.SeeOther("/password")
		return nil
	}

	return passwordTmpl.Execute(w, ctx)
}
