package frontend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

var usersTmpl = tmpl(`<h1>Users</h1>

	<table>
		<tr>
			<th>Name</th>
			<th>Email</th>
			<th>Client</th>
			<th>Roles</th>
		</tr>
		{{ range .Users }}
			<tr>
				<td><a href="user/{{ .ID }}">{{ .Name }}</a></td>
				<td>{{ .Email }}</td>
				<td>{{ with .ClientID }}<a href="accounts?client={{ . }}">{{ . }}</a>{{ end }}</td>
				<td>{{ .Roles }}</td>
			</tr>
		{{ end }}
	</table>

	<h2>Create User</h2>

	<form method="post">
		<input type="text" name="name" placeholder="User name" required>
		<input type="email" name="email" placeholder="Email address">
		<input type="number" name="client" placeholder="Client ID">
		<input type="password" name="password" placeholder="Password">
		<button type="submit">Create user</button>
	</form>`)

type usersData struct {
	*request
	Users []core.DBUser
}

func users(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if !ctx.CanAdmin() {
		return core.ErrForbidden
	}

	if req.Method == http.MethodPost {

		var clientID int64
		if s := strings.TrimSpace(req.PostFormValue("client")); s != "" {
			var err error
			clientID, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: client id", core.ErrInvalid)
			}
		}

		created, err := ctx.f.DB.InsertUser(req.Context(), req.PostFormValue("name"), req.PostFormValue("email"), clientID)
		if err != nil {
			ctx.Danger(err)
			ctx.SeeOther("/users")
			return nil
		}

		if password := req.PostFormValue("password"); password != "" {
			if err := ctx.f.DB.SetPassword(req.Context(), ctx.Viewer, created, password); err != nil {
				return err
			}
		}

		ctx.Success("user %s has been created", created.Name())
		ctx.SeeOther("/user/%d", created.ID())
		return nil
	}

	all, err := ctx.f.DB.GetAllUsers(req.Context(), 100000, 0) // assuming there are not more than 100k users
	if err != nil {
		return err
	}

	return usersTmpl.Execute(w, &usersData{
		request: ctx,
		Users:   all,
	})
}

var userTmpl = tmpl(`<h1>User &raquo;{{ .Selected.Name }}&laquo;</h1>

	<p>
		Email: {{ .Selected.Email }}<br>
		Client: {{ with .Selected.ClientID }}<a href="accounts?client={{ . }}">{{ . }}</a>{{ else }}none{{ end }}
	</p>

	<h2>Roles</h2>

	<form method="post">
		<input type="hidden" name="action" value="roles">
		{{ range .AllRoles }}
			<label><input type="checkbox" name="role" value="{{ . }}"{{ if $.HasRole . }} checked{{ end }}> {{ . }}</label>
		{{ end }}
		<button type="submit">Save roles</button>
	</form>

	<h2>Groups</h2>

	<ul>
		{{ range .Groups }}
			<li><a href="group/{{ .ID }}">{{ .Name }}</a> ({{ .Roles }})</li>
		{{ else }}
			<li>No groups.</li>
		{{ end }}
	</ul>

	<h2>Set Password</h2>

	<form method="post">
		<input type="hidden" name="action" value="password">
		<input type="password" name="new1" placeholder="New password" required>
		<input type="password" name="new2" placeholder="Repeat new password" required>
		<button type="submit">Set password</button>
	</form>

	<h2>Delete User</h2>

	<form method="post">
		<input type="hidden" name="action" value="delete">
		<button type="submit">Delete user {{ .Selected.Name }}</button>
	</form>`)

type userData struct {
	*request
	Selected core.DBUser
	Groups   []core.DBGroup
}

func (data *userData) AllRoles() []core.Role {
	return core.AllRoles.Flags()
}

func (data *userData) HasRole(r core.Role) bool {
	return data.Selected.Roles()&r != 0
}

// parseRoles parses the checkboxes named "role".
func parseRoles(req *http.Request) (core.Role, error) {
	return core.ParseRole(strings.Join(req.PostForm["role"], ","))
}

func user(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if !ctx.CanAdmin() {
		return core.ErrForbidden
	}

	selectedID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return core.ErrNotFound
	}

	selected, err := ctx.f.DB.GetUser(req.Context(), selectedID)
	if err != nil {
		return err
	}

	if req.Method == http.MethodPost {

		switch req.PostFormValue("action") {
		case "roles":
			roles, err := parseRoles(req)
			if err != nil {
				return err
			}
			if err := ctx.f.DB.SetRoles(req.Context(), ctx.Viewer, selected, roles); err != nil {
				return err
			}
			ctx.Success("roles of %s have been set to %s", selected.Name(), roles)
		case "password":
			var new1 = req.PostFormValue("new1")
			if new1 != req.PostFormValue("new2") {
				ctx.Danger(fmt.Errorf("new passwords don't match"))
				break
			}
			switch err := ctx.f.DB.SetPassword(req.Context(), ctx.Viewer, selected, new1); {
			case errors.Is(err, core.ErrEmptyPassword):
				ctx.Danger(err)
				ctx.SeeOther("/user/%d", selected.ID())
				return nil
			case err != nil:
				return err
			}
			ctx.Success("password of %s has been changed", selected.Name())
		case "delete":
			if selected.ID() == ctx.User.ID() {
				ctx.Danger(fmt.Errorf("you can't delete yourself"))
				break
			}
			if err := ctx.f.DB.DeleteUser(req.Context(), ctx.Viewer, selected); err != nil {
				return err
			}
			ctx.Success("user %s has been deleted", selected.Name())
			ctx.SeeOther("/users")
			return nil
		default:
			return fmt.Errorf("%w: unknown action", core.ErrInvalid)
		}

		ctx.SeeOther("/user/%d", selected.ID())
		return nil
	}

	groups, err := ctx.f.DB.GetGroupsOf(req.Context(), selected)
	if err != nil {
		return err
	}

	return userTmpl.Execute(w, &userData{
		request:  ctx,
		Selected: selected,
		Groups:   groups,
	})
}
