package frontend

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

var groupsTmpl = tmpl(`<h1>Groups</h1>

	<ul>
		{{ range .Groups }}
			<li><a href="group/{{ .ID }}">{{ .Name }}</a> ({{ .Roles }})</li>
		{{ else }}
			<li>No groups.</li>
		{{ end }}
	</ul>

	<h2>Create Group</h2>

	<form method="post">
		<input type="text" name="name" placeholder="Group name" required>
		<button type="submit">Create group</button>
	</form>`)

type groupsData struct {
	*request
	Groups []core.DBGroup
}

func groups(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if !ctx.CanAdmin() {
		return core.ErrForbidden
	}

	if req.Method == http.MethodPost {
		created, err := ctx.f.DB.InsertGroup(req.Context(), req.PostFormValue("name"))
		if err != nil {
			ctx.Danger(err)
			ctx.SeeOther("/groups")
			return nil
		}
		ctx.Success("group %s has been created", created.Name())
		ctx.SeeOther("/group/%d", created.ID())
		return nil
	}

	all, err := ctx.f.DB.GetAllGroups(req.Context(), 10000, 0) // assuming there are not more than 10k groups
	if err != nil {
		return err
	}

	return groupsTmpl.Execute(w, &groupsData{
		request: ctx,
		Groups:  all,
	})
}

var groupTmpl = tmpl(`<h1>Group &raquo;{{ .Selected.Name }}&laquo;</h1>

	<h2>Roles</h2>

	<form method="post">
		<input type="hidden" name="action" value="roles">
		{{ range .AllRoles }}
			<label><input type="checkbox" name="role" value="{{ . }}"{{ if $.HasRole . }} checked{{ end }}> {{ . }}</label>
		{{ end }}
		<button type="submit">Save roles</button>
	</form>

	<h2>Members</h2>

	<ul>
		{{ range .Members }}
			<li>
				<form method="post">
					<a href="user/{{ .ID }}">{{ .Name }}</a>
					<input type="hidden" name="action" value="leave">
					<input type="hidden" name="user" value="{{ .ID }}">
					<button type="submit">Remove</button>
				</form>
			</li>
		{{ else }}
			<li>No members.</li>
		{{ end }}
	</ul>

	<h2>Add Member</h2>

	<form method="post">
		<input type="hidden" name="action" value="join">
		<input type="text" name="name" placeholder="User name" required>
		<button type="submit">Add user to group</button>
	</form>

	<h2>Delete Group</h2>

	<form method="post">
		<input type="hidden" name="action" value="delete">
		<button type="submit">Delete group {{ .Selected.Name }}</button>
	</form>`)

type groupData struct {
	*request
	Selected core.DBGroup
	Members  []core.DBUser
}

func (data *groupData) AllRoles() []core.Role {
	return core.AllRoles.Flags()
}

func (data *groupData) HasRole(r core.Role) bool {
	return data.Selected.Roles()&r != 0
}

func group(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	if !ctx.CanAdmin() {
		return core.ErrForbidden
	}

	selectedID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return core.ErrNotFound
	}

	selected, err := ctx.f.DB.GetGroup(req.Context(), selectedID)
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
			if err := ctx.f.DB.SetGroupRoles(req.Context(), ctx.Viewer, selected, roles); err != nil {
				return err
			}
			ctx.Success("roles of group %s have been set to %s", selected.Name(), roles)
		case "join":
			member, err := ctx.f.DB.GetUserByName(req.Context(), req.PostFormValue("name"))
			if err != nil {
				ctx.Danger(fmt.Errorf("user %s: %w", req.PostFormValue("name"), err))
				break
			}
			if err := ctx.f.DB.Join(req.Context(), ctx.Viewer, selected, member); err != nil {
				return err
			}
			ctx.Success("user %s has been added to group %s", member.Name(), selected.Name())
		case "leave":
			memberID, err := strconv.ParseInt(req.PostFormValue("user"), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: user id", core.ErrInvalid)
			}
			member, err := ctx.f.DB.GetUser(req.Context(), memberID)
			if err != nil {
				return err
			}
			if err := ctx.f.DB.Leave(req.Context(), ctx.Viewer, selected, member); err != nil {
				return err
			}
			ctx.Success("user %s has been removed from group %s", member.Name(), selected.Name())
		case "delete":
			if err := ctx.f.DB.DeleteGroup(req.Context(), ctx.Viewer, selected); err != nil {
				return err
			}
			ctx.Success("group %s has been deleted", selected.Name())
			ctx.SeeOther("/groups")
			return nil
		default:
			return fmt.Errorf("%w: unknown action", core.ErrInvalid)
		}

		ctx.SeeOther("/group/%d", selected.ID())
		return nil
	}

	members, err := ctx.f.DB.GetMembers(req.Context(), selected)
	if err != nil {
		return err
	}

	return groupTmpl.Execute(w, &groupData{
		request:  ctx,
		Selected: selected,
		Members:  members,
	})
}
