package frontend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

var accountsTmpl = tmpl(`<h1>Accounts{{ with .Client }} of {{ .FullName }} ({{ .Email }}{{ .Phone }}){{ end }}</h1>

	{{ if .ClientID }}
		{{ with .Accounts }}
			<table>
				<tr>
					<th>Name</th>
					<th>ID</th>
					<th class="amount">Amount</th>
				</tr>
				{{ range . }}
					<tr>
						<td><a href="account/{{ .ID }}">{{ .Name }}</a></td>
						<td><code>{{ .ID }}</code></td>
						<td class="amount">{{ $.FormatAmount .Amount .Currency }}</td>
					</tr>
				{{ end }}
			</table>
		{{ else }}
			<p>There are no accounts yet.</p>
		{{ end }}

		{{ if .CanOpen }}
			<h2>Open account</h2>
			<form method="post">
				<input type="text" name="name" placeholder="Name" required>
				<input type="text" name="currency" value="EUR" size="4" required>
				<button type="submit">Open account</button>
			</form>
		{{ end }}
	{{ else }}
		<p>You are not a client of the bank.{{ if .CanSearchClients }} <a href="clients">Search clients</a>{{ end }}</p>
	{{ end }}`)

type accountsData struct {
	*request
	ClientID int64
	Client   *core.ClientInfo
	Accounts []*core.Account
}

func (data *accountsData) CanOpen() bool {
	return data.Viewer.CanWriteClient(data.ClientID) && data.Client != nil && data.Client.Active
}

func accounts(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	var clientID = ctx.Viewer.ClientID
	if s := req.URL.Query().Get("client"); s != "" {
		var err error
		clientID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: client id %q", core.ErrInvalid, s)
		}
	}

	if req.Method == http.MethodPost {
		a, err := ctx.f.DB.OpenAccount(req.Context(), ctx.Viewer, clientID, req.PostFormValue("name"), req.PostFormValue("currency"))
		if err != nil {
			if !errors.Is(err, core.ErrInvalid) {
				return err
			}
			ctx.Danger(err)
		} else {
			ctx.Success("account %s has been opened", a.Name)
		}
		if clientID == ctx.Viewer.ClientID {
			ctx.SeeOther("/accounts")
		} else {
			ctx.SeeOther("/accounts?client=%d", clientID)
		}
		return nil
	}

	var data = &accountsData{
		request:  ctx,
		ClientID: clientID,
	}

	if clientID != 0 {
		var err error
		data.Client, err = ctx.f.DB.Client(req.Context(), ctx.Viewer, clientID)
		if err != nil {
			return err
		}
		data.Accounts, err = ctx.f.DB.Accounts(req.Context(), ctx.Viewer, clientID)
		if err != nil {
			return err
		}
	}

	return accountsTmpl.Execute(w, data)
}
