package frontend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

var accountTmpl = tmpl(`<h1>Account &raquo;{{ .Account.Name }}&laquo;</h1>

	<table>
		<tr><th>ID</th><td><code>{{ .Account.ID }}</code></td></tr>
		<tr><th>Client</th><td><a href="accounts?client={{ .Account.ClientID }}">{{ .Account.ClientID }}</a></td></tr>
		<tr><th>Amount</th><td class="amount">{{ .FormatAmount .Account.Amount .Account.Currency }}</td></tr>
		<tr><th>Opened</th><td>{{ .FormatDateTime .Account.CreatedAt }}</td></tr>
		<tr><th>Last change</th><td>{{ .FormatDateTime .Account.UpdatedAt }}</td></tr>
	</table>

	{{ if .CanWrite }}

		{{ if .CanDeposit }}
			<h2>Deposit</h2>
			<form method="post">
				<input type="text" name="amount" placeholder="0.00" required> {{ .Account.Currency }}
				<button type="submit" name="action" value="deposit">Deposit</button>
			</form>
		{{ end }}

		<h2>Withdraw</h2>
		<form method="post">
			<input type="text" name="amount" placeholder="0.00" required> {{ .Account.Currency }}
			<button type="submit" name="action" value="withdraw">Withdraw</button>
		</form>

		<h2>Transfer</h2>
		<form method="post">
			<input type="text" name="to" placeholder="Target account ID" size="36" required>
			<input type="text" name="amount" placeholder="0.00" required> {{ .Account.Currency }}
			<button type="submit" name="action" value="transfer">Transfer</button>
		</form>

		<h2>Rename</h2>
		<form method="post">
			<input type="text" name="name" value="{{ .Account.Name }}" required>
			<button type="submit" name="action" value="rename">Rename</button>
		</form>

		{{ if eq .Account.Amount 0 }}
			<h2>Close</h2>
			<form method="post">
				<button type="submit" name="action" value="close">Close account</button>
			</form>
		{{ end }}

	{{ end }}`)

type accountData struct {
	*request
	Account *core.Account
}

func (data *accountData) CanWrite() bool {
	return data.Viewer.CanWriteClient(data.Account.ClientID)
}

func (data *accountData) CanDeposit() bool {
	return data.Viewer.Can(core.RoleWrite)
}

func account(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	var id = params.ByName("id")

	a, err := ctx.f.DB.Account(req.Context(), ctx.Viewer, id)
	if err != nil {
		return err
	}

	if req.Method == http.MethodPost {
		var message string
		if message, err = accountAction(req, ctx, a); err != nil {
			if !errors.Is(err, core.ErrInvalid) && !errors.Is(err, core.ErrInsufficientFunds) && !errors.Is(err, core.ErrNotFound) {
				return err
			}
			ctx.Danger(err)
		} else {
			ctx.Success("%s", message)
		}
		if req.PostFormValue("action") == "close" && err == nil {
			ctx.SeeOther("/accounts?client=%d", a.ClientID)
		} else {
			ctx.SeeOther("/account/%s", a.ID)
		}
		return nil
	}

	return accountTmpl.Execute(w, &accountData{
		request: ctx,
		Account: a,
	})
}

// accountAction executes the action of a submitted form and returns a success message.
func accountAction(req *http.Request, ctx *request, a *core.Account) (string, error) {

	var db = ctx.f.DB
	var rctx = req.Context()

	switch action := req.PostFormValue("action"); action {
	case "deposit", "withdraw", "transfer":
		amount, err := core.ParseAmount(req.PostFormValue("amount"), a.Currency)
		if err != nil {
			return "", err
		}
		var formatted = ctx.FormatAmount(amount, a.Currency)
		switch action {
		case "deposit":
			_, err = db.Deposit(rctx, ctx.Viewer, a.ID, amount)
			return formatted + " deposited", err
		case "withdraw":
			_, err = db.Withdraw(rctx, ctx.Viewer, a.ID, amount)
			return formatted + " withdrawn", err
		default:
			var to = req.PostFormValue("to")
			return formatted + " transferred to " + to, db.Transfer(rctx, ctx.Viewer, a.ID, to, amount)
		}
	case "rename":
		return "account renamed", db.RenameAccount(rctx, ctx.Viewer, a.ID, req.PostFormValue("name"))
	case "close":
		return "account " + a.Name + " closed", db.CloseAccount(rctx, ctx.Viewer, a.ID)
	default:
		return "", core.ErrInvalid
	}
}
