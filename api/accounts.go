package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

func (a *API) listAccounts(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var clientID int64
	if s := r.URL.Query().Get("client"); s != "" {
		var err error
		clientID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: client id %q", core.ErrInvalid, s)
		}
	}
	return a.DB.Accounts(r.Context(), v, clientID)
}

func (a *API) getAccount(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	return a.DB.Account(r.Context(), v, params.ByName("id"))
}

type openAccountRequest struct {
	ClientID int64  `json:"clientId"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (a *API) openAccount(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var req openAccountRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.ClientID == 0 {
		req.ClientID = v.ClientID
	}
	return a.DB.OpenAccount(r.Context(), v, req.ClientID, req.Name, req.Currency)
}

type renameAccountRequest struct {
	Name string `json:"name"`
}

func (a *API) renameAccount(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var req renameAccountRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	var id = params.ByName("id")
	if err := a.DB.RenameAccount(r.Context(), v, id, req.Name); err != nil {
		return nil, err
	}
	return a.DB.Account(r.Context(), v, id)
}

func (a *API) closeAccount(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	return nil, a.DB.CloseAccount(r.Context(), v, params.ByName("id"))
}

// amountRequest carries an amount in minor units of the account currency.
type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (a *API) deposit(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return a.DB.Deposit(r.Context(), v, params.ByName("id"), req.Amount)
}

func (a *API) withdraw(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return a.DB.Withdraw(r.Context(), v, params.ByName("id"), req.Amount)
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (a *API) transfer(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, a.DB.Transfer(r.Context(), v, req.From, req.To, req.Amount)
}
