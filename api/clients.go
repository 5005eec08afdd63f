package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
)

func clientID(params httprouter.Params) (int64, error) {
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: client id %q", core.ErrNotFound, params.ByName("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	var s = r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", core.ErrInvalid, key, s)
	}
	return i, nil
}

func (a *API) searchClients(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {

	var query = r.URL.Query()
	var filter = core.ClientFilter{
		Email: query.Get("email"),
		Phone: query.Get("phone"),
		Name:  query.Get("name"),
	}

	if s := query.Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: active %q", core.ErrInvalid, s)
		}
		filter.Active = &active
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return nil, err
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		return nil, err
	}

	return a.DB.SearchClients(r.Context(), v, filter)
}

func (a *API) getClient(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	id, err := clientID(params)
	if err != nil {
		return nil, err
	}
	return a.DB.Client(r.Context(), v, id)
}

func (a *API) insertClient(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	var client core.ClientInfo
	if err := decode(r, &client); err != nil {
		return nil, err
	}
	client.ID = 0
	if err := a.DB.InsertClient(r.Context(), v, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (a *API) updateClient(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	id, err := clientID(params)
	if err != nil {
		return nil, err
	}
	var client core.ClientInfo
	if err := decode(r, &client); err != nil {
		return nil, err
	}
	client.ID = id
	if err := a.DB.UpdateClient(r.Context(), v, &client); err != nil {
		return nil, err
	}
	return a.DB.Client(r.Context(), v, id)
}

func (a *API) setClientActive(active bool) handlerFunc {
	return func(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
		id, err := clientID(params)
		if err != nil {
			return nil, err
		}
		return nil, a.DB.SetClientActive(r.Context(), v, id, active)
	}
}
