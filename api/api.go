// Package api implements the JSON REST interface.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/core"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

type API struct {
	DB      *core.CoreDB
	Backend auth.Backend // authenticates requests, usually an *auth.Chain
	Perms   auth.PermissionProvider[core.Role]
	Logger  *zap.Logger
}

type handlerFunc func(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error)

// handle authorizes the request, calls f and writes its result as JSON with the given status.
// If f returns a nil result, the status is 204 No Content.
func (a *API) handle(status int, f handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {

		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			a.denied(w, r, http.StatusUnauthorized)
			return
		}

		viewer, err := core.NewViewer(r.Context(), u, a.Perms)
		if errors.Is(err, auth.ErrUnknownUser) || (err == nil && viewer.Roles == 0) {
			a.denied(w, r, http.StatusForbidden)
			return
		}
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		result, err := f(r, viewer, params)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		a.writeJSON(w, status, result)
	}
}

// denied implements auth.DeniedFunc.
func (a *API) denied(w http.ResponseWriter, r *http.Request, status int) {
	if status == http.StatusUnauthorized {
		if challenger, ok := a.Backend.(auth.Challenger); ok {
			challenger.Challenge(w)
		}
		a.writeJSON(w, status, errorResponse{core.ErrUnauthorized.Error()})
		return
	}
	a.writeJSON(w, status, errorResponse{core.ErrForbidden.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalid), errors.Is(err, core.ErrEmptyPassword):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInsufficientFunds), errors.Is(err, core.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status = statusOf(err)
	if status == http.StatusInternalServerError {
		a.Logger.Error("api", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		a.writeJSON(w, status, errorResponse{http.StatusText(status)}) // don't leak internals
		return
	}
	if status == http.StatusUnauthorized {
		if challenger, ok := a.Backend.(auth.Challenger); ok {
			challenger.Challenge(w)
		}
	}
	a.writeJSON(w, status, errorResponse{err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Warn("writing response", zap.Error(err))
	}
}

// decode reads a JSON request body into dst. Unknown fields and trailing data are rejected.
func decode(r *http.Request, dst any) error {
	var dec = json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: request body: %v", core.ErrInvalid, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: request body: trailing data", core.ErrInvalid)
	}
	return nil
}

// Handler returns the API routes, mounted at /api, behind the authentication middleware.
func (a *API) Handler() http.Handler {

	var router = httprouter.New()

	// permission checks which don't depend on the requested object
	var require = func(role core.Role, handle httprouter.Handle) httprouter.Handle {
		var mw = auth.Require(a.Perms, a.denied, role)
		return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		}
	}

	router.GET("/api/me", a.handle(http.StatusOK, me))

	router.GET("/api/accounts", a.handle(http.StatusOK, a.listAccounts))
	router.POST("/api/accounts", a.handle(http.StatusCreated, a.openAccount))
	router.GET("/api/accounts/:id", a.handle(http.StatusOK, a.getAccount))
	router.PATCH("/api/accounts/:id", a.handle(http.StatusOK, a.renameAccount))
	router.DELETE("/api/accounts/:id", a.handle(http.StatusNoContent, a.closeAccount))
	router.POST("/api/accounts/:id/deposit", require(core.RoleWrite, a.handle(http.StatusOK, a.deposit)))
	router.POST("/api/accounts/:id/withdraw", a.handle(http.StatusOK, a.withdraw))
	router.POST("/api/transfers", a.handle(http.StatusNoContent, a.transfer))

	router.GET("/api/clients", require(core.RoleRead, a.handle(http.StatusOK, a.searchClients)))
	router.POST("/api/clients", require(core.RoleWrite, a.handle(http.StatusCreated, a.insertClient)))
	router.GET("/api/clients/:id", a.handle(http.StatusOK, a.getClient))
	router.PUT("/api/clients/:id", a.handle(http.StatusOK, a.updateClient))
	router.POST("/api/clients/:id/activate", require(core.RoleWrite, a.handle(http.StatusNoContent, a.setClientActive(true))))
	router.POST("/api/clients/:id/deactivate", require(core.RoleWrite, a.handle(http.StatusNoContent, a.setClientActive(false))))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, http.StatusNotFound, errorResponse{core.ErrNotFound.Error()})
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{http.StatusText(http.StatusMethodNotAllowed)})
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		a.Logger.Error("panic", zap.String("path", r.URL.Path), zap.Any("value", v))
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{http.StatusText(http.StatusInternalServerError)})
	}

	return auth.Middleware(a.Backend, a.Logger)(router)
}

type meResponse struct {
	Name     string `json:"name"`
	ClientID int64  `json:"clientId,omitempty"`
	Roles    string `json:"roles"`
}

func me(r *http.Request, v *core.Viewer, params httprouter.Params) (any, error) {
	return meResponse{
		Name:     v.Name,
		ClientID: v.ClientID,
		Roles:    v.Roles.String(),
	}, nil
}
