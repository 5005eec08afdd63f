package frontend

import (
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/wansing/mvv/auth"
	"github.com/wansing/mvv/core"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type Notification struct {
	Message string
	Style   string
}

func init() {
	gob.Register([]Notification{}) // required for storing Notifications in a session
}

var langMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish, // default
	language.German,
})

var monthNamesDe = strings.NewReplacer(
	"January", "Januar",
	"February", "Februar",
	"March", "März",
	"May", "Mai",
	"June", "Juni",
	"July", "Juli",
	"October", "Oktober",
	"December", "Dezember",
)

// A request is created by Frontend.newRequest.
type request struct {
	f      *Frontend // unexported, so it can't be accessed in templates
	Prefix string    // with trailing slash
	User   auth.User
	Viewer *core.Viewer

	// http
	writer  http.ResponseWriter
	request *http.Request

	statusWritten bool
	language      language.Tag
}

// newRequest creates a request. If a user is logged in, it sets request.User and request.Viewer.
func (f *Frontend) newRequest(w http.ResponseWriter, httpreq *http.Request) *request {

	var req = &request{
		f:       f,
		Prefix:  f.Prefix + "/",
		writer:  w,
		request: httpreq,
	}

	req.language, _ = language.MatchStrings(langMatcher, httpreq.Header.Get("Accept-Language"))

	u, err := f.Session.Authenticate(httpreq)
	switch {
	case err == nil:
		viewer, err := core.NewViewer(httpreq.Context(), u, f.Perms)
		if err != nil && !errors.Is(err, auth.ErrUnknownUser) {
			f.Logger.Error("getting roles", zap.String("user", u.Name()), zap.Error(err))
		}
		if viewer == nil {
			viewer = &core.Viewer{Name: u.Name()}
		}
		req.User = u
		req.Viewer = viewer
	case errors.Is(err, auth.ErrAuth):
		req.Danger(errors.New("your session has expired, please log in again"))
	case !errors.Is(err, auth.ErrNoCredentials):
		f.Logger.Error("session authentication", zap.Error(err))
	}

	return req
}

// Danger adds a "danger" notification to the session.
func (req *request) Danger(err error) {
	req.addNotification(err.Error(), "danger")
}

// Success adds a "success" notification to the session.
func (req *request) Success(format string, args ...interface{}) {
	req.addNotification(fmt.Sprintf(format, args...), "success")
}

// style should be a bootstrap alert style without the leading "alert-"
func (req *request) addNotification(message, style string) {
	notifications, _ := req.f.Sessions.Get(req.request.Context(), "notifications").([]Notification)
	notifications = append(notifications, Notification{message, style})
	req.f.Sessions.Put(req.request.Context(), "notifications", notifications)
}

// RenderNotifications removes all notifications from the session
// and renders them into an HTML string.
// If the HTTP status had already been written, it does nothing.
func (req *request) RenderNotifications() template.HTML {
	var r strings.Builder
	if !req.statusWritten {
		notifications, _ := req.f.Sessions.Pop(req.request.Context(), "notifications").([]Notification)
		for _, n := range notifications {
			r.WriteString(`<div class="alert alert-` + n.Style + ` mt-3" role="alert">` + template.HTMLEscapeString(n.Message) + `</div>`)
		}
	}
	return template.HTML(r.String())
}

// Cleanup destroys the session (which means re-setting the cookie with zero lifetime) if the session has been modified and is empty now.
func (req *request) Cleanup() {
	sessMan := req.f.Sessions
	if sessMan.Status(req.request.Context()) == scs.Modified && len(sessMan.Keys(req.request.Context())) == 0 {
		_ = sessMan.Destroy(req.request.Context())
	}
}

// SeeOther sets the HTTP header to redirect to an URL. Absolute locations are prefixed by util.HandlePrefix.
func (req *request) SeeOther(format string, args ...interface{}) {
	if req.statusWritten {
		return
	}
	var url = fmt.Sprintf(format, args...)
	http.Redirect(req.writer, req.request, url, http.StatusSeeOther)
	req.statusWritten = true
}

func (req *request) LoggedIn() bool {
	return req.User != nil
}

func (req *request) Can(r core.Role) bool {
	return req.Viewer.Can(r)
}

func (req *request) CanSearchClients() bool {
	return req.Viewer.Can(core.RoleRead)
}

func (req *request) CanAdmin() bool {
	return req.Viewer.Can(core.RoleAdmin)
}

// HasOAuth2 returns whether the OAuth2 login is configured.
func (req *request) HasOAuth2() bool {
	return req.f.OAuth2 != nil
}

func (req *request) FormatAmount(amount int64, currency string) string {
	return core.FormatAmount(req.language, amount, currency)
}

func (req *request) FormatDateTime(t time.Time) string {
	b, _ := req.language.Base()
	switch b.String() {
	case "de":
		return monthNamesDe.Replace(t.Local().Format("2. January 2006 15:04 Uhr"))
	default:
		return t.Local().Format("January 2, 2006 3:04 PM")
	}
}
