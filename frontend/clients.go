package frontend

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/mvv/core"
	"github.com/wansing/mvv/util"
)

const clientsPerPage = core.DefaultClientLimit

var clientsTmpl = tmpl(`<h1>Clients</h1>

	<form method="get">
		<input type="text" name="name" value="{{ .Filter.Name }}" placeholder="Name">
		<input type="email" name="email" value="{{ .Filter.Email }}" placeholder="Email address">
		<input type="text" name="phone" value="{{ .Filter.Phone }}" placeholder="Phone">
		<button type="submit">Search</button>
	</form>

	<table>
		<tr>
			<th>Name</th>
			<th>Email</th>
			<th>Phone</th>
			<th>Birth date</th>
			<th></th>
		</tr>
		{{ range .Clients }}
			<tr>
				<td><a href="accounts?client={{ .ID }}">{{ .FullName }}</a></td>
				<td>{{ .Email }}</td>
				<td>{{ .Phone }}</td>
				<td>{{ .BirthDate }}</td>
				<td>{{ if .BusinessUser }}business{{ end }} {{ if not .Active }}inactive{{ end }}</td>
			</tr>
		{{ end }}
	</table>

	{{ with .PageLinks }}
		<p>{{ range . }}{{ . }} {{ end }}</p>
	{{ end }}`)

type clientsData struct {
	*request
	Filter    core.ClientFilter
	Clients   []*core.ClientInfo
	PageLinks []template.HTML
}

func clients(w http.ResponseWriter, req *http.Request, ctx *request, params httprouter.Params) error {

	var query = req.URL.Query()
	var filter = core.ClientFilter{
		Email: query.Get("email"),
		Phone: query.Get("phone"),
		Name:  query.Get("name"),
	}

	var page, _ = strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}

	// fetch one more to see if there is a next page
	filter.Limit = clientsPerPage + 1
	filter.Offset = (page - 1) * clientsPerPage

	found, err := ctx.f.DB.SearchClients(req.Context(), ctx.Viewer, filter)
	if err != nil {
		return err
	}

	var numPages = page
	if len(found) > clientsPerPage {
		found = found[:clientsPerPage]
		numPages++
	}

	var pageLinks []template.HTML
	if numPages > 1 {
		pageLinks = util.PageLinks(page, numPages, func(p int) string {
			query.Set("page", strconv.Itoa(p))
			return "clients?" + query.Encode()
		})
	}

	return clientsTmpl.Execute(w, &clientsData{
		request:   ctx,
		Filter:    filter,
		Clients:   found,
		PageLinks: pageLinks,
	})
}
