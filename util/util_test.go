package util

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRandomString32(t *testing.T) {
	a, err := RandomString32()
	require.NoError(t, err)
	b, err := RandomString32()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestPages(t *testing.T) {
	assert.Equal(t, []int{1, 3, 4, 5, 6, 7, 9, 13, 20}, Pages(5, 20))
	assert.Equal(t, []int{1}, Pages(1, 1))
	assert.Nil(t, Pages(1, 0))
}

func TestPageLinks(t *testing.T) {
	var links = PageLinks(2, 3, func(page int) string {
		return "clients?page=" + strconv.Itoa(page)
	})
	assert.Equal(t, []template.HTML{
		`<a href="clients?page=1">&laquo;</a>`,
		`<a href="clients?page=1">1</a>`,
		`<strong>2</strong>`,
		`<a href="clients?page=3">3</a>`,
		`<a href="clients?page=3">&raquo;</a>`,
	}, links)
}

func TestHandlePrefix(t *testing.T) {
	var mux = http.NewServeMux()
	HandlePrefix(mux, "/bank/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			_, _ = w.Write([]byte("login"))
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}))

	var rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/bank/accounts", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/bank/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/bank/login", nil))
	assert.Equal(t, "login", rec.Body.String())
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var handler = LogRequests(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	var req = httptest.NewRequest("GET", "/coffee", nil)
	req.Header.Set("Authorization", "Basic c2VjcmV0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	var fields = logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "/coffee", fields["path"])
	for _, v := range fields {
		assert.NotEqual(t, "Basic c2VjcmV0", v)
	}
}
