package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/auth"
	"unihive/chats"
	"unihive/hives"
	"unihive/ratelim"
)

func newRouter(t *testing.T) *httprouter.Router {
	t.Helper()
	rl := ratelim.NewRateLimiter(100, 100, time.Minute)
	t.Cleanup(rl.Stop)

	router := httprouter.New()
	RoutesWrapper(router, rl, Handlers{
		Auth:      &auth.Handler{},
		Hives:     &hives.Handler{},
		Chats:     &chats.Handler{},
		UploadDir: t.TempDir(),
	})
	return router
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsExposed(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestMutationsNeedToken(t *testing.T) {
	router := newRouter(t)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/items", nil),
		httptest.NewRequest(http.MethodPut, "/api/items/abc", nil),
		httptest.NewRequest(http.MethodDelete, "/api/items/abc", nil),
		httptest.NewRequest(http.MethodGet, "/api/chats", nil),
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, req.Method+" "+req.URL.Path)
	}
}

func TestPattern(t *testing.T) {
	resolve := Pattern(newRouter(t))
	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/api/items", "/api/items"},
		{http.MethodGet, "/api/items/abc123", "/api/items/:id"},
		{http.MethodGet, "/api/items/abc123/flyer", "/api/items/:id/flyer"},
		{http.MethodGet, "/api/hives/academia/fields", "/api/hives/:category/fields"},
		{http.MethodPost, "/api/chats/c1/messages", "/api/chats/:chatid/messages"},
		{http.MethodGet, "/uploads/listing/photo/x.jpg", "/uploads/*filepath"},
		{http.MethodGet, "/nope", ""},
		{http.MethodPatch, "/api/items/abc", ""},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		assert.Equal(t, c.want, resolve(req), c.method+" "+c.path)
	}
}
