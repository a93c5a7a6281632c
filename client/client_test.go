package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihive/apperr"
	"unihive/forms"
	"unihive/hives"
	"unihive/middleware"
	"unihive/models"
	"unihive/paginate"
)

func TestPageQuery(t *testing.T) {
	c := models.DefaultCriteria()
	c.Tags = []string{"books", "math"}
	c.Location = "north"
	c.Category = "Textbooks"
	v := PageQuery(paginate.Query{
		Hive: models.HiveAcademia, Page: 3, Limit: 0, Criteria: c, Search: " calc ", Location: "Boston",
	})
	assert.Equal(t, "academia", v.Get("category"))
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "10", v.Get("limit"))
	assert.Equal(t, "calc", v.Get("search"))
	assert.Equal(t, "Boston", v.Get("location"))
	assert.Equal(t, "north", v.Get("locationFilter"))
	assert.Equal(t, "Textbooks", v.Get("categoryFilter"))
	assert.Equal(t, c, models.CriteriaFromQuery(v))
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/items/gone":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Listing not found"}`))
		case "/api/items":
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"Invalid form data","fields":{"title":"Title is required"}}`))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"upstream down"}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.GetItem(ctx, "gone")
	assert.True(t, apperr.IsNotFound(err))

	_, err = c.CreateItem(ctx, models.HiveBuzz, forms.FormData{})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Title is required", ve.Fields["title"])

	_, err = c.FetchPage(ctx, paginate.Query{Hive: models.HiveBuzz, Page: 1})
	var ne *apperr.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusBadGateway, ne.Status)
	assert.Equal(t, "upstream down", ne.Message)

	srv.Close()
	_, err = c.FetchPage(ctx, paginate.Query{Hive: models.HiveBuzz, Page: 1})
	require.ErrorAs(t, err, &ne)
	assert.Zero(t, ne.Status)
}

type memRepo struct {
	mu       sync.Mutex
	listings []models.Listing
}

func (m *memRepo) List(_ context.Context, hive models.HiveCategory) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Listing
	for _, l := range m.listings {
		if l.Hive == hive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id string) (models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Listing{}, &apperr.NotFoundError{Kind: "listing", ID: id}
}

func (m *memRepo) Insert(_ context.Context, l models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, l)
	return nil
}

func (m *memRepo) Update(_ context.Context, l models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.listings {
		if m.listings[i].ID == l.ID {
			m.listings[i] = l
			return nil
		}
	}
	return &apperr.NotFoundError{Kind: "listing", ID: l.ID}
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.listings {
		if m.listings[i].ID == id {
			m.listings = append(m.listings[:i], m.listings[i+1:]...)
			return nil
		}
	}
	return &apperr.NotFoundError{Kind: "listing", ID: id}
}

func (m *memRepo) CloseExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// newAPI serves the real listing handlers behind the real auth middleware.
func newAPI(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	middleware.SetSecret([]byte("client-test"))
	repo := &memRepo{}
	h := hives.NewHandler(repo, nil, nil, "http://unihive.test")
	router := httprouter.New()
	router.GET("/api/items", h.ListItems)
	router.GET("/api/items/:id", h.GetItem)
	router.GET("/api/hives/:category/fields", h.HiveFields)
	router.POST("/api/items", middleware.Authenticate(h.CreateItem))
	router.PUT("/api/items/:id", middleware.Authenticate(h.UpdateItem))
	router.DELETE("/api/items/:id", middleware.Authenticate(h.DeleteItem))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestAgainstListingAPI(t *testing.T) {
	srv, _ := newAPI(t)
	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.CreateItem(ctx, models.HiveBuzz, forms.FormData{"title": "x"})
	var ne *apperr.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusUnauthorized, ne.Status)

	tok, err := middleware.IssueToken("u1", "alice", nil, time.Hour)
	require.NoError(t, err)
	c.SetToken(tok)

	created, err := c.CreateItem(ctx, models.HiveBuzz, forms.FormData{
		"title": "Open mic", "description": "Bring a guitar", "location": "Union Hall", "deadline": "2030-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.CreatedBy)

	updated, err := c.UpdateItem(ctx, models.HiveBuzz, created.ID, forms.FormData{
		"title": "Open mic night", "description": "Bring a guitar", "location": "Union Hall", "deadline": "2030-04-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "Open mic night", updated.Title)

	page, err := c.FetchPage(ctx, paginate.Query{Hive: models.HiveBuzz, Page: 1, Limit: 5, Criteria: models.DefaultCriteria()})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.TotalPages)

	fields, err := c.Fields(ctx, models.HiveBuzz)
	require.NoError(t, err)
	assert.Equal(t, forms.Fields(models.HiveBuzz), fields)

	require.NoError(t, c.DeleteItem(ctx, created.ID))
	assert.True(t, apperr.IsNotFound(c.DeleteItem(ctx, created.ID)))
}

func TestControllerOverHTTP(t *testing.T) {
	srv, repo := newAPI(t)
	for i, tag := range []string{"books", "bikes", "books", "books"} {
		repo.listings = append(repo.listings, models.Listing{
			ID: string(rune('a' + i)), Hive: models.HiveEssentials, Title: "thing", Tags: []string{tag},
		})
	}
	ctrl := paginate.NewController(models.HiveEssentials, New(srv.URL, nil), nil, 2)
	ctx := context.Background()

	crit := models.DefaultCriteria()
	crit.Tags = []string{"books"}
	require.NoError(t, ctrl.SetFilters(ctx, crit))
	assert.Equal(t, models.PaginationState{CurrentPage: 1, TotalPages: 2, Limit: 2}, ctrl.Pagination())

	require.NoError(t, ctrl.ChangePage(ctx, 2))
	view := ctrl.Store().View()
	require.Len(t, view, 1)
	assert.Equal(t, "d", view[0].ID)
	assert.Equal(t, paginate.Loaded, ctrl.Phase())
}

func TestAuthStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api/auth/login" || body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid username or password"}`))
			return
		}
		w.Write([]byte(`{"message":"Login successful","token":"tok-1","user":{"userid":"u1","username":"alice","email":"a@u.edu"}}`))
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "bad")
	require.Error(t, err)
	assert.Empty(t, c.Token())

	resp, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", c.Token())
	assert.Equal(t, "alice", resp.User.Username)

	c.Logout()
	assert.Empty(t, c.Token())
}
