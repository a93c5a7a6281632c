// Package client talks to the UniHive REST API. It implements
// paginate.Fetcher and the listing mutations a hive list editor needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"unihive/apperr"
	"unihive/forms"
	"unihive/models"
	"unihive/paginate"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL. A nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// do sends the request and decodes a 2xx JSON body into out (when non-nil).
// Failures come back as *apperr.ValidationError, *apperr.NotFoundError or
// *apperr.NetworkError.
func (c *Client) do(req *http.Request, op, id string, out any) error {
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)
		switch {
		case resp.StatusCode == http.StatusBadRequest && len(body.Fields) > 0:
			return &apperr.ValidationError{Fields: body.Fields}
		case resp.StatusCode == http.StatusNotFound && id != "":
			return &apperr.NotFoundError{Kind: "listing", ID: id}
		}
		return &apperr.NetworkError{Op: op, Status: resp.StatusCode, Message: body.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// PageQuery renders q as the query string of GET /api/items.
func PageQuery(q paginate.Query) url.Values {
	v := url.Values{}
	q.Criteria.Encode(v)
	v.Set("category", string(q.Hive))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(paginate.NormalizeLimit(q.Limit)))
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		v.Set("location", l)
	}
	return v
}

func (c *Client) FetchPage(ctx context.Context, q paginate.Query) (paginate.Page, error) {
	var page paginate.Page
	req, err := c.newRequest(ctx, http.MethodGet, "/api/items", PageQuery(q), nil)
	if err != nil {
		return page, err
	}
	if err := c.do(req, "fetch "+string(q.Hive), "", &page); err != nil {
		return page, err
	}
	if page.Items == nil {
		page.Items = []models.Listing{}
	}
	return page, nil
}

type dataBody struct {
	Data models.Listing `json:"data"`
}

func (c *Client) GetItem(ctx context.Context, id string) (models.Listing, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.Listing{}, err
	}
	var out dataBody
	err = c.do(req, "get item", id, &out)
	return out.Data, err
}

func encodeForm(data forms.FormData) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range data {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) sendForm(ctx context.Context, method, path, op, id string, hive models.HiveCategory, data forms.FormData) (models.Listing, error) {
	body, contentType, err := encodeForm(data)
	if err != nil {
		return models.Listing{}, err
	}
	req, err := c.newRequest(ctx, method, path, url.Values{"category": {string(hive)}}, body)
	if err != nil {
		return models.Listing{}, err
	}
	req.Header.Set("Content-Type", contentType)
	var out dataBody
	err = c.do(req, op, id, &out)
	return out.Data, err
}

func (c *Client) CreateItem(ctx context.Context, hive models.HiveCategory, data forms.FormData) (models.Listing, error) {
	return c.sendForm(ctx, http.MethodPost, "/api/items", "create item", "", hive, data)
}

func (c *Client) UpdateItem(ctx context.Context, hive models.HiveCategory, id string, data forms.FormData) (models.Listing, error) {
	return c.sendForm(ctx, http.MethodPut, "/api/items/"+url.PathEscape(id), "update item", id, hive, data)
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, "delete item", id, nil)
}

// Fields loads a hive's form description from the server.
func (c *Client) Fields(ctx context.Context, hive models.HiveCategory) ([]forms.Field, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/hives/"+url.PathEscape(string(hive))+"/fields", nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []forms.Field `json:"data"`
	}
	err = c.do(req, "fields", "", &out)
	return out.Data, err
}
