package paginate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"unihive/apperr"
	"unihive/models"
	"unihive/store"
)

type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Query is one page request, filters included.
type Query struct {
	Hive     models.HiveCategory
	Page     int
	Limit    int
	Criteria models.FilterCriteria
	Search   string
	Location string
}

// Fetcher loads one page of a hive. client.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, q Query) (Page, error)
}

// Controller keeps a store filled with the most recently requested page.
// Every fetch carries a sequence number; only the latest one may commit.
type Controller struct {
	fetcher Fetcher
	store   *store.Store
	hive    models.HiveCategory

	mu         sync.Mutex
	phase      Phase
	pagination models.PaginationState
	lastErr    error
	seq        uint64
	cancel     context.CancelFunc
}

func NewController(hive models.HiveCategory, f Fetcher, st *store.Store, limit int) *Controller {
	if st == nil {
		st = store.New()
	}
	return &Controller{
		fetcher:    f,
		store:      st,
		hive:       hive,
		pagination: models.PaginationState{CurrentPage: 1, TotalPages: 1, Limit: NormalizeLimit(limit)},
	}
}

func (c *Controller) Store() *store.Store { return c.store }

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Pagination() models.PaginationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

// Err is the error of the last committed fetch, nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetCurrentPage moves the page marker without fetching.
func (c *Controller) SetCurrentPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	c.pagination.CurrentPage = n
}

// Load fetches page and commits it unless a newer fetch was issued meanwhile.
// A superseded fetch returns nil: stale results are dropped silently.
func (c *Controller) Load(ctx context.Context, page int) error {
	err := c.fetch(ctx, page)
	if errors.Is(err, apperr.ErrStaleResponse) {
		return nil
	}
	return err
}

// ChangePage is Load for page-button clicks.
func (c *Controller) ChangePage(ctx context.Context, n int) error {
	return c.Load(ctx, n)
}

// Refresh refetches the current page.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.Load(ctx, c.Pagination().CurrentPage)
}

func (c *Controller) SetFilters(ctx context.Context, criteria models.FilterCriteria) error {
	c.store.SetFilters(criteria)
	return c.Load(ctx, 1)
}

func (c *Controller) ResetFilters(ctx context.Context) error {
	c.store.ResetFilters()
	return c.Load(ctx, 1)
}

func (c *Controller) SetSearchTerm(ctx context.Context, term string) error {
	c.store.SetSearchTerm(term)
	return c.Load(ctx, 1)
}

func (c *Controller) SetLocation(ctx context.Context, term string) error {
	c.store.SetLocation(term)
	return c.Load(ctx, 1)
}

func (c *Controller) fetch(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	snap := c.store.Snapshot()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	token := c.seq
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.phase = Loading
	q := Query{
		Hive:     c.hive,
		Page:     page,
		Limit:    c.pagination.Limit,
		Criteria: snap.Criteria(),
		Search:   snap.SearchTerm(),
		Location: snap.Location(),
	}
	c.mu.Unlock()

	result, err := c.fetcher.FetchPage(fctx, q)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.seq {
		log.Debug().Str("hive", string(c.hive)).Int("page", page).Msg("dropping stale page response")
		return apperr.ErrStaleResponse
	}
	c.cancel = nil
	if err != nil {
		c.phase = Failed
		var netErr *apperr.NetworkError
		if !errors.As(err, &netErr) {
			err = &apperr.NetworkError{Op: "fetch " + string(c.hive), Err: err}
		}
		c.lastErr = err
		return err
	}

	c.store.Load(result.Items)
	current := result.CurrentPage
	if current < 1 {
		current = page
	}
	totalPages := result.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	c.pagination = models.PaginationState{CurrentPage: current, TotalPages: totalPages, Limit: q.Limit}
	c.phase = Loaded
	c.lastErr = nil
	return nil
}
