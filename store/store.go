// Package store owns a listing collection together with the criteria that
// narrow it. Commands on State return a new State with the filtered view
// already recomputed; Store serializes those commands behind a single writer.
package store

import (
	"sync"

	"unihive/apperr"
	"unihive/filter"
	"unihive/models"
)

// State is an immutable snapshot. Never modify the slices it hands out.
type State struct {
	listings []models.Listing
	criteria models.FilterCriteria
	search   string
	location string
	view     []models.Listing
}

// NewState starts with an empty collection and default criteria.
func NewState() State {
	return State{criteria: models.DefaultCriteria(), view: []models.Listing{}}
}

func (s State) Listings() []models.Listing      { return s.listings }
func (s State) Criteria() models.FilterCriteria { return s.criteria }
func (s State) SearchTerm() string              { return s.search }
func (s State) Location() string                { return s.location }

// View is the filtered collection for the current inputs.
func (s State) View() []models.Listing { return s.view }

func (s State) recompute() State {
	s.view = filter.Apply(s.listings, s.criteria, s.search, s.location)
	return s
}

// Load replaces the collection wholesale.
func (s State) Load(listings []models.Listing) State {
	s.listings = append([]models.Listing(nil), listings...)
	return s.recompute()
}

// Insert appends l. Ids are not checked: inserting a duplicate is a caller bug.
func (s State) Insert(l models.Listing) State {
	next := make([]models.Listing, len(s.listings), len(s.listings)+1)
	copy(next, s.listings)
	s.listings = append(next, l)
	return s.recompute()
}

// Replace swaps the listing with the same id. A missing id yields a NotFoundError
// and the unchanged state.
func (s State) Replace(l models.Listing) (State, error) {
	for i := range s.listings {
		if s.listings[i].ID == l.ID {
			next := append([]models.Listing(nil), s.listings...)
			next[i] = l
			s.listings = next
			return s.recompute(), nil
		}
	}
	return s, &apperr.NotFoundError{Kind: "listing", ID: l.ID}
}

// Remove drops the listing with id. A missing id is a no-op.
func (s State) Remove(id string) State {
	next := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.ID != id {
			next = append(next, l)
		}
	}
	if len(next) == len(s.listings) {
		return s
	}
	s.listings = next
	return s.recompute()
}

func (s State) SetFilters(c models.FilterCriteria) State {
	s.criteria = c
	return s.recompute()
}

func (s State) SetSearchTerm(term string) State {
	s.search = term
	return s.recompute()
}

func (s State) SetLocation(term string) State {
	s.location = term
	return s.recompute()
}

// ResetFilters restores default criteria, the "Reset" action of a filter panel.
func (s State) ResetFilters() State {
	return s.SetFilters(models.DefaultCriteria())
}

// Store is safe for concurrent use. All writes go through one mutex, reads
// see the latest committed State.
type Store struct {
	mu    sync.RWMutex
	state State
}

func New() *Store {
	return &Store{state: NewState()}
}

func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// View returns a copy of the filtered collection.
func (st *Store) View() []models.Listing {
	v := st.Snapshot().View()
	return append(make([]models.Listing, 0, len(v)), v...)
}

func (st *Store) apply(fn func(State) State) State {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = fn(st.state)
	return st.state
}

func (st *Store) Load(listings []models.Listing) {
	st.apply(func(s State) State { return s.Load(listings) })
}

func (st *Store) Insert(l models.Listing) {
	st.apply(func(s State) State { return s.Insert(l) })
}

func (st *Store) Replace(l models.Listing) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	next, err := st.state.Replace(l)
	if err != nil {
		return err
	}
	st.state = next
	return nil
}

func (st *Store) Remove(id string) {
	st.apply(func(s State) State { return s.Remove(id) })
}

func (st *Store) SetFilters(c models.FilterCriteria) {
	st.apply(func(s State) State { return s.SetFilters(c) })
}

func (st *Store) ResetFilters() {
	st.apply(func(s State) State { return s.ResetFilters() })
}

func (st *Store) SetSearchTerm(term string) {
	st.apply(func(s State) State { return s.SetSearchTerm(term) })
}

func (st *Store) SetLocation(term string) {
	st.apply(func(s State) State { return s.SetLocation(term) })
}
