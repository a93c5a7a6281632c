// Package hivelist drives one hive's list view: it keeps the current page
// loaded and runs the create/edit modal whose form comes from forms.Fields.
package hivelist

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"unihive/forms"
	"unihive/models"
	"unihive/paginate"
)

// SelectionParam is the URL parameter that names the listing open in the modal.
const SelectionParam = "selected"

// Backend performs listing mutations. client.Client implements it.
type Backend interface {
	CreateItem(ctx context.Context, hive models.HiveCategory, data forms.FormData) (models.Listing, error)
	UpdateItem(ctx context.Context, hive models.HiveCategory, id string, data forms.FormData) (models.Listing, error)
	DeleteItem(ctx context.Context, id string) error
}

type Editor struct {
	hive    models.HiveCategory
	backend Backend
	ctrl    *paginate.Controller

	mu        sync.Mutex
	open      bool
	selection string
	form      forms.FormData
	params    url.Values
	lastErr   error
}

func NewEditor(hive models.HiveCategory, backend Backend, ctrl *paginate.Controller) *Editor {
	return &Editor{hive: hive, backend: backend, ctrl: ctrl, params: url.Values{}}
}

func (e *Editor) Hive() models.HiveCategory { return e.hive }

func (e *Editor) Fields() []forms.Field { return forms.Fields(e.hive) }

// Refresh reloads the current page.
func (e *Editor) Refresh(ctx context.Context) error {
	return e.ctrl.Refresh(ctx)
}

// Items is the filtered view of the loaded page.
func (e *Editor) Items() []models.Listing {
	return e.ctrl.Store().View()
}

// Open shows the modal. A nil listing opens an empty create form; otherwise
// the form is prefilled and the listing id becomes the selection.
func (e *Editor) Open(l *models.Listing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = true
	e.lastErr = nil
	if l == nil {
		e.selection = ""
		e.form = forms.FormData{}
		e.params.Del(SelectionParam)
		return
	}
	e.selection = l.ID
	e.form = forms.FromListing(*l)
	e.params.Set(SelectionParam, l.ID)
}

// Close hides the modal and drops the selection without saving.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *Editor) closeLocked() {
	e.open = false
	e.selection = ""
	e.form = nil
	e.lastErr = nil
	e.params.Del(SelectionParam)
}

func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Selection returns the id being edited; empty while creating or closed.
func (e *Editor) Selection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// Form returns a copy of the form data the modal holds.
func (e *Editor) Form() forms.FormData {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(forms.FormData, len(e.form))
	for k, v := range e.form {
		out[k] = v
	}
	return out
}

// Params returns a copy of the URL parameters bound to the view.
func (e *Editor) Params() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := url.Values{}
	for k, v := range e.params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Err is the error of the last failed save or delete.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Save validates data and then creates or updates depending on the
// selection. Any failure keeps the modal open with data in it; success
// reloads the list, closes the modal and clears the selection parameter.
func (e *Editor) Save(ctx context.Context, data forms.FormData) error {
	e.mu.Lock()
	e.open = true
	e.form = data
	id := e.selection
	e.mu.Unlock()

	if err := forms.Validate(e.hive, data); err != nil {
		e.fail(err)
		return err
	}

	var err error
	if id == "" {
		_, err = e.backend.CreateItem(ctx, e.hive, data)
	} else {
		_, err = e.backend.UpdateItem(ctx, e.hive, id, data)
	}
	if err != nil {
		err = fmt.Errorf("save %s listing: %w", e.hive, err)
		e.fail(err)
		return err
	}

	e.mu.Lock()
	e.closeLocked()
	e.mu.Unlock()

	if err := e.ctrl.Refresh(ctx); err != nil {
		// Saved; the list is just behind until the next load.
		log.Printf("[hivelist] refresh %s after save: %v", e.hive, err)
		return err
	}
	return nil
}

// Delete removes a listing remotely, then drops it locally and reloads.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if err := e.backend.DeleteItem(ctx, id); err != nil {
		err = fmt.Errorf("delete %s listing: %w", e.hive, err)
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return err
	}
	e.ctrl.Store().Remove(id)

	e.mu.Lock()
	if e.selection == id {
		e.closeLocked()
	}
	e.mu.Unlock()

	return e.ctrl.Refresh(ctx)
}

func (e *Editor) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
}
