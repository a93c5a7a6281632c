// Package hives serves the listing REST API: filtered, paginated hive lists
// and the create/update/delete operations behind each hive's form.
package hives

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"unihive/apperr"
	"unihive/filemgr"
	"unihive/filter"
	"unihive/flyer"
	"unihive/forms"
	"unihive/metrics"
	"unihive/models"
	"unihive/paginate"
	"unihive/utils"
)

const maxFormMemory = 20 << 20

type Handler struct {
	Repo  Repository
	Files *filemgr.Manager
	// Notify is told about every successful mutation; it runs in its own goroutine.
	Notify func(context.Context, models.HiveEvent)
	// BaseURL is the public site root used in flyer QR codes.
	BaseURL string
}

func NewHandler(repo Repository, files *filemgr.Manager, notify func(context.Context, models.HiveEvent), baseURL string) *Handler {
	return &Handler{Repo: repo, Files: files, Notify: notify, BaseURL: baseURL}
}

func (h *Handler) emit(hive models.HiveCategory, method, id, userID string) {
	metrics.ListingMutations.WithLabelValues(string(hive), method).Inc()
	if h.Notify == nil {
		return
	}
	evt := models.HiveEvent{Hive: hive, Method: method, ListingID: id, UserID: userID}
	go h.Notify(context.Background(), evt)
}

func respondErr(w http.ResponseWriter, err error, action string) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"message": "Invalid form data", "fields": ve.Fields})
	case apperr.IsNotFound(err):
		utils.RespondWithError(w, http.StatusNotFound, "Listing not found")
	default:
		log.Printf("[hives] %s: %v", action, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// ListItems serves GET /api/items: the hive is loaded whole, filtered, then paginated,
// so totalPages always counts the filtered listings.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	hive, err := models.ParseHive(q.Get("category"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown hive")
		return
	}
	page, limit := utils.ParsePagination(r, paginate.DefaultLimit, paginate.MaxLimit)

	all, err := h.Repo.List(r.Context(), hive)
	if err != nil {
		respondErr(w, err, "load listings")
		return
	}
	view := filter.Apply(all, models.CriteriaFromQuery(q), q.Get("search"), q.Get("location"))
	metrics.FilteredResults.WithLabelValues(string(hive)).Observe(float64(len(view)))

	utils.RespondWithJSON(w, http.StatusOK, paginate.GetPage(view, page, limit))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	l, err := h.Repo.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respondErr(w, err, "load listing")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": l})
}

// HiveFields serves the form description of a hive.
func (h *Handler) HiveFields(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hive, err := models.ParseHive(ps.ByName("category"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown hive")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": forms.Fields(hive)})
}

// parseForm accepts multipart and urlencoded bodies. Text values are
// stripped of HTML.
func parseForm(r *http.Request) (forms.FormData, error) {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}
	data := forms.FormData{}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			data[k] = utils.StripHTML(vs[0])
		}
	}
	return data, nil
}

// saveImage stores an uploaded image and points l at it. The previous pair is
// returned, not removed: the caller drops it only once the listing is persisted.
func (h *Handler) saveImage(r *http.Request, l *models.Listing) (filemgr.Saved, error) {
	prev := filemgr.Saved{Image: l.Image, Thumb: l.Thumb}
	if h.Files == nil || r.MultipartForm == nil {
		return prev, nil
	}
	saved, err := h.Files.SaveFormImage(r.MultipartForm, "image")
	if err != nil {
		return prev, err
	}
	if saved.Image != "" {
		l.Image, l.Thumb = saved.Image, saved.Thumb
	}
	return prev, nil
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hive, err := models.ParseHive(r.URL.Query().Get("category"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown hive")
		return
	}
	data, err := parseForm(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err := forms.Validate(hive, data); err != nil {
		respondErr(w, err, "create listing")
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	now := time.Now().UTC()
	l := forms.Apply(hive, data, models.Listing{
		ID:        utils.GetUUID(),
		CreatedBy: userID,
		PostedAt:  now,
		UpdatedAt: now,
	})
	if _, err := h.saveImage(r, &l); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid image: %v", err))
		return
	}
	if err := h.Repo.Insert(r.Context(), l); err != nil {
		h.Files.Remove(l.Image, l.Thumb)
		respondErr(w, err, "create listing")
		return
	}

	h.emit(hive, http.MethodPost, l.ID, userID)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"data": l})
}

// owned loads a listing and checks the caller owns it, writing the error response itself.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request, id string) (models.Listing, bool) {
	l, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err, "load listing")
		return l, false
	}
	if l.CreatedBy != utils.GetUserIDFromRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "You can only change your own listings")
		return l, false
	}
	return l, true
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	existing, ok := h.owned(w, r, ps.ByName("id"))
	if !ok {
		return
	}
	hive := existing.Hive
	if c := r.URL.Query().Get("category"); c != "" {
		if parsed, err := models.ParseHive(c); err != nil || parsed != hive {
			utils.RespondWithError(w, http.StatusBadRequest, "Listing belongs to another hive")
			return
		}
	}

	data, err := parseForm(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err := forms.Validate(hive, data); err != nil {
		respondErr(w, err, "update listing")
		return
	}

	l := forms.Apply(hive, data, existing)
	l.UpdatedAt = time.Now().UTC()
	prev, err := h.saveImage(r, &l)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid image: %v", err))
		return
	}
	replaced := l.Image != prev.Image
	if err := h.Repo.Update(r.Context(), l); err != nil {
		if replaced {
			h.Files.Remove(l.Image, l.Thumb)
		}
		respondErr(w, err, "update listing")
		return
	}
	if replaced {
		h.Files.Remove(prev.Image, prev.Thumb)
	}

	h.emit(hive, http.MethodPut, l.ID, l.CreatedBy)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": l})
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	l, ok := h.owned(w, r, ps.ByName("id"))
	if !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), l.ID); err != nil {
		respondErr(w, err, "delete listing")
		return
	}
	h.Files.Remove(l.Image, l.Thumb)

	h.emit(l.Hive, http.MethodDelete, l.ID, l.CreatedBy)
	w.WriteHeader(http.StatusNoContent)
}

// Flyer serves a printable PDF for a listing.
func (h *Handler) Flyer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	l, err := h.Repo.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		respondErr(w, err, "load listing")
		return
	}
	link := fmt.Sprintf("%s/%s/%s", h.BaseURL, l.Hive, l.ID)
	pdf, err := flyer.Render(l, link)
	if err != nil {
		log.Printf("[hives] flyer %s: %v", l.ID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate flyer")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=listing-"+l.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
