// Package paginate slices filtered views into pages and drives page fetches
// against a remote hive, discarding responses that lost a race.
package paginate

import "unihive/models"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Page struct {
	Items       []models.Listing `json:"data"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int              `json:"total"`
}

// GetPage returns the 1-based page of view. The page is clamped into
// [1, TotalPages]; an empty view has one empty page.
func GetPage(view []models.Listing, page, limit int) Page {
	limit = NormalizeLimit(limit)
	total := len(view)
	totalPages := TotalPages(total, limit)
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}
	items := make([]models.Listing, 0, end-start)
	items = append(items, view[start:end]...)
	return Page{Items: items, TotalPages: totalPages, CurrentPage: page, Total: total}
}

// TotalPages is ceil(total/limit), never less than 1.
func TotalPages(total, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func NormalizeLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
