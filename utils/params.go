package utils

import (
	"net/http"
	"strconv"
)

// ParsePagination reads page and limit from the query string. page is 1-based;
// limit falls back to def and is capped at max.
func ParsePagination(r *http.Request, def, max int) (page, limit int) {
	q := r.URL.Query()

	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
