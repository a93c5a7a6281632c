package filter

import (
	"time"

	"unihive/models"
)

// PriceInRange checks a price against [lo, hi]. Ranges must be contained,
// not merely overlap. Absent and unparseable prices always pass.
func PriceInRange(p models.Price, lo, hi float64) bool {
	form, a, b := p.Classify()
	switch form {
	case models.PriceNumber:
		return lo <= a && a <= hi
	case models.PriceRange:
		return a >= lo && b <= hi
	default:
		return true
	}
}

// DeadlineInRange compares a deadline as a calendar date. Listings without a
// deadline, or with one that cannot be parsed, pass.
func DeadlineInRange(deadline string, start time.Time, hasStart bool, end time.Time, hasEnd bool) bool {
	d, ok := models.ParseDate(deadline)
	if !ok {
		return true
	}
	if hasStart && d.Before(start) {
		return false
	}
	if hasEnd && d.After(end) {
		return false
	}
	return true
}
