package models

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultMinSalary = 0
	DefaultMaxSalary = 10000
)

// FilterCriteria is the full set of narrowing constraints picked by a user.
// It is always replaced as a whole, never merged field by field.
type FilterCriteria struct {
	Tags       []string `json:"tags,omitempty"`
	Status     []Status `json:"status,omitempty"`
	JobType    []Kind   `json:"jobType,omitempty"`
	Category   string   `json:"category,omitempty"`
	University string   `json:"university,omitempty"`
	Location   string   `json:"location,omitempty"`
	MinSalary  float64  `json:"minSalary"`
	MaxSalary  float64  `json:"maxSalary"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
}

func DefaultCriteria() FilterCriteria {
	return FilterCriteria{MinSalary: DefaultMinSalary, MaxSalary: DefaultMaxSalary}
}

// SalaryUnset reports whether the salary bounds are the sentinel "don't filter"
// range [0,10000]. Any other pair, [0,0] included, filters. Build criteria from
// DefaultCriteria rather than the zero value.
func (c FilterCriteria) SalaryUnset() bool {
	return c.MinSalary == DefaultMinSalary && c.MaxSalary == DefaultMaxSalary
}

// Encode writes the non-default fields into q. Set-valued fields become
// repeated keys so values may contain commas.
func (c FilterCriteria) Encode(q url.Values) {
	for _, t := range c.Tags {
		q.Add("tags", t)
	}
	for _, s := range c.Status {
		q.Add("status", string(s))
	}
	for _, k := range c.JobType {
		q.Add("jobType", string(k))
	}
	if c.Category != "" {
		q.Set("categoryFilter", c.Category)
	}
	if c.University != "" {
		q.Set("university", c.University)
	}
	if c.Location != "" {
		q.Set("locationFilter", c.Location)
	}
	if !c.SalaryUnset() {
		q.Set("minSalary", strconv.FormatFloat(c.MinSalary, 'f', -1, 64))
		q.Set("maxSalary", strconv.FormatFloat(c.MaxSalary, 'f', -1, 64))
	}
	if c.StartDate != "" {
		q.Set("startDate", c.StartDate)
	}
	if c.EndDate != "" {
		q.Set("endDate", c.EndDate)
	}
}

// CriteriaFromQuery is the inverse of Encode. Unknown status or kind values
// are kept verbatim so they simply match nothing.
func CriteriaFromQuery(q url.Values) FilterCriteria {
	c := DefaultCriteria()
	c.Tags = cleanList(q["tags"])
	for _, s := range cleanList(q["status"]) {
		c.Status = append(c.Status, Status(s))
	}
	for _, s := range cleanList(q["jobType"]) {
		if k, err := ParseKind(s); err == nil {
			c.JobType = append(c.JobType, k)
		} else {
			c.JobType = append(c.JobType, Kind(s))
		}
	}
	c.Category = strings.TrimSpace(q.Get("categoryFilter"))
	c.University = strings.TrimSpace(q.Get("university"))
	c.Location = strings.TrimSpace(q.Get("locationFilter"))
	if v, err := strconv.ParseFloat(q.Get("minSalary"), 64); err == nil {
		c.MinSalary = v
	}
	if v, err := strconv.ParseFloat(q.Get("maxSalary"), 64); err == nil {
		c.MaxSalary = v
	}
	c.StartDate = strings.TrimSpace(q.Get("startDate"))
	c.EndDate = strings.TrimSpace(q.Get("endDate"))
	return c
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if p := strings.TrimSpace(v); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PaginationState describes the page a view currently shows.
type PaginationState struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}
