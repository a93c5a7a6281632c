// Package filter narrows a listing collection by search term, location and
// FilterCriteria. Everything here is pure: inputs are never modified and the
// relative order of surviving listings is preserved.
package filter

import (
	"strings"

	"unihive/models"
)

type stage func(models.Listing) bool

// Apply runs the pipeline stages in order. A stage whose input is empty is skipped.
func Apply(listings []models.Listing, c models.FilterCriteria, searchTerm, locationOverride string) []models.Listing {
	stages := stagesFor(c, searchTerm, locationOverride)
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if keep(l, stages) {
			out = append(out, l)
		}
	}
	return out
}

// Match reports whether a single listing survives the pipeline.
func Match(l models.Listing, c models.FilterCriteria, searchTerm, locationOverride string) bool {
	return keep(l, stagesFor(c, searchTerm, locationOverride))
}

func keep(l models.Listing, stages []stage) bool {
	for _, s := range stages {
		if !s(l) {
			return false
		}
	}
	return true
}

// stagesFor builds the active stages for the given inputs.
func stagesFor(c models.FilterCriteria, searchTerm, locationOverride string) []stage {
	var stages []stage

	if term := strings.ToLower(strings.TrimSpace(searchTerm)); term != "" {
		stages = append(stages, func(l models.Listing) bool { return matchesSearch(l, term) })
	}

	// Both location inputs apply when both are set.
	if loc := strings.ToLower(strings.TrimSpace(locationOverride)); loc != "" {
		stages = append(stages, func(l models.Listing) bool {
			return containsFold(l.Location, loc) || containsFold(l.Affiliation, loc)
		})
	}
	if loc := strings.ToLower(strings.TrimSpace(c.Location)); loc != "" {
		stages = append(stages, func(l models.Listing) bool { return containsFold(l.Location, loc) })
	}

	if uni := strings.ToLower(strings.TrimSpace(c.University)); uni != "" {
		stages = append(stages, func(l models.Listing) bool { return containsFold(l.Affiliation, uni) })
	}

	if cat := strings.TrimSpace(c.Category); cat != "" {
		stages = append(stages, func(l models.Listing) bool { return strings.EqualFold(l.Category, cat) })
	}

	if len(c.Tags) > 0 {
		want := make(map[string]struct{}, len(c.Tags))
		for _, t := range c.Tags {
			want[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
		stages = append(stages, func(l models.Listing) bool {
			for _, t := range l.Tags {
				if _, ok := want[strings.ToLower(strings.TrimSpace(t))]; ok {
					return true
				}
			}
			return false
		})
	}

	if len(c.Status) > 0 {
		want := make(map[models.Status]struct{}, len(c.Status))
		for _, s := range c.Status {
			want[s] = struct{}{}
		}
		stages = append(stages, func(l models.Listing) bool {
			_, ok := want[l.Status]
			return ok
		})
	}

	if len(c.JobType) > 0 {
		want := make(map[models.Kind]struct{}, len(c.JobType))
		for _, k := range c.JobType {
			want[k] = struct{}{}
		}
		stages = append(stages, func(l models.Listing) bool {
			_, ok := want[l.Kind]
			return ok
		})
	}

	if !c.SalaryUnset() {
		lo, hi := c.MinSalary, c.MaxSalary
		stages = append(stages, func(l models.Listing) bool { return PriceInRange(l.Price, lo, hi) })
	}

	if c.StartDate != "" || c.EndDate != "" {
		start, hasStart := models.ParseDate(c.StartDate)
		end, hasEnd := models.ParseDate(c.EndDate)
		if hasStart || hasEnd {
			stages = append(stages, func(l models.Listing) bool {
				return DeadlineInRange(l.Deadline, start, hasStart, end, hasEnd)
			})
		}
	}

	return stages
}

func matchesSearch(l models.Listing, term string) bool {
	if containsFold(l.Title, term) || containsFold(l.Description, term) ||
		containsFold(l.Company, term) || containsFold(l.Affiliation, term) {
		return true
	}
	for _, t := range l.Tags {
		if containsFold(t, term) {
			return true
		}
	}
	return false
}

// containsFold expects needle already lower-cased.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
