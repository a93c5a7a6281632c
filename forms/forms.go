package forms

import (
	"strconv"
	"strings"

	"unihive/apperr"
	"unihive/models"
)

// FormData holds submitted text fields by name.
type FormData map[string]string

func (d FormData) get(name string) string { return strings.TrimSpace(d[name]) }

// FromListing fills a form from an existing listing, the way an edit modal opens.
func FromListing(l models.Listing) FormData {
	d := FormData{}
	for k, v := range l.Attributes {
		d[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			d[k] = v
		}
	}
	set("title", l.Title)
	set("description", l.Description)
	set("category", l.Category)
	set("location", l.Location)
	set("affiliation", l.Affiliation)
	set("company", l.Company)
	set("kind", string(l.Kind))
	set("price", l.Price.String())
	set("deadline", l.Deadline)
	set("status", string(l.Status))
	set("tags", strings.Join(l.Tags, ", "))
	return d
}

// Validate checks data against the hive's form. File fields are not checked here.
func Validate(h models.HiveCategory, data FormData) error {
	fields := Fields(h)
	if fields == nil {
		ve := &apperr.ValidationError{}
		ve.Add("category", "unknown hive")
		return ve
	}
	ve := &apperr.ValidationError{}
	for _, f := range fields {
		if f.InputType == InputFile {
			continue
		}
		v := data.get(f.Name)
		if v == "" {
			if f.Required {
				ve.Add(f.Name, f.Label+" is required")
			}
			continue
		}
		switch f.InputType {
		case InputNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				ve.Add(f.Name, f.Label+" must be a number")
			}
		case InputPrice:
			if form, _, _ := models.ParsePrice(v).Classify(); form == models.PriceUnparseable {
				ve.Add(f.Name, f.Label+` must be a number or a range like "100-200"`)
			}
		case InputDate:
			if _, ok := models.ParseDate(v); !ok {
				ve.Add(f.Name, f.Label+" must be a date (YYYY-MM-DD)")
			}
		case InputSelect:
			if !containsFold(f.Options, v) {
				ve.Add(f.Name, f.Label+" must be one of: "+strings.Join(f.Options, ", "))
			}
		}
	}
	return ve.OrNil()
}

// Apply copies validated form data onto base. Fields the hive does not know
// about are ignored; hive-specific fields land in Attributes.
func Apply(h models.HiveCategory, data FormData, base models.Listing) models.Listing {
	l := base
	l.Hive = h
	attrs := map[string]string{}
	for k, v := range base.Attributes {
		attrs[k] = v
	}
	for _, f := range Fields(h) {
		v := data.get(f.Name)
		switch f.Name {
		case "title":
			l.Title = v
		case "description":
			l.Description = v
		case "category":
			l.Category = v
		case "location":
			l.Location = v
		case "affiliation":
			l.Affiliation = v
		case "company":
			l.Company = v
		case "kind":
			if k, err := models.ParseKind(v); err == nil {
				l.Kind = k
			} else {
				l.Kind = ""
			}
		case "price":
			l.Price = models.ParsePrice(v)
		case "deadline":
			l.Deadline = models.NormalizeDate(v)
		case "status":
			if s, err := models.ParseStatus(v); err == nil {
				l.Status = s
			}
		case "tags":
			l.Tags = SplitTags(v)
		case "image":
			// set by the upload path, never from text input
		default:
			if v == "" {
				delete(attrs, f.Name)
			} else {
				attrs[f.Name] = v
			}
		}
	}
	if l.Status == "" {
		l.Status = models.StatusOpen
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	l.Attributes = attrs
	return l
}

// SplitTags takes a comma-separated string and returns cleaned, de-duplicated tags.
func SplitTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var tags []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(input, ",") {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func containsFold(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}
