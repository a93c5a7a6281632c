// Package forms describes the create/edit form of each hive and turns
// submitted form data into listings.
package forms

import "unihive/models"

type InputType string

const (
	InputText     InputType = "text"
	InputTextarea InputType = "textarea"
	InputNumber   InputType = "number"
	InputPrice    InputType = "price"
	InputDate     InputType = "date"
	InputSelect   InputType = "select"
	InputTags     InputType = "tags"
	InputFile     InputType = "file"
)

type Field struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	InputType InputType `json:"inputType"`
	Required  bool      `json:"required"`
	Options   []string  `json:"options,omitempty"`
}

var (
	statusOptions    = []string{string(models.StatusOpen), string(models.StatusInProgress), string(models.StatusCompleted)}
	conditionOptions = []string{"new", "like new", "good", "fair"}
)

func kindOptions() []string {
	out := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		out[i] = string(k)
	}
	return out
}

// Fields returns the ordered form of a hive. Unknown hives have no form.
func Fields(h models.HiveCategory) []Field {
	switch h {
	case models.HiveEssentials:
		return []Field{
			{Name: "title", Label: "Item name", InputType: InputText, Required: true},
			{Name: "description", Label: "Description", InputType: InputTextarea, Required: true},
			{Name: "category", Label: "Category", InputType: InputText},
			{Name: "condition", Label: "Condition", InputType: InputSelect, Options: conditionOptions},
			{Name: "price", Label: "Price", InputType: InputPrice},
			{Name: "location", Label: "Pickup location", InputType: InputText, Required: true},
			{Name: "affiliation", Label: "University", InputType: InputText},
			{Name: "tags", Label: "Tags", InputType: InputTags},
			{Name: "image", Label: "Photo", InputType: InputFile},
		}
	case models.HiveAcademia:
		return []Field{
			{Name: "title", Label: "Title", InputType: InputText, Required: true},
			{Name: "description", Label: "What you offer", InputType: InputTextarea, Required: true},
			{Name: "category", Label: "Subject", InputType: InputText, Required: true},
			{Name: "affiliation", Label: "University", InputType: InputText, Required: true},
			{Name: "location", Label: "Where", InputType: InputText},
			{Name: "price", Label: "Rate", InputType: InputPrice},
			{Name: "deadline", Label: "Available until", InputType: InputDate},
			{Name: "tags", Label: "Tags", InputType: InputTags},
		}
	case models.HiveLogistics:
		return []Field{
			{Name: "title", Label: "Title", InputType: InputText, Required: true},
			{Name: "description", Label: "Details", InputType: InputTextarea},
			{Name: "location", Label: "From", InputType: InputText, Required: true},
			{Name: "destination", Label: "To", InputType: InputText, Required: true},
			{Name: "deadline", Label: "Date", InputType: InputDate, Required: true},
			{Name: "seats", Label: "Seats / capacity", InputType: InputNumber},
			{Name: "price", Label: "Cost share", InputType: InputPrice},
			{Name: "tags", Label: "Tags", InputType: InputTags},
		}
	case models.HiveBuzz:
		return []Field{
			{Name: "title", Label: "Event name", InputType: InputText, Required: true},
			{Name: "description", Label: "About the event", InputType: InputTextarea, Required: true},
			{Name: "location", Label: "Venue", InputType: InputText, Required: true},
			{Name: "deadline", Label: "Event date", InputType: InputDate, Required: true},
			{Name: "affiliation", Label: "Hosted by", InputType: InputText},
			{Name: "price", Label: "Entry fee", InputType: InputPrice},
			{Name: "tags", Label: "Tags", InputType: InputTags},
			{Name: "image", Label: "Poster", InputType: InputFile},
		}
	case models.HiveArchive:
		return []Field{
			{Name: "title", Label: "Title", InputType: InputText, Required: true},
			{Name: "description", Label: "Notes", InputType: InputTextarea},
			{Name: "category", Label: "Course", InputType: InputText},
			{Name: "affiliation", Label: "University", InputType: InputText},
			{Name: "location", Label: "Where to find it", InputType: InputText},
			{Name: "tags", Label: "Tags", InputType: InputTags},
		}
	case models.HiveSideHustle:
		return []Field{
			{Name: "title", Label: "Role", InputType: InputText, Required: true},
			{Name: "company", Label: "Company", InputType: InputText},
			{Name: "description", Label: "Job description", InputType: InputTextarea, Required: true},
			{Name: "kind", Label: "Job type", InputType: InputSelect, Required: true, Options: kindOptions()},
			{Name: "price", Label: "Pay", InputType: InputPrice, Required: true},
			{Name: "location", Label: "Location", InputType: InputText, Required: true},
			{Name: "affiliation", Label: "University", InputType: InputText},
			{Name: "deadline", Label: "Apply by", InputType: InputDate},
			{Name: "status", Label: "Status", InputType: InputSelect, Options: statusOptions},
			{Name: "tags", Label: "Skills", InputType: InputTags},
		}
	}
	return nil
}
