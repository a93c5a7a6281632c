package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus maps user input onto a Status. Empty input means open.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusOpen:
		return StatusOpen, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Kind string

const (
	KindFullTime   Kind = "Full-time"
	KindPartTime   Kind = "Part-time"
	KindContract   Kind = "Contract"
	KindInternship Kind = "Internship"
	KindVolunteer  Kind = "Volunteer"
)

var Kinds = []Kind{KindFullTime, KindPartTime, KindContract, KindInternship, KindVolunteer}

// ParseKind matches case-insensitively against Kinds.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Listing is a single postable item in a hive: a job, a textbook for sale, a ride, an event.
type Listing struct {
	ID          string            `bson:"id" json:"id"`
	Hive        HiveCategory      `bson:"hive" json:"hive"`
	Title       string            `bson:"title" json:"title"`
	Description string            `bson:"description,omitempty" json:"description,omitempty"`
	Tags        []string          `bson:"tags,omitempty" json:"tags,omitempty"`
	Status      Status            `bson:"status" json:"status"`
	Category    string            `bson:"category,omitempty" json:"category,omitempty"`
	Location    string            `bson:"location" json:"location"`
	Affiliation string            `bson:"affiliation,omitempty" json:"affiliation,omitempty"`
	Company     string            `bson:"company,omitempty" json:"company,omitempty"`
	Kind        Kind              `bson:"kind,omitempty" json:"kind,omitempty"`
	Price       Price             `bson:"price" json:"price"`
	PostedAt    time.Time         `bson:"postedAt" json:"postedAt"`
	Deadline    string            `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedBy   string            `bson:"createdBy" json:"createdBy"`
	Attributes  map[string]string `bson:"attributes,omitempty" json:"attributes,omitempty"`
	Image       string            `bson:"image,omitempty" json:"image,omitempty"`
	Thumb       string            `bson:"thumb,omitempty" json:"thumb,omitempty"`
	UpdatedAt   time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type PriceForm int

const (
	PriceNone PriceForm = iota
	PriceNumber
	PriceRange
	PriceUnparseable
)

// Price is either a number, a textual "<min>-<max>" range, or absent
// (free or negotiable). On the wire it is a JSON number, string or null.
type Price struct {
	Amount *float64 `bson:"amount,omitempty"`
	Text   string   `bson:"text,omitempty"`
}

func NumberPrice(v float64) Price { return Price{Amount: &v} }

func TextPrice(s string) Price { return Price{Text: s} }

// ParsePrice reads user input: "" is absent, "500" a number, anything else text.
func ParsePrice(s string) Price {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberPrice(v)
	}
	return TextPrice(s)
}

func (p Price) IsZero() bool { return p.Amount == nil && p.Text == "" }

// Classify resolves the price into its form. For PriceNumber lo == hi.
func (p Price) Classify() (form PriceForm, lo, hi float64) {
	if p.Amount != nil {
		return PriceNumber, *p.Amount, *p.Amount
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return PriceNone, 0, 0
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return PriceNumber, v, v
	}
	// split on the first dash after the leading character so "-5" is not a range
	idx := strings.Index(text[1:], "-")
	if idx < 0 {
		return PriceUnparseable, 0, 0
	}
	idx++
	a, errA := strconv.ParseFloat(strings.TrimSpace(text[:idx]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(text[idx+1:]), 64)
	if errA != nil || errB != nil {
		return PriceUnparseable, 0, 0
	}
	return PriceRange, a, b
}

func (p Price) String() string {
	if p.Amount != nil {
		return strconv.FormatFloat(*p.Amount, 'f', -1, 64)
	}
	return p.Text
}

func (p Price) MarshalJSON() ([]byte, error) {
	switch {
	case p.Amount != nil:
		return json.Marshal(*p.Amount)
	case p.Text != "":
		return json.Marshal(p.Text)
	default:
		return []byte("null"), nil
	}
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = Price{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.Text = s
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	p.Amount = &v
	return nil
}

const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns the
// calendar date (midnight UTC) it names. Time of day is discarded.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// NormalizeDate rewrites a parseable date to DateLayout and leaves anything else as given.
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return strings.TrimSpace(s)
}
