package types

import (
	"strings"
	"time"
)

// Output field names, used as coverage keys and in log lines.
const (
	FieldName              = "name"
	FieldCode              = "code"
	FieldPrice             = "price"
	FieldImage             = "image_url"
	FieldDepartureLocation = "departure_location"
	FieldDuration          = "duration"
	FieldDetailURL         = "detail_url"
	FieldDepartureDates    = "departure_dates"
	FieldSchedule          = "schedule"
	FieldImportantNotes    = "important_notes"
)

// OutputFields lists every field reported by coverage validation.
var OutputFields = []string{
	FieldName,
	FieldCode,
	FieldPrice,
	FieldImage,
	FieldDepartureLocation,
	FieldDuration,
	FieldDetailURL,
	FieldDepartureDates,
	FieldSchedule,
	FieldImportantNotes,
}

// ScheduleItem is one day of an itinerary.
type ScheduleItem struct {
	Day     int    `json:"day" bson:"day"`
	Title   string `json:"title" bson:"title"`
	Content string `json:"content" bson:"content"`
}

// OutputRecord is a single crawled listing.
type OutputRecord struct {
	Name              string            `json:"name" bson:"name"`
	Code              string            `json:"code" bson:"code"`
	Price             string            `json:"price" bson:"price"`
	ImageURL          string            `json:"image_url" bson:"image_url"`
	DepartureLocation string            `json:"departure_location" bson:"departure_location"`
	Duration          string            `json:"duration" bson:"duration"`
	DetailURL         string            `json:"detail_url" bson:"detail_url"`
	DepartureDates    []string          `json:"departure_dates" bson:"departure_dates"`
	Schedule          []ScheduleItem    `json:"schedule" bson:"schedule"`
	ImportantNotes    map[string]string `json:"important_notes" bson:"important_notes"`
	SourceSite        string            `json:"source_site" bson:"source_site"`
	RecipeID          string            `json:"recipe_id,omitempty" bson:"recipe_id,omitempty"`
	CrawledAt         time.Time         `json:"crawled_at" bson:"crawled_at"`
}

// NewRecord returns a record with its collections initialized.
func NewRecord() *OutputRecord {
	return &OutputRecord{
		DepartureDates: []string{},
		Schedule:       []ScheduleItem{},
		ImportantNotes: map[string]string{},
		CrawledAt:      time.Now().UTC(),
	}
}

// IsNoise reports whether the record has no name, code or detail URL.
func (r *OutputRecord) IsNoise() bool {
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Code) == "" &&
		strings.TrimSpace(r.DetailURL) == ""
}

// HasField reports whether the named output field carries a value.
// Collections count when they have at least one element.
func (r *OutputRecord) HasField(field string) bool {
	switch field {
	case FieldName:
		return strings.TrimSpace(r.Name) != ""
	case FieldCode:
		return strings.TrimSpace(r.Code) != ""
	case FieldPrice:
		return strings.TrimSpace(r.Price) != ""
	case FieldImage:
		return strings.TrimSpace(r.ImageURL) != ""
	case FieldDepartureLocation:
		return strings.TrimSpace(r.DepartureLocation) != ""
	case FieldDuration:
		return strings.TrimSpace(r.Duration) != ""
	case FieldDetailURL:
		return strings.TrimSpace(r.DetailURL) != ""
	case FieldDepartureDates:
		return len(r.DepartureDates) > 0
	case FieldSchedule:
		return len(r.Schedule) > 0
	case FieldImportantNotes:
		return len(r.ImportantNotes) > 0
	}
	return false
}
