package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/listgoat/internal/fetcher"
	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/types"
)

// CleanMiddleware decodes entities and collapses whitespace in every text
// field, and drops empty dates and schedule days.
type CleanMiddleware struct{}

func (m *CleanMiddleware) Name() string { return "clean" }

func (m *CleanMiddleware) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	for _, f := range []*string{
		&rec.Name, &rec.Code, &rec.Price, &rec.ImageURL, &rec.DepartureLocation,
		&rec.Duration, &rec.DetailURL,
	} {
		*f = parser.CleanText(*f)
	}

	dates := rec.DepartureDates[:0:0]
	for _, d := range rec.DepartureDates {
		if d = parser.CleanText(d); d != "" {
			dates = append(dates, d)
		}
	}
	rec.DepartureDates = dates

	schedule := rec.Schedule[:0:0]
	for _, s := range rec.Schedule {
		s.Title, s.Content = parser.CleanText(s.Title), parser.CleanText(s.Content)
		if s.Title != "" || s.Content != "" {
			schedule = append(schedule, s)
		}
	}
	rec.Schedule = schedule

	for k, v := range rec.ImportantNotes {
		if v = strings.TrimSpace(v); v == "" {
			delete(rec.ImportantNotes, k)
		} else {
			rec.ImportantNotes[k] = v
		}
	}
	return rec, nil
}

// AbsoluteURLMiddleware resolves relative detail and image URLs against
// the recipe's base domain.
type AbsoluteURLMiddleware struct {
	BaseDomain string
}

func (m *AbsoluteURLMiddleware) Name() string { return "absolute_url" }

func (m *AbsoluteURLMiddleware) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	rec.DetailURL = fetcher.Absolute(m.BaseDomain, rec.DetailURL)
	// srcset values carry descriptors; keep the first candidate URL.
	if img := strings.Fields(strings.Split(rec.ImageURL, ",")[0]); len(img) > 0 {
		rec.ImageURL = fetcher.Absolute(m.BaseDomain, img[0])
	}
	return rec, nil
}

// DepartureDateMiddleware rewrites departure dates as DD/MM. "Tháng N:"
// lines expand to one date per listed day, values that hold no date are
// kept as they are, and duplicates are removed in order.
type DepartureDateMiddleware struct{}

func (m *DepartureDateMiddleware) Name() string { return "departure_dates" }

func (m *DepartureDateMiddleware) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	rec.DepartureDates = NormalizeDates(rec.DepartureDates)
	return rec, nil
}

var (
	monthLineRe = regexp.MustCompile(`(?i)^\s*th(?:á|a)ng\s*(\d{1,2})\s*[:\-]\s*(.+)$`)
	dayRe       = regexp.MustCompile(`\d{1,2}`)
	dateRe      = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})|(\d{1,2})[/.\-](\d{1,2})(?:[/.\-](\d{2,4}))?`)
)

// NormalizeDates converts raw departure values to DD/MM.
func NormalizeDates(raw []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, value := range raw {
		for _, line := range strings.Split(value, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if m := monthLineRe.FindStringSubmatch(line); m != nil {
				month, _ := strconv.Atoi(m[1])
				for _, d := range dayRe.FindAllString(m[2], -1) {
					day, _ := strconv.Atoi(d)
					add(ddmm(day, month))
				}
				continue
			}

			found := false
			for _, m := range dateRe.FindAllStringSubmatch(line, -1) {
				var day, month int
				if m[1] != "" {
					month, _ = strconv.Atoi(m[2])
					day, _ = strconv.Atoi(m[3])
				} else {
					day, _ = strconv.Atoi(m[4])
					month, _ = strconv.Atoi(m[5])
				}
				if s := ddmm(day, month); s != "" {
					add(s)
					found = true
				}
			}
			if !found {
				add(line)
			}
		}
	}
	return out
}

func ddmm(day, month int) string {
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%02d/%02d", day, month)
}

// NoiseFilterMiddleware drops records with no name, code or detail URL.
type NoiseFilterMiddleware struct{}

func (m *NoiseFilterMiddleware) Name() string { return "noise_filter" }

func (m *NoiseFilterMiddleware) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	if rec.IsNoise() {
		return nil, nil
	}
	return rec, nil
}

// SourceMiddleware stamps the source site and recipe on every record.
type SourceMiddleware struct {
	Site     string
	RecipeID string
}

func (m *SourceMiddleware) Name() string { return "source" }

func (m *SourceMiddleware) Process(rec *types.OutputRecord) (*types.OutputRecord, error) {
	if m.Site != "" {
		rec.SourceSite = m.Site
	}
	if m.RecipeID != "" {
		rec.RecipeID = m.RecipeID
	}
	return rec, nil
}
