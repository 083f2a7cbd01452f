package engine

import (
	"golang.org/x/net/html"

	"github.com/IshaanNene/listgoat/internal/fetcher"
	"github.com/IshaanNene/listgoat/internal/parser"
	"github.com/IshaanNene/listgoat/internal/types"
)

// Common detail-page layouts tried when a recipe selector is empty or
// matches nothing.
var (
	fallbackDayTitles = []string{
		"//div[contains(@class,'itinerary-box')]//div[contains(@class,'iti-day-title')]",
		"//div[contains(@class,'ngaylichtrinh')]",
		"//div[contains(@class,'day-title')]",
	}
	fallbackDayContents = []string{
		"//div[contains(@class,'itinerary-box')]//div[contains(@class,'iti-day-content')]",
		"//div[contains(@class,'noidunglichtrinh')]",
		"//div[contains(@class,'day-content')]",
	}
	fallbackNotes = []string{
		"//div[contains(@class,'service-policy')]",
		"//div[contains(@class,'note')]",
	}
	fallbackDates = []string{
		"//div[contains(@class,'list-depart-date')]//span",
		"//span[contains(@class,'depart-date')]",
	}
)

// extractItem builds a skeleton record from one list item node. The
// detail URL is made absolute here so it can serve as a dedup key.
func extractItem(n *html.Node, r *types.Recipe) *types.OutputRecord {
	f := r.Fields
	rec := types.NewRecord()
	rec.Name = parser.ExtractScalar(n, f.Name)
	rec.Code = parser.ExtractScalar(n, f.Code)
	rec.Price = parser.ExtractScalar(n, f.Price)
	rec.DepartureLocation = parser.ExtractScalar(n, f.DepartureLocation)
	rec.Duration = parser.ExtractScalar(n, f.Duration)
	rec.DepartureDates = parser.ExtractMultiple(n, f.DepartureDates)

	rec.ImageURL = parser.ExtractAttr(n, f.Image, f.ImageAttr)
	if rec.ImageURL == "" && f.ImageAttr != "src" {
		rec.ImageURL = parser.ExtractAttr(n, f.Image, "src")
	}
	rec.DetailURL = fetcher.Absolute(r.BaseDomain, parser.ExtractAttr(n, f.DetailURL, f.DetailURLAttr))

	rec.SourceSite = r.SourceSite()
	rec.RecipeID = r.ID
	return rec
}

// enrich fills schedule and notes from a detail page and backfills list
// fields that came back empty, last of all from the page's JSON-LD and
// OpenGraph metadata.
func (e *Engine) enrich(rec *types.OutputRecord, doc *html.Node, r *types.Recipe) {
	titles := e.selectNodes(doc, r.Detail.DayTitle, fallbackDayTitles)
	contents := e.selectNodes(doc, r.Detail.DayContent, fallbackDayContents)
	for i := 0; i < min(len(titles), len(contents)); i++ {
		rec.Schedule = append(rec.Schedule, types.ScheduleItem{
			Day:     i + 1,
			Title:   parser.Text(titles[i]),
			Content: parser.BlockText(contents[i]),
		})
	}

	noteSelectors := []string{r.Detail.Note}
	if e.cfg.UseDetailFallback {
		noteSelectors = append(noteSelectors, fallbackNotes...)
	}
	for k, v := range e.classifier.Classify(doc, noteSelectors...) {
		rec.ImportantNotes[k] = v
	}

	if len(rec.DepartureDates) == 0 {
		for _, n := range e.selectNodes(doc, r.Fields.DepartureDates, fallbackDates) {
			if t := parser.Text(n); t != "" {
				rec.DepartureDates = append(rec.DepartureDates, t)
			}
		}
	}
	if rec.Code == "" {
		rec.Code = parser.ExtractScalar(doc, r.Fields.Code)
	}
	if rec.DepartureLocation == "" {
		rec.DepartureLocation = parser.ExtractScalar(doc, r.Fields.DepartureLocation)
	}
	if rec.Duration == "" {
		rec.Duration = parser.ExtractScalar(doc, r.Fields.Duration)
	}
	if rec.Name == "" {
		rec.Name = parser.ExtractScalar(doc, r.Fields.Name)
	}

	if rec.Name == "" || rec.ImageURL == "" || rec.Price == "" {
		meta := parser.ExtractMeta(doc)
		if rec.Name == "" {
			rec.Name = meta.Name
		}
		if rec.ImageURL == "" {
			rec.ImageURL = meta.Image
		}
		if rec.Price == "" {
			rec.Price = meta.Price
		}
	}
}

// selectNodes returns the matches of the recipe selector, or of the first
// fallback that matches anything.
func (e *Engine) selectNodes(doc *html.Node, primary string, fallbacks []string) []*html.Node {
	if nodes := parser.MustQueryAll(doc, types.Selector(primary)); len(nodes) > 0 {
		return nodes
	}
	if !e.cfg.UseDetailFallback {
		return nil
	}
	for _, xp := range fallbacks {
		if nodes := parser.MustQueryAll(doc, xp); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}
