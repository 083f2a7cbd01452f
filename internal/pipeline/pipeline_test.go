package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/IshaanNene/listgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineDefault(t *testing.T) {
	recipe := &types.Recipe{ID: "r1", BaseDomain: "https://www.dulich.vn/"}
	recipe.Normalize()
	p := Default(recipe, testLogger)
	if p.Len() != 5 {
		t.Fatalf("expected 5 middleware, got %d", p.Len())
	}

	rec := types.NewRecord()
	rec.Name = "  Hạ Long &amp; Sapa  4N3Đ "
	rec.DetailURL = "/tour/ha-long"
	rec.ImageURL = "/img/hl.jpg 1x, /img/hl@2x.jpg 2x"
	rec.DepartureDates = []string{"Tháng 5: 12, 19", "12/05/2025", "  "}
	rec.Schedule = []types.ScheduleItem{{Day: 1, Title: " Ngày 1 ", Content: "Hà Nội\n\n  Hạ Long"}, {Day: 2}}
	rec.ImportantNotes = map[string]string{"services-included": " Xe ", "child-policy": " "}

	got, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if got.Name != "Hạ Long & Sapa 4N3Đ" {
		t.Errorf("name = %q", got.Name)
	}
	if got.DetailURL != "https://www.dulich.vn/tour/ha-long" {
		t.Errorf("detail url = %q", got.DetailURL)
	}
	if got.ImageURL != "https://www.dulich.vn/img/hl.jpg" {
		t.Errorf("image url = %q", got.ImageURL)
	}
	if !reflect.DeepEqual(got.DepartureDates, []string{"12/05", "19/05"}) {
		t.Errorf("dates = %v", got.DepartureDates)
	}
	if len(got.Schedule) != 1 || got.Schedule[0].Content != "Hà Nội\nHạ Long" {
		t.Errorf("schedule = %+v", got.Schedule)
	}
	if !reflect.DeepEqual(got.ImportantNotes, map[string]string{"services-included": "Xe"}) {
		t.Errorf("notes = %v", got.ImportantNotes)
	}
	if got.SourceSite != "dulich.vn" || got.RecipeID != "r1" {
		t.Errorf("source = %q recipe = %q", got.SourceSite, got.RecipeID)
	}
}

func TestNoiseFilterDrops(t *testing.T) {
	p := Default(&types.Recipe{BaseDomain: "https://a.vn"}, testLogger)
	rec := types.NewRecord()
	rec.Price = "1.000.000đ"

	got, err := p.Process(rec)
	if err != nil || got != nil {
		t.Errorf("record without name, code or url should be dropped, got %+v err %v", got, err)
	}
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Process(*types.OutputRecord) (*types.OutputRecord, error) {
	return nil, errors.New("boom")
}

func TestPipelineError(t *testing.T) {
	p := New(testLogger)
	p.Use(&CleanMiddleware{})
	p.Use(failing{})

	_, err := p.Process(types.NewRecord())
	var perr *types.PipelineError
	if !errors.As(err, &perr) || perr.Stage != "failing" {
		t.Fatalf("expected PipelineError at failing, got %v", err)
	}
}

func TestNormalizeDates(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"5/6"}, []string{"05/06"}},
		{[]string{"05/06/2025, 12/06/2025"}, []string{"05/06", "12/06"}},
		{[]string{"2025-07-03"}, []string{"03/07"}},
		{[]string{"3-7-2025"}, []string{"03/07"}},
		{[]string{"Tháng 8: 1, 15, 29\nTHANG 9 - 5"}, []string{"01/08", "15/08", "29/08", "05/09"}},
		{[]string{"Hằng ngày"}, []string{"Hằng ngày"}},
		{[]string{"05/06", "5/6", "05/06/2024"}, []string{"05/06"}},
		{[]string{"45/13"}, []string{"45/13"}},
		{nil, []string{}},
	}
	for _, tt := range tests {
		got := NormalizeDates(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NormalizeDates(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
