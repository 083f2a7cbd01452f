package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func record(site, code, url string) *types.OutputRecord {
	r := types.NewRecord()
	r.SourceSite, r.Code, r.DetailURL, r.Name = site, code, url, "Tour "+code
	return r
}

func TestMemoryStoreRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.SaveRecords(ctx, []*types.OutputRecord{
		record("a.vn", "T1", "https://a.vn/t1"),
		record("a.vn", "", "https://a.vn/t2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same code on the same site replaces the earlier record.
	updated := record("a.vn", "T1", "https://a.vn/t1-new")
	updated.Price = "2.000.000đ"
	_, err = s.SaveRecords(ctx, []*types.OutputRecord{updated})
	require.NoError(t, err)

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "2.000.000đ", recs[0].Price)

	for _, tt := range []struct {
		site, code, url string
		want            bool
	}{
		{"a.vn", "T1", "", true},
		{"a.vn", "", "https://a.vn/t2", true},
		{"a.vn", "T9", "https://a.vn/t1-new", true},
		{"a.vn", "T9", "https://a.vn/t9", false},
		{"a.vn", "", "", false},
		// Another site reusing a code is a different record.
		{"b.vn", "T1", "https://b.vn/t1", false},
		{"b.vn", "T1", "", false},
		// A detail URL identifies a record whatever site asks.
		{"b.vn", "", "https://a.vn/t2", true},
	} {
		got, err := s.Exists(ctx, tt.site, tt.code, tt.url)
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("Exists(%q, %q, %q) = %v, want %v", tt.site, tt.code, tt.url, got, tt.want)
		}
	}
}

func TestMemoryStoreRecipes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.LoadRecipe(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrRecipeNotFound)

	id, err := s.SaveRecipe(ctx, &types.Recipe{Name: "dulich"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	r, err := s.LoadRecipe(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dulich", r.Name)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestMemoryStoreJobs(t *testing.T) {
	testJobStore(t, NewMemoryStore())
}

func TestSQLiteJobStore(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "jobs.db")
	s, err := NewSQLiteJobStore(context.Background(), dsn, testLogger)
	require.NoError(t, err)
	defer s.Close()
	testJobStore(t, s)
}

func testJobStore(t *testing.T, s JobStore) {
	t.Helper()
	ctx := context.Background()

	first, err := s.Create(ctx, "r1")
	require.NoError(t, err)
	second, err := s.Create(ctx, "r2")
	require.NoError(t, err)

	job, err := s.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, types.JobPending, job.Status)
	assert.Equal(t, "r1", job.RecipeID)

	require.NoError(t, s.Update(ctx, first, types.JobDone, "saved 5 of 5 records"))
	job, err = s.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, types.JobDone, job.Status)
	assert.Equal(t, "saved 5 of 5 records", job.Log)

	assert.ErrorIs(t, s.Update(ctx, "nope", types.JobFailed, ""), types.ErrJobNotFound)
	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, types.ErrJobNotFound)

	jobs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)

	jobs, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestFileRecipeStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileRecipeStore(dir, testLogger)

	_, err := s.LoadRecipe(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrRecipeNotFound)

	in := &types.Recipe{
		ID:       "dulich",
		BaseURL:  "https://www.dulich.vn/tours",
		Strategy: "client_side",
		Paging:   "load-more",
		ItemList: "//div[@class='tour-card']",
		Fields:   types.ListFields{Name: ".//h3", Code: "NULL"},
		LoadMore: types.LoadMore{Selector: "btn-more"},
	}
	id, err := s.SaveRecipe(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "dulich", id)
	assert.FileExists(t, filepath.Join(dir, "dulich.yaml"))

	out, err := s.LoadRecipe(ctx, "dulich")
	require.NoError(t, err)
	assert.Equal(t, types.StrategyDynamic, out.Strategy)
	assert.Equal(t, types.PagingLoadMore, out.Paging)
	assert.Equal(t, types.LoadMoreByClass, out.LoadMore.Kind)
	assert.Equal(t, "https://www.dulich.vn", out.BaseDomain)
	assert.Equal(t, "src", out.Fields.ImageAttr)
	assert.Len(t, out.FieldSelectors(), 1)
}

func TestFileRecordStorePersists(t *testing.T) {
	ctx := context.Background()
	for _, format := range []string{"json", "jsonl"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "records."+format)

			s, err := NewFileRecordStore(path, "", testLogger)
			require.NoError(t, err)
			_, err = s.SaveRecords(ctx, []*types.OutputRecord{
				record("a.vn", "T1", "https://a.vn/t1"),
				record("a.vn", "T2", "https://a.vn/t2"),
			})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			reopened, err := NewFileRecordStore(path, format, testLogger)
			require.NoError(t, err)
			ok, err := reopened.Exists(ctx, "a.vn", "T2", "")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = reopened.Exists(ctx, "b.vn", "T2", "")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = reopened.SaveRecords(ctx, []*types.OutputRecord{record("a.vn", "T1", "https://a.vn/t1")})
			require.NoError(t, err)
			assert.Len(t, reopened.order, 2)
		})
	}
}

func TestFileRecordStoreFormat(t *testing.T) {
	_, err := NewFileRecordStore(filepath.Join(t.TempDir(), "x.csv"), "csv", testLogger)
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Recipes: "memory", Records: "memory", Jobs: "memory"}, testLogger)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &MemoryStore{}, s.Records)
	assert.IsType(t, &MemoryStore{}, s.Jobs)
}
