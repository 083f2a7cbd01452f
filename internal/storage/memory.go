package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/listgoat/internal/types"
)

// MemoryStore keeps recipes, records and jobs in process memory. It backs
// dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]*types.Recipe
	records map[string]*types.OutputRecord
	order   []string
	jobs    map[string]*types.CrawlJob
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes: make(map[string]*types.Recipe),
		records: make(map[string]*types.OutputRecord),
		jobs:    make(map[string]*types.CrawlJob),
	}
}

func (s *MemoryStore) LoadRecipe(_ context.Context, id string) (*types.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrRecipeNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) SaveRecipe(_ context.Context, r *types.Recipe) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	cp := *r
	s.recipes[r.ID] = &cp
	return r.ID, nil
}

func (s *MemoryStore) SaveRecords(_ context.Context, recs []*types.OutputRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		key := recordKey(r)
		if _, ok := s.records[key]; !ok {
			s.order = append(s.order, key)
		}
		s.records[key] = r
	}
	return len(recs), nil
}

func (s *MemoryStore) Exists(_ context.Context, site, code, detailURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if matches(r, site, code, detailURL) {
			return true, nil
		}
	}
	return false, nil
}

// Records returns the stored records in first-insert order.
func (s *MemoryStore) Records() []*types.OutputRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.OutputRecord, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k])
	}
	return out
}

func (s *MemoryStore) Create(_ context.Context, recipeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job := &types.CrawlJob{
		ID:        uuid.NewString(),
		RecipeID:  recipeID,
		Status:    types.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	return job.ID, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, status types.JobStatus, log string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	job.Status = status
	job.Log = log
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	cp := *job
	return &cp, nil
}

// List returns the newest jobs first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*types.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.CrawlJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
