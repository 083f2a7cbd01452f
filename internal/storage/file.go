package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/listgoat/internal/types"
)

// --- Recipe files ---

// FileRecipeStore keeps one YAML file per recipe, named <id>.yaml.
type FileRecipeStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileRecipeStore creates a recipe store rooted at dir.
func NewFileRecipeStore(dir string, logger *slog.Logger) *FileRecipeStore {
	return &FileRecipeStore{
		dir:    dir,
		logger: logger.With("component", "file_recipe_store"),
	}
}

func (s *FileRecipeStore) path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".yaml")
}

func (s *FileRecipeStore) LoadRecipe(_ context.Context, id string) (*types.Recipe, error) {
	r, err := ReadRecipeFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrRecipeNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = id
	}
	return r, nil
}

func (s *FileRecipeStore) SaveRecipe(_ context.Context, r *types.Recipe) (string, error) {
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

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &types.StorageError{Backend: "file", Operation: "save recipe", Err: err}
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode recipe: %w", err)
	}
	if err := os.WriteFile(s.path(r.ID), data, 0o644); err != nil {
		return "", &types.StorageError{Backend: "file", Operation: "save recipe", Err: err}
	}
	s.logger.Debug("recipe saved", "id", r.ID, "path", s.path(r.ID))
	return r.ID, nil
}

func (s *FileRecipeStore) Close() error { return nil }

// ReadRecipeFile parses a YAML recipe and normalizes it.
func ReadRecipeFile(path string) (*types.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r types.Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	r.Normalize()
	return &r, nil
}

// --- Record files ---

// FileRecordStore writes records to a JSON array or JSONL file. Existing
// records are loaded on open so Exists sees earlier runs, and every save
// rewrites the file with upserted contents.
type FileRecordStore struct {
	path    string
	format  string
	mu      sync.Mutex
	records map[string]*types.OutputRecord
	order   []string
	logger  *slog.Logger
}

// NewFileRecordStore opens (or prepares) the record file at path. Format
// is "json" or "jsonl"; empty picks by file extension.
func NewFileRecordStore(path, format string, logger *slog.Logger) (*FileRecordStore, error) {
	if format == "" {
		format = "json"
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			format = "jsonl"
		}
	}
	if format != "json" && format != "jsonl" {
		return nil, fmt.Errorf("unsupported record format %q", format)
	}

	s := &FileRecordStore{
		path:    path,
		format:  format,
		records: make(map[string]*types.OutputRecord),
		logger:  logger.With("component", "file_record_store"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileRecordStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &types.StorageError{Backend: s.format, Operation: "open", Err: err}
	}
	defer f.Close()

	var recs []*types.OutputRecord
	if s.format == "jsonl" {
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			var r types.OutputRecord
			if err := json.Unmarshal([]byte(line), &r); err != nil {
				return &types.StorageError{Backend: s.format, Operation: "decode", Err: err}
			}
			recs = append(recs, &r)
		}
		if err := sc.Err(); err != nil {
			return &types.StorageError{Backend: s.format, Operation: "read", Err: err}
		}
	} else if err := json.NewDecoder(f).Decode(&recs); err != nil && !errors.Is(err, io.EOF) {
		return &types.StorageError{Backend: s.format, Operation: "decode", Err: err}
	}

	for _, r := range recs {
		s.put(r)
	}
	s.logger.Debug("records loaded", "path", s.path, "count", len(recs))
	return nil
}

func (s *FileRecordStore) put(r *types.OutputRecord) {
	key := recordKey(r)
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = r
}

func (s *FileRecordStore) SaveRecords(_ context.Context, recs []*types.OutputRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.put(r)
	}
	if err := s.flush(); err != nil {
		return 0, err
	}
	s.logger.Info("records written", "path", s.path, "saved", len(recs), "total", len(s.order))
	return len(recs), nil
}

func (s *FileRecordStore) flush() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &types.StorageError{Backend: s.format, Operation: "mkdir", Err: err}
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return &types.StorageError{Backend: s.format, Operation: "create", Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if s.format == "jsonl" {
		enc := json.NewEncoder(w)
		for _, k := range s.order {
			if err := enc.Encode(s.records[k]); err != nil {
				return &types.StorageError{Backend: s.format, Operation: "encode", Err: err}
			}
		}
	} else {
		out := make([]*types.OutputRecord, 0, len(s.order))
		for _, k := range s.order {
			out = append(out, s.records[k])
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return &types.StorageError{Backend: s.format, Operation: "encode", Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		return &types.StorageError{Backend: s.format, Operation: "flush", Err: err}
	}
	return nil
}

func (s *FileRecordStore) Exists(_ context.Context, site, code, detailURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if matches(r, site, code, detailURL) {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileRecordStore) Close() error { return nil }
