package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

// MongoStore keeps recipes and records in two MongoDB collections.
type MongoStore struct {
	client    *mongo.Client
	recipes   *mongo.Collection
	records   *mongo.Collection
	closeOnce sync.Once
	closeErr  error
	logger    *slog.Logger
}

// NewMongoStore connects, pings and ensures the record upsert index.
func NewMongoStore(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*MongoStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Operation: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Operation: "ping", Err: err}
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:  client,
		recipes: db.Collection(cfg.RecipeCollection),
		records: db.Collection(cfg.RecordCollection),
		logger:  logger.With("component", "mongo_storage"),
	}

	_, err = s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source_site", Value: 1}, {Key: "code", Value: 1}}},
		{Keys: bson.D{{Key: "detail_url", Value: 1}}},
	})
	if err != nil {
		s.logger.Warn("failed to create record indexes", "error", err)
	}
	return s, nil
}

func (s *MongoStore) LoadRecipe(ctx context.Context, id string) (*types.Recipe, error) {
	var r types.Recipe
	err := s.recipes.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", types.ErrRecipeNotFound, id)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Operation: "load recipe", Err: err}
	}
	r.Normalize()
	return &r, nil
}

func (s *MongoStore) SaveRecipe(ctx context.Context, r *types.Recipe) (string, error) {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.recipes.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return "", &types.StorageError{Backend: "mongodb", Operation: "save recipe", Err: err}
	}
	return r.ID, nil
}

// SaveRecords upserts each record by (source_site, code), or by detail URL
// when the record has no code.
func (s *MongoStore) SaveRecords(ctx context.Context, recs []*types.OutputRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(recs))
	for _, r := range recs {
		filter := bson.M{"source_site": r.SourceSite, "code": r.Code}
		if strings.TrimSpace(r.Code) == "" {
			filter = bson.M{"source_site": r.SourceSite, "detail_url": r.DetailURL}
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(r).
			SetUpsert(true))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.records.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Operation: "save records", Err: err}
	}
	saved := int(res.UpsertedCount + res.MatchedCount)
	s.logger.Debug("records stored in mongodb", "count", saved, "upserted", res.UpsertedCount)
	return saved, nil
}

func (s *MongoStore) Exists(ctx context.Context, site, code, detailURL string) (bool, error) {
	var or bson.A
	if u := strings.TrimSpace(detailURL); u != "" {
		or = append(or, bson.M{"detail_url": u})
	}
	if c := strings.TrimSpace(code); c != "" {
		or = append(or, bson.M{"source_site": site, "code": c})
	}
	if len(or) == 0 {
		return false, nil
	}
	n, err := s.records.CountDocuments(ctx, bson.M{"$or": or}, options.Count().SetLimit(1))
	if err != nil {
		return false, &types.StorageError{Backend: "mongodb", Operation: "exists", Err: err}
	}
	return n > 0, nil
}

// Close disconnects once; later calls return the first result.
func (s *MongoStore) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("mongodb storage closing")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeErr = s.client.Disconnect(ctx)
	})
	return s.closeErr
}
