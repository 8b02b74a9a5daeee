package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// MongoArchive keeps extracted records in a MongoDB collection keyed by
// record id. Saving the same record again replaces it.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	count      atomic.Int64
	logger     *slog.Logger
}

// NewMongoArchive connects to the archive described by cfg.
func NewMongoArchive(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*MongoArchive, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return newMongoArchive(client, client.Database(cfg.Database).Collection(cfg.Collection), timeout, logger), nil
}

func newMongoArchive(client *mongo.Client, coll *mongo.Collection, timeout time.Duration, logger *slog.Logger) *MongoArchive {
	return &MongoArchive{
		client:     client,
		collection: coll,
		timeout:    timeout,
		logger:     logger.With("component", "mongo_archive"),
	}
}

func (a *MongoArchive) Name() string { return "mongodb" }

// Save upserts rec by id.
func (a *MongoArchive) Save(ctx context.Context, rec *types.Record) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("upsert %s: %w", rec.ID, err)}
	}
	a.count.Add(1)
	return nil
}

// FindByID returns the archived record with id, or types.ErrNotFound.
func (a *MongoArchive) FindByID(ctx context.Context, id string) (*types.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var rec types.Record
	err := a.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find %s: %w", id, err)}
	}
	return &rec, nil
}

// Store upserts a batch of records, so the archive can also serve as an
// export target.
func (a *MongoArchive) Store(recs []*types.Record) error {
	for _, rec := range recs {
		if err := a.Save(context.Background(), rec); err != nil {
			return err
		}
	}
	a.logger.Debug("records archived", "count", len(recs), "total", a.count.Load())
	return nil
}

func (a *MongoArchive) Close() error {
	a.logger.Info("mongodb archive closing", "total_records", a.count.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes records to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Store writes to every backend and returns the first failure.
func (s *MultiStorage) Store(recs []*types.Record) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(recs); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
