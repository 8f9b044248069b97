package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/obsnet/dataproduct-catalog/internal/grid"
	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/store"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// ErrSearchUnavailable reports that the external search backend cannot be
// reached; selection falls back to the in-memory search store.
var ErrSearchUnavailable = errors.New("search: search backend unavailable")

const (
	redisRowsKey   = "dataproducts:rows"
	redisDocsKey   = "dataproducts:docs"
	redisNextIDKey = "dataproducts:next_id"
)

// RedisConfig carries the connection parameters of the external search
// backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisSearch keeps the flattened search view in a Redis instance so it
// survives process restarts and can be shared between replicas. Rows and
// their backing documents are stored as JSON values in two hashes keyed by
// uid; filtering itself runs in process over the loaded view.
type RedisSearch struct {
	log     *logger.Logger
	meta    store.MetadataStore
	client  *redis.Client
	columns *grid.ColumnRegistry

	mu       sync.RWMutex
	indexing bool
}

func NewRedisSearch(cfg RedisConfig, meta store.MetadataStore, log *logger.Logger) (*RedisSearch, error) {
	searchLog := log.With("search", "RedisSearch")
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		searchLog.Error("Failed to reach search backend", "addr", cfg.Addr, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	searchLog.Info("Connected to search backend", "addr", cfg.Addr)
	s := &RedisSearch{
		log:     searchLog,
		meta:    meta,
		client:  client,
		columns: grid.NewColumnRegistry(),
	}
	// A restarted process may be serving a view built by a previous one;
	// loading it here recovers its columns right away instead of waiting
	// for a reindex.
	if _, _, err := s.loadView(ctx); err != nil {
		searchLog.Warn("Could not load existing search view", "error", err)
	}
	return s, nil
}

func (s *RedisSearch) InsertProduct(ctx context.Context, doc map[string]any) error {
	uid, ok := doc["uid"].(string)
	if !ok || uid == "" {
		return fmt.Errorf("document without uid cannot be indexed")
	}

	s.columns.Discover(doc)
	flattened := grid.Flatten(doc)

	// Keep the surrogate id of an already indexed product; new products get
	// theirs from an atomic counter so concurrent inserts never collide.
	existing, err := s.client.HGet(ctx, redisRowsKey, uid).Result()
	switch {
	case err == nil:
		var known map[string]any
		if err := json.Unmarshal([]byte(existing), &known); err == nil {
			flattened["id"] = known["id"]
		}
	case errors.Is(err, redis.Nil):
		next, err := s.client.Incr(ctx, redisNextIDKey).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
		}
		flattened["id"] = next
	default:
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	rowJSON, err := json.Marshal(flattened)
	if err != nil {
		return fmt.Errorf("serialize row %s: %w", uid, err)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize document %s: %w", uid, err)
	}
	if err := s.client.HSet(ctx, redisRowsKey, uid, rowJSON).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	if err := s.client.HSet(ctx, redisDocsKey, uid, docJSON).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return nil
}

func (s *RedisSearch) Reindex(ctx context.Context) error {
	s.log.Info("Re-indexing search backend...")
	s.setIndexing(true)
	defer s.setIndexing(false)

	if err := s.client.Del(ctx, redisRowsKey, redisDocsKey, redisNextIDKey).Err(); err != nil {
		return fmt.Errorf("%w: clear view: %v", ErrSearchUnavailable, err)
	}
	documents, err := s.meta.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	for _, doc := range documents {
		if err := s.InsertProduct(ctx, doc); err != nil {
			s.log.Error("Failed to index document during reindex", "error", err)
		}
	}
	s.log.Info("Search backend re-indexed", "number_of_dataproducts", len(documents))
	return nil
}

func (s *RedisSearch) FilterData(ctx context.Context, filterModel, searchPanel types.FilterModel, userGroups []string) ([]map[string]any, error) {
	rows, docs, err := s.loadView(ctx)
	if err != nil {
		return nil, err
	}
	items := append(append([]types.FilterItem{}, filterModel.Items...), searchPanel.Items...)
	filtered := AccessFilter(rows, userGroups)
	return ApplyFilters(filtered, docs, items, s.log), nil
}

func (s *RedisSearch) SearchMetadata(ctx context.Context, startDate, endDate string, pairs []types.KeyValuePair) ([]map[string]any, error) {
	panel := buildSearchPanel(startDate, endDate, pairs, s.log)
	return s.FilterData(ctx, types.FilterModel{}, panel, nil)
}

// loadView pulls the whole flattened view out of Redis, sorted by
// date_created descending like the in-memory view.
func (s *RedisSearch) loadView(ctx context.Context) ([]map[string]any, map[string]map[string]any, error) {
	rawRows, err := s.client.HGetAll(ctx, redisRowsKey).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	rawDocs, err := s.client.HGetAll(ctx, redisDocsKey).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	rows := make([]map[string]any, 0, len(rawRows))
	for uid, rowJSON := range rawRows {
		var row map[string]any
		if err := json.Unmarshal([]byte(rowJSON), &row); err != nil {
			s.log.Warn("Skipping undecodable search row", "uid", uid, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	docs := make(map[string]map[string]any, len(rawDocs))
	for uid, docJSON := range rawDocs {
		var doc map[string]any
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			s.log.Warn("Skipping undecodable search document", "uid", uid, "error", err)
			continue
		}
		docs[uid] = doc
	}
	sortRowsByDate(rows)
	s.registerColumns(rows)
	return rows, docs, nil
}

// registerColumns folds the fields of already flattened rows into the column
// registry.
func (s *RedisSearch) registerColumns(rows []map[string]any) {
	for _, row := range rows {
		for key := range row {
			if key == "id" {
				continue
			}
			s.columns.UpdateColumns(key)
		}
	}
}

func (s *RedisSearch) Indexing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexing
}

func (s *RedisSearch) Columns() *grid.ColumnRegistry { return s.columns }

func (s *RedisSearch) Status() map[string]any {
	count := int64(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if size, err := s.client.HLen(ctx, redisRowsKey).Result(); err == nil {
		count = size
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"metadata_search_store_in_use": "Redis search store",
		"number_of_dataproducts":       count,
		"indexing":                     s.indexing,
	}
}

func (s *RedisSearch) setIndexing(v bool) {
	s.mu.Lock()
	s.indexing = v
	s.mu.Unlock()
}
