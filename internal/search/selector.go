package search

import (
	"context"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/store"
)

// SelectSearchStore picks the search backend: the external Redis view when
// it is reachable, the in-memory view otherwise. Like the metadata store
// selection the choice is fixed for the process lifetime.
func SelectSearchStore(ctx context.Context, cfg RedisConfig, meta store.MetadataStore, log *logger.Logger) SearchStore {
	if cfg.Addr == "" {
		log.Warn("No search backend configured, using in-memory search store")
		return NewInMemorySearch(meta, log)
	}
	rs, err := NewRedisSearch(cfg, meta, log)
	if err != nil {
		log.Warn("Search backend unavailable, using in-memory search store", "error", err)
		return NewInMemorySearch(meta, log)
	}
	log.Info("Search backend reachable, using Redis search store")
	return rs
}
