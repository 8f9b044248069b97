package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/search"
	"github.com/obsnet/dataproduct-catalog/internal/store"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// ErrAnnotationsUnavailable reports that the active metadata store cannot
// persist annotations, which is the case for the volume-scan fallback.
var ErrAnnotationsUnavailable = errors.New("catalog: annotations not supported by the active metadata store")

// Service is the catalog facade the HTTP layer talks to. It composes the
// metadata store and the search view, keeps them consistent on ingest, and
// owns the background reindex dispatch.
type Service interface {
	IngestFile(ctx context.Context, path string) (uuid.UUID, error)
	IngestDocument(ctx context.Context, doc map[string]any) (uuid.UUID, error)

	GetMetadata(ctx context.Context, id types.DataProductIdentifier) (map[string]any, error)
	GetFilePaths(ctx context.Context, id types.DataProductIdentifier) ([]string, error)

	FilterProducts(ctx context.Context, filterModel, searchPanel types.FilterModel, userGroups []string) ([]map[string]any, error)
	SearchProducts(ctx context.Context, params types.SearchParameters) ([]map[string]any, error)
	TableConfig() map[string]any

	// ReindexAsync triggers a rebuild of the search view from the metadata
	// store in the background. Concurrent triggers share one rebuild.
	ReindexAsync()
	Indexing() bool

	SaveAnnotation(ctx context.Context, annotation *types.DataProductAnnotation) error
	ListAnnotations(ctx context.Context, uid string) ([]types.DataProductAnnotation, error)

	RecordRequest(failed bool)
	Status() map[string]any
}

type catalogService struct {
	log     *logger.Logger
	meta    store.MetadataStore
	search  search.SearchStore
	version string

	startupTime     time.Time
	lastReindexTime atomic.Value // time.Time
	reindexGroup    singleflight.Group

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewService(meta store.MetadataStore, searchStore search.SearchStore, version string, log *logger.Logger) Service {
	serviceLog := log.With("service", "CatalogService")
	s := &catalogService{
		log:         serviceLog,
		meta:        meta,
		search:      searchStore,
		version:     version,
		startupTime: time.Now().UTC(),
	}
	s.lastReindexTime.Store(time.Time{})
	return s
}

// IngestFile loads a metadata file into the metadata store and mirrors the
// stored document into the search view.
func (s *catalogService) IngestFile(ctx context.Context, path string) (uuid.UUID, error) {
	uid, err := s.meta.IngestFile(ctx, path)
	if err != nil {
		return uuid.Nil, err
	}
	s.indexStored(ctx, uid)
	return uid, nil
}

func (s *catalogService) IngestDocument(ctx context.Context, doc map[string]any) (uuid.UUID, error) {
	uid, err := s.meta.IngestDocument(ctx, doc)
	if err != nil {
		return uuid.Nil, err
	}
	s.indexStored(ctx, uid)
	return uid, nil
}

// indexStored re-reads the enriched document from the metadata store and
// pushes it into the search view. An indexing failure does not undo the
// ingest; the view catches up on the next reindex.
func (s *catalogService) indexStored(ctx context.Context, uid uuid.UUID) {
	doc, err := s.meta.GetMetadata(ctx, types.DataProductIdentifier{UID: uid.String()})
	if err != nil || len(doc) == 0 {
		s.log.Warn("Ingested product not readable for indexing", "uid", uid, "error", err)
		return
	}
	if err := s.search.InsertProduct(ctx, doc); err != nil {
		s.log.Error("Failed to index ingested product", "uid", uid, "error", err)
	}
}

func (s *catalogService) GetMetadata(ctx context.Context, id types.DataProductIdentifier) (map[string]any, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("either uid or execution_block is required")
	}
	return s.meta.GetMetadata(ctx, id)
}

func (s *catalogService) GetFilePaths(ctx context.Context, id types.DataProductIdentifier) ([]string, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("either uid or execution_block is required")
	}
	return s.meta.GetFilePaths(ctx, id)
}

func (s *catalogService) FilterProducts(ctx context.Context, filterModel, searchPanel types.FilterModel, userGroups []string) ([]map[string]any, error) {
	return s.search.FilterData(ctx, filterModel, searchPanel, userGroups)
}

func (s *catalogService) SearchProducts(ctx context.Context, params types.SearchParameters) ([]map[string]any, error) {
	pairs := make([]types.KeyValuePair, 0, len(params.KeyValuePairs))
	for _, raw := range params.KeyValuePairs {
		pair, ok := types.ParseKeyValuePair(raw)
		if !ok {
			s.log.Warn("Skipping malformed key:value search pair", "pair", raw)
			continue
		}
		pairs = append(pairs, pair)
	}
	return s.search.SearchMetadata(ctx, params.StartDate, params.EndDate, pairs)
}

func (s *catalogService) TableConfig() map[string]any {
	return s.search.Columns().TableConfig()
}

func (s *catalogService) ReindexAsync() {
	go func() {
		_, err, shared := s.reindexGroup.Do("reindex", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if err := s.search.Reindex(ctx); err != nil {
				return nil, err
			}
			s.lastReindexTime.Store(time.Now().UTC())
			return nil, nil
		})
		if err != nil {
			s.log.Error("Background reindex failed", "error", err)
		}
		if shared {
			s.log.Debug("Reindex trigger coalesced with a run already in flight")
		}
	}()
}

func (s *catalogService) Indexing() bool {
	return s.search.Indexing()
}

func (s *catalogService) SaveAnnotation(ctx context.Context, annotation *types.DataProductAnnotation) error {
	annotations, ok := s.meta.(store.AnnotationStore)
	if !ok {
		return ErrAnnotationsUnavailable
	}
	if annotation.AnnotationText == "" {
		return fmt.Errorf("annotation text is required")
	}
	now := time.Now().UTC()
	if annotation.AnnotationID == 0 {
		annotation.TimestampCreated = now
	}
	annotation.TimestampModified = now
	return annotations.SaveAnnotation(ctx, annotation)
}

func (s *catalogService) ListAnnotations(ctx context.Context, uid string) ([]types.DataProductAnnotation, error) {
	annotations, ok := s.meta.(store.AnnotationStore)
	if !ok {
		return nil, ErrAnnotationsUnavailable
	}
	parsed, err := uuid.Parse(uid)
	if err != nil {
		return nil, fmt.Errorf("invalid data product uid %q: %w", uid, err)
	}
	return annotations.ListAnnotations(ctx, parsed)
}

func (s *catalogService) RecordRequest(failed bool) {
	s.requestCount.Add(1)
	if failed {
		s.errorCount.Add(1)
	}
}

// Status aggregates the API level counters with the status of the active
// metadata and search stores.
func (s *catalogService) Status() map[string]any {
	lastReindex, _ := s.lastReindexTime.Load().(time.Time)
	status := map[string]any{
		"api_running":       true,
		"api_version":       s.version,
		"startup_time":      s.startupTime,
		"request_count":     s.requestCount.Load(),
		"error_count":       s.errorCount.Load(),
		"indexing":          s.Indexing(),
		"last_reindex_time": lastReindex,
		"search_store":      s.search.Status(),
	}
	for k, v := range s.meta.Status() {
		status[k] = v
	}
	return status
}
