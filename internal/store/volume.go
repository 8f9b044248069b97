package store

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/metadata"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// VolumeStore is the in-memory fallback metadata store, populated by walking
// a volume for metadata sidecar files. It honors the same dedup contract as
// the persistent store, but every mutation is lost on process restart.
type VolumeStore struct {
	root        string
	sidecarName string
	log         *logger.Logger

	mu                sync.RWMutex
	records           map[uuid.UUID]*metadata.Record
	byHash            map[string]uuid.UUID
	metadataFileCount int
	dateModified      time.Time
	indexing          bool
}

func NewVolumeStore(root, sidecarName string, log *logger.Logger) *VolumeStore {
	return &VolumeStore{
		root:        root,
		sidecarName: sidecarName,
		log:         log.With("store", "VolumeStore"),
		records:     make(map[uuid.UUID]*metadata.Record),
		byHash:      make(map[string]uuid.UUID),
	}
}

// Scan walks the volume root and ingests every directory that contains the
// well-known sidecar file as one data product. A failure on one product is
// logged and the walk continues.
func (s *VolumeStore) Scan(ctx context.Context) error {
	s.log.Info("Scanning volume for data products...", "root", s.root)
	s.setIndexing(true)
	defer s.setIndexing(false)

	found := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("Cannot access path during scan", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || d.Name() != s.sidecarName {
			return nil
		}
		found++
		if _, err := s.IngestFile(ctx, path); err != nil {
			s.log.Error("Failed to ingest data product", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Volume scan aborted", "error", err)
		return err
	}

	s.mu.Lock()
	s.metadataFileCount = found
	s.mu.Unlock()
	s.log.Info("Volume scan complete", "metadata_files_found", found, "number_of_dataproducts", s.Count())
	return nil
}

func (s *VolumeStore) IngestFile(ctx context.Context, path string) (uuid.UUID, error) {
	rec, err := metadata.NewFromFile(path)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ingest(rec), nil
}

func (s *VolumeStore) IngestDocument(ctx context.Context, doc map[string]any) (uuid.UUID, error) {
	rec, err := metadata.NewFromDocument(doc)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ingest(rec), nil
}

func (s *VolumeStore) ingest(rec *metadata.Record) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uid, ok := s.byHash[rec.ContentHash]; ok {
		return uid
	}
	if existing, ok := s.records[rec.UID]; ok {
		delete(s.byHash, existing.ContentHash)
	}
	s.records[rec.UID] = rec
	s.byHash[rec.ContentHash] = rec.UID
	s.dateModified = time.Now().UTC()
	return rec.UID
}

func (s *VolumeStore) GetMetadata(ctx context.Context, id types.DataProductIdentifier) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id.UID != "" {
		uid, err := uuid.Parse(id.UID)
		if err != nil {
			return map[string]any{}, nil
		}
		if rec, ok := s.records[uid]; ok {
			return rec.Document, nil
		}
		return map[string]any{}, nil
	}
	if id.ExecutionBlock != "" {
		for _, rec := range s.records {
			if rec.ExecutionBlock == id.ExecutionBlock {
				return rec.Document, nil
			}
		}
	}
	return map[string]any{}, nil
}

func (s *VolumeStore) GetFilePaths(ctx context.Context, id types.DataProductIdentifier) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := []string{}
	if id.ExecutionBlock != "" {
		for _, rec := range s.records {
			if rec.ExecutionBlock == id.ExecutionBlock && rec.DataProductPath != "" {
				paths = append(paths, rec.DataProductPath)
			}
		}
		return paths, nil
	}
	if id.UID != "" {
		uid, err := uuid.Parse(id.UID)
		if err != nil {
			return paths, nil
		}
		if rec, ok := s.records[uid]; ok && rec.DataProductPath != "" {
			paths = append(paths, rec.DataProductPath)
		}
	}
	return paths, nil
}

func (s *VolumeStore) ListAll(ctx context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]map[string]any, 0, len(s.records))
	for _, rec := range s.records {
		docs = append(docs, rec.Document)
	}
	return docs, nil
}

func (s *VolumeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *VolumeStore) Status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"store_type":                     "In memory volume index metadata store",
		"root":                           s.root,
		"number_of_dataproducts":         len(s.records),
		"number_of_metadata_files_found": s.metadataFileCount,
		"last_metadata_update_time":      s.dateModified,
		"indexing":                       s.indexing,
	}
}

func (s *VolumeStore) setIndexing(v bool) {
	s.mu.Lock()
	s.indexing = v
	s.mu.Unlock()
}
