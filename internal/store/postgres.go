package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/metadata"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// PostgresConfig carries the connection parameters of the persistent
// metadata store.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// PostgresStore is the durable, authoritative metadata store. Ingestion is
// serialized by a mutex so the hash/uid check-then-write sequence cannot
// race against a concurrent ingest of the same product.
type PostgresStore struct {
	db  *gorm.DB
	log *logger.Logger
	cfg PostgresConfig

	ingestMu sync.Mutex

	mu           sync.Mutex
	running      bool
	count        int64
	dateModified time.Time
}

func NewPostgresStore(cfg PostgresConfig, log *logger.Logger) (*PostgresStore, error) {
	storeLog := log.With("store", "PostgresStore")

	storeLog.Info("Connecting to PostgreSQL...", "host", cfg.Host, "dbname", cfg.DBName)
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		storeLog.Error("Failed to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("%w: connect: %v", ErrStoreUnavailable, err)
	}
	return newRelationalStore(db, cfg, storeLog)
}

// newRelationalStore finishes store setup on an open gorm connection.
func newRelationalStore(db *gorm.DB, cfg PostgresConfig, storeLog *logger.Logger) (*PostgresStore, error) {
	if err := db.AutoMigrate(&types.DataProduct{}, &types.DataProductAnnotation{}); err != nil {
		storeLog.Error("Failed to migrate catalog tables", "error", err)
		return nil, fmt.Errorf("%w: migrate: %v", ErrStoreUnavailable, err)
	}

	s := &PostgresStore{db: db, log: storeLog, cfg: cfg, running: true}
	if err := s.refreshCount(context.Background()); err != nil {
		return nil, err
	}
	storeLog.Info("Metadata store ready", "number_of_dataproducts", s.Count())
	return s, nil
}

func (s *PostgresStore) IngestFile(ctx context.Context, path string) (uuid.UUID, error) {
	rec, err := metadata.NewFromFile(path)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ingest(ctx, rec)
}

func (s *PostgresStore) IngestDocument(ctx context.Context, doc map[string]any) (uuid.UUID, error) {
	rec, err := metadata.NewFromDocument(doc)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ingest(ctx, rec)
}

// ingest applies the three-way dedup resolution in order: hash match is a
// no-op, uid match updates in place, otherwise insert. Hash match takes
// precedence so byte-identical re-ingestion is always free.
func (s *PostgresStore) ingest(ctx context.Context, rec *metadata.Record) (uuid.UUID, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	var byHash types.DataProduct
	err := s.db.WithContext(ctx).Where("content_hash = ?", rec.ContentHash).First(&byHash).Error
	if err == nil {
		s.log.Info("Metadata with unchanged hash already exists", "execution_block", rec.ExecutionBlock)
		return byHash.UID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, s.degrade("lookup by hash", err)
	}

	payload, err := json.Marshal(rec.Document)
	if err != nil {
		return uuid.Nil, fmt.Errorf("serialize document: %w", err)
	}

	var byUID types.DataProduct
	err = s.db.WithContext(ctx).Where("uid = ?", rec.UID).First(&byUID).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"data":         payload,
			"content_hash": rec.ContentHash,
			"updated_at":   time.Now().UTC(),
		}
		if err := s.db.WithContext(ctx).Model(&types.DataProduct{}).
			Where("uid = ?", rec.UID).Updates(updates).Error; err != nil {
			return uuid.Nil, s.degrade("update", err)
		}
		s.log.Info("Updated metadata", "execution_block", rec.ExecutionBlock)
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := types.DataProduct{
			UID:            rec.UID,
			ExecutionBlock: rec.ExecutionBlock,
			ContentHash:    rec.ContentHash,
			Data:           payload,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return uuid.Nil, s.degrade("insert", err)
		}
		s.log.Info("Inserted new metadata", "execution_block", rec.ExecutionBlock)
	default:
		return uuid.Nil, s.degrade("lookup by uid", err)
	}

	// The write is already durable at this point; a failed count refresh
	// must not make the ingest look failed.
	if err := s.refreshCount(ctx); err != nil {
		s.log.Warn("Count refresh failed after ingest", "error", err)
	}
	s.mu.Lock()
	s.dateModified = time.Now().UTC()
	s.mu.Unlock()
	return rec.UID, nil
}

func (s *PostgresStore) GetMetadata(ctx context.Context, id types.DataProductIdentifier) (map[string]any, error) {
	row, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", row.UID, err)
	}
	return doc, nil
}

func (s *PostgresStore) GetFilePaths(ctx context.Context, id types.DataProductIdentifier) ([]string, error) {
	rows, err := s.findAll(ctx, id)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		var doc map[string]any
		if err := json.Unmarshal(row.Data, &doc); err != nil {
			s.log.Warn("Skipping undecodable document", "uid", row.UID, "error", err)
			continue
		}
		if path, ok := doc["dataproduct_file"].(string); ok && path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]map[string]any, error) {
	var rows []types.DataProduct
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, s.degrade("list all", err)
	}
	docs := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var doc map[string]any
		if err := json.Unmarshal(row.Data, &doc); err != nil {
			s.log.Warn("Skipping undecodable document", "uid", row.UID, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *PostgresStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.count)
}

func (s *PostgresStore) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"store_type":                "Persistent PostgreSQL metadata store",
		"host":                      s.cfg.Host,
		"dbname":                    s.cfg.DBName,
		"running":                   s.running,
		"number_of_dataproducts":    s.count,
		"last_metadata_update_time": s.dateModified,
	}
}

func (s *PostgresStore) SaveAnnotation(ctx context.Context, annotation *types.DataProductAnnotation) error {
	now := time.Now().UTC()
	if annotation.AnnotationID == 0 {
		annotation.TimestampCreated = now
		annotation.TimestampModified = now
		if err := s.db.WithContext(ctx).Create(annotation).Error; err != nil {
			return s.degrade("create annotation", err)
		}
		s.log.Info("New annotation created", "data_product_uid", annotation.DataProductUID)
		return nil
	}
	updates := map[string]any{
		"annotation_text":    annotation.AnnotationText,
		"timestamp_modified": now,
	}
	if err := s.db.WithContext(ctx).Model(&types.DataProductAnnotation{}).
		Where("annotation_id = ?", annotation.AnnotationID).Updates(updates).Error; err != nil {
		return s.degrade("update annotation", err)
	}
	s.log.Info("Annotation updated", "annotation_id", annotation.AnnotationID)
	return nil
}

func (s *PostgresStore) ListAnnotations(ctx context.Context, uid uuid.UUID) ([]types.DataProductAnnotation, error) {
	var annotations []types.DataProductAnnotation
	if err := s.db.WithContext(ctx).
		Where("data_product_uid = ?", uid).
		Order("timestamp_created asc").
		Find(&annotations).Error; err != nil {
		return nil, s.degrade("list annotations", err)
	}
	return annotations, nil
}

func (s *PostgresStore) findOne(ctx context.Context, id types.DataProductIdentifier) (*types.DataProduct, error) {
	var row types.DataProduct
	query := s.db.WithContext(ctx)
	switch {
	case id.UID != "":
		// An unparsable uid is an unknown product, not a store failure; it
		// must never reach the uuid column.
		uid, err := uuid.Parse(id.UID)
		if err != nil {
			return nil, nil
		}
		query = query.Where("uid = ?", uid)
	case id.ExecutionBlock != "":
		query = query.Where("execution_block = ?", id.ExecutionBlock)
	default:
		return nil, nil
	}
	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.degrade("lookup", err)
	}
	return &row, nil
}

func (s *PostgresStore) findAll(ctx context.Context, id types.DataProductIdentifier) ([]types.DataProduct, error) {
	var rows []types.DataProduct
	query := s.db.WithContext(ctx)
	switch {
	case id.UID != "":
		uid, err := uuid.Parse(id.UID)
		if err != nil {
			return nil, nil
		}
		query = query.Where("uid = ?", uid)
	case id.ExecutionBlock != "":
		query = query.Where("execution_block = ?", id.ExecutionBlock)
	default:
		return nil, nil
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, s.degrade("lookup", err)
	}
	return rows, nil
}

// refreshCount keeps the live document count consistent with the last
// completed write.
func (s *PostgresStore) refreshCount(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&types.DataProduct{}).Count(&count).Error; err != nil {
		return s.degrade("count", err)
	}
	s.mu.Lock()
	s.count = count
	s.mu.Unlock()
	return nil
}

// degrade marks the whole store unavailable on a connectivity failure and
// returns the error for the caller to propagate.
func (s *PostgresStore) degrade(op string, err error) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.log.Error("PostgreSQL operation failed, marking store not running", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
