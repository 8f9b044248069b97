package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// ErrStoreUnavailable reports that the backing store cannot be reached. It
// triggers backend fallback at selection time and degrades the whole store,
// never a single call silently.
var ErrStoreUnavailable = errors.New("store: metadata store unavailable")

// MetadataStore is the authoritative storage capability for data product
// metadata. "Not found" reads return an empty result, never an error.
type MetadataStore interface {
	// IngestFile builds a record from a metadata sidecar file and applies the
	// identity/dedup resolution: unchanged hash is a no-op, a known uid is
	// updated in place, otherwise a new record is inserted.
	IngestFile(ctx context.Context, path string) (uuid.UUID, error)

	// IngestDocument ingests an already parsed metadata document.
	IngestDocument(ctx context.Context, doc map[string]any) (uuid.UUID, error)

	// GetMetadata returns the stored document for the identifier, or an empty
	// document when unknown.
	GetMetadata(ctx context.Context, id types.DataProductIdentifier) (map[string]any, error)

	// GetFilePaths returns the data product paths for the identifier.
	GetFilePaths(ctx context.Context, id types.DataProductIdentifier) ([]string, error)

	// ListAll returns every stored document. Used by reindex.
	ListAll(ctx context.Context) ([]map[string]any, error)

	// Count is the number of stored documents as of the last completed write.
	Count() int

	Status() map[string]any
}

// AnnotationStore is the optional annotation capability. Only the relational
// store provides it; callers discover it with a type assertion.
type AnnotationStore interface {
	SaveAnnotation(ctx context.Context, annotation *types.DataProductAnnotation) error
	ListAnnotations(ctx context.Context, uid uuid.UUID) ([]types.DataProductAnnotation, error)
}
