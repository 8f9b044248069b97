package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Record is a fully built catalog record candidate: the enriched metadata
// document together with its derived identity and content hash. Records are
// built here and persisted by a metadata store.
type Record struct {
	UID             uuid.UUID
	ExecutionBlock  string
	DateCreated     string
	DataProductPath string
	MetadataPath    string
	Document        map[string]any
	ContentHash     string
}

// NewFromFile loads a metadata sidecar file and builds a record from it. The
// data product path is taken to be the sidecar's parent directory.
func NewFromFile(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidecar %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: empty document", ErrParse, path)
	}
	return build(doc, path)
}

// NewFromDocument builds a record from an already parsed document that was
// submitted directly, without a backing sidecar file.
func NewFromDocument(doc map[string]any) (*Record, error) {
	return build(doc, "")
}

func build(doc map[string]any, metadataPath string) (*Record, error) {
	executionBlock, ok := doc["execution_block"].(string)
	if !ok || executionBlock == "" {
		return nil, ErrMissingField
	}

	dateCreated, err := DateFromExecutionBlock(executionBlock)
	if err != nil {
		return nil, err
	}

	dataProductPath := ""
	if metadataPath != "" {
		dataProductPath = filepath.Dir(metadataPath)
	}

	uid, err := DeriveUID(executionBlock, dataProductPath)
	if err != nil {
		return nil, err
	}

	enriched := make(map[string]any, len(doc)+4)
	for k, v := range doc {
		enriched[k] = v
	}
	enriched["date_created"] = dateCreated
	if metadataPath != "" {
		enriched["dataproduct_file"] = dataProductPath
		enriched["metadata_file"] = metadataPath
	}
	enriched["uid"] = uid.String()

	hash, err := ContentHash(enriched)
	if err != nil {
		return nil, err
	}

	return &Record{
		UID:             uid,
		ExecutionBlock:  executionBlock,
		DateCreated:     dateCreated,
		DataProductPath: dataProductPath,
		MetadataPath:    metadataPath,
		Document:        enriched,
		ContentHash:     hash,
	}, nil
}

// DeriveUID derives a deterministic UUID from an execution block and the
// data product path: the SHA-256 of "executionBlock:path" reformatted into
// the UUID byte layout. Same inputs always yield the same UUID.
func DeriveUID(executionBlock, path string) (uuid.UUID, error) {
	if executionBlock == "" {
		return uuid.Nil, ErrMissingField
	}
	sum := sha256.Sum256([]byte(executionBlock + ":" + path))
	hexSum := hex.EncodeToString(sum[:])
	formatted := fmt.Sprintf("%s-%s-%s-%s-%s",
		hexSum[:8], hexSum[8:12], hexSum[12:16], hexSum[16:20], hexSum[20:32])
	uid, err := uuid.Parse(formatted)
	if err != nil {
		return uuid.Nil, fmt.Errorf("derive uid for %s: %w", executionBlock, err)
	}
	return uid, nil
}

// DateFromExecutionBlock extracts the date token from an execution block of
// the form type-generatorID-YYYYMMDD-localSeq and returns it as YYYY-MM-DD.
func DateFromExecutionBlock(executionBlock string) (string, error) {
	parts := strings.Split(executionBlock, "-")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q", ErrDateFormat, executionBlock)
	}
	token := parts[2]
	if len(token) != 8 {
		return "", fmt.Errorf("%w: %q", ErrDateFormat, executionBlock)
	}
	parsed, err := time.Parse("20060102", token)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrDateFormat, executionBlock)
	}
	return parsed.Format("2006-01-02"), nil
}

// ContentHash is the SHA-256 of the canonical JSON serialization of the
// document. encoding/json emits map keys in sorted order, which makes the
// serialization canonical. Used for change detection only, never identity.
func ContentHash(doc map[string]any) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
