package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/metadata"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

const sidecarName = "ska-data-product.yaml"

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func writeSidecar(t *testing.T, root, executionBlock, body string) string {
	t.Helper()
	productDir := filepath.Join(root, executionBlock)
	if err := os.MkdirAll(productDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(productDir, sidecarName)
	content := "execution_block: " + executionBlock + "\n" + body
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVolumeStore_ScanFindsProducts(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "eb-m001-20230101-0", "")
	writeSidecar(t, root, "eb-m001-20230102-0", "")
	os.WriteFile(filepath.Join(root, "unrelated.txt"), []byte("x"), 0o644)

	s := NewVolumeStore(root, sidecarName, testLogger(t))
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := s.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
}

func TestVolumeStore_ScanSkipsBadProducts(t *testing.T) {
	root := t.TempDir()
	writeSidecar(t, root, "eb-m001-20230101-0", "")
	// Bad date token: this one product fails, the scan continues.
	writeSidecar(t, root, "eb-m001-baddate-0", "")

	s := NewVolumeStore(root, sidecarName, testLogger(t))
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}

func TestVolumeStore_IngestIdempotent(t *testing.T) {
	root := t.TempDir()
	path := writeSidecar(t, root, "eb-m001-20230101-0", "")
	s := NewVolumeStore(root, sidecarName, testLogger(t))

	first, err := s.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	second, err := s.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if first != second {
		t.Fatalf("idempotent ingest returned different uids: %s != %s", first, second)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count = %d after duplicate ingest, want 1", got)
	}
}

func TestVolumeStore_UpdateInPlace(t *testing.T) {
	root := t.TempDir()
	path := writeSidecar(t, root, "eb-m001-20230101-0", "context:\n  notes: original\n")
	s := NewVolumeStore(root, sidecarName, testLogger(t))

	first, err := s.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	writeSidecar(t, root, "eb-m001-20230101-0", "context:\n  notes: changed\n")
	second, err := s.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Fatalf("update changed identity: %s != %s", first, second)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count = %d after update, want 1", got)
	}

	doc, err := s.GetMetadata(context.Background(), types.DataProductIdentifier{UID: first.String()})
	if err != nil {
		t.Fatal(err)
	}
	ctxSection, _ := doc["context"].(map[string]any)
	if ctxSection["notes"] != "changed" {
		t.Fatalf("document not updated in place: %v", doc)
	}
}

func TestVolumeStore_MalformedDocumentRejected(t *testing.T) {
	s := NewVolumeStore(t.TempDir(), sidecarName, testLogger(t))
	_, err := s.IngestDocument(context.Background(), map[string]any{"context": map[string]any{}})
	if !errors.Is(err, metadata.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Fatalf("Count = %d after rejected ingest, want 0", got)
	}
}

func TestVolumeStore_GetMetadataByExecutionBlock(t *testing.T) {
	s := NewVolumeStore(t.TempDir(), sidecarName, testLogger(t))
	_, err := s.IngestDocument(context.Background(), map[string]any{"execution_block": "eb-m001-20230101-0"})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.GetMetadata(context.Background(), types.DataProductIdentifier{ExecutionBlock: "eb-m001-20230101-0"})
	if err != nil {
		t.Fatal(err)
	}
	if doc["execution_block"] != "eb-m001-20230101-0" {
		t.Fatalf("GetMetadata returned %v", doc)
	}

	missing, err := s.GetMetadata(context.Background(), types.DataProductIdentifier{ExecutionBlock: "eb-unknown-20230101-0"})
	if err != nil {
		t.Fatalf("unknown execution block must not error: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unknown execution block returned %v, want empty", missing)
	}
}

func TestVolumeStore_GetFilePaths(t *testing.T) {
	root := t.TempDir()
	path := writeSidecar(t, root, "eb-m001-20230101-0", "")
	s := NewVolumeStore(root, sidecarName, testLogger(t))
	uid, err := s.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Dir(path)
	byEB, err := s.GetFilePaths(context.Background(), types.DataProductIdentifier{ExecutionBlock: "eb-m001-20230101-0"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byEB) != 1 || byEB[0] != want {
		t.Fatalf("GetFilePaths by execution block = %v, want [%s]", byEB, want)
	}

	byUID, err := s.GetFilePaths(context.Background(), types.DataProductIdentifier{UID: uid.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(byUID) != 1 || byUID[0] != want {
		t.Fatalf("GetFilePaths by uid = %v, want [%s]", byUID, want)
	}
}
