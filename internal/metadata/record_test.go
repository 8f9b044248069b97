package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveUID_Deterministic(t *testing.T) {
	first, err := DeriveUID("eb-m001-20230101-0", "/data/eb-m001-20230101-0")
	if err != nil {
		t.Fatalf("DeriveUID failed: %v", err)
	}
	second, err := DeriveUID("eb-m001-20230101-0", "/data/eb-m001-20230101-0")
	if err != nil {
		t.Fatalf("DeriveUID failed on repeat: %v", err)
	}
	if first != second {
		t.Fatalf("DeriveUID not deterministic: %s != %s", first, second)
	}

	other, err := DeriveUID("eb-m001-20230101-0", "/data/other")
	if err != nil {
		t.Fatalf("DeriveUID failed for other path: %v", err)
	}
	if other == first {
		t.Fatalf("different paths produced the same uid %s", first)
	}
}

func TestDeriveUID_EmptyExecutionBlock(t *testing.T) {
	if _, err := DeriveUID("", "/data/x"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDateFromExecutionBlock(t *testing.T) {
	tests := []struct {
		executionBlock string
		want           string
		wantErr        bool
	}{
		{"type-generatorID-20230411-localSeq", "2023-04-11", false},
		{"eb-m001-20230101-0", "2023-01-01", false},
		{"eb-m001", "", true},
		{"eb-m001-2023011-0", "", true},
		{"eb-m001-notadate-0", "", true},
		{"eb-m001-20231504-0", "", true},
	}
	for _, tt := range tests {
		got, err := DateFromExecutionBlock(tt.executionBlock)
		if tt.wantErr {
			if !errors.Is(err, ErrDateFormat) {
				t.Errorf("%q: expected ErrDateFormat, got %v", tt.executionBlock, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.executionBlock, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.executionBlock, got, tt.want)
		}
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	productDir := filepath.Join(dir, "eb-m001-20230101-0")
	if err := os.MkdirAll(productDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sidecar := filepath.Join(productDir, "ska-data-product.yaml")
	content := "execution_block: eb-m001-20230101-0\ncontext:\n  observer: jane\n"
	if err := os.WriteFile(sidecar, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := NewFromFile(sidecar)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if rec.ExecutionBlock != "eb-m001-20230101-0" {
		t.Errorf("execution block = %q", rec.ExecutionBlock)
	}
	if rec.DateCreated != "2023-01-01" {
		t.Errorf("date created = %q", rec.DateCreated)
	}
	if rec.DataProductPath != productDir {
		t.Errorf("data product path = %q, want %q", rec.DataProductPath, productDir)
	}
	if rec.Document["metadata_file"] != sidecar {
		t.Errorf("metadata_file = %v", rec.Document["metadata_file"])
	}
	if rec.Document["uid"] != rec.UID.String() {
		t.Errorf("uid not appended to document")
	}
	if rec.ContentHash == "" {
		t.Errorf("content hash empty")
	}

	again, err := NewFromFile(sidecar)
	if err != nil {
		t.Fatalf("NewFromFile failed on repeat: %v", err)
	}
	if again.UID != rec.UID {
		t.Errorf("uid not stable across loads: %s != %s", again.UID, rec.UID)
	}
	if again.ContentHash != rec.ContentHash {
		t.Errorf("content hash not stable across loads")
	}
}

func TestNewFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	sidecar := filepath.Join(dir, "ska-data-product.yaml")
	if err := os.WriteFile(sidecar, []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(sidecar); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestNewFromDocument_MissingExecutionBlock(t *testing.T) {
	_, err := NewFromDocument(map[string]any{"context": map[string]any{"observer": "jane"}})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestNewFromDocument_BadDateAborts(t *testing.T) {
	_, err := NewFromDocument(map[string]any{"execution_block": "eb-m001-baddate-0"})
	if !errors.Is(err, ErrDateFormat) {
		t.Fatalf("expected ErrDateFormat, got %v", err)
	}
}

func TestContentHash_CoversNoteChanges(t *testing.T) {
	base := map[string]any{"execution_block": "eb-m001-20230101-0"}
	rec, err := NewFromDocument(base)
	if err != nil {
		t.Fatal(err)
	}
	withNote := map[string]any{
		"execution_block": "eb-m001-20230101-0",
		"context":         map[string]any{"notes": "updated"},
	}
	changed, err := NewFromDocument(withNote)
	if err != nil {
		t.Fatal(err)
	}
	if rec.UID != changed.UID {
		t.Fatalf("identity changed with content: %s != %s", rec.UID, changed.UID)
	}
	if rec.ContentHash == changed.ContentHash {
		t.Fatalf("content hash did not change with content")
	}
}
