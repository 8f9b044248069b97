package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/catalog"
	"github.com/obsnet/dataproduct-catalog/internal/handlers"
	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/search"
	"github.com/obsnet/dataproduct-catalog/internal/server"
	"github.com/obsnet/dataproduct-catalog/internal/store"
)

const sidecarName = "ska-data-product.yaml"

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	root := t.TempDir()
	meta := store.NewVolumeStore(root, sidecarName, log)
	searchStore := search.NewInMemorySearch(meta, log)
	svc := catalog.NewService(meta, searchStore, "test", log)

	router := server.NewRouter(server.RouterConfig{
		CatalogService:    svc,
		CatalogHandler:    handlers.NewCatalogHandler(svc, root, sidecarName),
		AnnotationHandler: handlers.NewAnnotationHandler(svc),
		AllowedOrigins:    []string{"http://localhost:3000"},
	})
	return router, root
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck status = %d", rec.Code)
	}
}

func TestIngestMetadataAndFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	doc := map[string]any{
		"execution_block": "eb-test-20230115-00001",
		"context":         map[string]any{"observer": "jane"},
	}
	rec := doJSON(t, router, http.MethodPost, "/ingestnewmetadata", doc)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.UID == "" {
		t.Fatalf("ingest response lacks uid: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/filterdataproducts", map[string]any{
		"filterModel": map[string]any{"items": []map[string]any{
			{"field": "context.observer", "operator": "equals", "value": "jane"},
		}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("filter status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode filter response: %v", err)
	}
	if len(rows) != 1 || rows[0]["uid"] != created.UID {
		t.Fatalf("filter rows = %v, want the ingested product", rows)
	}
}

func TestIngestRejectsBadDate(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/ingestnewmetadata", map[string]any{
		"execution_block": "eb-test-19999999-00001",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ingest of product with bad date = %d, want 400", rec.Code)
	}
}

func TestIngestNewDataProductFromVolume(t *testing.T) {
	router, root := newTestRouter(t)

	dir := filepath.Join(root, "eb-test-20230301-00002")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sidecar := "execution_block: eb-test-20230301-00002\ncontext:\n  observer: joe\n"
	if err := os.WriteFile(filepath.Join(dir, sidecarName), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/ingestnewdataproduct", map[string]any{
		"execution_block": "eb-test-20230301-00002",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/dataproductmetadata", map[string]any{
		"execution_block": "eb-test-20230301-00002",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata status = %d, body %s", rec.Code, rec.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if doc["date_created"] != "2023-03-01" {
		t.Fatalf("metadata = %v, want enriched date_created", doc)
	}
}

func TestDownloadStreamsTar(t *testing.T) {
	router, root := newTestRouter(t)

	dir := filepath.Join(root, "eb-test-20230301-00002")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sidecar := "execution_block: eb-test-20230301-00002\n"
	if err := os.WriteFile(filepath.Join(dir, sidecarName), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "visibilities.ms"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("write data file: %v", err)
	}
	rec := doJSON(t, router, http.MethodPost, "/ingestnewdataproduct", map[string]any{
		"execution_block": "eb-test-20230301-00002",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/download", map[string]any{
		"execution_block": "eb-test-20230301-00002",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-tar" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty archive")
	}
}

func TestAnnotationsUnavailableOnFallbackStore(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/annotation", map[string]any{
		"data_product_uid": "0a6c60a5-93ff-4374-b9f4-63a54b0d0000",
		"annotation_text":  "interesting",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("annotation status = %d, want 503", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["api_running"] != true {
		t.Fatalf("api_running = %v", status["api_running"])
	}
}
