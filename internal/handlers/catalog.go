package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/catalog"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// CatalogHandler exposes the catalog service over HTTP. StorageRoot and
// MetadataFileName locate new data products on the shared volume.
type CatalogHandler struct {
	catalogService   catalog.Service
	storageRoot      string
	metadataFileName string
}

func NewCatalogHandler(catalogService catalog.Service, storageRoot, metadataFileName string) *CatalogHandler {
	return &CatalogHandler{
		catalogService:   catalogService,
		storageRoot:      storageRoot,
		metadataFileName: metadataFileName,
	}
}

func (ch *CatalogHandler) Status(c *gin.Context) {
	RespondOK(c, ch.catalogService.Status())
}

func (ch *CatalogHandler) Reindex(c *gin.Context) {
	ch.catalogService.ReindexAsync()
	RespondOK(c, gin.H{"message": "Metadata re-index request has been added to the background tasks"})
}

func (ch *CatalogHandler) Search(c *gin.Context) {
	var params types.SearchParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rows, err := ch.catalogService.SearchProducts(c.Request.Context(), params)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	RespondOK(c, rows)
}

type filterRequest struct {
	FilterModel        types.FilterModel `json:"filterModel"`
	SearchPanelOptions types.FilterModel `json:"searchPanelOptions"`
	UserGroupList      []string          `json:"users_user_group_list"`
}

func (ch *CatalogHandler) Filter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rows, err := ch.catalogService.FilterProducts(c.Request.Context(), req.FilterModel, req.SearchPanelOptions, req.UserGroupList)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "filter_failed", err)
		return
	}
	RespondOK(c, rows)
}

func (ch *CatalogHandler) ColumnConfig(c *gin.Context) {
	RespondOK(c, ch.catalogService.TableConfig())
}

func (ch *CatalogHandler) Metadata(c *gin.Context) {
	var id types.DataProductIdentifier
	if err := c.ShouldBindJSON(&id); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := ch.catalogService.GetMetadata(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_identifier", err)
		return
	}
	RespondOK(c, doc)
}

type ingestFileRequest struct {
	ExecutionBlock string `json:"execution_block" binding:"required"`
}

// IngestFile ingests the metadata file of a data product that has landed on
// the shared volume under its execution block directory.
func (ch *CatalogHandler) IngestFile(c *gin.Context) {
	var req ingestFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	path := filepath.Join(ch.storageRoot, req.ExecutionBlock, ch.metadataFileName)
	uid, err := ch.catalogService.IngestFile(c.Request.Context(), path)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "ingest_failed",
			fmt.Errorf("ingest %s: %w", path, err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "New data product received and search store index updated",
		"uid":     uid,
	})
}

// IngestDocument ingests a metadata document posted directly in the request
// body.
func (ch *CatalogHandler) IngestDocument(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	uid, err := ch.catalogService.IngestDocument(c.Request.Context(), doc)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "ingest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "New data product metadata received and search store index updated",
		"uid":     uid,
	})
}
