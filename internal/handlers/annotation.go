package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/catalog"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

type AnnotationHandler struct {
	catalogService catalog.Service
}

func NewAnnotationHandler(catalogService catalog.Service) *AnnotationHandler {
	return &AnnotationHandler{catalogService: catalogService}
}

// Save creates or updates an annotation. The volume-scan fallback store has
// no annotation persistence; that case reports 503 so the client knows the
// annotation was received but not saved.
func (ah *AnnotationHandler) Save(c *gin.Context) {
	var annotation types.DataProductAnnotation
	if err := c.ShouldBindJSON(&annotation); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	err := ah.catalogService.SaveAnnotation(c.Request.Context(), &annotation)
	switch {
	case errors.Is(err, catalog.ErrAnnotationsUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "annotations_unavailable", err)
	case err != nil:
		RespondError(c, http.StatusBadRequest, "annotation_rejected", err)
	default:
		RespondOK(c, annotation)
	}
}

func (ah *AnnotationHandler) List(c *gin.Context) {
	annotations, err := ah.catalogService.ListAnnotations(c.Request.Context(), c.Param("uid"))
	switch {
	case errors.Is(err, catalog.ErrAnnotationsUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "annotations_unavailable", err)
	case err != nil:
		RespondError(c, http.StatusBadRequest, "invalid_identifier", err)
	default:
		RespondOK(c, annotations)
	}
}
