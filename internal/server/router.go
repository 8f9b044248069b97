package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/catalog"
	"github.com/obsnet/dataproduct-catalog/internal/handlers"
)

type RouterConfig struct {
	CatalogService    catalog.Service
	CatalogHandler    *handlers.CatalogHandler
	AnnotationHandler *handlers.AnnotationHandler
	AllowedOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(requestCounter(cfg.CatalogService))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Catalog
	router.GET("/status", cfg.CatalogHandler.Status)
	router.GET("/reindexdataproducts", cfg.CatalogHandler.Reindex)
	router.GET("/columnconfig", cfg.CatalogHandler.ColumnConfig)
	router.POST("/dataproductsearch", cfg.CatalogHandler.Search)
	router.POST("/filterdataproducts", cfg.CatalogHandler.Filter)
	router.POST("/dataproductmetadata", cfg.CatalogHandler.Metadata)
	router.POST("/ingestnewdataproduct", cfg.CatalogHandler.IngestFile)
	router.POST("/ingestnewmetadata", cfg.CatalogHandler.IngestDocument)
	router.POST("/download", cfg.CatalogHandler.Download)

	// Annotations
	router.POST("/annotation", cfg.AnnotationHandler.Save)
	router.GET("/annotations/:uid", cfg.AnnotationHandler.List)

	return router
}

// requestCounter feeds the request and error counters of the status report.
func requestCounter(svc catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		svc.RecordRequest(c.Writer.Status() >= 400)
	}
}
