package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/catalog"
	"github.com/obsnet/dataproduct-catalog/internal/handlers"
	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/search"
	"github.com/obsnet/dataproduct-catalog/internal/server"
	"github.com/obsnet/dataproduct-catalog/internal/store"
)

type App struct {
	Log     *logger.Logger
	Cfg     Config
	Store   store.MetadataStore
	Search  search.SearchStore
	Catalog catalog.Service
	Router  *gin.Engine
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metaStore, err := store.SelectMetadataStore(ctx, cfg.Postgres, cfg.StoragePath, cfg.MetadataFileName, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init metadata store: %w", err)
	}

	searchStore := search.SelectSearchStore(ctx, cfg.Redis, metaStore, log)

	catalogService := catalog.NewService(metaStore, searchStore, cfg.Version, log)

	catalogHandler := handlers.NewCatalogHandler(catalogService, cfg.StoragePath, cfg.MetadataFileName)
	annotationHandler := handlers.NewAnnotationHandler(catalogService)

	router := server.NewRouter(server.RouterConfig{
		CatalogService:    catalogService,
		CatalogHandler:    catalogHandler,
		AnnotationHandler: annotationHandler,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	return &App{
		Log:     log,
		Cfg:     cfg,
		Store:   metaStore,
		Search:  searchStore,
		Catalog: catalogService,
		Router:  router,
	}, nil
}

// Start populates the search view from the metadata store in the background
// so the API is responsive while a large volume is still being indexed.
func (a *App) Start() {
	if a == nil || a.Catalog == nil {
		return
	}
	a.Catalog.ReindexAsync()
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
