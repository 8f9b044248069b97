package app

import (
	"strings"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/search"
	"github.com/obsnet/dataproduct-catalog/internal/store"
	"github.com/obsnet/dataproduct-catalog/internal/utils"
)

type Config struct {
	Port             string
	Version          string
	StoragePath      string
	MetadataFileName string
	AllowedOrigins   []string

	Postgres store.PostgresConfig
	Redis    search.RedisConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:             utils.GetEnv("API_PORT", "8000", log),
		Version:          utils.GetEnv("API_VERSION", "1.0.0", log),
		StoragePath:      utils.GetEnv("PERSISTENT_STORAGE_PATH", "/data", log),
		MetadataFileName: utils.GetEnv("METADATA_FILE_NAME", "ska-data-product.yaml", log),
		AllowedOrigins: strings.Split(
			utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8100", log), ","),
		Postgres: store.PostgresConfig{
			Host:     utils.GetEnv("POSTGRES_HOST", "", log),
			Port:     utils.GetEnv("POSTGRES_PORT", "5432", log),
			User:     utils.GetEnv("POSTGRES_USER", "postgres", log),
			Password: utils.GetEnv("POSTGRES_PASSWORD", "", log),
			DBName:   utils.GetEnv("POSTGRES_DBNAME", "dataproducts", log),
		},
		Redis: search.RedisConfig{
			Addr:     utils.GetEnv("REDIS_ADDR", "", log),
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
			DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
		},
	}
}
