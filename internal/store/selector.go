package store

import (
	"context"

	"github.com/obsnet/dataproduct-catalog/internal/logger"
)

// Candidate is one entry of an ordered metadata store fallback chain.
type Candidate struct {
	Name string
	Open func(ctx context.Context) (MetadataStore, error)
}

// Select walks the fallback chain in order and returns the first store whose
// health check succeeds. The choice is fixed for the process lifetime; there
// is no automatic promotion back to an earlier candidate.
func Select(ctx context.Context, candidates []Candidate, log *logger.Logger) (MetadataStore, error) {
	var lastErr error
	for _, candidate := range candidates {
		s, err := candidate.Open(ctx)
		if err != nil {
			log.Warn("Metadata store candidate unavailable, trying next", "candidate", candidate.Name, "error", err)
			lastErr = err
			continue
		}
		log.Info("Metadata store selected", "candidate", candidate.Name)
		return s, nil
	}
	return nil, lastErr
}

// SelectMetadataStore builds the default chain: PostgreSQL first, the
// in-memory volume scan store when it is unreachable.
func SelectMetadataStore(ctx context.Context, pgCfg PostgresConfig, volumeRoot, sidecarName string, log *logger.Logger) (MetadataStore, error) {
	candidates := []Candidate{}
	if pgCfg.Host != "" {
		candidates = append(candidates, Candidate{
			Name: "postgresql",
			Open: func(ctx context.Context) (MetadataStore, error) {
				return NewPostgresStore(pgCfg, log)
			},
		})
	} else {
		log.Warn("No PostgreSQL host configured, skipping persistent store")
	}
	candidates = append(candidates, Candidate{
		Name: "volume-scan",
		Open: func(ctx context.Context) (MetadataStore, error) {
			vs := NewVolumeStore(volumeRoot, sidecarName, log)
			if err := vs.Scan(ctx); err != nil {
				return nil, err
			}
			return vs, nil
		},
	})
	return Select(ctx, candidates, log)
}
