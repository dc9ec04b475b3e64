package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/batiprix/batiprix/internal/catalog/products"
	"github.com/batiprix/batiprix/internal/dedup"
)

// CatalogReindexer walks the catalog and rewrites drifted normalized keys.
// It runs nightly and on demand after bulk imports.
type CatalogReindexer struct {
	products *products.Service
	cache    *dedup.KeyCache
	logger   *slog.Logger
}

// NewCatalogReindexer constructs the job handler. cache may be nil.
func NewCatalogReindexer(svc *products.Service, cache *dedup.KeyCache, logger *slog.Logger) *CatalogReindexer {
	return &CatalogReindexer{products: svc, cache: cache, logger: logger}
}

// Handle processes TaskCatalogReindex tasks.
func (j *CatalogReindexer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CatalogReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	updated, err := j.products.ReindexKeys(ctx)
	if err != nil {
		j.logger.Error("catalog reindex failed",
			slog.String("requester", payload.Requester), slog.Any("error", err))
		return err
	}
	if j.cache != nil {
		// Warm the duplicate-detection cache so the first search after the
		// nightly run does not pay the full catalog scan.
		if _, err := j.cache.Candidates(ctx, "", j.products); err != nil {
			j.logger.Warn("dedup cache warm-up failed", slog.Any("error", err))
		}
	}
	j.logger.Info("catalog reindex done",
		slog.String("requester", payload.Requester), slog.Int("updated", updated))
	return nil
}
