// Package bootstrap wires the process-level dependencies shared by the
// cmd binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"blogspace/internal/cache"
	"blogspace/internal/config"
	"blogspace/internal/database"
	"blogspace/internal/middleware"
	"blogspace/internal/observability"
	"blogspace/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCategories upserts the category list after the schema is applied.
	SeedCategories bool
	// SkipRedis leaves the cache disabled, for one-shot tools.
	SkipRedis bool
}

// InitRuntime connects to DB and Redis and optionally seeds the default
// categories.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable; callers run without cache, locks and events
	var r *redis.Client
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		r = cache.GetClient()
	}

	if opts.SeedCategories {
		categories, err := seed.NewSeeder(db).Categories(ctx, cfg.CategoriesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed categories: %w", err)
		}
		middleware.Logger.Info("categories ensured", slog.Int("count", len(categories)))
	}

	return db, r, nil
}

// InitTracing starts the tracer provider described by cfg.
func InitTracing(cfg *config.Config, serviceName string) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:  serviceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	})
}
