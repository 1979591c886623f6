// Package app wires configuration into the cache, the OpenAlex client and the
// paper, search and graph services shared by the server and the CLI.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scholarsphere/citegraph-service/internal/cache"
	"github.com/scholarsphere/citegraph-service/internal/config"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
	"github.com/scholarsphere/citegraph-service/internal/service"
)

// App holds the assembled services.
type App struct {
	Cache  cache.Cache
	Client *openalex.Client
	Papers *service.PaperService
	Search *service.SearchService
	Graphs *service.GraphAssembler
}

// Build opens the configured cache and constructs the services on top of it.
// metrics may be nil. Callers must Close the returned App.
func Build(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*App, error) {
	c, err := cache.Open(CacheOptions(cfg.Cache), logger)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}

	client := openalex.New(OpenAlexConfig(cfg.OpenAlex),
		openalex.WithMetrics(metrics),
		openalex.WithLogger(logger),
	)

	opts := []service.Option{service.WithMetrics(metrics), service.WithLogger(logger)}

	papers := service.NewPaperService(client, c, service.PaperConfig{
		TTL:         cfg.Cache.PaperTTL,
		MaxBatchIDs: cfg.Graph.MaxBatchIDs,
	}, opts...)

	search := service.NewSearchService(client, c, service.SearchConfig{
		TTL:            cfg.Cache.SearchTTL(),
		DefaultPerPage: cfg.Search.DefaultPerPage,
		MaxPerPage:     cfg.Search.MaxPerPage,
	}, opts...)

	graphs := service.NewGraphAssembler(papers, client, service.GraphConfig{
		ReferenceBatchSize: cfg.Graph.ReferenceBatchSize,
		CitationPerPage:    cfg.Graph.CitationPerPage,
		CitationWindow:     cfg.Graph.CitationWindow,
		WindowDelay:        cfg.Graph.WindowDelay,
		Timeout:            cfg.Graph.Timeout,
	}, opts...)

	logger.Info().
		Str("cache_backend", cfg.Cache.Backend).
		Str("openalex_url", cfg.OpenAlex.BaseURL).
		Bool("polite_pool", cfg.OpenAlex.Email != "").
		Msg("services initialized")

	return &App{
		Cache:  c,
		Client: client,
		Papers: papers,
		Search: search,
		Graphs: graphs,
	}, nil
}

// Close releases the cache.
func (a *App) Close() error {
	return a.Cache.Close()
}

// CacheOptions maps cache configuration to backend options.
func CacheOptions(cfg config.CacheConfig) cache.Options {
	return cache.Options{
		Backend:       cfg.Backend,
		SweepInterval: cfg.SweepInterval,
		Redis: cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		Badger: cache.BadgerConfig{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
		},
	}
}

// OpenAlexConfig maps upstream configuration to client settings.
func OpenAlexConfig(cfg config.OpenAlexConfig) openalex.Config {
	retry := papersources.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	if cfg.MaxRetries == 0 {
		// The HTTP client reads zero as "use the default".
		retry.MaxRetries = -1
	}
	if cfg.RetryDelay > 0 {
		retry.BaseDelay = cfg.RetryDelay
	}
	if cfg.MaxRetryDelay > 0 {
		retry.MaxDelay = cfg.MaxRetryDelay
	}

	return openalex.Config{
		BaseURL:   cfg.BaseURL,
		Email:     cfg.Email,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Retry:     retry,
	}
}
