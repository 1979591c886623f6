package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/scholarsphere/citegraph-service/internal/cache"
	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

// DefaultMaxBatchIDs bounds GetPapers when PaperConfig.MaxBatchIDs is unset.
const DefaultMaxBatchIDs = 50

// PaperConfig configures a PaperService.
type PaperConfig struct {
	// TTL is how long fetched works stay cached.
	TTL time.Duration

	// MaxBatchIDs bounds the number of ids accepted by GetPapers.
	MaxBatchIDs int
}

// PaperService fetches single works through the cache.
type PaperService struct {
	client  WorkClient
	cache   cache.Cache
	config  PaperConfig
	metrics *observability.Metrics
	logger  zerolog.Logger

	// group coalesces concurrent misses for the same id into one upstream
	// call. The call runs detached from any caller's cancellation and is
	// bounded by the client's request timeout.
	group singleflight.Group
}

// NewPaperService creates a PaperService.
func NewPaperService(client WorkClient, c cache.Cache, cfg PaperConfig, opts ...Option) *PaperService {
	if cfg.MaxBatchIDs <= 0 {
		cfg.MaxBatchIDs = DefaultMaxBatchIDs
	}
	o := buildOptions("paper-service", opts)
	return &PaperService{
		client:  client,
		cache:   c,
		config:  cfg,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Fetch returns the upstream record for rawID, which may be a bare number,
// a W-prefixed id or a full OpenAlex URL.
//
// A blank or malformed id yields a *domain.ValidationError. Any upstream
// outcome other than a valid record (absent, rate limited, failed, or a
// payload without id and title) yields a *domain.NotFoundError. Cache
// failures are logged and never fail the call.
func (s *PaperService) Fetch(ctx context.Context, rawID string) (*openalex.Work, error) {
	id := domain.NormalizePaperID(rawID)
	if id == "" {
		return nil, domain.NewValidationError("id", "No paper ID provided")
	}
	if !domain.IsValidPaperID(id) {
		return nil, domain.NewValidationError("id", fmt.Sprintf("invalid paper ID: %q", strings.TrimSpace(rawID)))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching paper %s: %w", id, err)
	}

	// The shared fetch outlives any single waiter; each caller stops waiting
	// on its own context.
	ch := s.group.DoChan(id, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching paper %s: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*openalex.Work), nil
	}
}

// Get fetches rawID and converts it to the normalized paper shape.
func (s *PaperService) Get(ctx context.Context, rawID string) (domain.Paper, error) {
	work, err := s.Fetch(ctx, rawID)
	if err != nil {
		return domain.Paper{}, err
	}
	return openalex.ToPaper(work), nil
}

// GetPapers fetches each id in order and returns the papers that resolved.
// Failures are logged and skipped. At most MaxBatchIDs ids are accepted.
func (s *PaperService) GetPapers(ctx context.Context, rawIDs []string) ([]domain.Paper, error) {
	ids := make([]string, 0, len(rawIDs))
	for _, raw := range rawIDs {
		if raw = strings.TrimSpace(raw); raw != "" {
			ids = append(ids, raw)
		}
	}
	if len(ids) == 0 {
		return nil, domain.NewValidationError("ids", "No paper IDs provided")
	}
	if len(ids) > s.config.MaxBatchIDs {
		return nil, domain.NewValidationError("ids",
			fmt.Sprintf("Too many paper IDs requested (max %d)", s.config.MaxBatchIDs))
	}

	logger := observability.LoggerFromContext(ctx, s.logger)
	papers := make([]domain.Paper, 0, len(ids))
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			return papers, err
		}
		paper, err := s.Get(ctx, raw)
		if err != nil {
			logger.Debug().Err(err).Str("raw_id", raw).Msg("skipping paper in batch")
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func (s *PaperService) fetch(ctx context.Context, id string) (*openalex.Work, error) {
	logger := observability.WithPaperContext(observability.LoggerFromContext(ctx, s.logger), id)
	key := cache.PaperKey(id)

	var cached openalex.Work
	hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
	switch {
	case err != nil:
		s.metrics.RecordCacheError("get")
		logger.Warn().Err(err).Msg("ignoring unreadable cache entry")
	case hit && cached.ID != "":
		s.metrics.RecordCacheHit(cache.NamespacePaper)
		return &cached, nil
	}
	s.metrics.RecordCacheMiss(cache.NamespacePaper)

	res := s.client.GetWork(ctx, id)
	if !res.OK() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetching paper %s: %w", id, ctxErr)
		}
		logger.Debug().
			Str("outcome", res.Outcome.String()).
			Int("status", res.StatusCode).
			Msg("paper unavailable upstream")
		return nil, domain.NewNotFoundError("paper", id)
	}
	if !res.Value.Valid() {
		logger.Warn().Str("upstream_error", res.Value.Error).Msg("upstream returned an incomplete paper")
		return nil, domain.NewNotFoundError("paper", id)
	}

	if err := cache.SetJSON(ctx, s.cache, key, res.Value, s.config.TTL); err != nil {
		s.metrics.RecordCacheError("set")
		logger.Warn().Err(err).Msg("failed to cache paper")
	}
	return res.Value, nil
}
