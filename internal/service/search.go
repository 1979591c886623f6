package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/scholarsphere/citegraph-service/internal/cache"
	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

// Search defaults.
const (
	DefaultSearchPerPage = 25
	MaxSearchPerPage     = openalex.MaxPerPage

	// keywordFilterField matches secondary keywords against title or abstract.
	keywordFilterField = "title_and_abstract.search"
)

// ErrSearchFailed is returned when the upstream search cannot be served.
var ErrSearchFailed = errors.New("failed to fetch search results")

// SearchConfig configures a SearchService.
type SearchConfig struct {
	// TTL is how long search pages stay cached.
	TTL time.Duration

	DefaultPerPage int
	MaxPerPage     int
}

// SearchParams is a single search request.
type SearchParams struct {
	Query string `validate:"required"`

	// PerPage of zero selects the default page size. Values above the
	// maximum are clamped.
	PerPage int `validate:"gte=0"`

	// Cursor continues a previous search. Empty starts from the first page.
	Cursor string
}

// SearchMeta describes the returned page.
type SearchMeta struct {
	PerPage      int     `json:"per_page"`
	TotalResults int     `json:"total_results"`
	NextCursor   *string `json:"next_cursor"`
}

// SearchResult is one page of search results.
type SearchResult struct {
	Results []domain.Paper `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}

// SearchService runs cursor-paginated keyword searches through the cache.
type SearchService struct {
	client   WorkClient
	cache    cache.Cache
	config   SearchConfig
	validate *validator.Validate
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(client WorkClient, c cache.Cache, cfg SearchConfig, opts ...Option) *SearchService {
	if cfg.MaxPerPage <= 0 || cfg.MaxPerPage > MaxSearchPerPage {
		cfg.MaxPerPage = MaxSearchPerPage
	}
	if cfg.DefaultPerPage <= 0 {
		cfg.DefaultPerPage = DefaultSearchPerPage
	}
	if cfg.DefaultPerPage > cfg.MaxPerPage {
		cfg.DefaultPerPage = cfg.MaxPerPage
	}
	o := buildOptions("search-service", opts)
	return &SearchService{
		client:   client,
		cache:    c,
		config:   cfg,
		validate: validator.New(),
		metrics:  o.metrics,
		logger:   o.logger,
	}
}

// Search returns one page of works matching params.Query.
//
// The query is split on commas. The first keyword is the full-text search
// term and the remaining keywords are OR'd against title and abstract.
func (s *SearchService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	params.Query = strings.TrimSpace(params.Query)
	if err := s.validate.Struct(params); err != nil {
		s.metrics.RecordSearch("invalid")
		return nil, searchValidationError(err)
	}

	perPage := params.PerPage
	if perPage == 0 {
		perPage = s.config.DefaultPerPage
	}
	if perPage > s.config.MaxPerPage {
		perPage = s.config.MaxPerPage
	}
	cursor := params.Cursor
	if cursor == "" {
		cursor = openalex.InitialCursor
	}

	logger := observability.WithSearchContext(observability.LoggerFromContext(ctx, s.logger), params.Query, cursor, perPage)

	resp, err := s.page(ctx, logger, params.Query, cursor, perPage)
	if err != nil {
		s.metrics.RecordSearch("failed")
		return nil, err
	}
	s.metrics.RecordSearch("ok")

	results := make([]domain.Paper, 0, len(resp.Results))
	for i := range resp.Results {
		work := &resp.Results[i]
		if strings.TrimSpace(work.ID) == "" || strings.TrimSpace(work.Title) == "" {
			continue
		}
		results = append(results, openalex.ToPaper(work))
	}

	meta := SearchMeta{PerPage: perPage, TotalResults: resp.Meta.Count}
	if resp.Meta.NextCursor != "" {
		next := resp.Meta.NextCursor
		meta.NextCursor = &next
	}

	return &SearchResult{Results: results, Meta: meta}, nil
}

// page returns the raw upstream page, from cache when possible.
func (s *SearchService) page(ctx context.Context, logger zerolog.Logger, query, cursor string, perPage int) (*openalex.ListResponse, error) {
	key := cache.SearchKey(query, cursor, perPage)

	var cached openalex.ListResponse
	hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
	switch {
	case err != nil:
		s.metrics.RecordCacheError("get")
		logger.Warn().Err(err).Msg("ignoring unreadable cache entry")
	case hit:
		s.metrics.RecordCacheHit(cache.NamespaceSearch)
		return &cached, nil
	}
	s.metrics.RecordCacheMiss(cache.NamespaceSearch)

	list := BuildSearchParams(query)
	list.PerPage = perPage
	list.Cursor = cursor

	res := s.client.ListWorks(ctx, list)
	if !res.OK() {
		logger.Warn().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("search request failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSearchFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Outcome)
	}

	if err := cache.SetJSON(ctx, s.cache, key, res.Value, s.config.TTL); err != nil {
		s.metrics.RecordCacheError("set")
		logger.Warn().Err(err).Msg("failed to cache search page")
	}
	return res.Value, nil
}

// BuildSearchParams splits a comma separated query into the primary search
// term and a title/abstract filter over the remaining keywords.
func BuildSearchParams(query string) openalex.ListParams {
	// The filter grammar reserves these characters.
	reserved := strings.NewReplacer("|", " ", ":", " ")

	var keywords []string
	for _, k := range strings.Split(query, ",") {
		k = strings.TrimSpace(reserved.Replace(k))
		if k == "" {
			continue
		}
		keywords = append(keywords, k)
	}
	if len(keywords) == 0 {
		return openalex.ListParams{Search: strings.TrimSpace(query)}
	}

	params := openalex.ListParams{Search: keywords[0]}
	if len(keywords) > 1 {
		params.Filter = keywordFilterField + ":" + strings.Join(keywords[1:], "|")
	}
	return params
}

func searchValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Query":
			return domain.NewValidationError("q", "Search query is required")
		case "PerPage":
			return domain.NewValidationError("per_page", "Invalid per_page parameter")
		}
	}
	return domain.NewValidationError("params", err.Error())
}
