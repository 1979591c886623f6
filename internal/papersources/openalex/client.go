package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources"
)

const (
	sourceName = "OpenAlex"

	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPerPage is the largest page size OpenAlex accepts.
	MaxPerPage = 200

	// InitialCursor starts cursor pagination.
	InitialCursor = "*"

	// SortByCitations orders works by descending citation count.
	SortByCitations = "cited_by_count:desc"

	// maxBodySize bounds decoded response bodies.
	maxBodySize = 10 << 20

	endpointWork      = "work"
	endpointWorks     = "works"
	endpointCitations = "citations"
)

// WorkFields is the field list requested for every work.
var WorkFields = []string{
	"id",
	"title",
	"abstract_inverted_index",
	"publication_year",
	"authorships",
	"cited_by_count",
	"referenced_works",
	"cited_by_api_url",
	"concepts",
	"type",
	"doi",
	"primary_location",
}

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool. It is sent both in the
	// User-Agent header and as the mailto query parameter.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// AppName identifies this service in the User-Agent header.
	AppName string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Retry controls transient failure retries.
	Retry papersources.RetryPolicy
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AppName == "" {
		c.AppName = "citegraph-service/1.0"
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// UserAgent returns the polite pool identification header value.
func (c Config) UserAgent() string {
	if c.Email == "" {
		return c.AppName
	}
	return c.AppName + " (mailto:" + c.Email + ")"
}

// ListParams describes a works list query.
type ListParams struct {
	// Search is the full-text search term.
	Search string
	// Filter is a raw OpenAlex filter expression.
	Filter string
	// Sort is an OpenAlex sort expression.
	Sort string
	// PerPage is the page size, clamped to MaxPerPage.
	PerPage int
	// Cursor enables cursor pagination when set.
	Cursor string
	// Page selects a page for page-based pagination when Cursor is empty.
	Page int
}

// Option configures optional Client collaborators.
type Option func(*Client)

// WithMetrics records upstream call metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = observability.WithComponent(logger, "openalex")
	}
}

// Client issues classified requests against the OpenAlex works API.
// It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config, opts ...Option) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.UserAgent(),
		Retry:     cfg.Retry,
	})

	return NewWithHTTPClient(cfg, httpClient, opts...)
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetWork retrieves a single work by canonical id.
func (c *Client) GetWork(ctx context.Context, id string) Result[*Work] {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return Result[*Work]{Outcome: OutcomeFailed, Err: fmt.Errorf("parsing base URL: %w", err)}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/works/" + url.PathEscape(id)

	query := url.Values{}
	query.Set("select", strings.Join(WorkFields, ","))
	c.addMailto(query)
	u.RawQuery = query.Encode()

	var work Work
	res := c.get(ctx, endpointWork, u.String(), &work)
	out := Result[*Work]{Outcome: res.Outcome, StatusCode: res.StatusCode, Err: res.Err}
	if res.OK() {
		out.Value = &work
	}
	return out
}

// ListWorks runs a works list query.
func (c *Client) ListWorks(ctx context.Context, params ListParams) Result[*ListResponse] {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return Result[*ListResponse]{Outcome: OutcomeFailed, Err: fmt.Errorf("parsing base URL: %w", err)}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/works"
	u.RawQuery = c.listQuery(params, nil).Encode()

	return c.list(ctx, endpointWorks, u.String())
}

// CitationPage fetches one page of works citing a paper. citedByURL is the
// work's cited_by_api_url; when empty the URL is derived from paperID.
func (c *Client) CitationPage(ctx context.Context, citedByURL, paperID string, page, perPage int) Result[*ListResponse] {
	if citedByURL == "" {
		citedByURL = c.config.BaseURL + "/works?filter=cites:" + paperID
	}

	u, err := url.Parse(citedByURL)
	if err != nil {
		return Result[*ListResponse]{Outcome: OutcomeFailed, Err: fmt.Errorf("parsing citations URL: %w", err)}
	}

	u.RawQuery = c.listQuery(ListParams{
		Sort:    SortByCitations,
		PerPage: perPage,
		Page:    page,
	}, u.Query()).Encode()

	return c.list(ctx, endpointCitations, u.String())
}

func (c *Client) list(ctx context.Context, endpoint, rawURL string) Result[*ListResponse] {
	var resp ListResponse
	res := c.get(ctx, endpoint, rawURL, &resp)
	out := Result[*ListResponse]{Outcome: res.Outcome, StatusCode: res.StatusCode, Err: res.Err}
	if res.OK() {
		out.Value = &resp
	}
	return out
}

// listQuery merges params into base, which may carry filters from a citations URL.
func (c *Client) listQuery(params ListParams, base url.Values) url.Values {
	query := url.Values{}
	for k, v := range base {
		query[k] = v
	}

	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.Filter != "" {
		query.Set("filter", params.Filter)
	}
	if params.Sort != "" {
		query.Set("sort", params.Sort)
	}

	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))

	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
		query.Del("page")
	} else if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}

	query.Set("select", strings.Join(WorkFields, ","))
	c.addMailto(query)
	return query
}

func (c *Client) addMailto(query url.Values) {
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
}

// get performs the request, classifies the response and decodes a 200 body into dst.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, dst any) Result[struct{}] {
	start := time.Now()
	res := c.do(ctx, rawURL, dst)
	c.metrics.RecordUpstreamRequest(endpoint, res.Outcome.String(), time.Since(start).Seconds())

	if !res.OK() {
		ev := c.logger.Debug()
		if res.Outcome == OutcomeFailed {
			ev = c.logger.Warn()
		}
		ev.Err(res.Err).
			Str("endpoint", endpoint).
			Int("status", res.StatusCode).
			Str("outcome", res.Outcome.String()).
			Msg("openalex request did not succeed")
	}
	return res
}

func (c *Client) do(ctx context.Context, rawURL string, dst any) Result[struct{}] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result[struct{}]{Outcome: OutcomeFailed, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome, status := classifyError(err)
		if outcome == OutcomeRateLimited {
			err = rateLimitError(err)
		}
		return Result[struct{}]{Outcome: outcome, StatusCode: status, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	outcome := classifyStatus(resp.StatusCode)
	if outcome != OutcomeOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var cause error
		switch outcome {
		case OutcomeNotFound:
			cause = domain.ErrNotFound
		case OutcomeRateLimited:
			cause = domain.ErrRateLimited
		case OutcomeCapReached:
			cause = domain.ErrCapReached
		default:
			cause = domain.ErrServiceUnavailable
		}
		return Result[struct{}]{
			Outcome:    outcome,
			StatusCode: resp.StatusCode,
			Err:        domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), cause),
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(dst); err != nil {
		return Result[struct{}]{Outcome: OutcomeFailed, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return Result[struct{}]{Outcome: OutcomeOK, StatusCode: resp.StatusCode}
}
