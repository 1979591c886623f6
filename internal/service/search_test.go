package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarsphere/citegraph-service/internal/cache"
	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

func newSearchService(client WorkClient, c cache.Cache, opts ...Option) *SearchService {
	return NewSearchService(client, c, SearchConfig{TTL: 30 * time.Minute}, opts...)
}

func TestBuildSearchParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantSearch string
		wantFilter string
	}{
		{name: "single keyword", query: "graph neural networks", wantSearch: "graph neural networks"},
		{name: "multiple keywords", query: "crispr, off-target, delivery", wantSearch: "crispr", wantFilter: "title_and_abstract.search:off-target|delivery"},
		{name: "blank keywords dropped", query: "crispr,, ,cas9", wantSearch: "crispr", wantFilter: "title_and_abstract.search:cas9"},
		{name: "reserved characters replaced", query: "a, b|c:d", wantSearch: "a", wantFilter: "title_and_abstract.search:b c d"},
		{name: "separator-only keyword dropped", query: "a, |, :, b", wantSearch: "a", wantFilter: "title_and_abstract.search:b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildSearchParams(tt.query)
			assert.Equal(t, tt.wantSearch, p.Search)
			assert.Equal(t, tt.wantFilter, p.Filter)
		})
	}
}

func TestSearchService_Search(t *testing.T) {
	t.Run("returns transformed results and meta", func(t *testing.T) {
		client := &mockWorkClient{
			listWorksFn: func(_ context.Context, p openalex.ListParams) openalex.Result[*openalex.ListResponse] {
				res := okList(1234, work("W1", "Kept"), openalex.Work{ID: "W2"}, openalex.Work{Title: "no id"})
				res.Value.Meta.NextCursor = "next-abc"
				return res
			},
		}
		svc := newSearchService(client, cache.NewMemory())

		result, err := svc.Search(context.Background(), SearchParams{Query: "crispr, cas9"})
		require.NoError(t, err)

		assert.Equal(t, []string{"W1"}, paperIDs(result.Results))
		assert.Equal(t, DefaultSearchPerPage, result.Meta.PerPage)
		assert.Equal(t, 1234, result.Meta.TotalResults)
		require.NotNil(t, result.Meta.NextCursor)
		assert.Equal(t, "next-abc", *result.Meta.NextCursor)

		calls := client.listCallsSnapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, "crispr", calls[0].Search)
		assert.Equal(t, "title_and_abstract.search:cas9", calls[0].Filter)
		assert.Equal(t, openalex.InitialCursor, calls[0].Cursor)
		assert.Equal(t, DefaultSearchPerPage, calls[0].PerPage)
	})

	t.Run("last page has null cursor", func(t *testing.T) {
		svc := newSearchService(&mockWorkClient{}, cache.NewMemory())

		result, err := svc.Search(context.Background(), SearchParams{Query: "x", Cursor: "abc"})
		require.NoError(t, err)
		assert.Nil(t, result.Meta.NextCursor)
		assert.NotNil(t, result.Results)
	})

	t.Run("per page is clamped", func(t *testing.T) {
		client := &mockWorkClient{}
		svc := newSearchService(client, cache.NewMemory())

		result, err := svc.Search(context.Background(), SearchParams{Query: "x", PerPage: 1000})
		require.NoError(t, err)
		assert.Equal(t, MaxSearchPerPage, result.Meta.PerPage)
		assert.Equal(t, MaxSearchPerPage, client.listCallsSnapshot()[0].PerPage)
	})

	t.Run("second identical search is served from cache", func(t *testing.T) {
		client := &mockWorkClient{
			listWorksFn: func(context.Context, openalex.ListParams) openalex.Result[*openalex.ListResponse] {
				return okList(1, work("W1", "Cached"))
			},
		}
		metrics := observability.NewMetrics("test_search_cache")
		mem := cache.NewMemory()
		svc := newSearchService(client, mem, WithMetrics(metrics))

		for i := 0; i < 2; i++ {
			result, err := svc.Search(context.Background(), SearchParams{Query: "x", PerPage: 10})
			require.NoError(t, err)
			assert.Equal(t, []string{"W1"}, paperIDs(result.Results))
		}
		assert.Len(t, client.listCallsSnapshot(), 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHits.WithLabelValues(cache.NamespaceSearch)))

		_, ok, err := mem.Get(context.Background(), cache.SearchKey("x", openalex.InitialCursor, 10))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing query", func(t *testing.T) {
		client := &mockWorkClient{}
		svc := newSearchService(client, cache.NewMemory())

		_, err := svc.Search(context.Background(), SearchParams{Query: "  "})
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Search query is required", ve.Message)
		assert.Empty(t, client.listCallsSnapshot())
	})

	t.Run("negative per page", func(t *testing.T) {
		svc := newSearchService(&mockWorkClient{}, cache.NewMemory())

		_, err := svc.Search(context.Background(), SearchParams{Query: "x", PerPage: -1})
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Invalid per_page parameter", ve.Message)
	})

	t.Run("upstream failure is not cached", func(t *testing.T) {
		client := &mockWorkClient{
			listWorksFn: func(context.Context, openalex.ListParams) openalex.Result[*openalex.ListResponse] {
				return failed[*openalex.ListResponse](500)
			},
		}
		mem := cache.NewMemory()
		svc := newSearchService(client, mem)

		_, err := svc.Search(context.Background(), SearchParams{Query: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSearchFailed))
		assert.Equal(t, 0, mem.Len())
	})
}
