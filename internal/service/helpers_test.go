package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

// mockWorkClient implements WorkClient with per-method hooks and call recording.
type mockWorkClient struct {
	getWorkFn      func(ctx context.Context, id string) openalex.Result[*openalex.Work]
	listWorksFn    func(ctx context.Context, params openalex.ListParams) openalex.Result[*openalex.ListResponse]
	citationPageFn func(ctx context.Context, citedByURL, paperID string, page, perPage int) openalex.Result[*openalex.ListResponse]

	mu            sync.Mutex
	getWorkCalls  []string
	listCalls     []openalex.ListParams
	citationPages []int
}

func (m *mockWorkClient) GetWork(ctx context.Context, id string) openalex.Result[*openalex.Work] {
	m.mu.Lock()
	m.getWorkCalls = append(m.getWorkCalls, id)
	m.mu.Unlock()
	if m.getWorkFn != nil {
		return m.getWorkFn(ctx, id)
	}
	return notFound[*openalex.Work]()
}

func (m *mockWorkClient) ListWorks(ctx context.Context, params openalex.ListParams) openalex.Result[*openalex.ListResponse] {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, params)
	m.mu.Unlock()
	if m.listWorksFn != nil {
		return m.listWorksFn(ctx, params)
	}
	return okList(0)
}

func (m *mockWorkClient) CitationPage(ctx context.Context, citedByURL, paperID string, page, perPage int) openalex.Result[*openalex.ListResponse] {
	m.mu.Lock()
	m.citationPages = append(m.citationPages, page)
	m.mu.Unlock()
	if m.citationPageFn != nil {
		return m.citationPageFn(ctx, citedByURL, paperID, page, perPage)
	}
	return okList(0)
}

func (m *mockWorkClient) getWorkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.getWorkCalls)
}

func (m *mockWorkClient) listCallsSnapshot() []openalex.ListParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]openalex.ListParams(nil), m.listCalls...)
}

func (m *mockWorkClient) citationPagesSnapshot() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.citationPages...)
}

// mockPaperFetcher implements PaperFetcher.
type mockPaperFetcher struct {
	fetchFn func(ctx context.Context, rawID string) (*openalex.Work, error)
}

func (m *mockPaperFetcher) Fetch(ctx context.Context, rawID string) (*openalex.Work, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, rawID)
	}
	return nil, domain.NewNotFoundError("paper", rawID)
}

func work(id, title string) openalex.Work {
	return openalex.Work{ID: "https://openalex.org/" + id, Title: title}
}

// works returns n works with ids prefix1..prefixN.
func works(prefix string, n int) []openalex.Work {
	out := make([]openalex.Work, n)
	for i := range out {
		out[i] = work(fmt.Sprintf("%s%d", prefix, i+1), fmt.Sprintf("Paper %s%d", prefix, i+1))
	}
	return out
}

func okWork(w openalex.Work) openalex.Result[*openalex.Work] {
	return openalex.Result[*openalex.Work]{Value: &w, Outcome: openalex.OutcomeOK, StatusCode: 200}
}

func okList(count int, results ...openalex.Work) openalex.Result[*openalex.ListResponse] {
	if results == nil {
		results = []openalex.Work{}
	}
	return openalex.Result[*openalex.ListResponse]{
		Value:      &openalex.ListResponse{Meta: openalex.Meta{Count: count}, Results: results},
		Outcome:    openalex.OutcomeOK,
		StatusCode: 200,
	}
}

func notFound[T any]() openalex.Result[T] {
	return openalex.Result[T]{Outcome: openalex.OutcomeNotFound, StatusCode: 404, Err: domain.ErrNotFound}
}

func failed[T any](status int) openalex.Result[T] {
	return openalex.Result[T]{Outcome: openalex.OutcomeFailed, StatusCode: status, Err: domain.ErrServiceUnavailable}
}

func capReached[T any]() openalex.Result[T] {
	return openalex.Result[T]{Outcome: openalex.OutcomeCapReached, StatusCode: 403, Err: domain.ErrCapReached}
}

// referenceIDsOf extracts the ids of a reference batch filter.
func referenceIDsOf(filter string) []string {
	return strings.Split(strings.TrimPrefix(filter, "openalex:"), "|")
}

func paperIDs(papers []domain.Paper) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return ids
}
