package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

// GraphConfig configures a GraphAssembler.
type GraphConfig struct {
	// ReferenceBatchSize is the number of reference ids per multi-id lookup.
	ReferenceBatchSize int

	// CitationPerPage is the page size used when paging citations.
	CitationPerPage int

	// CitationWindow is the number of citation pages fetched concurrently.
	CitationWindow int

	// WindowDelay is the pause between citation windows.
	WindowDelay time.Duration

	// Timeout bounds a whole assembly. When it elapses the graph gathered
	// so far is returned. Zero disables the deadline.
	Timeout time.Duration
}

// DefaultGraphConfig returns the default assembly settings.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		ReferenceBatchSize: 25,
		CitationPerPage:    openalex.MaxPerPage,
		CitationWindow:     10,
		WindowDelay:        time.Second,
		Timeout:            2 * time.Minute,
	}
}

func (c *GraphConfig) applyDefaults() {
	d := DefaultGraphConfig()
	if c.ReferenceBatchSize <= 0 {
		c.ReferenceBatchSize = d.ReferenceBatchSize
	}
	if c.CitationPerPage <= 0 || c.CitationPerPage > openalex.MaxPerPage {
		c.CitationPerPage = d.CitationPerPage
	}
	if c.CitationWindow <= 0 {
		c.CitationWindow = d.CitationWindow
	}
	if c.WindowDelay < 0 {
		c.WindowDelay = 0
	}
}

// PaperFetcher resolves a raw paper id to its upstream record.
type PaperFetcher interface {
	Fetch(ctx context.Context, rawID string) (*openalex.Work, error)
}

// GraphAssembler materializes a paper together with the works it references
// and the works citing it.
type GraphAssembler struct {
	papers  PaperFetcher
	client  WorkClient
	config  GraphConfig
	metrics *observability.Metrics
	logger  zerolog.Logger

	// sleep waits between citation windows.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGraphAssembler creates a GraphAssembler.
func NewGraphAssembler(papers PaperFetcher, client WorkClient, cfg GraphConfig, opts ...Option) *GraphAssembler {
	cfg.applyDefaults()
	o := buildOptions("graph", opts)
	return &GraphAssembler{
		papers:  papers,
		client:  client,
		config:  cfg,
		metrics: o.metrics,
		logger:  o.logger,
		sleep:   sleepContext,
	}
}

// Assemble fetches the paper identified by rawID and attaches its references
// and citations as full paper records.
//
// Errors resolving the base paper are returned unchanged. Failures of
// individual reference batches or citation pages are logged and skipped, and
// the upstream retrieval cap ends citation paging without error.
func (g *GraphAssembler) Assemble(ctx context.Context, rawID string) (*domain.PaperGraph, error) {
	start := time.Now()

	actx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	work, err := g.papers.Fetch(actx, rawID)
	if err != nil {
		return nil, err
	}

	base := openalex.ToPaper(work)
	graph := domain.NewPaperGraph(base)
	logger := observability.WithPaperContext(observability.LoggerFromContext(ctx, g.logger), base.ID)

	graph.References = g.references(actx, logger, base.ReferenceIDs())

	if work.CitedByAPIURL != "" || work.CitedByCount > 0 {
		graph.Citations = g.citations(actx, logger, work.CitedByAPIURL, base.ID)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assembling graph for %s: %w", base.ID, err)
	}
	if actx.Err() != nil {
		logger.Warn().
			Dur("timeout", g.config.Timeout).
			Msg("graph assembly deadline reached, returning partial graph")
	}

	elapsed := time.Since(start)
	g.metrics.RecordGraphAssembled(len(graph.References), len(graph.Citations), elapsed.Seconds())
	logger.Info().
		Int("references", len(graph.References)).
		Int("citations", len(graph.Citations)).
		Dur("duration", elapsed).
		Msg("graph assembled")

	return graph, nil
}

// references resolves ids in fixed-size batches, one multi-id lookup each.
func (g *GraphAssembler) references(ctx context.Context, logger zerolog.Logger, ids []string) []domain.Paper {
	out := []domain.Paper{}
	size := g.config.ReferenceBatchSize

	for start := 0; start < len(ids); start += size {
		if ctx.Err() != nil {
			logger.Warn().Int("resolved", len(out)).Int("total", len(ids)).Msg("stopping reference lookup early")
			break
		}

		end := min(start+size, len(ids))
		batch := ids[start:end]
		batchNum := start/size + 1

		res := g.client.ListWorks(ctx, openalex.ListParams{
			Filter:  referenceFilter(batch),
			Sort:    openalex.SortByCitations,
			PerPage: openalex.MaxPerPage,
		})
		if !res.OK() {
			g.metrics.RecordReferenceBatchFailed()
			logger.Warn().
				Err(res.Err).
				Int("batch", batchNum).
				Int("batch_size", len(batch)).
				Str("outcome", res.Outcome.String()).
				Msg("reference batch failed, skipping")
			continue
		}

		out = appendPapers(out, res.Value.Results)
		logger.Debug().
			Int("batch", batchNum).
			Int("papers", len(res.Value.Results)).
			Msg("reference batch resolved")
	}

	return out
}

// citations pages through the works citing paperID. Page 1 reports the
// total count; the remaining pages are fetched in concurrent windows.
func (g *GraphAssembler) citations(ctx context.Context, logger zerolog.Logger, citedByURL, paperID string) []domain.Paper {
	out := []domain.Paper{}
	perPage := g.config.CitationPerPage

	first := g.client.CitationPage(ctx, citedByURL, paperID, 1, perPage)
	g.metrics.RecordCitationPage(first.Outcome.String())
	if !first.OK() {
		if first.Outcome == openalex.OutcomeCapReached {
			g.metrics.RecordCitationCapReached()
		}
		logger.Warn().
			Err(first.Err).
			Str("outcome", first.Outcome.String()).
			Msg("first citation page unavailable")
		return out
	}

	out = appendPapers(out, first.Value.Results)
	totalPages := (first.Value.Meta.Count + perPage - 1) / perPage
	logger.Debug().
		Int("total_citations", first.Value.Meta.Count).
		Int("pages", totalPages).
		Msg("paging citations")

	window := g.config.CitationWindow
	for from := 2; from <= totalPages; from += window {
		if ctx.Err() != nil {
			logger.Warn().Int("next_page", from).Msg("stopping citation paging early")
			break
		}

		to := min(from+window-1, totalPages)
		pages, capped := g.citationWindow(ctx, logger, citedByURL, paperID, from, to)

		added := 0
		for _, works := range pages {
			added += len(works)
			out = appendPapers(out, works)
		}
		logger.Debug().
			Int("from", from).
			Int("to", to).
			Int("papers", added).
			Int("total", len(out)).
			Msg("citation window fetched")

		if capped {
			g.metrics.RecordCitationCapReached()
			logger.Info().Int("citations", len(out)).Msg("citation retrieval cap reached")
			break
		}
		if added == 0 {
			break
		}
		if to < totalPages {
			if err := g.sleep(ctx, g.config.WindowDelay); err != nil {
				break
			}
		}
	}

	return out
}

// citationWindow fetches pages from..to concurrently and returns the pages
// that succeeded in page order. A page that reports the retrieval cap
// contributes nothing and sets capped; the rest of the window is kept.
func (g *GraphAssembler) citationWindow(ctx context.Context, logger zerolog.Logger, citedByURL, paperID string, from, to int) (pages [][]openalex.Work, capped bool) {
	n := to - from + 1
	results := make([]openalex.Result[*openalex.ListResponse], n)

	var eg errgroup.Group
	eg.SetLimit(g.config.CitationWindow)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			results[i] = g.client.CitationPage(ctx, citedByURL, paperID, from+i, g.config.CitationPerPage)
			return nil
		})
	}
	_ = eg.Wait()

	pages = make([][]openalex.Work, 0, n)
	for i, res := range results {
		g.metrics.RecordCitationPage(res.Outcome.String())
		switch {
		case res.Outcome == openalex.OutcomeCapReached:
			capped = true
			logger.Debug().Int("page", from+i).Msg("citation page capped")
		case res.OK():
			pages = append(pages, res.Value.Results)
		default:
			logger.Debug().
				Err(res.Err).
				Int("page", from+i).
				Str("outcome", res.Outcome.String()).
				Msg("citation page failed")
		}
	}
	return pages, capped
}

func referenceFilter(ids []string) string {
	return "openalex:" + strings.Join(ids, "|")
}

func appendPapers(out []domain.Paper, works []openalex.Work) []domain.Paper {
	for i := range works {
		out = append(out, openalex.ToPaper(&works[i]))
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
