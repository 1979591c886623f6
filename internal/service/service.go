// Package service implements paper lookup, keyword search and citation graph
// assembly on top of the OpenAlex client and the shared cache.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/scholarsphere/citegraph-service/internal/observability"
	"github.com/scholarsphere/citegraph-service/internal/papersources/openalex"
)

// WorkClient is the subset of the OpenAlex client used by the services.
// *openalex.Client satisfies it.
type WorkClient interface {
	GetWork(ctx context.Context, id string) openalex.Result[*openalex.Work]
	ListWorks(ctx context.Context, params openalex.ListParams) openalex.Result[*openalex.ListResponse]
	CitationPage(ctx context.Context, citedByURL, paperID string, page, perPage int) openalex.Result[*openalex.ListResponse]
}

var _ WorkClient = (*openalex.Client)(nil)

// Option configures optional service collaborators.
type Option func(*options)

type options struct {
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// WithMetrics records service metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the base logger. Each service tags it with its component name.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(component string, opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = observability.WithComponent(o.logger, component)
	return o
}
