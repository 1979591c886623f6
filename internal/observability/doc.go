// Package observability provides logging, metrics, and request context
// support for the citegraph service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithComponent(logger, "graph")
//	logger.Info().Str("paper_id", id).Msg("graph assembled")
//
// Request scoped identifiers set by the HTTP middleware are attached with
// LoggerFromContext.
//
// # Metrics
//
//	metrics := observability.NewMetrics("citegraph")
//	metrics.RecordUpstreamRequest("works", "ok", elapsed.Seconds())
//	metrics.RecordCacheHit("paper")
//
// Record methods accept a nil receiver.
//
// # Standard Fields
//
//   - component: emitting subsystem (openalex, cache, graph, http-server)
//   - paper_id: canonical OpenAlex work id
//   - query, cursor, per_page: search parameters
//   - request_id, correlation_id: request identifiers
package observability
