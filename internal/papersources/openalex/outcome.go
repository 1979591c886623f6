package openalex

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/papersources"
)

// Outcome classifies the result of a single upstream call.
type Outcome int

const (
	// OutcomeOK means the call succeeded and the payload was decoded.
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the upstream has no such entity.
	OutcomeNotFound
	// OutcomeRateLimited means the upstream kept rejecting us with 429.
	OutcomeRateLimited
	// OutcomeCapReached means the upstream refuses to serve further pages.
	OutcomeCapReached
	// OutcomeFailed covers every other failure, including transport errors.
	OutcomeFailed
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeCapReached:
		return "cap_reached"
	default:
		return "failed"
	}
}

// Result is the tagged outcome of an upstream call. Value is only
// meaningful when Outcome is OutcomeOK.
type Result[T any] struct {
	Value      T
	Outcome    Outcome
	StatusCode int
	Err        error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// classifyStatus maps an HTTP status to an outcome.
func classifyStatus(status int) Outcome {
	switch status {
	case http.StatusOK:
		return OutcomeOK
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusTooManyRequests:
		return OutcomeRateLimited
	case http.StatusForbidden:
		return OutcomeCapReached
	default:
		return OutcomeFailed
	}
}

// classifyError maps a transport error to an outcome and the status it carried, if any.
func classifyError(err error) (Outcome, int) {
	var statusErr *papersources.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode), statusErr.StatusCode
	}
	return OutcomeFailed, 0
}

// rateLimitError attaches the backoff the upstream requested to an exhausted 429.
func rateLimitError(err error) error {
	var statusErr *papersources.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.NewRateLimitError(sourceName, statusErr.RetryAfter), err)
}
