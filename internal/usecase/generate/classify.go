package generate

import (
	"context"
	"errors"
	"net"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// failureKind buckets a failed attempt for retry decisions, metrics and
// the exhaustion hint.
type failureKind string

const (
	failureMalformed failureKind = "malformed"
	failureQuota     failureKind = "quota"
	failureRateLimit failureKind = "rate_limit"
	failureNetwork   failureKind = "network"
	failureTimeout   failureKind = "timeout"
	failureUnknown   failureKind = "unknown"
)

// decision is the outcome of classifying one failed attempt.
type decision struct {
	kind      failureKind
	retryable bool
	// extraDelay adds a fixed pause on top of backoff. Set for
	// malformed output, which tends to need more than the base delay
	// to clear.
	extraDelay bool
}

// classify maps an attempt error to a retry decision. Pure function:
// no clock, no randomness, no provider state. Timeouts are terminal;
// everything else is worth another attempt.
func classify(err error) decision {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return decision{kind: failureTimeout, retryable: false}
	case errors.Is(err, domain.ErrMalformedRecipe):
		return decision{kind: failureMalformed, retryable: true, extraDelay: true}
	case errors.Is(err, domain.ErrQuotaExceeded):
		return decision{kind: failureQuota, retryable: true}
	case errors.Is(err, domain.ErrRateLimited):
		return decision{kind: failureRateLimit, retryable: true}
	case isNetworkError(err):
		return decision{kind: failureNetwork, retryable: true}
	default:
		return decision{kind: failureUnknown, retryable: true}
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// hint returns the human-actionable remedy reported when all attempts
// are spent on a given failure kind.
func (k failureKind) hint() string {
	switch k {
	case failureQuota:
		return "provider quota exhausted, switch llm.provider or wait for quota reset"
	case failureRateLimit:
		return "provider is rate limiting, retry later or reduce concurrent requests"
	case failureTimeout:
		return "request timed out, raise llm.request_timeout_sec or simplify the dish"
	case failureMalformed:
		return "provider kept returning malformed recipes, try a different model"
	case failureNetwork:
		return "network errors reaching the provider, check connectivity"
	default:
		return "check provider credentials and logs"
	}
}
