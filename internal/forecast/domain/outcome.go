package domain

import (
	"errors"
	"fmt"
)

type StrategyName string

const (
	StrategyStatistical StrategyName = "statistical"
	StrategyDelegated   StrategyName = "delegated"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")

	ErrDelegatedDisabled      = errors.New("delegated_disabled")
	ErrTimeout                = errors.New("timeout")
	ErrQuotaExceeded          = errors.New("quota_exceeded")
	ErrMalformedResponse      = errors.New("malformed_response")
	ErrInconsistentProjection = errors.New("inconsistent_projection")
	ErrCircuitOpen            = errors.New("circuit_open")
)

var reasonCodes = []error{
	ErrDelegatedDisabled,
	ErrTimeout,
	ErrQuotaExceeded,
	ErrMalformedResponse,
	ErrInconsistentProjection,
	ErrCircuitOpen,
}

// Outcome is the result of asking a strategy for a projection. It is either
// Ok(strategy, projection) or Unavailable(reason); the zero value is
// Unavailable.
type Outcome struct {
	ok         bool
	strategy   StrategyName
	projection Projection
	reason     error
}

func Ok(strategy StrategyName, projection Projection) Outcome {
	return Outcome{ok: true, strategy: strategy, projection: projection}
}

// Unavailable wraps reason so that errors.Is(reason, ErrUpstreamUnavailable)
// always holds.
func Unavailable(reason error) Outcome {
	switch {
	case reason == nil:
		reason = ErrUpstreamUnavailable
	case !errors.Is(reason, ErrUpstreamUnavailable):
		reason = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, reason)
	}
	return Outcome{reason: reason}
}

func (o Outcome) Projection() (Projection, bool) {
	if !o.ok {
		return Projection{}, false
	}
	return o.projection, true
}

func (o Outcome) Strategy() StrategyName { return o.strategy }

func (o Outcome) Reason() error {
	if o.ok {
		return nil
	}
	if o.reason == nil {
		return ErrUpstreamUnavailable
	}
	return o.reason
}

// ReasonCode reduces an Unavailable reason to a low-cardinality code.
func ReasonCode(err error) string {
	if err == nil {
		return ""
	}
	for _, code := range reasonCodes {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return "upstream_error"
}
