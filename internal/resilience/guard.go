package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/metrics"
)

// Outcome is what a Guard does with a failed attempt
type Outcome int

const (
	// Retry tries again after a backoff. Once attempts run out the failure counts against the breaker.
	Retry Outcome = iota

	// Fail gives up at once and counts against the breaker
	Fail

	// Reject gives up at once without blaming the service: bad requests, bad keys, cancellation
	Reject
)

// Guard protects every call to one hosted service (the embedding or the chat endpoint).
// Attempts are throttled, retried with exponential backoff, and run behind a circuit
// breaker shared by all callers of that service.
type Guard struct {
	service  string
	cfg      Config
	classify func(error) Outcome
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewGuard creates the guard for service. Errors are classified by Classify.
// A nil logger disables logging; nil metrics record nothing.
func NewGuard(service string, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Guard {
	cfg = cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}

	g := &Guard{
		service:  service,
		cfg:      cfg,
		classify: Classify,
		limiter:  limiter,
		logger:   logger.With(zap.String("service", service)),
		metrics:  m,
	}
	if cfg.BreakerEnabled {
		g.breaker = g.newBreaker()
	}
	return g
}

// Call runs fn under the guard and records it as one service call
func (g *Guard) Call(ctx context.Context, fn func(context.Context) error) error {
	start := time.Now()

	var err error
	if g.breaker == nil {
		err = g.attempt(ctx, fn)
	} else {
		_, err = g.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, g.attempt(ctx, fn)
		})
	}

	g.metrics.ObserveServiceCall(g.service, time.Since(start), err)
	return err
}

// attempt runs fn until it succeeds, stops being retryable, or the attempts run out
func (g *Guard) attempt(ctx context.Context, fn func(context.Context) error) error {
	for n := 1; ; n++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if g.classify(err) != Retry || n >= g.cfg.RetryMaxAttempts {
			return err
		}

		delay := g.cfg.backoff(n)
		g.logger.Warn("retrying service call",
			zap.Int("attempt", n),
			zap.Int("max_attempts", g.cfg.RetryMaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (g *Guard) newBreaker() *gobreaker.CircuitBreaker[struct{}] {
	cfg := g.cfg
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        g.service,
		MaxRequests: cfg.BreakerHalfOpenMaxCalls,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		// a rejected call says nothing about the service's health
		IsSuccessful: func(err error) bool {
			return err == nil || g.classify(err) == Reject
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}

// IsCircuitOpen reports whether err came from an open or saturated breaker
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
