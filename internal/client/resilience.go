package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrRateLimited is returned when submissions exceed the configured rate
var ErrRateLimited = errors.New("submission rate limit exceeded")

// ResilienceConfig holds configuration for the backend call guards
type ResilienceConfig struct {
	// EnableCircuitBreaker stops calling a failing backend for a while
	EnableCircuitBreaker bool

	// EnableRetry retries reads with exponential backoff
	EnableRetry bool

	// EnableBulkhead caps concurrent requests
	EnableBulkhead bool

	// EnableRateLimit throttles writes
	EnableRateLimit bool

	// MaxAttempts for reads (default: 3)
	MaxAttempts int

	// InitialDelay between read retries (default: 200ms)
	InitialDelay time.Duration

	// MaxConcurrent for the bulkhead (default: 8)
	MaxConcurrent int

	// WritesPerSecond for rate limiting (default: 5)
	WritesPerSecond int

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilienceConfig returns sensible defaults for an interactive client
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxAttempts:          3,
		InitialDelay:         200 * time.Millisecond,
		MaxConcurrent:        8,
		WritesPerSecond:      5,
	}
}

type guard struct {
	circuitBreaker circuitbreaker.CircuitBreaker[[]byte]
	retrier        retry.Retry[[]byte]
	bulkhead       bulkhead.Bulkhead[[]byte]
	rateLimit      ratelimit.RateLimiter
}

func newGuard(cfg ResilienceConfig) *guard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &guard{}

	if cfg.EnableCircuitBreaker {
		g.circuitBreaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("backend circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 200 * time.Millisecond
		}
		g.retrier = retry.New[[]byte](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	if cfg.EnableBulkhead {
		n := cfg.MaxConcurrent
		if n <= 0 {
			n = 8
		}
		g.bulkhead = bulkhead.New[[]byte](bulkhead.Config{
			MaxConcurrent: n,
			MaxQueue:      n * 2,
			QueueTimeout:  10 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.WritesPerSecond
		if rate <= 0 {
			rate = 5
		}
		g.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}

	return g
}

// read applies bulkhead, retry and circuit breaker
func (g *guard) read(ctx context.Context, op func(context.Context) ([]byte, error)) ([]byte, error) {
	call := g.limit(op)
	if g.retrier != nil {
		inner := call
		call = func(ctx context.Context) ([]byte, error) {
			return g.retrier.Do(ctx, inner)
		}
	}
	return g.breaker(ctx, call)
}

// write applies rate limit, bulkhead and circuit breaker, never retrying
func (g *guard) write(ctx context.Context, op func(context.Context) ([]byte, error)) ([]byte, error) {
	if g.rateLimit != nil && !g.rateLimit.Allow(ctx, "write") {
		return nil, ErrRateLimited
	}
	return g.breaker(ctx, g.limit(op))
}

func (g *guard) limit(op func(context.Context) ([]byte, error)) func(context.Context) ([]byte, error) {
	if g.bulkhead == nil {
		return op
	}
	return func(ctx context.Context) ([]byte, error) {
		return g.bulkhead.Execute(ctx, op)
	}
}

// breaker runs call through the circuit breaker. Client errors are
// answers from a healthy backend and do not count as failures.
func (g *guard) breaker(ctx context.Context, call func(context.Context) ([]byte, error)) ([]byte, error) {
	if g.circuitBreaker == nil {
		return call(ctx)
	}

	var clientErr error
	body, err := g.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		body, err := call(ctx)
		if err != nil && !isServerFailure(err) {
			clientErr = err
			return nil, nil
		}
		return body, err
	})
	if clientErr != nil {
		return nil, clientErr
	}
	if err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	return body, nil
}

// Close releases resources held by the guards
func (g *guard) Close() error {
	if g.rateLimit != nil {
		return g.rateLimit.Close()
	}
	return nil
}

// isServerFailure reports whether err reflects an unhealthy backend
func isServerFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// isRetryable retries transport failures, 429 and 5xx
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}
