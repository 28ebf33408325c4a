package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the local limiter rejects a call before
// it reaches the provider.
var ErrRateLimited = errors.New("local rate limit exceeded")

// ResilientConfig tunes the protective wrapper around a provider.
type ResilientConfig struct {
	// MaxFailures is the number of consecutive failures that trips the breaker.
	MaxFailures uint32

	// RecoveryTimeout is how long the breaker stays open before probing.
	RecoveryTimeout time.Duration

	// RequestsPerSecond caps outbound completion calls. Zero disables the cap.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Defaults to 1 when a cap is set.
	Burst int
}

// DefaultResilientConfig returns the defaults used in server mode.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxFailures:       3,
		RecoveryTimeout:   30 * time.Second,
		RequestsPerSecond: 2,
		Burst:             4,
	}
}

// Resilient wraps a Provider with a circuit breaker and a rate limiter.
// It keeps a flaky completion backend from stalling the dispatcher: once
// the backend fails repeatedly, calls short-circuit immediately and the
// caller degrades to its fallback string.
type Resilient struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewResilient wraps the given provider.
func NewResilient(inner Provider, cfg ResilientConfig, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.RecoveryTimeout == 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("completion provider circuit state changed",
				"provider", name, "from", from.String(), "to", to.String())
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Resilient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: limiter,
		logger:  logger,
	}
}

// Name returns the wrapped provider's identifier.
func (r *Resilient) Name() string {
	return r.inner.Name()
}

// Complete runs the call through the limiter and breaker. Breaker-open and
// limiter-rejected calls come back as ProviderError without touching the
// network, so the caller's fallback path is uniform.
func (r *Resilient) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if r.limiter != nil && !r.limiter.Allow() {
		return "", wrapErr(r.Name(), ErrRateLimited)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.Complete(ctx, messages, maxTokens)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", wrapErr(r.Name(), err)
		}
		// Inner errors are already ProviderErrors
		return "", err
	}

	return result.(string), nil
}

// Ping bypasses the limiter; health checks must see the real backend state.
func (r *Resilient) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

// State reports the breaker state for health reporting.
func (r *Resilient) State() string {
	switch r.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
