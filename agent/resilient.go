package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"soil-health-agent/metrics"
	"soil-health-agent/tools"
)

// ResilienceConfig tunes retries and the circuit breaker around a model.
type ResilienceConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration

	// The breaker opens after BreakerFailures consecutive failures and
	// lets a probe through after BreakerOpenFor.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// DefaultResilience is used by the command-line entry point.
func DefaultResilience(maxRetries int) ResilienceConfig {
	return ResilienceConfig{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
		BreakerFailures: 5,
		BreakerOpenFor:  30 * time.Second,
	}
}

type resilientModel struct {
	next    ChatModel
	cfg     ResilienceConfig
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WithResilience wraps next with exponential-backoff retries for transient
// failures behind a circuit breaker. Client errors are returned at once.
func WithResilience(next ChatModel, cfg ResilienceConfig, logger *slog.Logger, m *metrics.Metrics) ChatModel {
	if logger == nil {
		logger = slog.Default()
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	return &resilientModel{
		next: next,
		cfg:  cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    next.Provider(),
			Timeout: cfg.BreakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !retryable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("model circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
			},
		}),
		logger:  logger.With("component", "model"),
		metrics: m,
	}
}

func (r *resilientModel) Provider() string {
	return r.next.Provider()
}

func (r *resilientModel) Complete(ctx context.Context, messages []Message, toolset []tools.Tool) (*Message, error) {
	bo := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		bo.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = r.cfg.MaxElapsedTime
	}
	retries := r.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var reply *Message
	operation := func() error {
		out, err := r.breaker.Execute(func() (interface{}, error) {
			return r.next.Complete(ctx, messages, toolset)
		})
		if err != nil {
			r.metrics.ModelRequest(r.Provider(), metrics.OutcomeError)
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		r.metrics.ModelRequest(r.Provider(), metrics.OutcomeOK)
		reply = out.(*Message)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("model request failed, retrying", "provider", r.Provider(), "wait", wait, "err", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return reply, nil
}
