package cleaner

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/ratelimit"
)

// Service runs cleaning calls against a provider under the shared rate
// limit, concurrency semaphore, per-call retry, and the run-wide circuit
// breaker. It satisfies the crawler's Cleaner interface.
type Service struct {
	provider   Provider
	limiter    *ratelimit.Window
	sem        *semaphore.Weighted
	breaker    *breaker
	maxRetries int
	retryDelay time.Duration
	strict     bool
	logger     arbor.ILogger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires a cleaning service around the given provider using the
// LLM configuration's quota, concurrency, retry, and breaker settings.
func NewService(cfg *common.LLMConfig, provider Provider, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		provider:   provider,
		limiter:    ratelimit.NewWindow(cfg.MaxCalls, cfg.Window.Std()),
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		breaker:    newBreaker(cfg.FailureLimit),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay.Std(),
		strict:     cfg.Strict,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Clean sends rawText to the provider and returns the cleaned text. Failed
// attempts are retried with doubling backoff; exhausting retries degrades to
// the original text (or an empty string in strict mode) rather than failing
// the page. The only errors returned are a cancelled context and a tripped
// circuit breaker, both fatal to the run.
func (s *Service) Clean(ctx context.Context, rawText string) (string, error) {
	if err := s.breaker.Err(); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay << (attempt - 1)
			s.logger.Warn().
				Str("provider", s.provider.Name()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying clean")
			if err := s.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		cleaned, err := s.attempt(ctx, rawText)
		if err == nil {
			s.breaker.Success()
			return cleaned, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		if fatal := s.breaker.Failure(); fatal != nil {
			s.logger.Error().
				Str("provider", s.provider.Name()).
				Int("consecutive_failures", s.breaker.Failures()).
				Err(err).
				Msg("Cleaning service outage, aborting run")
			return "", fatal
		}
	}

	s.logger.Warn().
		Str("provider", s.provider.Name()).
		Int("retries", s.maxRetries).
		Err(lastErr).
		Msg("Clean retries exhausted, degrading")
	if s.strict {
		return "", nil
	}
	return rawText, nil
}

// attempt performs one provider call behind the semaphore and rate limiter.
func (s *Service) attempt(ctx context.Context, rawText string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.provider.Complete(ctx, rawText)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
