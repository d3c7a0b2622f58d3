package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// Fetcher retrieves page bodies with retry and backoff. 403 and 404 are
// treated as permanent so the crawl moves on without burning retries.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     arbor.ILogger
}

// NewFetcher creates a fetcher from the crawl configuration.
func NewFetcher(cfg *common.CrawlConfig, logger arbor.ILogger) *Fetcher {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout.Std(),
		},
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay.Std(),
		maxDelay:   cfg.RetryMaxDelay.Std(),
		logger:     logger,
	}
}

// Fetch downloads the page at pageURL and returns its body. Permanent
// failures (403, 404) return ErrPermanentSkip without retrying; transient
// failures are retried with exponential backoff, maxRetries attempts in
// total, after which ErrRetriesExhausted is returned.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt - 1)
			f.logger.Warn().
				Str("url", pageURL).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying fetch")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		if isPermanent(err) {
			f.logger.Info().Str("url", pageURL).Err(err).Msg("Skipping page permanently")
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	f.logger.Error().Str("url", pageURL).Int("retries", f.maxRetries).Err(lastErr).Msg("Fetch retries exhausted")
	return "", fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, pageURL, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermanentSkip, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: HTTP %d", ErrPermanentSkip, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// backoff returns min(baseDelay * 2^n, maxDelay).
func (f *Fetcher) backoff(n int) time.Duration {
	delay := f.baseDelay
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= f.maxDelay {
			return f.maxDelay
		}
	}
	if delay > f.maxDelay {
		return f.maxDelay
	}
	return delay
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrPermanentSkip)
}
