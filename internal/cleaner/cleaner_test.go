package cleaner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	response string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("service overloaded")
	}
	if p.response != "" {
		return p.response, nil
	}
	return text, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testLLMConfig() *common.LLMConfig {
	return &common.LLMConfig{
		Provider:      "claude",
		MaxCalls:      100,
		Window:        common.Duration(time.Second),
		MaxConcurrent: 20,
		MaxRetries:    5,
		RetryDelay:    common.Duration(time.Millisecond),
		FailureLimit:  18,
	}
}

func newTestService(cfg *common.LLMConfig, provider Provider) *Service {
	s := NewService(cfg, provider, arbor.NewLogger())
	s.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return s
}

func TestService_CleanSuccess(t *testing.T) {
	provider := &fakeProvider{response: "cleaned text"}
	s := newTestService(testLLMConfig(), provider)

	got, err := s.Clean(context.Background(), "raw text")
	require.NoError(t, err)
	assert.Equal(t, "cleaned text", got)
	assert.Equal(t, 1, provider.Calls())
}

func TestService_RetriesThenSucceeds(t *testing.T) {
	provider := &fakeProvider{failures: 2, response: "cleaned"}
	s := newTestService(testLLMConfig(), provider)

	got, err := s.Clean(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "cleaned", got)
	assert.Equal(t, 3, provider.Calls())
	assert.Equal(t, 0, s.breaker.Failures(), "success must reset the failure streak")
}

func TestService_DegradesToOriginalText(t *testing.T) {
	provider := &fakeProvider{failures: 1000}
	cfg := testLLMConfig()
	s := newTestService(cfg, provider)

	got, err := s.Clean(context.Background(), "original content")
	require.NoError(t, err)
	assert.Equal(t, "original content", got, "exhausted retries must fall back to the input")
	assert.Equal(t, cfg.MaxRetries, provider.Calls())
}

func TestService_StrictModeDegradesToEmpty(t *testing.T) {
	provider := &fakeProvider{failures: 1000}
	cfg := testLLMConfig()
	cfg.Strict = true
	s := newTestService(cfg, provider)

	got, err := s.Clean(context.Background(), "original content")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_BreakerTripsAcrossCalls(t *testing.T) {
	provider := &fakeProvider{failures: 1000}
	cfg := testLLMConfig()
	s := newTestService(cfg, provider)

	// Three degraded calls burn 15 consecutive failures.
	for i := 0; i < 3; i++ {
		_, err := s.Clean(context.Background(), "raw")
		require.NoError(t, err)
	}
	assert.Equal(t, 15, s.breaker.Failures())

	// The next call crosses the threshold mid-retry and aborts.
	_, err := s.Clean(context.Background(), "raw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// Once open, every further call fails fast without touching the provider.
	before := provider.Calls()
	_, err = s.Clean(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, provider.Calls())
}

func TestService_InterveningSuccessPreventsTrip(t *testing.T) {
	cfg := testLLMConfig()
	provider := &fakeProvider{failures: 17, response: "recovered"}
	s := newTestService(cfg, provider)

	// 17 failures spread over calls, then a success: the streak resets and
	// the breaker never opens.
	for provider.Calls() < 17 {
		_, err := s.Clean(context.Background(), "raw")
		require.NoError(t, err)
	}
	got, err := s.Clean(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 0, s.breaker.Failures())
	assert.NoError(t, s.breaker.Err())
}

func TestService_ContextCancellation(t *testing.T) {
	provider := &fakeProvider{failures: 1000}
	s := NewService(testLLMConfig(), provider, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Clean(ctx, "raw")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_BackoffDoubles(t *testing.T) {
	provider := &fakeProvider{failures: 1000}
	cfg := testLLMConfig()
	cfg.RetryDelay = common.Duration(3 * time.Second)
	s := NewService(cfg, provider, arbor.NewLogger())

	var delays []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := s.Clean(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		3 * time.Second,
		6 * time.Second,
		12 * time.Second,
		24 * time.Second,
	}, delays)
}
