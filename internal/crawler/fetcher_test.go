package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func testCrawlConfig() *common.CrawlConfig {
	return &common.CrawlConfig{
		UserAgent:      "colligo-test",
		MaxRetries:     3,
		RequestTimeout: common.Duration(2 * time.Second),
		RetryBaseDelay: common.Duration(time.Millisecond),
		RetryMaxDelay:  common.Duration(5 * time.Millisecond),
	}
}

func TestFetcher_Success(t *testing.T) {
	var gotUA atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := NewFetcher(testCrawlConfig(), createTestLogger())
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, "colligo-test", gotUA.Load())
}

func TestFetcher_NotFoundSkipsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testCrawlConfig(), createTestLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrPermanentSkip)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestFetcher_ForbiddenSkipsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewFetcher(testCrawlConfig(), createTestLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrPermanentSkip)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcher_TransientFailureRetriesThenExhausts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testCrawlConfig()
	f := NewFetcher(cfg, createTestLogger())
	_, err := f.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(cfg.MaxRetries), calls.Load(), "the attempt ceiling counts total attempts, not extra retries")
}

func TestFetcher_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	f := NewFetcher(testCrawlConfig(), createTestLogger())
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testCrawlConfig()
	cfg.RetryBaseDelay = common.Duration(time.Second)
	f := NewFetcher(cfg, createTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_BackoffCap(t *testing.T) {
	cfg := testCrawlConfig()
	cfg.RetryBaseDelay = common.Duration(3 * time.Second)
	cfg.RetryMaxDelay = common.Duration(60 * time.Second)
	f := NewFetcher(cfg, createTestLogger())

	assert.Equal(t, 3*time.Second, f.backoff(0))
	assert.Equal(t, 6*time.Second, f.backoff(1))
	assert.Equal(t, 48*time.Second, f.backoff(4))
	assert.Equal(t, 60*time.Second, f.backoff(5))
	assert.Equal(t, 60*time.Second, f.backoff(10))
}
