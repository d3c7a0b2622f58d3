// Package crawler implements the documentation crawl pipeline: URL
// normalization, scope filtering, fetching with bounded retry, link and text
// extraction, and the traversal orchestrator that drives them.
package crawler

import (
	"context"
	"errors"
	"time"
)

// Typed terminal states for a single URL. Permanent skips and retry
// exhaustion are normal outcomes for one page, never fatal to the run.
var (
	// ErrPermanentSkip marks a URL that returned 403/404; it is never retried.
	ErrPermanentSkip = errors.New("permanent skip")

	// ErrRetriesExhausted marks a URL whose fetch attempts were all spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// PageResult is the outcome of fetching and parsing one page.
// Produced by the fetch/extract stages, consumed once, not retained.
type PageResult struct {
	URL      string
	RawText  string
	Markdown string
	Links    []string
}

// CleanedRecord is the unit appended to the output artifact.
type CleanedRecord struct {
	RunID     string    `badgerhold:"index"`
	URL       string    `badgerhold:"key"`
	Text      string
	Timestamp time.Time
}

// Cleaner transforms raw page text into cleaned markdown. Implementations
// own their retry, quota, and circuit-breaker behavior; a returned error is
// fatal for the whole run.
type Cleaner interface {
	Clean(ctx context.Context, rawText string) (string, error)
}

// Sink persists one cleaned record per call. Writes must be atomic appends.
type Sink interface {
	Write(record CleanedRecord) error
}

// RecordStore optionally persists cleaned records to a queryable store in
// addition to the sink artifact.
type RecordStore interface {
	Save(record CleanedRecord) error
}

// Harvester supplies extra candidate links for a page beyond what the HTML
// anchor scan finds (e.g. a script-driven sidebar harvest). BFS traversal
// merges its results into the frontier after each page.
type Harvester interface {
	Harvest(ctx context.Context, pageURL string) ([]string, error)
}
