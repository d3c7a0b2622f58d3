package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/colligo/internal/common"
)

// Traversal strategies.
const (
	StrategyBFS       = "bfs"
	StrategyRecursive = "recursive"
)

// Stats summarizes one crawl run.
type Stats struct {
	PagesVisited     int64
	RecordsWritten   int64
	SkippedPermanent int64
	SkippedEmpty     int64
	FailedFetches    int64
}

// Orchestrator drives the crawl: it owns the visited set, pulls URLs from
// the frontier, and runs each page through fetch, extract, clean, and sink.
type Orchestrator struct {
	cfg       *common.CrawlConfig
	scope     *Scope
	fetcher   *Fetcher
	extractor *Extractor
	cleaner   Cleaner
	sink      Sink
	store     RecordStore
	harvester Harvester
	hosts     *hostLimiter
	visited   *visitedSet
	logger    arbor.ILogger
	runID     string

	pagesVisited     atomic.Int64
	recordsWritten   atomic.Int64
	skippedPermanent atomic.Int64
	skippedEmpty     atomic.Int64
	failedFetches    atomic.Int64
}

// Options carries the orchestrator's collaborators. Store and Harvester are
// optional.
type Options struct {
	Config    *common.CrawlConfig
	Cleaner   Cleaner
	Sink      Sink
	Store     RecordStore
	Harvester Harvester
	Logger    arbor.ILogger
	RunID     string
}

// NewOrchestrator wires the traversal together from its collaborators.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("crawl configuration is required")
	}
	if opts.Cleaner == nil {
		return nil, fmt.Errorf("cleaner is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	scope, err := NewScope(opts.Config.SeedURL, opts.Config.BinaryExtensions)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	runID := opts.RunID
	if runID == "" {
		runID = common.NewRunID()
	}
	return &Orchestrator{
		cfg:       opts.Config,
		scope:     scope,
		fetcher:   NewFetcher(opts.Config, logger),
		extractor: NewExtractor(scope, logger),
		cleaner:   opts.Cleaner,
		sink:      opts.Sink,
		store:     opts.Store,
		harvester: opts.Harvester,
		hosts:     newHostLimiter(opts.Config.PolitenessDelay.Std()),
		visited:   newVisitedSet(),
		logger:    logger,
		runID:     runID,
	}, nil
}

// Run executes the configured traversal strategy from the seed URL and
// returns the run statistics. The only fatal errors are a cancelled context
// and a tripped cleaner circuit breaker.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	seed, err := Normalize(o.cfg.SeedURL, "")
	if err != nil {
		return Stats{}, fmt.Errorf("invalid seed URL: %w", err)
	}

	o.logger.Info().
		Str("run_id", o.runID).
		Str("seed", seed).
		Str("strategy", o.cfg.Strategy).
		Msg("Starting crawl")

	start := time.Now()
	switch o.cfg.Strategy {
	case StrategyRecursive:
		err = o.runRecursive(ctx, seed)
	default:
		err = o.runBFS(ctx, seed)
	}

	stats := o.Stats()
	o.logger.Info().
		Str("run_id", o.runID).
		Int("pages_visited", int(stats.PagesVisited)).
		Int("records_written", int(stats.RecordsWritten)).
		Int("skipped_permanent", int(stats.SkippedPermanent)).
		Int("skipped_empty", int(stats.SkippedEmpty)).
		Int("failed_fetches", int(stats.FailedFetches)).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl finished")
	return stats, err
}

// Stats returns a snapshot of the run counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		PagesVisited:     o.pagesVisited.Load(),
		RecordsWritten:   o.recordsWritten.Load(),
		SkippedPermanent: o.skippedPermanent.Load(),
		SkippedEmpty:     o.skippedEmpty.Load(),
		FailedFetches:    o.failedFetches.Load(),
	}
}

// runBFS processes the frontier one page at a time. When a harvester is
// configured its links are merged with the anchor scan before enqueueing.
func (o *Orchestrator) runBFS(ctx context.Context, seed string) error {
	queue := newFrontier()
	if o.visited.MarkIfNew(seed) {
		queue.Push(frontierItem{url: seed})
	}

	for {
		item, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.pageBudgetExceeded() {
			o.logger.Info().Int("max_pages", o.cfg.MaxPages).Msg("Page budget reached, stopping")
			return nil
		}

		result, err := o.processPage(ctx, item.url)
		if err != nil {
			return err
		}
		if result == nil {
			continue
		}

		links := result.Links
		if o.harvester != nil {
			harvested, err := o.harvester.Harvest(ctx, item.url)
			if err != nil {
				o.logger.Warn().Str("url", item.url).Err(err).Msg("Link harvest failed")
			} else {
				links = o.mergeHarvested(links, harvested, item.url)
			}
		}

		if o.cfg.MaxDepth > 0 && item.depth >= o.cfg.MaxDepth {
			continue
		}
		for _, link := range links {
			if o.visited.MarkIfNew(link) {
				queue.Push(frontierItem{url: link, depth: item.depth + 1})
			}
		}
	}
}

// runRecursive fans each page's discovered links out as concurrent child
// traversals and waits for the whole branch before returning. The stricter
// subtree predicate keeps the fan-out inside the seed's path.
func (o *Orchestrator) runRecursive(ctx context.Context, seed string) error {
	if !o.visited.MarkIfNew(seed) {
		return nil
	}
	return o.crawlBranch(ctx, seed, 0)
}

func (o *Orchestrator) crawlBranch(ctx context.Context, pageURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.pageBudgetExceeded() {
		return nil
	}

	result, err := o.processPage(ctx, pageURL)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if o.cfg.MaxDepth > 0 && depth >= o.cfg.MaxDepth {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, link := range result.Links {
		if !o.scope.InSubtree(link) {
			continue
		}
		if !o.visited.MarkIfNew(link) {
			continue
		}
		link := link
		g.Go(func() error {
			return o.crawlBranch(ctx, link, depth+1)
		})
	}
	return g.Wait()
}

// processPage runs one URL through the pipeline. A nil result with nil error
// means the page was skipped; a non-nil error aborts the run.
func (o *Orchestrator) processPage(ctx context.Context, pageURL string) (*PageResult, error) {
	if err := o.hosts.Wait(ctx, pageURL); err != nil {
		return nil, err
	}

	o.pagesVisited.Add(1)
	o.logger.Info().Str("url", pageURL).Msg("Processing page")

	body, err := o.fetcher.Fetch(ctx, pageURL)
	switch {
	case errors.Is(err, ErrPermanentSkip):
		o.skippedPermanent.Add(1)
		return nil, nil
	case errors.Is(err, ErrRetriesExhausted):
		o.failedFetches.Add(1)
		return nil, nil
	case err != nil:
		return nil, err
	}

	result, err := o.extractor.Extract(body, pageURL)
	if err != nil {
		o.logger.Warn().Str("url", pageURL).Err(err).Msg("Failed to parse page")
		o.failedFetches.Add(1)
		return nil, nil
	}

	if strings.TrimSpace(result.Markdown) == "" {
		o.skippedEmpty.Add(1)
		return result, nil
	}

	cleaned, err := o.cleaner.Clean(ctx, result.Markdown)
	if err != nil {
		// Cleaner errors are fatal: either the circuit breaker tripped or
		// the context was cancelled. Continuing would silently degrade
		// every remaining page.
		return nil, fmt.Errorf("cleaning %s: %w", pageURL, err)
	}
	if strings.TrimSpace(cleaned) == "" {
		o.skippedEmpty.Add(1)
		return result, nil
	}

	record := CleanedRecord{
		RunID:     o.runID,
		URL:       pageURL,
		Text:      cleaned,
		Timestamp: time.Now().UTC(),
	}
	if err := o.sink.Write(record); err != nil {
		return nil, fmt.Errorf("writing record for %s: %w", pageURL, err)
	}
	if o.store != nil {
		if err := o.store.Save(record); err != nil {
			o.logger.Warn().Str("url", pageURL).Err(err).Msg("Failed to persist record")
		}
	}
	o.recordsWritten.Add(1)
	return result, nil
}

// mergeHarvested normalizes harvested candidates against the page URL,
// drops out-of-scope entries, and unions them with links.
func (o *Orchestrator) mergeHarvested(links, harvested []string, pageURL string) []string {
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		seen[link] = struct{}{}
	}
	merged := links
	for _, raw := range harvested {
		normalized, err := Normalize(raw, pageURL)
		if err != nil || !o.scope.InScope(normalized) {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		merged = append(merged, normalized)
	}
	return merged
}

func (o *Orchestrator) pageBudgetExceeded() bool {
	return o.cfg.MaxPages > 0 && o.pagesVisited.Load() >= int64(o.cfg.MaxPages)
}
