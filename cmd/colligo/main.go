package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/cleaner"
	"github.com/ternarybob/colligo/internal/coda"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/crawler"
	"github.com/ternarybob/colligo/internal/sink"
	"github.com/ternarybob/colligo/internal/storage"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	seedURL      = flag.String("seed", "", "Seed URL to crawl (overrides config)")
	outputFile   = flag.String("output", "", "Output file path (overrides config)")
	strategy     = flag.String("strategy", "", "Traversal strategy: bfs or recursive (overrides config)")
	docID        = flag.String("doc", "", "Export a Coda document by ID instead of crawling")
	listDocs     = flag.Bool("list-docs", false, "List Coda documents accessible to the token and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Colligo version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configFiles = append(configFiles, "colligo.toml")
		}
	}

	// Load configuration (defaults -> files -> env), then apply CLI
	// overrides as the highest priority
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if *seedURL != "" {
		config.Crawl.SeedURL = *seedURL
	}
	if *outputFile != "" {
		config.Crawl.OutputFile = *outputFile
	}
	if *strategy != "" {
		config.Crawl.Strategy = *strategy
	}
	if *docID != "" {
		config.Coda.DocID = *docID
	}

	logger := common.InitLogger(config, config.Crawl.SeedURL)
	common.PrintBanner(common.GetVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *listDocs:
		err = runListDocs(ctx, config, logger)
	case config.Coda.DocID != "":
		err = runDocExport(ctx, config, logger)
	default:
		err = runCrawl(ctx, config, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

// runCrawl drives the crawl/clean pipeline from the configured seed URL.
func runCrawl(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	if config.Crawl.SeedURL == "" {
		return fmt.Errorf("seed URL is required (use -seed or crawl.seed_url in config)")
	}
	// Fail before any network activity if the cleaning credential is absent.
	if err := config.RequireCleanerCredential(); err != nil {
		return err
	}

	provider, err := cleaner.NewProvider(ctx, config, logger)
	if err != nil {
		return err
	}
	cleanService := cleaner.NewService(&config.LLM, provider, logger)

	fileSink, err := sink.NewFileSink(config.Crawl.OutputFile, logger)
	if err != nil {
		return err
	}
	defer fileSink.Close()

	var recordStore crawler.RecordStore
	if config.Storage.Enabled {
		store, err := storage.Open(config.Storage.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		recordStore = store
	}

	runID := common.NewRunID()
	orch, err := crawler.NewOrchestrator(crawler.Options{
		Config:  &config.Crawl,
		Cleaner: cleanService,
		Sink:    fileSink,
		Store:   recordStore,
		Logger:  logger,
		RunID:   runID,
	})
	if err != nil {
		return err
	}

	stats, err := orch.Run(ctx)
	if errors.Is(err, cleaner.ErrCircuitOpen) {
		logger.Error().
			Str("run_id", runID).
			Int("records_written", int(stats.RecordsWritten)).
			Msg("Cleaning service outage: run aborted, output is incomplete")
		return err
	}
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", runID).
		Str("output", fileSink.Path()).
		Int("pages_visited", int(stats.PagesVisited)).
		Int("records_written", int(stats.RecordsWritten)).
		Msg("Crawl complete")
	return nil
}

// runListDocs prints the documents the Coda token can access.
func runListDocs(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	client, err := coda.NewClient(ctx, &config.Coda, logger)
	if err != nil {
		return err
	}
	docs, err := client.ListDocs(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		fmt.Printf("%s\t%s\t(owner: %s, updated: %s)\n", doc.ID, doc.Name, doc.Owner.Name, doc.UpdatedAt.Format("2006-01-02"))
	}
	logger.Info().Int("count", len(docs)).Msg("Listed accessible documents")
	return nil
}

// exportOutputPath names the document-export artifact. crawl.output_file is
// the crawl's text artifact, so only the -output flag can redirect the JSON
// export; otherwise it defaults to a per-document file name.
func exportOutputPath(flagValue, docID string) string {
	if flagValue != "" {
		return flagValue
	}
	return fmt.Sprintf("coda_%s.json", docID)
}

// runDocExport extracts one Coda document to a JSON file.
func runDocExport(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	client, err := coda.NewClient(ctx, &config.Coda, logger)
	if err != nil {
		return err
	}

	export, err := client.ExportDoc(ctx, config.Coda.DocID)
	if err != nil {
		return err
	}

	outPath := exportOutputPath(*outputFile, config.Coda.DocID)
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing export to %s: %w", outPath, err)
	}

	logger.Info().
		Str("doc_id", config.Coda.DocID).
		Str("output", outPath).
		Int("pages", len(export.Pages)).
		Int("tables", len(export.Tables)).
		Msg("Document export complete")
	return nil
}
