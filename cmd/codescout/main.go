package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codescout/internal/budget"
	"codescout/internal/chunker"
	"codescout/internal/chunker/languages"
	"codescout/internal/config"
	"codescout/internal/crawler"
	"codescout/internal/depgraph"
	"codescout/internal/embedcache"
	"codescout/internal/hashing"
	"codescout/internal/indexer"
	"codescout/internal/knowledge"
	"codescout/internal/planner"
	"codescout/internal/retriever"
	"codescout/internal/store"
	"codescout/internal/watch"
)

var (
	rootCmd = &cobra.Command{
		Use:   "codescout",
		Short: "Semantic code search and context retrieval",
	}
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "codescout.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

// engine bundles the wired components so each command builds them once.
type engine struct {
	cfg      *config.Config
	store    storeCloser
	crawler  *crawler.Crawler
	chunker  *chunker.Chunker
	tracker  *hashing.Tracker
	cache    *embedcache.Manager
	indexer  *indexer.Indexer
	inc      *indexer.IncrementalIndexer
	edges    *indexer.IncrementalGraphCalculator
	builder  *depgraph.Builder
	holder   *depgraph.Holder
	retrieve *retriever.Service
}

type storeCloser interface {
	indexer.DocumentStore
	indexer.SummaryCache
	indexer.EdgeCache
	Close() error
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.Open(cfg.Store.DBPath, cfg.AI.Dimension)
}

func initEngine() (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	logger := slog.Default()

	registry := chunker.NewRegistry()
	languages.RegisterGo(registry)
	languages.RegisterJava(registry)
	ck := chunker.New(registry)

	cr := crawler.New(registry.Extensions(), cfg.Project.IgnoreDirs)

	db, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	embedder := knowledge.NewOllamaEmbedder(cfg.AI.EmbedModel, cfg.AI.Dimension, cfg.AI.BaseURL, logger)
	summarizer := knowledge.NewOllamaSummarizer(cfg.AI.SummaryModel, cfg.AI.BaseURL)

	tracker := hashing.NewTracker()
	cache := embedcache.NewManager(cfg.Store.CacheDir)
	ix := indexer.New(ck, embedder, summarizer, db, tracker, cache, db, cfg.Index.Workers, logger)
	inc := indexer.NewIncrementalIndexer(ix, tracker, logger)
	edges := indexer.NewIncrementalGraphCalculator(db)

	builder := depgraph.NewBuilder(ck, logger)
	holder := depgraph.NewHolder()

	summaries := indexer.NewSummaryIndex(embedder, db)
	chunks := indexer.NewChunkIndex(embedder, db)
	budgets := budget.NewManager(cfg.Retrieval.MaxTokens)
	timeout := time.Duration(cfg.Retrieval.SearchTimeoutMS) * time.Millisecond
	svc := retriever.NewService(planner.New(), budgets, holder, summaries, chunks, timeout, logger)

	return &engine{
		cfg:      cfg,
		store:    db,
		crawler:  cr,
		chunker:  ck,
		tracker:  tracker,
		cache:    cache,
		indexer:  ix,
		inc:      inc,
		edges:    edges,
		builder:  builder,
		holder:   holder,
		retrieve: svc,
	}, nil
}

// loadGraph scans the project and publishes a fresh dependency graph.
func (e *engine) loadGraph() ([]string, error) {
	files, err := e.crawler.ScanProject(e.cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	e.holder.Swap(e.builder.Build(files))
	return files, nil
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Scan the project and build the semantic index",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := initEngine()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer eng.store.Close()

		if len(args) > 0 {
			eng.cfg.Project.Root = args[0]
		}
		root, _ := filepath.Abs(eng.cfg.Project.Root)
		fmt.Printf("📂 Scanning directory: %s\n", root)

		files, err := eng.loadGraph()
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		g := eng.holder.Current()
		fmt.Printf("🔗 Dependency graph: %d files, %d edges.\n", len(g.Files()), g.EdgeCount())

		fmt.Printf("🚀 Indexing %d files...\n", len(files))
		start := time.Now()
		stats, err := eng.indexer.BuildAll(cmd.Context(), files)
		if err != nil {
			log.Fatalf("Indexing failed: %v", err)
		}

		if stats.FilesSkipped == stats.FilesTotal && stats.FilesTotal > 0 {
			fmt.Println("✅ Embedding cache still valid, nothing to re-index.")
			return
		}
		fmt.Printf("✅ Indexed %d files (%d chunks, %d errors) in %v.\n",
			stats.FilesIndexed, stats.TotalChunks, stats.Errors, time.Since(start).Round(time.Millisecond))

		edgeStats, err := eng.edges.CalculateChangedEdgesForFiles(cmd.Context(), files)
		if err != nil {
			log.Fatalf("Edge calculation failed: %v", err)
		}
		fmt.Printf("🧮 Similarity edges: %d nodes recomputed, %d cached, %d edges.\n",
			edgeStats.NodesProcessed, edgeStats.CachedNodes, edgeStats.EdgesCalculated)
		fmt.Printf("🎉 Index complete! Database: %s\n", eng.cfg.Store.DBPath)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve code context for a natural-language question",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := initEngine()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer eng.store.Close()

		if _, err := eng.loadGraph(); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}

		query := strings.Join(args, " ")
		fmt.Printf("🔍 Query: %s\n", query)

		result := eng.retrieve.RetrieveCodeContext(cmd.Context(), query)
		printContext(result)
	},
}

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Show the indexed summary and chunks for one file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := initEngine()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer eng.store.Close()

		result := eng.retrieve.RetrieveSpecificFile(cmd.Context(), args[0])
		printContext(result)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and re-index changed files incrementally",
	Run: func(cmd *cobra.Command, args []string) {
		eng, err := initEngine()
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer eng.store.Close()

		files, err := eng.loadGraph()
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		for _, f := range files {
			eng.tracker.TrackFileHash(f)
		}

		root, _ := filepath.Abs(eng.cfg.Project.Root)
		fmt.Printf("👀 Watching %s (Ctrl+C to stop)...\n", root)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watch.NewWatcher(eng.cfg.Project.Root, eng.crawler, eng.inc,
			eng.store, eng.builder, eng.holder, eng.edges, slog.Default())
		if err := w.Run(ctx); err != nil {
			log.Fatalf("Watcher failed: %v", err)
		}
		fmt.Println("👋 Watcher stopped.")
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete the embedding cache so the next index pass re-embeds everything",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cache := embedcache.NewManager(cfg.Store.CacheDir)
		if err := cache.ClearCache(); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		fmt.Printf("🧹 Cleared embedding cache at %s\n", cfg.Store.CacheDir)
	},
}

func printContext(result retriever.CodeContext) {
	if result.IsEmpty() {
		fmt.Println("🤷 No matching code found.")
		return
	}

	fmt.Printf("📋 Strategy: %s (confidence %.2f)\n", result.SearchStrategy, result.Confidence)
	fmt.Printf("📁 Relevant files:\n")
	for _, f := range result.RelevantFiles {
		fmt.Printf("   - %s\n", f)
	}

	if len(result.FileSummaries) > 0 {
		fmt.Println("\n📝 File summaries:")
		for _, s := range result.FileSummaries {
			fmt.Printf("\n%s\n%s\n", s.Filename, s.Text)
		}
	}
	if len(result.CodeChunks) > 0 {
		fmt.Println("\n🧩 Code chunks:")
		for _, c := range result.CodeChunks {
			fmt.Printf("\n%s (%s)\n%s\n", c.Filename, c.ChunkType, c.Text)
		}
	}
	if result.MaxTokens > 0 {
		fmt.Printf("\n🧮 Budget: %d/%d tokens used.\n", result.UsedTokens, result.MaxTokens)
	}
}
