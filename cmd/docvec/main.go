// docvec vectorizes documents into interchangeable vector store backends.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	_ "github.com/spetr/docvec/builtin"
	"github.com/spetr/docvec/internal/bootstrap"
	"github.com/spetr/docvec/internal/config"
	"github.com/spetr/docvec/internal/supervise"
	"github.com/spetr/docvec/internal/vectorizer"
	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
)

var (
	version   = "0.2.0"
	cfgFile   string
	logLevel  string
	logFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docvec",
	Short: "Document vectorization pipeline",
	Long: `docvec extracts text from documents (PDF, TXT, DOCX), splits it into
paragraph chunks, embeds each chunk and stores the vectors in a
configurable backend (MongoDB, Redis with RediSearch, or sqlite-vec).

Stored chunks are searchable by cosine similarity, optionally filtered
by file type.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docvec %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var processCmd = &cobra.Command{
	Use:   "process [path]",
	Short: "Vectorize a document or directory",
	Long:  `Vectorize a document, or every supported document under a directory. If no path is provided, processes the current directory.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		runProcess(path)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored chunks by similarity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		fileType, _ := cmd.Flags().GetString("file-type")

		runSearch(args[0], limit, fileType)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Run: func(cmd *cobra.Command, args []string) {
		runStats()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <source>",
	Short: "Delete every chunk of a source document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDelete(args[0])
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and re-vectorize documents as they change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		debounce, _ := cmd.Flags().GetDuration("debounce")

		runWatch(path, debounce)
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <file>",
	Short: "Run a backend command file against the store",
	Long: `Run a line-oriented command file against the configured backend,
typically to provision indexes or seed data before the pipeline starts.
Blank lines and lines starting with '#' are skipped; a failing command
is logged and the remaining lines still run.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBootstrap(args[0])
	},
}

var superviseCmd = &cobra.Command{
	Use:   "supervise <command> [args...]",
	Short: "Start a backend process and supervise it until exit",
	Long: `Start the given command as a child process, wait until the configured
backend answers pings, then block until the child exits. Intended for
container entrypoints that wrap the store server itself.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interval, _ := cmd.Flags().GetDuration("probe-interval")
		retries, _ := cmd.Flags().GetInt("probe-retries")

		runSupervise(args[0], args[1:], interval, retries)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigFile
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "config file already exists: %s\n", path)
			os.Exit(1)
		}
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Println("Configuration is valid")
			return
		}
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		}
		os.Exit(1)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./"+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	searchCmd.Flags().Int("limit", 0, "maximum results (default from config)")
	searchCmd.Flags().String("file-type", "", "restrict results to one file type (pdf, txt, docx)")

	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "settle time before a changed file is re-processed")

	superviseCmd.Flags().Duration("probe-interval", supervise.DefaultProbeInterval, "delay between readiness probes")
	superviseCmd.Flags().Int("probe-retries", supervise.DefaultProbeRetries, "probe attempts before giving up")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(superviseCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}
	slog.Debug("effective config", "config", fmt.Sprintf("%+v", cfg.Redacted()))
	return cfg
}

// storeConfig maps the loaded configuration onto the vector store
// factory's options.
func storeConfig(cfg *config.Config) provider.VectorStoreConfig {
	return provider.VectorStoreConfig{
		Provider:  cfg.VectorStore.Provider,
		Dimension: cfg.VectorStore.Dimension,
		Mongo: provider.MongoOptions{
			URI:        cfg.MongoURI(),
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		},
		Redis: provider.RedisOptions{
			Addr:      cfg.RedisAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			IndexName: cfg.Redis.IndexName,
			DocPrefix: cfg.Redis.DocPrefix,
			UseTLS:    cfg.Redis.SSL,
			CertFile:  cfg.Redis.SSLCert,
			KeyFile:   cfg.Redis.SSLKey,
			CAFile:    cfg.Redis.SSLCA,
		},
		SQLite: provider.SQLiteOptions{
			Path: cfg.SQLite.Path,
		},
	}
}

// createProviders creates the store, embedder and chunker based on config.
func createProviders(ctx context.Context, cfg *config.Config) (provider.VectorStore, provider.EmbeddingProvider, provider.ChunkingStrategy, error) {
	store, err := provider.DefaultRegistry.CreateVectorStore(ctx, cfg.VectorStore.Provider, storeConfig(cfg))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create vector store: %w", err)
	}

	embedder, err := provider.DefaultRegistry.CreateEmbedding(cfg.Embedding.Provider, provider.EmbeddingConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		BatchSize:  cfg.Embedding.BatchSize,
		Dimensions: cfg.VectorStore.Dimension,
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("create embedding provider: %w", err)
	}

	chunker, err := provider.DefaultRegistry.CreateChunking(cfg.Chunking.Strategy, provider.ChunkingConfig{
		Strategy:     cfg.Chunking.Strategy,
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
	})
	if err != nil {
		embedder.Close()
		store.Close()
		return nil, nil, nil, fmt.Errorf("create chunking strategy: %w", err)
	}

	return store, embedder, chunker, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func runProcess(path string) {
	cfg := loadConfig()
	slog.Info("loaded config",
		"store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider+"/"+cfg.Embedding.Model,
		"chunking", cfg.Chunking.Strategy,
	)

	ctx, cancel := signalContext()
	defer cancel()

	store, embedder, chunker, err := createProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	defer embedder.Close()

	vec := vectorizer.New(store, embedder, chunker, slog.Default())

	if err := vec.EnsureIndex(ctx); err != nil {
		slog.Error("failed to provision index", "error", err)
		os.Exit(1)
	}

	result, err := vec.ProcessPath(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("processing stopped by user")
			return
		}
		slog.Error("processing failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Documents: %d (skipped %d)\n", result.Documents, result.DocumentsSkipped)
	fmt.Printf("Chunks:    %d stored, %d skipped\n", result.ChunksStored, result.ChunksSkipped)
	fmt.Printf("Duration:  %s\n", result.Duration.Round(time.Millisecond))
}

func runSearch(query string, limit int, fileType string) {
	cfg := loadConfig()
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	ft := types.FileType(fileType)
	if ft != "" && !types.ValidFileType(ft) {
		fmt.Fprintf(os.Stderr, "unknown file type: %s (valid: pdf, txt, docx)\n", fileType)
		os.Exit(1)
	}

	ctx := context.Background()

	store, embedder, chunker, err := createProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	defer embedder.Close()

	vec := vectorizer.New(store, embedder, chunker, slog.Default())

	results, err := vec.SimilaritySearch(ctx, query, limit, ft)
	if err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	for i, r := range results {
		fmt.Printf("\n=== Result %d (score: %.3f) ===\n", i+1, r.Score)
		fmt.Printf("Document: %s (%s), page %d, chunk %d\n", r.DocumentName, r.FileType, r.PageNumber, r.ChunkIndex)
		fmt.Printf("Source: %s\n", r.Source)
		fmt.Printf("\n%s\n", r.Text)
	}
}

func runStats() {
	cfg := loadConfig()

	ctx := context.Background()

	store, embedder, _, err := createProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	defer embedder.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Error("failed to get stats", "error", err)
		os.Exit(1)
	}

	fmt.Println("=== Store Statistics ===")
	fmt.Printf("Backend:      %s\n", store.Name())
	fmt.Printf("Total chunks: %d\n", stats.TotalChunks)
	for _, ft := range types.FileTypes {
		fmt.Printf("  %-5s %d\n", string(ft)+":", stats.ByFileType[ft])
	}
}

func runDelete(source string) {
	cfg := loadConfig()

	ctx := context.Background()

	store, embedder, chunker, err := createProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	defer embedder.Close()

	vec := vectorizer.New(store, embedder, chunker, slog.Default())

	if err := vec.DeleteSource(ctx, source); err != nil {
		slog.Error("delete failed", "source", source, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted chunks of %s\n", source)
}

func runWatch(path string, debounce time.Duration) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	store, embedder, chunker, err := createProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to create providers", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	defer embedder.Close()

	vec := vectorizer.New(store, embedder, chunker, slog.Default())

	if err := vec.EnsureIndex(ctx); err != nil {
		slog.Error("failed to provision index", "error", err)
		os.Exit(1)
	}

	// Bring the store up to date before following changes.
	if _, err := vec.ProcessPath(ctx, path); err != nil && ctx.Err() == nil {
		slog.Error("initial processing failed", "error", err)
		os.Exit(1)
	}

	watcher, err := vectorizer.NewWatcher(vectorizer.WatcherConfig{
		RootDir:      path,
		Vectorizer:   vec,
		Logger:       slog.Default(),
		DebounceTime: debounce,
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
		slog.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}

func runBootstrap(file string) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	store, err := provider.DefaultRegistry.CreateVectorStore(ctx, cfg.VectorStore.Provider, storeConfig(cfg))
	if err != nil {
		slog.Error("failed to create vector store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	executor, ok := store.(provider.CommandExecutor)
	if !ok {
		fmt.Fprintf(os.Stderr, "backend %s does not support bootstrap commands\n", store.Name())
		os.Exit(1)
	}

	result, err := bootstrap.NewRunner(executor, slog.Default()).Run(ctx, file)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Executed: %d, failed: %d, skipped: %d\n", result.Executed, result.Failed, result.Skipped)
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func runSupervise(name string, args []string, interval time.Duration, retries int) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	// Each probe attempt connects from scratch; the backend is not up yet
	// when the child starts.
	probe := func(ctx context.Context) error {
		store, err := provider.DefaultRegistry.CreateVectorStore(ctx, cfg.VectorStore.Provider, storeConfig(cfg))
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Ping(ctx)
	}

	s := supervise.New(supervise.Config{
		Probe:         probe,
		Logger:        slog.Default(),
		ProbeInterval: interval,
		ProbeRetries:  retries,
	})

	if err := s.Run(ctx, name, args...); err != nil {
		if ctx.Err() != nil {
			slog.Info("supervisor stopped by user")
			return
		}
		slog.Error("supervisor failed", "error", err)
		os.Exit(1)
	}
}
