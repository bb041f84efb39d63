// Package main is the Kioku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/rag"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/store"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kioku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "kioku server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded (for saving).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "add":
		runAdd()
	case "search":
		runSearch()
	case "context":
		runContext()
	case "delete":
		runDelete()
	case "agents":
		runAgents()
	case "status":
		runStatus()
	case "compact":
		runCompact()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: kioku <command> [flags]

Commands:
  server    Run the HTTP API server (with directory watching)
  add       Ingest a file or directory into the store
  search    Semantic search over stored documents
  context   Assemble a context block for a query
  delete    Delete a document (and its embeddings) by id
  agents    List active agents
  status    Show storage and index status
  compact   Compact the per-collection databases
  watch     Watch directories and ingest changed files (no server)
  version   Print version

Run "kioku <command> -h" for command flags.
`)
}

// components holds the wired-up core services for direct (serverless) commands.
type components struct {
	Store    *store.Store
	Embedder embedding.Embedder
	RAG      *rag.Service
	Keyword  *keyword.BleveIndex
	logger   *zap.Logger
}

// initializeComponents opens the store, embedder, RAG service, and keyword
// index from config. The bundled embedder is a deterministic stand-in;
// deployments with a real model push vectors through the embeddings API.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	st, err := store.New(store.Options{DataDir: cfg.Storage.DataDir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := st.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	embedder := embedding.NewCachedEmbedder(
		embedding.NewMockEmbedder(cfg.Embedding.Dimensions),
		cfg.Embedding.CacheSize,
	)

	ragSvc := rag.NewService(st, rag.WithEmbedder(embedder), rag.WithLogger(logger))

	kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	return &components{Store: st, Embedder: embedder, RAG: ragSvc, Keyword: kw, logger: logger}, nil
}

func (c *components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// ingestFile extracts text from the file at path and stores it as a document.
func (c *components) ingestFile(ctx context.Context, path string) (*models.Document, error) {
	input, err := extract.FromFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("no extractable text in %s", path)
	}
	doc, err := c.RAG.IngestDocument(ctx, input)
	if errors.Is(err, rag.ErrNoEmbedder) {
		doc, err = c.RAG.AddDocument(ctx, input)
	}
	if err != nil {
		return nil, err
	}
	if c.Keyword != nil {
		if kwErr := c.Keyword.Index(ctx, doc); kwErr != nil {
			c.logger.Warn("keyword indexing failed", zap.String("id", doc.ID), zap.Error(kwErr))
		}
	}
	return doc, nil
}

// removeByPath deletes documents whose metadata source matches path.
func (c *components) removeByPath(ctx context.Context, path string) error {
	docs, err := c.Store.SearchDocuments(ctx, storage.Query{
		Selector: map[string]any{"metadata.source": path},
	})
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := c.Store.DeleteDocument(ctx, doc.ID); err != nil {
			return err
		}
		if c.Keyword != nil {
			_ = c.Keyword.Delete(ctx, doc.ID)
		}
	}
	return nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := comps.ingestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := comps.removeByPath(context.Background(), path); err != nil {
				logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.New(comps.Store, comps.RAG, comps.Keyword, watchSvc, cfg, resolvedConfigPath, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kioku add [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot stat %s: %v\n", path, err)
		os.Exit(1)
	}
	if !info.IsDir() {
		doc, err := comps.ingestFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added %s (%d chunks)\n", doc.ID, len(doc.Chunks))
		return
	}

	added := 0
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		doc, ingestErr := comps.ingestFile(ctx, p)
		if ingestErr != nil {
			logger.Warn("skipping file", zap.String("path", p), zap.Error(ingestErr))
			return nil
		}
		fmt.Printf("Added %s  %s\n", doc.ID, p)
		added++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Walk failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done: %d documents\n", added)
}

// buildQuery joins all positional args with spaces so multi-word queries work
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 0, "number of documents (0 = persisted default)")
	threshold := fs.Float64("threshold", 0, "minimum similarity (0 = persisted default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kioku search [flags] <query>")
		os.Exit(1)
	}
	query := buildQuery(fs.Args())
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		// Use the HTTP API when a server is running (avoids SQLite/Bleve
		// lock conflicts with the server process).
		var out struct {
			Results []rag.SearchResult `json:"results"`
		}
		err := postViaHTTP(*serverURL+"/api/v1/search/semantic", map[string]any{
			"query": query, "limit": *limit, "threshold": *threshold,
		}, &out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, out.Results, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	ctx := context.Background()
	vec, err := comps.RAG.EmbedQuery(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		os.Exit(1)
	}
	results, err := comps.RAG.SemanticSearch(ctx, query, vec, rag.SearchOptions{Limit: *limit, Threshold: *threshold})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runContext() {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 0, "number of source documents (0 = persisted default)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kioku context [flags] <query>")
		os.Exit(1)
	}
	query := buildQuery(fs.Args())

	if *serverURL != "" {
		var out struct {
			Context string `json:"context"`
		}
		err := postViaHTTP(*serverURL+"/api/v1/context", map[string]any{
			"query": query, "limit": *limit,
		}, &out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Context failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out.Context)
		return
	}

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	ctx := context.Background()
	vec, err := comps.RAG.EmbedQuery(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		os.Exit(1)
	}
	block, err := comps.RAG.Context(ctx, query, vec, rag.SearchOptions{Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Context failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(block)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kioku delete [flags] <document-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	ctx := context.Background()
	if err := comps.Store.DeleteDocument(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	if comps.Keyword != nil {
		_ = comps.Keyword.Delete(ctx, id)
	}
	fmt.Printf("Deleted %s\n", id)
}

func runAgents() {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	agents, err := comps.Store.GetActiveAgents(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "List agents failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAgents(os.Stdout, agents, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	stats, err := comps.Store.GetStorageStats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("initialized:        %t\n", stats.Initialized)
	fmt.Printf("degraded:           %t\n", stats.Degraded)
	fmt.Printf("usage_bytes:        %d\n", stats.UsageBytes)
	fmt.Printf("vector_index_size:  %d\n", stats.VectorIndexSize)
	if comps.Keyword != nil {
		if count, err := comps.Keyword.DocCount(); err == nil {
			fmt.Printf("keyword_index_docs: %d\n", count)
		}
	}
	fmt.Println()
	fmt.Println("# collections")
	for name, cs := range stats.Collections {
		fmt.Printf("%-15s records=%-6d size=%-10d mode=%s\n", name, cs.Records, cs.SizeBytes, cs.Mode)
	}
}

func runCompact() {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	comps, logger := mustComponents(*configPath)
	defer logger.Sync()
	defer comps.Close()

	if err := comps.Store.Compact(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Compact failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Compacted.")
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Watch.Directories) == 0 && fs.NArg() == 0 {
		fmt.Println("No watch directories configured; pass one or more as arguments.")
		os.Exit(1)
	}
	dirs := append(append([]string(nil), cfg.Watch.Directories...), fs.Args()...)

	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	w := watcher.New(
		dirs,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := comps.ingestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := comps.removeByPath(context.Background(), path); err != nil {
				logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	w.SyncExistingFiles()

	logger.Info("watching", zap.Strings("directories", dirs))
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

// mustComponents loads config, builds a logger, and wires the core services.
// Exits the process on failure; intended for one-shot subcommands.
func mustComponents(configPath string) (*components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return comps, logger
}

func postViaHTTP(url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
