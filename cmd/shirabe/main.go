// Package main is the Shirabe CLI entry point.
package main

import (
	"bufio"
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

	"github.com/hyperjump/shirabe/internal/cli"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/mcpserver"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/reader"
	"github.com/hyperjump/shirabe/internal/search"
	"github.com/hyperjump/shirabe/internal/server"
	"github.com/hyperjump/shirabe/internal/tool"
	"github.com/hyperjump/shirabe/internal/vector"
	"github.com/hyperjump/shirabe/internal/watcher"
	"github.com/hyperjump/shirabe/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/shirabe/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, and a missing default file yields the built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; the key may already be in the environment.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "clear":
		runClear()
	case "server":
		runServer()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("shirabe version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Reader   *reader.Reader
	Embedder embedding.Embedder
	Store    *vector.Store
	Indexer  *indexer.Indexer
	Engine   *search.Engine
	Tool     *tool.Tool
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger, offline bool) embedding.Embedder {
	if offline {
		return embedding.NewMockEmbedder(cfg.Dimensions)
	}
	return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		Model:             cfg.Model,
		Dimensions:        cfg.Dimensions,
		BaseURL:           cfg.BaseURL,
		APIKeyEnv:         cfg.APIKeyEnv,
		MaxBatchSize:      cfg.BatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	}, embedding.WithLogger(logger))
}

// queryEmbedder puts the LRU cache in front of emb for search queries only.
func queryEmbedder(emb embedding.Embedder, cacheSize int) embedding.Embedder {
	if cacheSize <= 0 {
		return emb
	}
	return embedding.NewCachedEmbedder(emb, cacheSize)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, picker reader.Picker, offline bool) *Components {
	readerOpts := []reader.ReaderOption{
		reader.WithLogger(logger),
		reader.WithMaxFileSize(cfg.Index.MaxFileSizeBytes),
	}
	if cfg.Index.Exclude != nil {
		readerOpts = append(readerOpts, reader.WithExclude(cfg.Index.Exclude))
	}
	rdr := reader.NewReader(cfg.Index.Extensions, readerOpts...)

	emb := newEmbedder(&cfg.Embedding, logger, offline)
	store := vector.NewStore()
	idx := indexer.NewIndexer(rdr, emb, store, &cfg.Index,
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
	)
	engine := search.NewEngine(queryEmbedder(emb, cfg.Embedding.CacheSize), store, &cfg.Search, search.WithLogger(logger))

	return &Components{
		Reader:   rdr,
		Embedder: emb,
		Store:    store,
		Indexer:  idx,
		Engine:   engine,
		Tool:     tool.New(picker, idx, engine, tool.WithLogger(logger)),
	}
}

// setup loads config and builds a logger; debug forces debug logging on.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dir := fs.String("dir", "", "folder to index (prompted for when empty)")
	topK := fs.Int("top-k", 0, "number of passages per answer (0 = config default)")
	offline := fs.Bool("offline", false, "use deterministic local embeddings instead of the embedding service")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()

	stdin := bufio.NewReader(os.Stdin)
	var picker reader.Picker
	if *dir != "" {
		picker = reader.DirPicker{Path: *dir}
	} else {
		p := reader.NewTerminalPicker()
		p.In = stdin
		picker = p
	}
	components := initializeComponents(cfg, logger, picker, *offline)
	defer components.Close()
	t := components.Tool

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !t.Supported() {
		fmt.Fprintln(os.Stderr, "Folder selection needs an interactive terminal; pass --dir instead.")
		os.Exit(1)
	}
	folder, err := t.SelectFolder(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Folder selection failed: %v\n", err)
		os.Exit(1)
	}
	if folder == nil {
		fmt.Fprintln(os.Stderr, "No folder selected.")
		return
	}
	fmt.Fprintf(os.Stderr, "Indexing %s...\n", folder)
	summary, err := t.IndexFolder(ctx, folder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteSummary(os.Stderr, folder.String(), summary)

	for {
		fmt.Fprint(os.Stderr, "\n> ")
		line, readErr := stdin.ReadString('\n')
		query := strings.TrimSpace(line)
		if query != "" {
			resp, err := t.Search(ctx, query, *topK)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			} else {
				fmt.Println(tool.FormatResults(resp, tool.DefaultPreviewLength))
			}
		}
		if readErr != nil || ctx.Err() != nil {
			fmt.Fprintln(os.Stderr)
			return
		}
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shirabe search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
With --dir the folder is indexed in-process and searched once.
Without --dir the query goes to a running "shirabe server" at --server.

Examples:
  shirabe search --dir ~/notes how do I rotate keys
  shirabe search "deployment checklist" --top-k 3
  shirabe search --output json release process
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "shirabe search \"query\" -top-k 3"
// would otherwise leave -top-k unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dir := fs.String("dir", "", "index this folder in-process before searching")
	serverURL := fs.String("server", defaultServerURL, "server URL used when --dir is empty")
	topK := fs.Int("top-k", 0, "number of results (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	offline := fs.Bool("offline", false, "use deterministic local embeddings instead of the embedding service")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *dir == "" {
		response, err = searchViaHTTP(*serverURL, &models.SearchQuery{Query: queryStr, TopK: *topK})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, *debug)
		defer logger.Sync()
		components := initializeComponents(cfg, logger, nil, *offline)
		defer components.Close()

		ctx := context.Background()
		if _, err := components.Tool.IndexPath(ctx, *dir); err != nil {
			fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
			os.Exit(1)
		}
		response, err = components.Tool.Search(ctx, queryStr, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// apiCall sends a JSON request to the server and decodes a JSON response into out.
func apiCall(method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := apiCall(http.MethodPost, serverURL+"/api/v1/search", query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: shirabe index [--server URL] <directory>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid path: %v\n", err)
		os.Exit(1)
	}
	var summary models.IndexSummary
	if err := apiCall(http.MethodPost, *serverURL+"/api/v1/index", map[string]string{"path": path}, &summary); err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteSummary(os.Stdout, path, &summary)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Indexed  bool               `json:"indexed"`
	Indexing bool               `json:"indexing"`
	Watching string             `json:"watching,omitempty"`
	Stats    *models.IndexStats `json:"stats,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if err := apiCall(http.MethodGet, *serverURL+"/api/v1/status", nil, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(tool.FormatStats(status.Stats))
		if status.Indexing {
			fmt.Println("An indexing run is in progress.")
		}
		if status.Watching != "" {
			fmt.Printf("Watching %s for changes.\n", status.Watching)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if err := apiCall(http.MethodDelete, *serverURL+"/api/v1/index", nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Index cleared.")
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offline := fs.Bool("offline", false, "use deterministic local embeddings instead of the embedding service")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components := initializeComponents(cfg, logger, nil, *offline)
	defer components.Close()
	t := components.Tool

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()

	var watchSvc server.WatchService
	if cfg.Watch.Enabled {
		rdr := components.Reader
		w := watcher.NewWatcher(
			func(ctx context.Context, root string) {
				if t.Indexing() {
					logger.Debug("re-index skipped, run in progress", zap.String("path", root))
					return
				}
				if _, err := t.IndexPath(ctx, root); err != nil {
					logger.Warn("re-index failed", zap.String("path", root), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithFilter(func(rel string, isDir bool) bool {
				if rdr.Excluded(rel) {
					return false
				}
				return isDir || rdr.Eligible(rel)
			}),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		watchSvc = w
	}

	srv := server.NewServer(t, &cfg.Server, logger, watchSvc)
	go func() {
		if err := srv.Start(); err != nil {
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

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offline := fs.Bool("offline", false, "use deterministic local embeddings instead of the embedding service")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	// stdout carries the protocol; zap writes to stderr.
	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()

	components := initializeComponents(cfg, logger, nil, *offline)
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handlers := &mcpserver.Handlers{Tool: components.Tool, Logger: logger}
	mcpServer := mcpserver.Setup(handlers, version)
	logger.Info("mcp server starting", zap.String("version", version))
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`shirabe - Ask questions about a local folder with semantic search

Usage:
  shirabe ask [flags]             Pick a folder, index it, then answer queries interactively
  shirabe search [flags] <query>  Search a folder (--dir) or a running server
  shirabe index [flags] <dir>     Index a folder on a running server
  shirabe status [flags]          Show what a running server has indexed
  shirabe clear [flags]           Drop a running server's index
  shirabe server [flags]          Start the HTTP server
  shirabe mcp [flags]             Serve the folder tools over MCP on stdio
  shirabe version                 Show version
  shirabe help                    Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/shirabe/config.yaml, or ./config.yaml)
  --offline          Use deterministic local embeddings (no API key needed; rankings are not meaningful)
  --debug            Enable debug logging

Ask Flags:
  --dir string       Folder to index (prompted for when empty)
  --top-k int        Passages per answer (default from config)

Search Flags:
  --dir string       Index this folder in-process before searching
  --server string    Server URL when --dir is empty (default: http://localhost:8080)
  --top-k int        Number of results (default from config)
  --output string    Output format: text or json (default: text)

Index/Status/Clear Flags:
  --server string    Server URL (default: http://localhost:8080)

Environment:
  OPENAI_API_KEY     Embedding service credential (name configurable via embedding.api_key_env; .env is read)

Examples:
  shirabe ask --dir ~/notes
  shirabe search --dir ./docs "how are releases tagged"
  shirabe server
  shirabe index ./docs
  shirabe search --output json rollback procedure
  shirabe status`)
}
