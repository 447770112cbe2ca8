// Package main is the policynav CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/orieg/edu-policy-navigator-sub001/internal/cli"
	"github.com/orieg/edu-policy-navigator-sub001/internal/config"
	"github.com/orieg/edu-policy-navigator-sub001/internal/corpus"
	"github.com/orieg/edu-policy-navigator-sub001/internal/embedding"
	"github.com/orieg/edu-policy-navigator-sub001/internal/lookup"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/internal/server"
	"github.com/orieg/edu-policy-navigator-sub001/internal/watcher"
	"github.com/orieg/edu-policy-navigator-sub001/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/policynav/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "policynav server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
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
	case "search":
		runSearch()
	case "lookup":
		runLookup()
	case "status":
		runStatus()
	case "reload":
		runReload()
	case "import":
		runImport()
	case "version", "--version", "-v":
		fmt.Printf("policynav version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (cluster selection, reloads, etc.)")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	snap := components.Manager.Snapshot()
	if dims := components.Embedder.Dimensions(); dims != snap.Store.Dimensions() {
		logger.Fatal("embedder dimensionality does not match corpus",
			zap.Int("embedder_dims", dims),
			zap.Int("corpus_dims", snap.Store.Dimensions()))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Corpus.WatchOrDefault() {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		mgr := components.Manager
		watchSvc = watcher.New(cfg.Corpus.Path, func() {
			if err := mgr.Load(); err != nil {
				logger.Warn("corpus reload failed, previous snapshot still serving", zap.Error(err))
				return
			}
			reloaded := mgr.Snapshot()
			logger.Info("corpus reloaded",
				zap.Int("documents", reloaded.Store.NumDocuments()),
				zap.Int("clusters", reloaded.Store.NumClusters()))
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Manager, components.Embedder, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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

// printSearchUsage prints search subcommand usage and hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: policynav search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Search embeds the query and scans only the most promising clusters.
  • --top-clusters widens the scan (better recall, slower).
  • --per-cluster controls how many candidates each scanned cluster keeps.
  • --min-score filters low-relevance hits; --limit controls how many results.

Examples:
  policynav search small rural districts
  policynav search "small rural districts"          # same as above
  policynav search --top-clusters 5 special education funding
  policynav search --min-score 0.3 --limit 20 your query
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchMinScoreDefaultFromConfig loads config at path and returns the default
// minimum score. On load failure, returns 0. Zero means no filtering.
func searchMinScoreDefaultFromConfig(path string) float64 {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return 0
	}
	return cfg.Search.DefaultMinScore
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "policynav search \"query\" -min-score 0.5"
// would otherwise leave -min-score unparsed.
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
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultMinScore := searchMinScoreDefaultFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the corpus directly when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	topClusters := fs.Int("top-clusters", 0, "clusters to scan (0 = config default)")
	perCluster := fs.Int("per-cluster", 0, "candidates kept per scanned cluster (0 = config default)")
	minScore := fs.Float64("min-score", defaultMinScore, "minimum score for results")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:       queryStr,
		Limit:       *limit,
		TopClusters: *topClusters,
		PerCluster:  *perCluster,
		MinScore:    minScore,
	}

	if *serverURL != "" {
		// Use HTTP API when server is running (shares its loaded corpus).
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct corpus access (when server is not running).
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := searchDirect(context.Background(), components, cfg, searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// searchDirect runs a query against the locally loaded corpus, applying the
// same limit capping, score filtering, and rank assignment as the HTTP API.
func searchDirect(ctx context.Context, components *Components, cfg *config.Config, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit > cfg.Search.MaxLimit {
		query.Limit = cfg.Search.MaxLimit
	}
	vec, err := components.Embedder.Embed(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	snap := components.Manager.Snapshot()
	params := query.Params(cfg.Search.TopClusters, cfg.Search.PerCluster)
	results, err := snap.Engine.Search(ctx, vec, params)
	if err != nil {
		return nil, err
	}
	minScore := cfg.Search.DefaultMinScore
	if query.MinScore != nil {
		minScore = *query.MinScore
	}
	if minScore > 0 {
		filtered := results[:0]
		for _, res := range results {
			if res.Score >= minScore {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	for i, res := range results {
		res.Rank = i + 1
	}
	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	}, nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runLookup() {
	lookupArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the corpus directly)")
	limit := fs.Int("limit", 10, "number of matches")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(lookupArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: policynav lookup [flags] <name>")
		os.Exit(1)
	}
	nameQuery := buildSearchQuery(fs.Args())
	if nameQuery == "" {
		fmt.Println("Usage: policynav lookup [flags] <name>")
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		results, suggestions, err := lookupViaHTTP(*serverURL, nameQuery, *limit, *fuzzy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteLookupResults(os.Stdout, results, suggestions, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	snap := components.Manager.Snapshot()
	if snap.Lookup == nil {
		fmt.Fprintln(os.Stderr, "Lookup is disabled in config")
		os.Exit(1)
	}
	results, err := snap.Lookup.Search(context.Background(), nameQuery, *limit, *fuzzy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}
	var suggestions []string
	if len(results) == 0 {
		for _, term := range strings.Fields(nameQuery) {
			suggestions = append(suggestions, snap.Lookup.Suggest(term, 3)...)
		}
	}
	if err := cli.WriteLookupResults(os.Stdout, results, suggestions, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func lookupViaHTTP(serverURL, q string, limit int, fuzzy bool) ([]*lookup.Result, []string, error) {
	u := fmt.Sprintf("%s/api/v1/lookup?q=%s&limit=%d&fuzzy=%t", serverURL, url.QueryEscape(q), limit, fuzzy)
	resp, err := http.Get(u)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var decoded struct {
		Results     []*lookup.Result `json:"results"`
		Suggestions []string         `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Results, decoded.Suggestions, nil
}

// statusCorpusResponse holds corpus location info returned by status.
type statusCorpusResponse struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// statusConfigResponse holds search configuration info returned by status.
type statusConfigResponse struct {
	TopClusters int `json:"top_clusters"`
	PerCluster  int `json:"per_cluster"`
	Workers     int `json:"workers"`
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Clusters      int                   `json:"clusters"`
	Documents     int                   `json:"documents"`
	Dimensions    int                   `json:"dimensions"`
	LoadedAt      time.Time             `json:"loaded_at"`
	LookupRecords *uint64               `json:"lookup_records,omitempty"`
	Corpus        *statusCorpusResponse `json:"corpus,omitempty"`
	Config        *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the corpus directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		snap := components.Manager.Snapshot()
		status = statusResponse{
			Clusters:   snap.Store.NumClusters(),
			Documents:  snap.Store.NumDocuments(),
			Dimensions: snap.Store.Dimensions(),
			LoadedAt:   snap.LoadedAt,
			Corpus: &statusCorpusResponse{
				Path:   snap.Corpus.Path,
				Format: string(snap.Corpus.Format),
			},
			Config: &statusConfigResponse{
				TopClusters: cfg.Search.TopClusters,
				PerCluster:  cfg.Search.PerCluster,
				Workers:     cfg.Search.Workers,
			},
		}
		if snap.Lookup != nil {
			n := snap.Lookup.DocCount()
			status.LookupRecords = &n
		}
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
		fmt.Printf("clusters:       %d   # corpus partitions\n", status.Clusters)
		fmt.Printf("documents:      %d   # embedded records\n", status.Documents)
		fmt.Printf("dimensions:     %d   # embedding dimensionality\n", status.Dimensions)
		fmt.Printf("loaded_at:      %s\n", status.LoadedAt.Format(time.RFC3339))
		if status.LookupRecords != nil {
			fmt.Printf("lookup_records: %d\n", *status.LookupRecords)
		}
		if status.Corpus != nil {
			fmt.Println()
			fmt.Println("# corpus")
			fmt.Printf("path:           %s\n", status.Corpus.Path)
			fmt.Printf("format:         %s\n", status.Corpus.Format)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# search configuration")
			fmt.Printf("top_clusters:   %d\n", status.Config.TopClusters)
			fmt.Printf("per_cluster:    %d\n", status.Config.PerCluster)
			fmt.Printf("workers:        %d\n", status.Config.Workers)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/reload", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Reload failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Documents int `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reloaded: %d documents\n", out.Documents)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: policynav import [flags] <json-corpus-dir> <out.db>")
		os.Exit(1)
	}
	jsonDir := fs.Arg(0)
	outPath := fs.Arg(1)

	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	n, err := corpus.Import(jsonDir, outPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d document(s) into %s\n", n, outPath)
}

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Manager  *corpus.Manager
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Manager != nil {
		_ = c.Manager.Close()
	}
}

// initializeComponents builds the embedder and the corpus manager and loads
// the corpus. A missing ONNX runtime falls back to the deterministic mock
// embedder so vector-only deployments still work.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		if logger != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder",
				zap.String("model_path", cfg.Embedding.ModelPath),
				zap.Error(err))
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	managerOpts := []corpus.ManagerOption{}
	if logger != nil {
		managerOpts = append(managerOpts, corpus.WithManagerLogger(logger))
	}
	if cfg.Search.Workers > 0 {
		managerOpts = append(managerOpts, corpus.WithSearchWorkers(cfg.Search.Workers))
	}
	if cfg.Lookup.EnabledOrDefault() {
		managerOpts = append(managerOpts, corpus.WithLookup(cfg.Lookup.IndexPath, cfg.Lookup.Fuzziness))
	}
	manager := corpus.NewManager(cfg.Corpus.Path, managerOpts...)
	if err := manager.Load(); err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	return &Components{
		Embedder: embedder,
		Manager:  manager,
	}, nil
}

func printUsage() {
	fmt.Println(`policynav - Clustered semantic search over school district records

Usage:
  policynav server [flags]           Start the HTTP server
  policynav search [flags] <query>   Semantic search over the corpus
  policynav lookup [flags] <name>    Look up records by name
  policynav status [flags]           Show corpus and engine status
  policynav reload [flags]           Ask a running server to reload its corpus
  policynav import <dir> <out.db>    Convert a JSON corpus into a SQLite snapshot
  policynav version                  Show version
  policynav help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/policynav/config.yaml)
  --debug            Enable debug logging (cluster selection, reloads, etc.)

Search Flags:
  --config string        Config file path (for direct corpus mode; also used for the default min-score)
  --server string        Server URL (default: http://localhost:8080). Use empty (--server "") to load the corpus directly.
  --limit int            Number of results (default: 10)
  --top-clusters int     Clusters to scan (default from config)
  --per-cluster int      Candidates kept per scanned cluster (default from config)
  --min-score float      Minimum score for results (default from config)
  --output string        Output format: text, compact, or json (default: text)

Lookup Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to load the corpus directly.
  --limit int        Number of matches (default: 10)
  --fuzzy            Enable fuzzy matching for typo tolerance
  --output string    Output format: text, compact, or json (default: text)

Status Flags:
  --config string    Config file path (for direct corpus mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to load the corpus directly.
  --output string    Output format: text or json (default: text)

Examples:
  policynav server
  policynav search "small rural districts near the coast"
  policynav search --top-clusters 5 --limit 20 special education funding
  policynav search --output json "query"   # structured JSON for other apps
  policynav lookup --fuzzy "pescadero unifed"
  policynav import ./corpus-json ./corpus.db
  policynav status --output json`)
}
