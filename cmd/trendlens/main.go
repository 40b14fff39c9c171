// Package main is the TrendLens CLI entry point.
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
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/cli"
	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/export"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/server"
	"github.com/hyperjump/trendlens/internal/storage"
	"github.com/hyperjump/trendlens/internal/suggest"
	"github.com/hyperjump/trendlens/internal/trend"
	"github.com/hyperjump/trendlens/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/trendlens/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred if present; when neither exists the built-in defaults are used and
// the returned path is empty.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server", "serve":
		runServer()
	case "analyze":
		runAnalyze()
	case "history":
		runHistory()
	case "suggest":
		runSuggest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("trendlens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads and validates config and creates the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if debugFlag {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
		zap.String("backend_url", cfg.Backend.URL),
	)

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	opts := []server.Option{server.WithSuggestions(components.Suggest)}
	if components.Generator != nil {
		opts = append(opts, server.WithBackend(components.Generator))
	}
	srv := server.NewServer(components.Session, components.Exporter, components.Storage, cfg, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
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

// keywordInput joins positional args so that "golang, rust" works quoted or not.
func keywordInput(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// exportTargets names the files an analyze run writes besides its report.
type exportTargets struct {
	csvDir   string
	workbook string
	raster   string
}

func (t exportTargets) any() bool {
	return t.csvDir != "" || t.workbook != "" || t.raster != ""
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = analyze in this process)")
	windowFlag := fs.String("window", "", "trend window in months: 6, 12, 24 or 60")
	outputFormat := fs.String("output", "text", "output format: text or json")
	csvDir := fs.String("csv", "", "directory to write <keyword>_trend.csv files into")
	workbook := fs.String("xlsx", "", "path of an XLSX workbook to write")
	raster := fs.String("png", "", "path of the trend chart PNG to write")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: trendlens analyze [flags] <keyword>[, <keyword>...]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keywords, err := models.ParseKeywords(keywordInput(fs.Args()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(1)
	}

	if *serverURL != "" {
		window, err := models.ParseWindow(*windowFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		rep, err := analyzeViaHTTP(*serverURL, keywords, window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Analyze failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteResults(os.Stdout, rep, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	window := models.Window(cfg.Export.DefaultWindow)
	if *windowFlag != "" {
		if window, err = models.ParseWindow(*windowFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	ctx := context.Background()
	rep, err := analyzeDirect(ctx, components, keywords, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analyze failed: %v\n", err)
		components.Close()
		os.Exit(1)
	}
	if err := cli.WriteResults(os.Stdout, rep, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return
	}
	targets := exportTargets{csvDir: *csvDir, workbook: *workbook, raster: *raster}
	if targets.any() {
		written, err := writeExports(ctx, components, rep.Results, window, targets)
		for _, p := range written {
			fmt.Fprintf(os.Stderr, "wrote %s\n", p)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		}
	}
}

// analyzeDirect runs one analysis through the session and builds the dataset for window.
func analyzeDirect(ctx context.Context, c *Components, keywords []string, window models.Window) (cli.Report, error) {
	st, err := c.Session.Analyze(ctx, keywords)
	if err != nil {
		return cli.Report{}, err
	}
	rep := cli.Report{Results: st.Results}
	ds, err := trend.Build(st.Results, window)
	rep.Dataset = ds
	if err != nil {
		rep.DatasetError = err.Error()
	}
	return rep, nil
}

// writeExports writes the requested files and returns the paths written. Keywords
// without data are skipped for CSV; other failures stop the export.
func writeExports(ctx context.Context, c *Components, rs *models.ResultSet, window models.Window, t exportTargets) ([]string, error) {
	var written []string
	if t.csvDir != "" {
		if err := os.MkdirAll(t.csvDir, 0755); err != nil {
			return written, err
		}
		for _, keyword := range rs.Keywords() {
			table, err := export.KeywordTable(rs, keyword, window)
			if errors.Is(err, export.ErrKeywordFailed) {
				continue
			}
			if err != nil {
				return written, err
			}
			path := filepath.Join(t.csvDir, table.Filename)
			if err := writeFile(path, func(w io.Writer) error { return export.WriteCSV(w, table) }); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	if t.workbook != "" {
		if err := writeFile(t.workbook, func(w io.Writer) error { return export.WriteWorkbook(w, rs, window) }); err != nil {
			return written, err
		}
		written = append(written, t.workbook)
	}
	if t.raster != "" {
		report := c.Exporter.TriggerRasterExport(ctx, export.RegionTrendChart, export.WithWindow(window))
		if !report.OK() {
			return written, errors.New(report.Err)
		}
		if err := os.WriteFile(t.raster, report.Image, 0644); err != nil {
			return written, err
		}
		written = append(written, t.raster)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// analyzeResponse mirrors the server's analyze and results payloads.
type analyzeResponse struct {
	State struct {
		Epoch   uint64            `json:"epoch"`
		Phase   string            `json:"phase"`
		Results *models.ResultSet `json:"results"`
		Error   string            `json:"error"`
	} `json:"state"`
	Dataset      *trend.Dataset `json:"dataset"`
	DatasetError string         `json:"dataset_error"`
}

func analyzeViaHTTP(serverURL string, keywords []string, window models.Window) (cli.Report, error) {
	body, err := json.Marshal(map[string]interface{}{"keywords": keywords, "window": window.Months()})
	if err != nil {
		return cli.Report{}, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		return cli.Report{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cli.Report{}, serverError(resp)
	}
	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cli.Report{}, fmt.Errorf("decode response: %w", err)
	}
	return cli.Report{Results: out.State.Results, Dataset: out.Dataset, DatasetError: out.DatasetError}, nil
}

func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	clearFlag := fs.Bool("clear", false, "clear the recent searches")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	if *clearFlag {
		if err := components.History.Clear(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
			return
		}
	}
	if err := cli.WriteHistory(os.Stdout, components.History.List(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
	}
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use local history and result log)")
	limit := fs.Int("limit", 10, "number of suggestions")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	input := keywordInput(fs.Args())

	var out []suggest.Suggestion
	if *serverURL != "" {
		out, err = suggestViaHTTP(*serverURL, input, *limit)
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, initErr := initializeComponents(cfg, logger, true)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer components.Close()
		out, err = components.Suggest.Suggest(context.Background(), input, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
		return
	}
	if err := cli.WriteSuggestions(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
	}
}

func suggestViaHTTP(serverURL, input string, limit int) ([]suggest.Suggestion, error) {
	q := url.Values{"q": {input}, "limit": {fmt.Sprint(limit)}}
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/suggest?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Suggestions, nil
}

// statusResponse is the subset of GET /api/v1/status printed by the status command.
type statusResponse struct {
	StoredResults   int64                  `json:"stored_results"`
	History         int                    `json:"history"`
	SuggestionTerms int                    `json:"suggestion_terms"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(strings.TrimRight(*serverURL, "/") + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", serverError(resp))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), components, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			return
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		}
	case "text":
		fmt.Printf("stored_results:     %d   # logged keyword results\n", status.StoredResults)
		fmt.Printf("history:            %d   # recent searches\n", status.History)
		fmt.Printf("suggestion_terms:   %d   # keywords available for suggestions\n", status.SuggestionTerms)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # database on disk\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"backend_url", "backend_embedded", "storage_driver", "database_path", "default_window", "history_max", "cache_size"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-19s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, c *Components, cfg *config.Config) (statusResponse, error) {
	count, err := c.Storage.CountResults(ctx)
	if err != nil {
		return statusResponse{}, err
	}
	status := statusResponse{
		StoredResults:   count,
		History:         len(c.History.List()),
		SuggestionTerms: c.Suggest.Len(),
		Config: map[string]interface{}{
			"backend_url":      cfg.Backend.URL,
			"backend_embedded": cfg.Backend.Embedded,
			"storage_driver":   cfg.Storage.Driver,
			"default_window":   cfg.Export.DefaultWindow,
			"history_max":      cfg.History.MaxEntries,
			"cache_size":       cfg.Analysis.CacheSize,
		},
	}
	if cfg.Storage.Driver == storage.DriverSQLite {
		status.Config["database_path"] = cfg.Storage.DatabasePath
	}
	if size, err := storage.Size(c.Storage); err == nil {
		status.DiskUsageBytes = &size
	}
	return status, nil
}

func printUsage() {
	fmt.Println(`trendlens - Keyword trend comparison and forecast preparation

Usage:
  trendlens server [flags]                 Start the HTTP server
  trendlens analyze [flags] <keywords>     Analyze comma-separated keywords
  trendlens history [flags]                Show recent searches
  trendlens suggest [flags] <prefix>       Suggest keywords from history and past results
  trendlens status [flags]                 Show storage and configuration status
  trendlens version                        Show version
  trendlens help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/trendlens/config.yaml)
  --debug            Enable debug logging

Analyze Flags:
  --config string    Config file path
  --server string    Server URL. Empty (default) analyzes in this process.
  --window string    Trend window in months: 6, 12, 24 or 60 (default from config)
  --output string    Output format: text or json (default: text)
  --csv string       Directory to write <keyword>_trend.csv files into
  --xlsx string      Path of an XLSX workbook to write
  --png string       Path of the trend chart PNG to write

History Flags:
  --clear            Clear the recent searches
  --output string    Output format: text or json

Suggest/Status Flags:
  --server string    Server URL. Empty (default) reads local storage.
  --output string    Output format: text or json

Environment:
  TRENDLENS_BACKEND_URL, TRENDLENS_DB_PATH, TRENDLENS_PORT, TRENDLENS_DEBUG override the config file.

Examples:
  trendlens server
  trendlens analyze bitcoin, ethereum
  trendlens analyze --window 24 --csv ./out --png chart.png "bitcoin, ethereum"
  trendlens analyze --server http://localhost:8080 --output json golang
  trendlens history
  trendlens suggest bit
  trendlens status --output json`)
}
