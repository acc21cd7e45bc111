// Package main is the sitewright CLI entry point.
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

	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/sitewright/internal/catalog"
	"github.com/hyperjump/sitewright/internal/cli"
	"github.com/hyperjump/sitewright/internal/config"
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/generation"
	"github.com/hyperjump/sitewright/internal/keyword"
	"github.com/hyperjump/sitewright/internal/metrics"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/orchestrator"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/internal/server"
	"github.com/hyperjump/sitewright/internal/storage"
	"github.com/hyperjump/sitewright/internal/watcher"
	"github.com/hyperjump/sitewright/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/sitewright/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). A missing default config
// is not an error: defaults apply. Environment overrides are applied last.
// Returns the config and the path that was actually loaded ("" when none was).
func loadConfig(path string) (*config.Config, string, error) {
	resolved := path
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			if fallback := filepath.Join(cwd, "config.yaml"); fileExists(fallback) {
				resolved = fallback
			}
		}
	}

	var cfg *config.Config
	if resolved == defaultConfigPath && !fileExists(resolved) {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		resolved = ""
	} else {
		loaded, err := config.Load(resolved)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	// A missing .env is fine; values may come from the real environment.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "match":
		runMatch()
	case "generate":
		runGenerate()
	case "import":
		runImport()
	case "templates":
		runTemplates()
	case "export":
		runExport()
	case "version", "--version", "-v":
		fmt.Printf("sitewright version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config and builds a logger. Command-line tools stay quiet unless
// debug is on.
func setup(configPath string, debug, quiet bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debug
	if quiet && !debugMode {
		return cfg, resolved, zap.NewNop()
	}
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug, false)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithStore(components.Storage),
		server.WithMetricsHandler(metrics.HTTPHandler(components.Registry)),
	}
	if cfg.Templates.Watch {
		watchSvc := watcher.New(cfg.Templates.Directories, watcher.ForCatalog(components.Catalog),
			watcher.WithLogger(logger))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		opts = append(opts, server.WithWatch(watchSvc, resolvedConfigPath))
	}

	srv := server.NewServer(components.Catalog, components.Orchestrator, cfg, opts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// profileFlags collects a business profile from flags or a profile file.
type profileFlags struct {
	file        *string
	name        *string
	category    *string
	description *string
	services    *string
	location    *string
}

func addProfileFlags(fs *flag.FlagSet) *profileFlags {
	return &profileFlags{
		file:        fs.String("profile", "", "business profile file (YAML or JSON)"),
		name:        fs.String("name", "", "business name"),
		category:    fs.String("category", "", "business category"),
		description: fs.String("description", "", "business description"),
		services:    fs.String("services", "", "comma-separated services"),
		location:    fs.String("location", "", "business location"),
	}
}

// profile reads the profile file when given, then applies flag overrides.
func (p *profileFlags) profile() (models.BusinessProfile, error) {
	var profile models.BusinessProfile
	if *p.file != "" {
		var err error
		if profile, err = loadProfile(*p.file); err != nil {
			return profile, err
		}
	}
	if *p.name != "" {
		profile.Name = *p.name
	}
	if *p.category != "" {
		profile.Category = *p.category
	}
	if *p.description != "" {
		profile.Description = *p.description
	}
	if *p.services != "" {
		profile.Services = splitList(*p.services)
	}
	if *p.location != "" {
		profile.Location = *p.location
	}
	return profile, nil
}

// loadProfile parses a profile file. JSON is valid YAML, so one decoder serves both.
func loadProfile(path string) (models.BusinessProfile, error) {
	var profile models.BusinessProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse profile: %w", err)
	}
	return profile, nil
}

func loadPreferences(path string) (orchestrator.Preferences, error) {
	var prefs orchestrator.Preferences
	if path == "" {
		return prefs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return prefs, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return prefs, fmt.Errorf("parse preferences: %w", err)
	}
	return prefs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// reorderArgs moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops
// at the first non-flag argument.
func reorderArgs(args []string) []string {
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

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use local catalog)")
	topK := fs.Int("top", 0, "number of templates to show (default from config)")
	kind := fs.String("kind", "", "only templates of this kind (page, section, widget)")
	capabilities := fs.String("capabilities", "", "comma-separated capabilities the site provides")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	pf := addProfileFlags(fs)
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*output)
	profile, err := pf.profile()
	if err != nil {
		fatalf("%v", err)
	}
	req := server.MatchRequest{
		Profile:      profile,
		Kind:         document.DocumentKind(*kind),
		Capabilities: splitList(*capabilities),
		TopK:         *topK,
	}

	if *serverURL != "" {
		var resp struct {
			Results []server.MatchItem `json:"results"`
		}
		if err := postJSON(*serverURL+"/api/v1/match", req, &resp); err != nil {
			fatalf("Match failed: %v", err)
		}
		if err := encodeMatchItems(os.Stdout, resp.Results, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	if err := profile.Validate(); err != nil {
		fatalf("%v", err)
	}
	cfg, _, logger := setup(*configPath, *debug, true)
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	if req.TopK <= 0 {
		req.TopK = cfg.Generation.TopK
	}
	results := components.Catalog.MatchBest(ctx, &profile, ranking.MatchOptions{
		TopK:         req.TopK,
		Kind:         req.Kind,
		Capabilities: req.Capabilities,
	})
	if err := cli.WriteMatchResults(os.Stdout, results, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// encodeMatchItems renders server match items through the same writer as local results.
func encodeMatchItems(w io.Writer, items []server.MatchItem, format cli.OutputFormat) error {
	results := make([]*ranking.MatchResult, 0, len(items))
	for _, it := range items {
		results = append(results, &ranking.MatchResult{
			Document: &document.Document{ID: it.TemplateID, Title: it.Title},
			Score:    it.Score,
			Reasons:  it.Reasons,
		})
	}
	return cli.WriteMatchResults(w, results, format)
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run locally)")
	templateID := fs.String("template", "", "use this template instead of matching")
	prefsPath := fs.String("prefs", "", "preferences file (JSON: palette, fonts, images, replacements)")
	outPath := fs.String("out", "", "write the personalized document to this file")
	output := fs.String("output", "text", "output format: text or json")
	progress := fs.Bool("progress", false, "print progress events to stderr")
	debug := fs.Bool("debug", false, "enable debug logging")
	pf := addProfileFlags(fs)
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*output)
	profile, err := pf.profile()
	if err != nil {
		fatalf("%v", err)
	}
	prefs, err := loadPreferences(*prefsPath)
	if err != nil {
		fatalf("%v", err)
	}
	if *templateID != "" {
		prefs.TemplateID = *templateID
	}
	req := orchestrator.Request{Profile: profile, Preferences: prefs}

	var res *orchestrator.Result
	if *serverURL != "" {
		res, err = generateViaHTTP(*serverURL, req)
		if err != nil {
			fatalf("Generate failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, *debug, true)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()

		var sink orchestrator.ProgressSink
		if *progress {
			sink = cli.ProgressWriter(os.Stderr)
		}
		res = components.Orchestrator.Generate(ctx, req, sink)
	}

	if *outPath != "" && res.Document != nil {
		data, err := document.Serialize(res.Document)
		if err != nil {
			fatalf("Serialize failed: %v", err)
		}
		if err := os.WriteFile(*outPath, data, 0644); err != nil {
			fatalf("Write failed: %v", err)
		}
	}
	if err := cli.WriteResult(os.Stdout, res, format); err != nil {
		fatalf("Output failed: %v", err)
	}
	if res.Err != nil {
		os.Exit(1)
	}
}

// generateViaHTTP posts the request to a running server and rebuilds the result.
func generateViaHTTP(serverURL string, req orchestrator.Request) (*orchestrator.Result, error) {
	var resp struct {
		Status   models.Stage            `json:"status"`
		Document json.RawMessage         `json:"document"`
		Content  *generation.Content     `json:"content"`
		Report   models.GenerationReport `json:"report"`
		Error    string                  `json:"error"`
	}
	err := postJSON(serverURL+"/api/v1/generate", req, &resp)
	if err != nil && resp.Report.RunID == "" {
		return nil, err
	}
	res := &orchestrator.Result{Status: resp.Status, Content: resp.Content, Report: resp.Report}
	if resp.Error != "" {
		res.Err = errors.New(resp.Error)
	}
	if len(resp.Document) > 0 && string(resp.Document) != "null" {
		doc, err := document.Parse(resp.Document)
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		res.Document = doc
	}
	return res, nil
}

// postJSON posts body to url and decodes the JSON response into out. A non-2xx
// status is returned as an error after decoding, so error bodies stay readable.
func postJSON(url string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	decodeErr := json.Unmarshal(data, out)
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return decodeErr
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: sitewright import [flags] <file.json|directory>...")
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, *debug, true)
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	total := 0
	for _, path := range fs.Args() {
		n, err := importPath(ctx, components.Catalog, path)
		if err != nil {
			fatalf("Import %s failed: %v", path, err)
		}
		total += n
	}
	fmt.Printf("Imported %d templates (%d in catalog)\n", total, components.Catalog.Len())
}

// importPath loads one template file or every template in a directory.
func importPath(ctx context.Context, cat *catalog.Catalog, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return cat.LoadDir(ctx, path)
	}
	if _, err := cat.LoadFile(ctx, path); err != nil {
		return 0, err
	}
	return 1, nil
}

func runTemplates() {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*output)
	cfg, _, logger := setup(*configPath, *debug, true)
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	if err := cli.WriteTemplates(os.Stdout, components.Catalog.Summaries(nil), format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outPath := fs.String("out", "catalog.xlsx", "output XLSX file")
	runs := fs.Int("runs", 100, "number of recent runs to include (0 = none)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug, true)
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	var recent []*storage.Run
	if *runs > 0 {
		if recent, err = components.Storage.ListRuns(ctx, *runs); err != nil {
			fatalf("List runs failed: %v", err)
		}
	}
	f, err := os.Create(*outPath)
	if err != nil {
		fatalf("Create %s failed: %v", *outPath, err)
	}
	if err := cli.ExportCatalog(f, components.Catalog.Summaries(nil), recent); err != nil {
		_ = f.Close()
		fatalf("Export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		fatalf("Export failed: %v", err)
	}
	fmt.Printf("Exported %d templates and %d runs to %s\n", components.Catalog.Len(), len(recent), *outPath)
}

// Components holds the wired application services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.TemplateIndex
	Catalog      *catalog.Catalog
	Pipeline     *generation.Pipeline
	Orchestrator *orchestrator.Orchestrator
	Registry     *prom.Registry
}

// Close releases storage and index handles.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var index *keyword.BleveIndex
	if cfg.Storage.KeywordIndexPath == "" {
		index, err = keyword.NewMemIndex()
	} else {
		index, err = keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	ranker := ranking.NewRanker(&cfg.Ranking).WithTextFields(cfg.Placeholders.ExtraTextFields...)
	cat := catalog.New(ranker,
		catalog.WithLogger(logger),
		catalog.WithIndex(index),
		catalog.WithStore(store),
		catalog.WithSizeHook(recorder.SetCatalogSize),
	)
	components := &Components{Storage: store, KeywordIndex: index, Catalog: cat, Registry: registry}

	n, err := cat.Hydrate(ctx)
	if err != nil {
		components.Close()
		return nil, err
	}
	logger.Debug("catalog hydrated from storage", zap.Int("templates", n))
	for _, dir := range cfg.Templates.Directories {
		if _, err := cat.LoadDir(ctx, dir); err != nil {
			logger.Warn("template directory skipped", zap.String("dir", dir), zap.Error(err))
		}
	}

	generator := generation.NewCachedGenerator(generation.NewStubGenerator(), cfg.Generation.CacheSize)
	components.Pipeline = generation.NewPipeline(generator,
		generation.WithLogger(logger),
		generation.WithMaxConcurrency(cfg.Generation.MaxConcurrency),
		generation.WithServiceCounts(cfg.Generation.DefaultServiceCount, cfg.Generation.MaxServiceCount),
	)
	components.Orchestrator = orchestrator.New(cat, components.Pipeline,
		orchestrator.WithLogger(logger),
		orchestrator.WithStore(store),
		orchestrator.WithRecorder(recorder),
		orchestrator.WithTimeout(cfg.Generation.Timeout()),
		orchestrator.WithKeepUnresolved(cfg.Placeholders.KeepUnresolved),
		orchestrator.WithTextFields(cfg.Placeholders.ExtraTextFields...),
	)
	return components, nil
}

func printUsage() {
	fmt.Println(`sitewright - Personalize page-builder templates for a business

Usage:
  sitewright server [flags]              Start the HTTP server
  sitewright match [flags]               Rank catalog templates for a business profile
  sitewright generate [flags]            Generate a personalized page
  sitewright import [flags] <path>...    Import template files or directories
  sitewright templates [flags]           List catalog templates
  sitewright export [flags]              Export the catalog (and recent runs) as XLSX
  sitewright version                     Show version
  sitewright help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/sitewright/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Profile Flags (match, generate):
  --profile string      Business profile file (YAML or JSON)
  --name string         Business name
  --category string     Business category
  --description string  Business description
  --services string     Comma-separated services
  --location string     Business location

Match Flags:
  --server string        Server URL (empty = use local catalog)
  --top int              Number of templates to show (default from config)
  --kind string          page, section or widget
  --capabilities string  Comma-separated capabilities the site provides
  --output string        text or json

Generate Flags:
  --server string    Server URL (empty = run locally)
  --template string  Use this template instead of matching
  --prefs string     Preferences JSON file (palette, fonts, images, replacements)
  --out string       Write the personalized document to this file
  --progress         Print progress events to stderr
  --output string    text or json

Export Flags:
  --out string       Output file (default: catalog.xlsx)
  --runs int         Recent runs to include (default: 100)

Environment:
  SITEWRIGHT_DEBUG, SITEWRIGHT_SERVER_HOST, SITEWRIGHT_SERVER_PORT,
  SITEWRIGHT_DATABASE_PATH, SITEWRIGHT_TEMPLATE_DIRS (also read from .env)

Examples:
  sitewright import ./templates
  sitewright match --name "Bistro Lua" --category restaurant --description "Cozy seasonal bistro"
  sitewright generate --profile bistro.yaml --out page.json --progress
  sitewright generate --server http://localhost:8080 --profile bistro.yaml --output json
  sitewright export --out catalog.xlsx`)
}
