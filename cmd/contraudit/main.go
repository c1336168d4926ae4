// Package main is the contraudit CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/contraudit/contraudit/internal/audit"
	"github.com/contraudit/contraudit/internal/cache"
	"github.com/contraudit/contraudit/internal/classifier"
	"github.com/contraudit/contraudit/internal/config"
	"github.com/contraudit/contraudit/internal/embedding"
	"github.com/contraudit/contraudit/internal/matcher"
	"github.com/contraudit/contraudit/internal/models"
	"github.com/contraudit/contraudit/internal/server"
	"github.com/contraudit/contraudit/internal/storage"
	"github.com/contraudit/contraudit/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/contraudit/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "contraudit server" from the project dir uses the
// project's config (including debug).
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
	case "index":
		runIndex()
	case "classify":
		runClassify()
	case "audit":
		runAudit()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("contraudit version %s\n", version)
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Classifier, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.Storage.VectorIndexPath != "" {
		if snap, snapErr := components.Classifier.Snapshot(ctx); snapErr == nil {
			if idx := snap.Index(); idx != nil {
				if saveErr := idx.Save(cfg.Storage.VectorIndexPath); saveErr != nil {
					logger.Warn("vector index save failed",
						zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(saveErr))
				}
			}
		}
	}
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contraudit index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, _, logger := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	paths, err := resolvePaths(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve path: %v\n", err)
		os.Exit(1)
	}
	indexed := 0
	for _, p := range paths {
		content, readErr := os.ReadFile(p)
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", p, readErr)
			continue
		}
		tpl, idxErr := components.Classifier.IndexTemplate(ctx, filepath.Base(p), content)
		if idxErr != nil {
			fmt.Fprintf(os.Stderr, "Indexing %s failed: %v\n", p, idxErr)
			continue
		}
		fmt.Printf("Template indexed: %s  (%s)\n", tpl.ID, tpl.Title)
		indexed++
	}
	logger.Info("template indexing done", zap.Int("indexed", indexed), zap.Int("total", len(paths)))
	if indexed == 0 && len(paths) > 0 {
		os.Exit(1)
	}
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contraudit classify [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, _, _ := mustInitialize(*configPath)
	defer components.Close()

	paths, err := resolvePaths(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve path: %v\n", err)
		os.Exit(1)
	}
	outcomes, err := components.Classifier.ClassifyPaths(context.Background(), paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Printf("%s: ERROR: %v\n", out.Path, out.Err)
			failed++
			continue
		}
		printOutcome(out)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// printOutcome writes one classified document as a human-readable block.
func printOutcome(out *classifier.Outcome) {
	dec := out.Classify.Decision
	fmt.Printf("%s: %s", out.Path, dec.Verdict.Label())
	if dec.MatchedTemplateID != "" {
		fmt.Printf("  (template %s, score %.3f)", dec.MatchedTemplateID, dec.Score)
	}
	fmt.Println()
	if out.Audit != nil {
		printAudit(out.Audit, "  ")
	}
}

// printAudit writes the audit status and its violations, indented.
func printAudit(res *models.AuditResult, indent string) {
	fmt.Printf("%saudit: %s\n", indent, res.Status.Label())
	for _, v := range res.Violations {
		fmt.Printf("%s  [%s] %s: %s\n", indent, v.Severity, v.RuleKey, v.Description)
		if v.FoundText != "" {
			fmt.Printf("%s      %q\n", indent, utils.Truncate(v.FoundText, 120))
		}
	}
}

func runAudit() {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: contraudit audit [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, _, _ := mustInitialize(*configPath)
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}
	res, err := components.Classifier.AuditContent(context.Background(), filepath.Base(path), content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printAudit(res, "")
	if res.Status == models.AuditNonstandard {
		os.Exit(2)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Templates         int64                  `json:"templates"`
	Documents         int64                  `json:"documents"`
	Config            map[string]interface{} `json:"config,omitempty"`
	DatabaseSizeBytes int64                  `json:"database_size_bytes"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
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
		components, cfg, _ := mustInitialize(*configPath)
		defer components.Close()
		ctx := context.Background()
		templateCount, err := components.Storage.CountTemplates(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count templates failed: %v\n", err)
			os.Exit(1)
		}
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Templates: templateCount,
			Documents: docCount,
			Config: map[string]interface{}{
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"matching_threshold":   cfg.Matching.Threshold,
				"database_path":        cfg.Storage.DatabasePath,
			},
			DatabaseSizeBytes: storage.DatabaseSizeBytes(cfg.Storage.DatabasePath),
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
		fmt.Printf("templates:           %d\n", status.Templates)
		fmt.Printf("documents:           %d\n", status.Documents)
		fmt.Printf("database_size_bytes: %d\n", status.DatabaseSizeBytes)
		for k, v := range status.Config {
			fmt.Printf("%-20s %v\n", k+":", v)
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

// resolvePaths expands a file or directory argument into the list of
// supported document files to process.
func resolvePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return classifier.CollectFiles(path)
	}
	return []string{path}, nil
}

// mustInitialize loads config, builds the logger, and initializes components,
// exiting with a message on any failure. Shared by the non-server commands.
func mustInitialize(configPath string) (*Components, *config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return components, cfg, logger
}

// Components holds initialized services.
type Components struct {
	Storage    storage.Storage
	Embedder   embedding.Embedder
	Classifier *classifier.Classifier
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder := embedding.NewGateway(
		embedding.NewClient(cfg.Embedding),
		cfg.Embedding.BatchSize,
		cfg.Embedding.CacheSize,
	)

	var policy *audit.Policy
	if _, statErr := os.Stat(cfg.Policy.Path); statErr == nil {
		policy, err = audit.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load audit policy: %w", err)
		}
		logger.Info("audit policy loaded", zap.String("path", cfg.Policy.Path), zap.Int("rules", len(policy.Rules)))
	}

	c := classifier.New(
		store,
		embedder,
		matcher.New(cfg.Matching),
		audit.NewEngine(policy),
		cache.New(cfg.Storage.ArtifactCachePath),
		cfg,
		logger,
	)
	return &Components{Storage: store, Embedder: embedder, Classifier: c}, nil
}

func printUsage() {
	fmt.Println(`contraudit - contract classification and standardness audit

Usage:
  contraudit server [flags]              Start the HTTP server
  contraudit index [flags] <path>        Index reference template(s)
  contraudit classify [flags] <path>     Classify and audit document(s)
  contraudit audit [flags] <file>        Audit a single document
  contraudit status [flags]              Show storage and config status
  contraudit version                     Show version
  contraudit help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/contraudit/config.yaml)
  --debug            Enable debug logging

Classify / Audit Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  contraudit server
  contraudit index ./templates
  contraudit classify ./inbox
  contraudit audit contract.docx
  contraudit status --output json`)
}
