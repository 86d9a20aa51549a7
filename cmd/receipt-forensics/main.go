package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/cloud"
	"github.com/zombor/receipt-forensics/internal/ingest"
	"github.com/zombor/receipt-forensics/internal/local"
	"github.com/zombor/receipt-forensics/internal/ocr"
	"github.com/zombor/receipt-forensics/internal/receipt"
	"github.com/zombor/receipt-forensics/internal/vision"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type options struct {
	pipeline       string
	provider       string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	priceInput     string
	priceOutput    string
	maxAttempts    int
	tesseract      string
	tessdata       string
	lang           string
	includeRawText bool
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-forensics")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "receipt-forensics.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./uploads", "Storage directory path")
		file           = fs.StringLong("file", "", "Analyze a single file, print the result as JSON and exit")
		pipeline       = fs.StringLong("pipeline", "local", "Default pipeline: 'local' or 'cloud'")
		provider       = fs.StringLong("provider", "gemini", "Vision model provider for the cloud pipeline: 'gemini', 'ollama' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", vision.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", vision.DefaultOllamaURL, "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", vision.DefaultOllamaModel, "Ollama vision model name")
		priceInput     = fs.StringLong("price-input", cloud.DefaultPricing().Input.String(), "Model price per million input tokens, USD")
		priceOutput    = fs.StringLong("price-output", cloud.DefaultPricing().Output.String(), "Model price per million output tokens, USD")
		maxAttempts    = fs.IntLong("max-attempts", 3, "Attempts per model call, including the first one")
		tesseract      = fs.StringLong("tesseract", "tesseract", "Tesseract binary name or path")
		tessdata       = fs.StringLong("tessdata", "", "Tesseract tessdata directory (optional)")
		lang           = fs.StringLong("lang", "spa", "Tesseract language")
		includeRawText = fs.BoolLong("raw-text", "Include the OCR text in local results")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat      = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_FORENSICS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	opts := options{
		pipeline:       *pipeline,
		provider:       *provider,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		priceInput:     *priceInput,
		priceOutput:    *priceOutput,
		maxAttempts:    *maxAttempts,
		tesseract:      *tesseract,
		tessdata:       *tessdata,
		lang:           *lang,
		includeRawText: *includeRawText,
	}

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzers, closeModel, err := buildAnalyzers(ctx, opts, logger)
	if err != nil {
		slog.Error("Failed to initialize pipelines", "error", err)
		os.Exit(1)
	}
	defer closeModel()

	if *file != "" {
		if err := analyzeFile(ctx, *file, analysis.Pipeline(opts.pipeline), analyzers); err != nil {
			slog.Error("Analysis failed", "file", *file, "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := receipt.NewService(db, store, analyzers)
	if err := service.SetDefaultPipeline(analysis.Pipeline(opts.pipeline)); err != nil {
		slog.Error("Invalid default pipeline", "pipeline", opts.pipeline, "error", err)
		os.Exit(1)
	}

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "pipeline", opts.pipeline)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
}

// newLogger builds the process logger from the level and format flags.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, want text or json", format)
	}
}

// buildAnalyzers wires the local pipeline and, when a provider is configured,
// the cloud pipeline. The returned func closes the vision model.
func buildAnalyzers(ctx context.Context, opts options, logger *slog.Logger) (map[analysis.Pipeline]analysis.Analyzer, func(), error) {
	engine := ocr.NewTesseract(ocr.TesseractConfig{
		Binary:      opts.tesseract,
		TessdataDir: opts.tessdata,
		OEM:         1,
	}, nil)
	if err := engine.Available(); err != nil {
		slog.Warn("Local pipeline will fail until tesseract is installed", "error", err)
	}

	localCfg := local.DefaultConfig()
	localCfg.Lang = opts.lang
	localCfg.IncludeRawText = opts.includeRawText

	analyzers := map[analysis.Pipeline]analysis.Analyzer{
		analysis.PipelineLocal: local.NewPipeline(engine, localCfg, logger),
	}

	model, err := newModel(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		slog.Warn("Cloud pipeline disabled, no vision model configured")
		return analyzers, func() {}, nil
	}

	cloudCfg := cloud.DefaultConfig()
	if cloudCfg.Pricing.Input, err = decimal.NewFromString(opts.priceInput); err != nil {
		model.Close()
		return nil, nil, fmt.Errorf("parsing input price: %w", err)
	}
	if cloudCfg.Pricing.Output, err = decimal.NewFromString(opts.priceOutput); err != nil {
		model.Close()
		return nil, nil, fmt.Errorf("parsing output price: %w", err)
	}
	if opts.maxAttempts > 0 {
		cloudCfg.Retry.MaxAttempts = opts.maxAttempts
	}
	cloudCfg.Retry.Logger = logger

	analyzers[analysis.PipelineCloud] = cloud.NewPipeline(model, cloudCfg, logger)
	return analyzers, func() {
		if err := model.Close(); err != nil {
			slog.Warn("Error closing vision model", "error", err)
		}
	}, nil
}

// newModel returns nil when the cloud pipeline is not configured.
func newModel(ctx context.Context, opts options) (vision.Model, error) {
	switch opts.provider {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := opts.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			if opts.pipeline == string(analysis.PipelineCloud) {
				return nil, errors.New("gemini API key is required, set --gemini-key or GEMINI_API_KEY")
			}
			return nil, nil
		}
		slog.Info("Initializing Gemini model...", "model", opts.geminiModel)
		return vision.NewGemini(ctx, apiKey, opts.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama model...", "url", opts.ollamaURL, "model", opts.ollamaModel)
		return vision.NewOllama(opts.ollamaURL, opts.ollamaModel)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid provider %q, want gemini, ollama or none", opts.provider)
	}
}

// analyzeFile runs one pipeline over a file and prints the result.
func analyzeFile(ctx context.Context, path string, pipeline analysis.Pipeline, analyzers map[analysis.Pipeline]analysis.Analyzer) error {
	analyzer, ok := analyzers[pipeline]
	if !ok {
		return fmt.Errorf("pipeline %q is not configured", pipeline)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	image, mimeType, err := ingest.Prepare(data, ingest.Sniff(data, ""))
	if err != nil {
		return err
	}

	progress := analysis.ObserverFunc(func(status string) {
		slog.Info("Progress", "status", status)
	})
	result, err := analyzer.Analyze(ctx, analysis.Input{Data: image, ContentType: mimeType}, progress)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
