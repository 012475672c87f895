package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/config"
	"github.com/iwvelando/requisition-analyzer/internal/importer"
	"github.com/iwvelando/requisition-analyzer/internal/lifecycle"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/internal/server"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/iwvelando/requisition-analyzer/pkg/output"
	"github.com/iwvelando/requisition-analyzer/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// localUser owns requisitions analyzed from the command line.
const localUser = "cli"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}

	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var cfg zap.Config
	switch loggingConfig.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "", "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", loggingConfig.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		cfg.OutputPaths = []string{loggingConfig.OutputFile}
		cfg.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return cfg.Build()
}

// loadConfiguration reads path, falling back to defaults when the default
// config file is absent.
func loadConfiguration(path string) (*config.Configuration, error) {
	if path == constants.DefaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.LoadConfiguration("")
		}
	}
	return config.LoadConfiguration(path)
}

// mergeLogging overlays the non-empty server logging settings.
func mergeLogging(base, override config.LoggingConfig) config.LoggingConfig {
	if override.Level != "" {
		base.Level = override.Level
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.OutputFile != "" {
		base.OutputFile = override.OutputFile
	}
	return base
}

// issueToken signs a bearer token for a "user:role" pair.
func issueToken(secret, userRole string, ttl time.Duration, now time.Time) (string, error) {
	user, rawRole, found := strings.Cut(userRole, ":")
	if !found || strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("expected user:role, got %q", userRole)
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("no JWT secret configured, set jwtSecret or %s", server.JWTSecretEnv)
	}
	return server.SignToken([]byte(secret), model.Principal{UserID: strings.TrimSpace(user), Role: role}, ttl, now)
}

// analyzeFile imports a CSV medication list, analyzes it and writes the
// report to w.
func analyzeFile(ctx context.Context, manager *lifecycle.Manager, path, title, format, symbol string, w io.Writer) (*model.AnalysisReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open medication list: %w", err)
	}
	defer f.Close()

	items, err := importer.ParseCSV(f)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	p := model.Principal{UserID: localUser, Role: model.RoleAdmin}
	req, err := manager.Create(ctx, p, title, items)
	if err != nil {
		return nil, err
	}
	report, err := manager.SubmitForAnalysis(ctx, p, req.ID)
	if err != nil {
		return nil, err
	}

	switch format {
	case constants.OutputFormatCSV:
		err = output.CsvFormat(w, report)
	case constants.OutputFormatJSON:
		err = output.JSONFormat(w, report)
	default:
		err = output.PrettyFormat(w, report, symbol)
	}
	return report, err
}

func serve(ctx context.Context, logger *zap.Logger, manager *lifecycle.Manager, cfg *server.Config) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, manager, cfg, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting requisition API",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down requisition API", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	os.Exit(run())
}

func run() int {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	itemsFile := flag.String("items", "", "CSV medication list to analyze")
	title := flag.String("title", "", "requisition title, defaults to the items file name")
	catalogImport := flag.String("import-catalog", "", "YAML depot catalog to load into the SQLite quote database")
	serveFlag := flag.Bool("serve", false, "run the HTTP API")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	tokenFor := flag.String("issue-token", "", "print a bearer token for user:role and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
	}

	conf, err := loadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}

	var serverCfg *server.Config
	if *serveFlag || *tokenFor != "" {
		serverCfg, err = server.LoadConfig(*serverConfigLocation)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
			return 1
		}
	}

	if *tokenFor != "" {
		token, err := issueToken(serverCfg.JWTSecret, *tokenFor, *tokenTTL, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			return 1
		}
		fmt.Println(token)
		return 0
	}

	loggingConfig := conf.Logging
	if serverCfg != nil {
		loggingConfig = mergeLogging(loggingConfig, serverCfg.Logging)
	}
	logger, err := initializeLogger(loggingConfig, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		logger.Error(err.Error(),
			zap.String("op", "main"),
		)
		return 1
	}
	if err := conf.Validate(); err != nil {
		logger.Error("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	if *serveFlag {
		for _, warning := range serverCfg.Warnings() {
			logger.Warn("Server configuration warning: "+warning,
				zap.String("op", "main"),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbs := &databases{}
	defer func() {
		if err := dbs.Close(); err != nil {
			logger.Warn("failed to close databases", zap.String("op", "main"), zap.Error(err))
		}
	}()

	manager, err := buildManager(ctx, logger, conf, dbs, *catalogImport)
	if err != nil {
		logger.Error("failed to initialize requisition manager",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	if *serveFlag {
		if err := serve(ctx, logger, manager, serverCfg); err != nil {
			logger.Error("requisition API stopped",
				zap.String("op", "main"),
				zap.Error(err),
			)
			return 1
		}
		return 0
	}

	if *itemsFile == "" {
		if *catalogImport != "" {
			return 0
		}
		logger.Error("nothing to do, pass -items, -serve or -issue-token",
			zap.String("op", "main"),
		)
		return 2
	}

	report, err := analyzeFile(ctx, manager, *itemsFile, *title, conf.Output.Format, conf.Output.CurrencySymbol, os.Stdout)
	if err != nil {
		logger.Error("failed to analyze requisition",
			zap.String("op", "main"),
			zap.String("file", *itemsFile),
			zap.Error(err),
		)
		return 1
	}
	logger.Debug("requisition analyzed",
		zap.String("op", "main"),
		zap.String("report", report.ID),
		zap.String("strategy", report.BestStrategy),
	)
	return 0
}
