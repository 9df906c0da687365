package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/config"
	"github.com/a3tai/mcp-notam-briefing/internal/intelligence"
	"github.com/a3tai/mcp-notam-briefing/internal/logging"
	"github.com/a3tai/mcp-notam-briefing/internal/mcp"
	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/oracle"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// oracles holds the language capabilities injected into the service
type oracles struct {
	classifier oracle.Classifier
	summarizer oracle.Summarizer
	name       string
}

// buildOracles returns the Gemini client when a key is configured and the
// offline rule classifier otherwise. Briefing needs the model and stays
// unavailable without one.
func buildOracles(cfg *config.Config, recorder *metrics.Recorder, logger *zap.Logger) (*oracles, error) {
	if cfg.HasOracle() {
		client, err := oracle.NewGeminiClient(oracle.GeminiOptions{
			BaseURL:           cfg.Gemini.URL,
			Model:             cfg.Gemini.Model,
			APIKey:            cfg.Gemini.APIKey,
			Timeout:           cfg.Gemini.Timeout,
			RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		}, recorder, logger.Named("gemini"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return &oracles{
			classifier: client.Classify,
			summarizer: client.Summarize,
			name:       "gemini:" + client.Model(),
		}, nil
	}

	rules, err := intelligence.NewRuleClassifier(intelligence.DefaultClassificationConfig(), logger.Named("rules"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule classifier: %w", err)
	}
	logger.Info("no Gemini key configured, using offline rule classifier; briefing is unavailable")
	return &oracles{classifier: rules.Classify, name: "offline rules"}, nil
}

func newServiceConfig(cfg *config.Config, oracleName string) pdf.ServiceConfig {
	return pdf.ServiceConfig{
		Directory:     cfg.PDFDirectory,
		MaxFileSize:   cfg.MaxFileSize,
		TextPageLimit: cfg.TextPageLimit,
		Layout:        cfg.StampLayout(),
		OracleName:    oracleName,
	}
}

// newServer wires configuration, oracles, the service and the MCP server
func newServer(cfg *config.Config, logger *zap.Logger) (*mcp.Server, error) {
	recorder := metrics.New()

	o, err := buildOracles(cfg, recorder, logger)
	if err != nil {
		return nil, err
	}

	svc, err := pdf.NewService(newServiceConfig(cfg, o.name), o.classifier, o.summarizer, recorder, logger.Named("service"))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	return mcp.NewServer(cfg, svc, recorder, logger.Named("mcp"))
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *zap.Logger) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-serverErrCh; err != nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}
	case err := <-serverErrCh:
		if err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

// runStdioMode handles stdio mode execution. The parent process controls
// our lifecycle; an interrupt only cancels the transport.
func runStdioMode(ctx context.Context, server *mcp.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}

func run(args []string) error {
	cfg, err := config.Load("notam-briefing", args)
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDebug() && cfg.IsServerMode())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting", zap.Stringer("config", cfg))

	server, err := newServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server, logger)
	}
	return runStdioMode(ctx, server)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "notam-briefing: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP NOTAM Briefing\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
