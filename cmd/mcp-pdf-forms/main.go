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
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/httpapi"
	"github.com/a3tai/mcp-pdf-forms/internal/logging"
	"github.com/a3tai/mcp-pdf-forms/internal/mcp"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/security"
	"github.com/a3tai/mcp-pdf-forms/internal/service"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const (
	sessionIdleTimeout = time.Hour
	sweepInterval      = 5 * time.Minute
)

// runner is either transport.
type runner interface {
	Run(ctx context.Context) error
}

// loggingOptions keeps stdout clean for the protocol in stdio mode.
func loggingOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Level:       cfg.LogLevel,
		Stdio:       cfg.IsStdioMode(),
		Development: cfg.IsDebug() && cfg.IsServerMode(),
	}
}

// sweepIdleSessions closes sessions nobody touched for sessionIdleTimeout.
func sweepIdleSessions(ctx context.Context, store *session.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			store.CloseIdle(now.Add(-sessionIdleTimeout))
		}
	}
}

// build wires the service and picks the transport for cfg.Mode.
func build(ctx context.Context, cfg *config.Config) (runner, *session.Store, error) {
	sink, err := output.New(ctx, cfg.OutputOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output sink: %w", err)
	}

	store := service.NewStore(cfg, pdf.NewLoader(cfg.MaxFileSize))
	svc, err := service.New(cfg, store, sink)
	if err != nil {
		return nil, nil, err
	}

	if cfg.IsServerMode() {
		srv, err := httpapi.NewServer(cfg, svc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create HTTP server: %w", err)
		}
		return srv, store, nil
	}

	paths, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, nil, err
	}
	srv, err := mcp.NewServer(cfg, svc, paths)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv, store, nil
}

func run() int {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	flush, err := logging.Setup(loggingOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 2
	}
	defer flush()

	logger := zap.L()
	logger.Debug("starting", zap.Stringer("config", cfg))

	// In stdio mode the parent process ends us by closing stdin; signals
	// still cancel both modes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	srv, store, err := build(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	go sweepIdleSessions(ctx, store, sweepInterval)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	logger.Info("server stopped")
	return 0
}

func main() {
	os.Exit(run())
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Forms\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
