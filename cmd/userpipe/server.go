package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/userpipe/internal/analysis"
	"github.com/kalambet/userpipe/internal/api"
	"github.com/kalambet/userpipe/internal/config"
	"github.com/kalambet/userpipe/internal/notify"
	"github.com/kalambet/userpipe/internal/pipeline"
	"github.com/kalambet/userpipe/internal/source"
	"github.com/kalambet/userpipe/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
}

// app is the wired pipeline stack shared by serve and run --local.
type app struct {
	store    storage.Store
	notifier notify.Notifier
	pipeline *pipeline.Orchestrator
	deps     api.Deps
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := storage.OpenBackend(ctx, cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	notifier, err := notify.Open(ctx, notify.Options{
		Kind:         cfg.Notify.Kind,
		RedisAddr:    cfg.Notify.RedisAddr,
		RedisChannel: cfg.Notify.RedisChannel,
		KafkaBrokers: cfg.Notify.Brokers(),
		KafkaTopic:   cfg.Notify.KafkaTopic,
		S3Bucket:     cfg.Notify.S3Bucket,
		S3Prefix:     cfg.Notify.S3Prefix,
		S3Region:     cfg.Notify.S3Region,
		Logger:       logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening notifier: %w", err)
	}

	fetcher := source.NewFetcher(source.Options{
		URL:        cfg.Source.URL,
		Timeout:    cfg.Source.Timeout,
		RatePerSec: cfg.Source.RatePerSec,
		Logger:     logger,
	})

	orch := pipeline.New(pipeline.Deps{
		Fetcher:       fetcher,
		Analyzer:      analysis.Analyzer{},
		Store:         store,
		Notifier:      notifier,
		Logger:        logger,
		QuietFallback: !cfg.Source.ReportFallback,
	})

	return &app{
		store:    store,
		notifier: notifier,
		pipeline: orch,
		deps:     api.Deps{Pipeline: orch, Results: store, Logger: logger},
	}, nil
}

func (a *app) Close() {
	if err := a.notifier.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing notifier: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("userpipe starting", "version", version, "storage", cfg.Storage.Driver, "notifier", cfg.Notify.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:           api.NewHandler(a.deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", ln.Addr().String(), "max_conns", cfg.Server.MaxConns)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Server.MCPStdio {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(a.deps))
		g.Go(func() error {
			logger.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
