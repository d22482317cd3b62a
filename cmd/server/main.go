package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AngelCh415/insights-dashboard/internal/config"
	"github.com/AngelCh415/insights-dashboard/internal/dashboard"
	"github.com/AngelCh415/insights-dashboard/internal/export"
	"github.com/AngelCh415/insights-dashboard/internal/httpx"
	"github.com/AngelCh415/insights-dashboard/internal/ingest"
	"github.com/AngelCh415/insights-dashboard/internal/loader"
	"github.com/AngelCh415/insights-dashboard/internal/store"
	"github.com/AngelCh415/insights-dashboard/internal/theme"
	"github.com/AngelCh415/insights-dashboard/internal/utils"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var src ingest.Source
	if cfg.APIBaseURL != "" {
		src = ingest.NewAPIClient(cfg.APIBaseURL, cfg.APITimeout)
		logger.Info("using upstream api", slog.String("base", cfg.APIBaseURL))
	} else {
		src = ingest.NewSynthetic(ingest.WithLatency(cfg.SimulatedLatency))
		logger.Info("using synthetic data", slog.Float64("latency", cfg.SimulatedLatency))
	}

	var kv store.KV = store.NewMemoryStore()
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			logger.Error("open preferences db", slog.String("path", cfg.DBPath), slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
		kv = db
	}
	def, err := theme.ParseMode(cfg.DefaultTheme)
	if err != nil {
		logger.Warn("bad default theme", slog.String("err", err.Error()))
		def = theme.DefaultMode
	}
	themes := theme.NewManager(kv, theme.WithStorageKey(cfg.ThemeStorageKey), theme.WithDefault(def), theme.WithLogger(logger))
	themes.Load(ctx)

	registry := loader.NewRegistry(loader.WithLogger(logger), loader.WithMetrics(loader.NewMetrics(reg)))
	svc := dashboard.New(src, registry, logger, dashboard.Options{
		Policy: loader.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryDelay,
			MaxJitter:   cfg.RetryJitter,
		},
		Timeout:        cfg.LoadTimeout,
		AutoRetryDelay: cfg.AutoRetryDelay,
		AutoRetryMax:   cfg.AutoRetryMax,
	})
	svc.StartAutoRetry(ctx)
	defer svc.Close()
	go svc.LoadAll(ctx)

	r := httpx.NewRouter(logger, httpx.Deps{
		Dashboard:       svc,
		Theme:           themes,
		Exporter:        export.NewExporter(export.FileSink{Dir: cfg.ExportDir}, logger),
		Gatherer:        reg,
		HTTPMetrics:     utils.NewHTTPMetrics(reg),
		DefaultPageSize: cfg.DefaultPageSize,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.String("err", err.Error()))
		}
	}()

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
