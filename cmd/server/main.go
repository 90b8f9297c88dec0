package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/talentdesk/backoffice/api"
	dbfs "github.com/talentdesk/backoffice/db"
	"github.com/talentdesk/backoffice/internal/cache"
	"github.com/talentdesk/backoffice/internal/config"
	"github.com/talentdesk/backoffice/internal/db"
	"github.com/talentdesk/backoffice/internal/jobs"
	"github.com/talentdesk/backoffice/internal/metrics"
	"github.com/talentdesk/backoffice/internal/recordstore"
	"github.com/talentdesk/backoffice/internal/registry"
	"github.com/talentdesk/backoffice/internal/repository/sqlite"
	"github.com/talentdesk/backoffice/internal/summary"
	"github.com/talentdesk/backoffice/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting backoffice server",
		slog.String("version", version),
		slog.String("build_time", buildTime),
	)

	ctx := context.Background()

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := recordstore.NewREST(recordstore.RESTConfig{
		BaseURL:   cfg.Store.BaseURL,
		AuthToken: cfg.Store.AuthToken,
		Timeout:   cfg.Store.Timeout,
	}, nil, logger)
	if err != nil {
		log.Fatalf("Failed to create record store client: %v", err)
	}
	cacheStore := cache.New(conn, logger)

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	svc := registry.New(store, cacheStore, cfg.Cache, m, logger)
	staffRepo := sqlite.New(conn, logger)

	var summarizer summary.Summarizer
	ollamaClient, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		logger.Warn("ollama client unavailable, summaries disabled", slog.Any("err", err))
	} else {
		defer ollamaClient.Close()
		engine, err := summary.NewEngine(ollamaClient, cfg.Engine, logger)
		if err != nil {
			logger.Warn("summary engine unavailable", slog.Any("err", err))
		} else {
			summarizer = engine
		}
	}

	jobRepo := jobs.NewRepository(conn)
	handlers := map[string]jobs.Handler{
		jobs.TypeReconcileEmployeeIndex: func(ctx context.Context, j *jobs.Job) error {
			repaired, err := svc.ReconcileEmployeeIndex(ctx)
			if err != nil {
				return err
			}
			logger.Info("employee index sweep done", slog.Int("repaired", repaired))
			return nil
		},
	}
	pool := jobs.NewWorkerPool(jobRepo, handlers, logger, cfg.Reconcile.Workers)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	pool.Start(workerCtx)

	// periodic sweep in addition to the on-assignment enqueue
	pool.EnqueueEvery(workerCtx, cfg.Reconcile.Interval, jobs.TypeReconcileEmployeeIndex, map[string]string{"reason": "interval"}, 100, 3)

	handler, err := api.SetupRoutes(cfg, version, buildTime, staffRepo, svc, summarizer, pool, promRegistry)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	stopWorkers()
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := conn.Close(); err != nil {
		logger.Error("close db", slog.Any("err", err))
	}
	logger.Info("server exited")
}
