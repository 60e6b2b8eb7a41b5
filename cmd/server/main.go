package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veridoc/internal/audit"
	"veridoc/internal/document/crossval"
	"veridoc/internal/document/fraud"
	"veridoc/internal/document/handler"
	docmetrics "veridoc/internal/document/metrics"
	"veridoc/internal/document/service"
	"veridoc/internal/document/store"
	"veridoc/internal/platform/config"
	"veridoc/internal/platform/httpserver"
	"veridoc/internal/platform/logger"
	platformredis "veridoc/internal/platform/redis"
	"veridoc/internal/recognition"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	var (
		st       store.Store
		auditSt  audit.Store
		database *sql.DB
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		database = db
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		auditPg := audit.NewPostgresStore(db)
		if err := auditPg.EnsureSchema(ctx); err != nil {
			log.Error("ensure audit schema", "error", err)
			os.Exit(1)
		}
		st = pg
		auditSt = auditPg
	} else {
		log.Warn("no postgres DSN configured, using in-memory store")
		st = store.NewInMemory()
		auditSt = audit.NewInMemoryStore()
	}

	var dupIndex fraud.DuplicateIndex = fraud.NewMemoryIndex()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		dupIndex = fraud.NewRedisIndex(redisClient.Client)
	}

	weights := crossval.DefaultConfig()
	if cfg.WeightsFile != "" {
		weights, err = crossval.LoadConfig(cfg.WeightsFile)
		if err != nil {
			log.Error("load weight config", "error", err)
			os.Exit(1)
		}
	}

	recognizer := recognition.NewBreaker(recognition.Command{
		Path: os.Getenv("VERIDOC_OCR_COMMAND"),
	})
	detector := fraud.NewDetector(dupIndex,
		fraud.WithForensics(recognition.NoopForensics{}),
		fraud.WithLogger(log),
	)

	auditCh := make(chan audit.Event, 256)
	auditWorker := audit.NewWorker(auditSt, auditCh).WithLogger(log)
	workerCtx, stopWorker := context.WithCancel(ctx)
	go func() {
		if err := auditWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	m := docmetrics.New()
	svc := service.New(st, recognizer, crossval.NewEngine(weights), detector, dupIndex,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditSink(auditCh),
		service.WithMaxWorkers(cfg.MaxWorkers),
		service.WithRecognitionTimeout(cfg.RecognitionTimeout),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error("service start", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	handler.New(svc, st, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting veridoc", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	stopWorker()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if database != nil {
		_ = database.Close()
	}
}
