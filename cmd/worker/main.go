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

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-crm/internal/app"
	"github.com/odyssey-erp/odyssey-crm/internal/crmapi"
	jobmetrics "github.com/odyssey-erp/odyssey-crm/internal/jobs"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature"
	"github.com/odyssey-erp/odyssey-crm/jobs"
)

// metricsAddr exposes the worker's job and backend collectors for scraping.
const metricsAddr = ":9091"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.CRMServiceToken == "" {
		logger.Warn("CRM_SERVICE_TOKEN is empty, expiry sweep calls will be unauthenticated")
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	crm, err := crmapi.NewClient(crmapi.Config{
		BaseURL:      cfg.CRMBaseURL,
		Timeout:      cfg.CRMTimeout,
		ServiceToken: cfg.CRMServiceToken,
	}, logger)
	if err != nil {
		logger.Error("init crm client", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := signature.NewRedisLedger(redisClient, cfg.SignatureInFlightTTL, cfg.SignatureLedgerTTL)
	workflow := signature.NewWorkflow(crm, crm, ledger, signature.NewMetrics(nil), logger)
	expiryJob := jobs.NewQuoteExpiryJob(workflow, logger, jobmetrics.NewMetrics(nil))

	expiryTask, err := jobs.NewQuoteExpiryTask(jobs.QuoteExpiryPayload{})
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts.AsynqOpts(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuoteExpirySweep, Handler: expiryJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpirySweepCron, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker starting", slog.String("cron", cfg.ExpirySweepCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
