package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-crm/internal/app"
	"github.com/odyssey-erp/odyssey-crm/internal/crmapi"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-crm/internal/preferences"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/preview"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
	"github.com/odyssey-erp/odyssey-crm/jobs"
	"github.com/odyssey-erp/odyssey-crm/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()

	crm, err := crmapi.NewClient(crmapi.Config{
		BaseURL:  cfg.CRMBaseURL,
		Timeout:  cfg.CRMTimeout,
		Observer: metrics,
	}, logger)
	if err != nil {
		logger.Error("init crm client", slog.Any("error", err))
		os.Exit(1)
	}

	prefs := shared.NewRedisPreferences(redisClient, cfg.PreferencesNamespace)
	ledger := signature.NewRedisLedger(redisClient, cfg.SignatureInFlightTTL, cfg.SignatureLedgerTTL)
	workflow := signature.NewWorkflow(crm, crm, ledger, signature.NewMetrics(metrics.Registerer()), logger)
	quoteService := quotations.NewService(crm, crm, workflow.Machine(), prefs, logger)

	healthChecks := []app.HealthCheck{
		{Name: "redis", Check: cache.Check(redisClient)},
		{Name: "crm", Check: crm.Ping},
	}

	var renderer preview.Renderer
	switch strings.ToLower(cfg.PDFRenderer) {
	case app.PDFRendererGotenberg:
		gotenberg, err := report.NewClient(cfg.GotenbergURL, 0)
		if err != nil {
			logger.Error("init gotenberg client", slog.Any("error", err))
			os.Exit(1)
		}
		renderer = preview.NewGotenbergRenderer(gotenberg)
		healthChecks = append(healthChecks, app.HealthCheck{Name: "gotenberg", Check: gotenberg.Ping})
	default:
		renderer = preview.NewFPDFRenderer()
	}
	previewService := preview.NewService(crm, crm, renderer, preview.NewFormatter(cfg.DisplayLocale), logger)

	inspector := asynq.NewInspector(redisOpts.AsynqOpts())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts.AsynqOpts())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		QuotesHandler:      quotations.NewHandler(logger, quoteService),
		SignatureHandler:   signature.NewHandler(logger, workflow),
		PreviewHandler:     preview.NewHandler(logger, previewService),
		PreferencesHandler: preferences.NewHandler(logger, prefs),
		JobHandler:         jobs.NewHandler(inspector, logger).WithClient(jobClient),
		HealthChecks:       healthChecks,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr), slog.String("crm", cfg.CRMBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("http server stopped")
}
