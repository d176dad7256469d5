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

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/auditor"
	"github.com/meridian-erp/meridian-erp/internal/ledger/budgets"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/postingrules"
	"github.com/meridian-erp/meridian-erp/internal/ledger/reports"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequences"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	metrics := observability.NewMetrics()
	authz := shared.NewGrantAuthorizer(pool)
	auditLog := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	accountsService := accounts.NewService(accounts.NewRepository(pool), authz, auditLog, accounts.Policy{
		AllowDeactivateWithHistory: cfg.AllowDeactivateWithHistory,
	})
	periodsService := periods.NewService(periods.NewRepository(pool), authz, auditLog)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	journalsService := journals.NewService(journals.NewRepository(pool), authz, auditLog, reportCache)
	journalsService.WithMetrics(metrics)
	journalsService.WithRetryPolicy(cfg.SequenceAttempts, cfg.SequenceBackoff)

	sequencesRepo := sequences.NewRepository(pool)
	sequencesService := sequences.NewService(sequencesRepo, cfg.SequenceAttempts, cfg.SequenceBackoff)
	sequencesService.WithAdmin(sequencesRepo, authz)

	rulesRepo := postingrules.NewRepository(pool)
	rulesService := postingrules.NewService(postingrules.NewRegistry(), rulesRepo, idempotency, journalsService, authz)

	budgetsService := budgets.NewService(budgets.NewRepository(pool), authz, auditLog)
	reportsService := reports.NewService(reports.NewRepository(pool), reportCache)
	auditorService := auditor.NewService(auditor.NewRepository(pool), authz)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AccountsHandler:     accounts.NewHandler(logger, accountsService),
		PeriodsHandler:      periods.NewHandler(logger, periodsService),
		JournalsHandler:     journals.NewHandler(logger, journalsService),
		PostingRulesHandler: postingrules.NewHandler(logger, rulesService),
		SequencesHandler:    sequences.NewHandler(logger, sequencesService),
		BudgetsHandler:      budgets.NewHandler(logger, budgetsService),
		ReportsHandler:      reports.NewHandler(logger, reportsService),
		AuditorHandler:      auditor.NewHandler(logger, auditorService),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger service listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
