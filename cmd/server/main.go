package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/config"
	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/metrics"
	"github.com/mamadbah2/medstock/internal/repository/mongodb"
	"github.com/mamadbah2/medstock/internal/repository/sheets"
	"github.com/mamadbah2/medstock/internal/repository/snapshot"
	"github.com/mamadbah2/medstock/internal/scheduler"
	"github.com/mamadbah2/medstock/internal/server/handlers"
	"github.com/mamadbah2/medstock/internal/server/router"
	commandsvc "github.com/mamadbah2/medstock/internal/service/commands"
	"github.com/mamadbah2/medstock/internal/service/importer"
	"github.com/mamadbah2/medstock/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/medstock/internal/service/reporting"
	salessvc "github.com/mamadbah2/medstock/internal/service/sales"
	whatsappsvc "github.com/mamadbah2/medstock/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/medstock/pkg/clients/whatsapp"
	"github.com/mamadbah2/medstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	ctx := context.Background()

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var snapshots ledger.SnapshotStore
	switch cfg.Inventory.SnapshotBackend {
	case config.SnapshotBackendMongo:
		snapshots = mongoRepo.Snapshots()
	default:
		fileStore, err := snapshot.NewFileStore(cfg.Inventory.SnapshotPath, baseLogger.Named("repo.snapshot"))
		if err != nil {
			baseLogger.Fatal("failed to init snapshot store", zap.Error(err))
		}
		snapshots = fileStore
	}

	thresholds := models.Thresholds{
		Critical:      cfg.Inventory.CriticalStockThreshold,
		LowMultiplier: cfg.Inventory.LowStockMultiplier,
	}
	store := ledger.NewStore(snapshots, thresholds, baseLogger.Named("svc.ledger"))
	store.Load(ctx)
	baseLogger.Info("ledger loaded", zap.Int("medicines", store.Count()), zap.String("backend", cfg.Inventory.SnapshotBackend))

	sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	m.SetLedgerSize(store.Count(), len(store.LowStock()))

	salesSvc := salessvc.NewService(store, sheetsRepo, cfg.Sheets.TransactionsRange, loc, m, baseLogger.Named("svc.sales"))
	reportingSvc := reportingsvc.NewService(sheetsRepo, store, mongoRepo, cfg.Sheets.TransactionsRange, loc, m, baseLogger.Named("svc.reporting"))
	reconciler := importer.NewReconciler(store, cfg.Inventory.DefaultMinStock, m, baseLogger.Named("svc.importer"))
	commandDispatcher := commandsvc.NewService(salesSvc, reportingSvc, reconciler, store, sheetsRepo, cfg.Sheets.ImportRange, baseLogger.Named("svc.commands"))

	whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))

	webhookHandler := handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
	inventoryHandler := handlers.NewInventoryHandler(store, reconciler, salesSvc, baseLogger.Named("handlers.inventory"))
	reportHandler := handlers.NewReportHandler(mongoRepo, reportingSvc, baseLogger.Named("handlers.reports"))
	engine := router.New(webhookHandler, inventoryHandler, reportHandler, registry, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, messagingSvc, cfg.WhatsApp.AuthorizedUsers, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
