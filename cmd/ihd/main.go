package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/exposure-tracker/internal/async"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/ingest"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	"github.com/joseph-ayodele/exposure-tracker/internal/llm"
	"github.com/joseph-ayodele/exposure-tracker/internal/llm/provider"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	repo "github.com/joseph-ayodele/exposure-tracker/internal/repository"
	"github.com/joseph-ayodele/exposure-tracker/internal/server"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/admin"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/drafting"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/samples"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ihd stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("ihd stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer server.CloseDB(db, logger)
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		return err
	}

	repos := repo.NewRepositories(db, logger)
	rec := metrics.New()

	var catalog compliance.Limits
	if cfg.Limits.CatalogPath != "" {
		if catalog, err = limits.LoadYAML(cfg.Limits.CatalogPath, logger); err != nil {
			return err
		}
	}
	adminSvc := admin.NewService(repos, catalog, logger)

	var defaultTenant uuid.UUID
	if cfg.Import.DefaultTenant != "" {
		if defaultTenant, err = uuid.Parse(cfg.Import.DefaultTenant); err != nil {
			return common.NewAppError("CONFIG_ERROR", "IMPORT_TENANT_ID must be a UUID", common.ErrInvalidInput)
		}
		if len(catalog) > 0 {
			n, err := adminSvc.LoadLimits(ctx, defaultTenant, catalog)
			if err != nil {
				return err
			}
			logger.Info("limits catalog seeded", "tenant_id", defaultTenant, "limits", n)
		}
	}

	sampleSvc := samples.NewService(repos, rec, logger)
	importSvc := imports.NewService(repos, rec, logger)

	var drafter drafting.Drafter
	if cfg.LLMEnabled() {
		completer, err := provider.New(ctx, cfg.LLM, logger)
		if err != nil {
			return err
		}
		drafter = llm.NewDrafter(completer, logger)
		logger.Info("drafting enabled", "provider", completer.Name())
	} else {
		logger.Warn("no LLM API key configured; drafting is disabled")
	}
	draftSvc := drafting.NewService(repos, sampleSvc, drafter, rec, logger)

	queue := async.NewWorkerQueue(draftSvc.HandleJob, logger,
		async.WithWorkers(cfg.Import.QueueWorkers),
		async.WithQueueSize(cfg.Import.QueueSize),
		async.WithJobTimeout(cfg.Import.JobTimeout),
		async.WithMetrics(rec),
	)

	grpcServer, healthServer := server.NewGRPCServer(
		server.NewComplianceServer(importSvc, sampleSvc, draftSvc, queue, logger), logger, rec)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ihd listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if cfg.Import.InboxDir != "" {
		if defaultTenant == uuid.Nil {
			logger.Warn("IMPORT_INBOX_DIR set without IMPORT_TENANT_ID; drop folder disabled")
		} else {
			drop := ingest.NewDropFolder(importSvc, defaultTenant, cfg.Import.InboxDir, cfg.Import.Debounce, logger)
			g.Go(func() error { return drop.Run(gctx) })
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(sctx)
		queue.Shutdown(sctx)
		return nil
	})
	return g.Wait()
}
