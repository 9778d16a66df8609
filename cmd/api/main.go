package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadline/lead-import-api/internal/adapters/httpapi"
	memidempotency "github.com/leadline/lead-import-api/internal/adapters/memory/idempotency"
	memleadrepo "github.com/leadline/lead-import-api/internal/adapters/memory/leadrepo"
	postgres "github.com/leadline/lead-import-api/internal/adapters/postgres"
	pgidempotency "github.com/leadline/lead-import-api/internal/adapters/postgres/idempotency"
	pgleadrepo "github.com/leadline/lead-import-api/internal/adapters/postgres/leadrepo"
	"github.com/leadline/lead-import-api/internal/adapters/spreadsheet"
	"github.com/leadline/lead-import-api/internal/adapters/sqlite"
	sqliteleadrepo "github.com/leadline/lead-import-api/internal/adapters/sqlite/leadrepo"
	"github.com/leadline/lead-import-api/internal/app/imports"
	platformclock "github.com/leadline/lead-import-api/internal/platform/clock"
	"github.com/leadline/lead-import-api/internal/platform/config"
	"github.com/leadline/lead-import-api/internal/platform/logging"
	idempotencyport "github.com/leadline/lead-import-api/internal/ports/out/idempotency"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		leadRepo  leadrepoport.Repository
		idemStore idempotencyport.Store
		cleanup   func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		cleanup = pool.Close
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		leadRepo = pgleadrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		cleanup = func() { _ = db.Close() }
		leadRepo = sqliteleadrepo.NewRepo(db)
		idemStore = memidempotency.NewStore()
	default:
		leadRepo = memleadrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	clk := platformclock.NewSystemClock()

	importsSvc := imports.NewService(spreadsheet.NewDecoder(), leadRepo, clk, log.Named("imports"))
	importsSvc.MaxRows = cfg.ImportMaxRows

	api := httpapi.NewServer(importsSvc, idemStore, clk, log.Named("http"))
	api.IdempotencyTTL = cfg.IdempotencyTTL
	api.MaxUploadBytes = cfg.ImportMaxUploadBytes

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		SubjectMiddleware: httpapi.NewSubjectMiddleware(cfg.DevSubject),
		Logger:            log.Named("access"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
