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

	"mypostelma/internal/config"
	"mypostelma/internal/infra"
	"mypostelma/internal/metrics"
	"mypostelma/internal/money"
	"mypostelma/internal/repository"
	"mypostelma/internal/router"
	"mypostelma/internal/service"
	"mypostelma/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser := infra.SetupLogger(cfg)
	defer logCloser.Close()

	metrics.Init()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ──────────────────────────────────────────────────────────────
	breaker := service.NewStorageBreaker(infra.CircuitBreakerConfig{
		FailureThreshold: cfg.StorageCBFailures,
		OpenTimeout:      time.Duration(cfg.StorageCBOpenSeconds) * time.Second,
		OnStateChange: func(from, to infra.CBState) {
			metrics.SetBreakerState(int(to))
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("storage circuit breaker transition")
		},
	})
	store := service.Store{
		Sessions:  repository.NewSessionRepository(db),
		Movements: repository.NewMovementRepository(db),
		Locations: repository.NewLocationRepository(db),
		Breaker:   breaker,
	}

	// ── Services ─────────────────────────────────────────────────────────────
	currency := cfg.Currency()
	dispatcher := worker.NewDispatcher(rdb)
	ledger := service.NewLedgerService(store, currency, time.Now)
	engine := service.NewReconciliationEngine(store, money.Amount(cfg.VarianceTolerance))
	sessions := service.NewSessionService(store, engine, ledger, currency, dispatcher, time.Now)
	locations := service.NewLocationService(store, time.Now)

	// ── Workers ──────────────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	emailTo := cfg.ReportEmailTo
	if !mailer.Enabled() {
		emailTo = ""
	}
	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobClosureReport: worker.NewReportWorker(sessions, dispatcher, cfg.ReportStoragePath, emailTo),
		worker.JobEmail:         worker.NewEmailWorker(mailer),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)
	worker.StartReportSweeper(ctx, worker.ReportSweeperConfig{
		Sessions:    sessions,
		Queue:       dispatcher,
		CB:          breaker,
		StoragePath: cfg.ReportStoragePath,
	})

	r := router.New(ctx, cfg, router.Deps{
		DB:        db,
		Redis:     rdb,
		Breaker:   breaker,
		Sessions:  sessions,
		Ledger:    ledger,
		Locations: locations,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().
			Str("currency", currency.Code).
			Int64("variance_tolerance", int64(engine.Tolerance())).
			Msgf("caisse service listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
