package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradejournal/internal/auth"
	"tradejournal/internal/config"
	"tradejournal/internal/db"
	"tradejournal/internal/exchange"
	"tradejournal/internal/health"
	"tradejournal/internal/httpserver"
	"tradejournal/internal/logger"
	"tradejournal/internal/positions"
	"tradejournal/internal/reconcile"
)

func main() {
	startedAt := time.Now().UTC()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	positionsSvc := positions.NewService(pool, positions.NewStore(), log)

	var feed exchange.Feed = exchange.NewDisabledFeed()
	if cfg.SyncEnabled {
		feed = exchange.NewClient(cfg.ExchangeFeedURL, cfg.ExchangeAPIKey, cfg.ExchangeAccountID)
	}
	engine := reconcile.NewEngine(feed, positionsSvc, cfg.ExchangeName, cfg.SyncUserID, log)

	var scheduler *reconcile.Scheduler
	if cfg.SyncEnabled {
		scheduler = reconcile.NewScheduler(engine, cfg.SyncInterval, log)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("start sync scheduler")
		}
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:      auth.NewHandler(authSvc),
		PositionsHandler: positions.NewHandler(positionsSvc),
		SyncHandler:      reconcile.NewHandler(engine, scheduler),
		HealthHandler:    health.NewHandler(pool, startedAt),
		AuthService:      authSvc,
		Log:              log,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Info().Str("addr", cfg.HTTPAddr).Bool("sync_enabled", cfg.SyncEnabled).Msg("server listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info().Msg("shutting down")
		if scheduler != nil {
			scheduler.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
