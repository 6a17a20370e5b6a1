package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mediayaseer-arch/questpark-backend/api/routes"
	"github.com/mediayaseer-arch/questpark-backend/internal/botguard"
	"github.com/mediayaseer-arch/questpark-backend/internal/checkout"
	"github.com/mediayaseer-arch/questpark-backend/internal/checkout/flow"
	"github.com/mediayaseer-arch/questpark-backend/internal/newsletter"
	"github.com/mediayaseer-arch/questpark-backend/internal/operator"
	"github.com/mediayaseer-arch/questpark-backend/internal/presence"
	"github.com/mediayaseer-arch/questpark-backend/internal/realtime"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	"github.com/mediayaseer-arch/questpark-backend/pkg/db"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/metrics"
	"github.com/mediayaseer-arch/questpark-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.DB().AutoMigrate(&newsletter.Subscriber{}); err != nil {
			logg.Error(context.Background(), "failed to run migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)

	hub := realtime.NewHub(realtime.NewRedisBus(redisClient), cfg.Realtime.Channel, logg)
	if err := hub.Start(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to start event hub", err)
		os.Exit(1)
	}
	defer hub.Shutdown()

	checkoutRepo := checkout.NewRepository(redisClient, logg, cfg.Checkout.HistoryLimit)
	checkoutService := checkout.NewService(checkoutRepo, hub, cfg.Checkout, flow.NewScheduler(), logg)
	defer checkoutService.Flows().Shutdown()

	strict := cfg.Bot.StrictMode(cfg.App)
	verifier := botguard.NewTurnstileVerifier(cfg.Bot.TurnstileSecret, cfg.Bot.TurnstileVerifyURL, &http.Client{Timeout: cfg.Bot.VerifyTimeout})
	guard := botguard.NewGuard(cfg.Bot, strict, verifier, logg)

	operatorService := operator.NewService(cfg.Operator, logg)
	presenceService := presence.NewService(redisClient, cfg.Presence, logg)
	newsletterService := newsletter.NewService(newsletter.NewRepository(dbClient.DB()), logg)

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		DBPinger:    dbClient,
		RedisClient: redisClient,
		Metrics:     httpMetrics,
		Registry:    registry,

		BotGuard:          guard,
		CheckoutService:   checkoutService,
		EventSource:       hub,
		PresenceService:   presenceService,
		NewsletterService: newsletterService,
		OperatorService:   operatorService,
		TokenVerifier:     operatorService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"strict": strict,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
