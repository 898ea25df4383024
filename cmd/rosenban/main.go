package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/rosenban/rosenban/internal/channel"
	"github.com/rosenban/rosenban/internal/config"
	"github.com/rosenban/rosenban/internal/digest"
	"github.com/rosenban/rosenban/internal/dispatch"
	"github.com/rosenban/rosenban/internal/events"
	"github.com/rosenban/rosenban/internal/handler"
	"github.com/rosenban/rosenban/internal/logger"
	"github.com/rosenban/rosenban/internal/metrics"
	"github.com/rosenban/rosenban/internal/registry"
	"github.com/rosenban/rosenban/internal/router"
	"github.com/rosenban/rosenban/internal/service"
	"github.com/rosenban/rosenban/internal/storage"
	"github.com/rosenban/rosenban/pkg/observability"
)

const serviceName = "rosenban"

func main() {
	l := logger.NewLogger()
	slog.SetDefault(l)

	metrics.Init()

	if err := godotenv.Load(); err != nil {
		l.Info("no .env file loaded", "err", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		l.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.DB.URL == "" {
		l.Error("ROSENBAN_DB_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- OpenTelemetry Tracing Setup ----
	if cfg.Tracing.CollectorEndpoint != "" {
		_, tracerShutdown, err := observability.NewTracerProvider(
			ctx,
			serviceName,
			cfg.Tracing.CollectorEndpoint,
			l)
		if err != nil {
			l.Error("Failed to initialize OpenTelemetry TracerProvider", slog.Any("err", err))
			os.Exit(1)
		}
		defer tracerShutdown()
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.DB.URL)
	if err != nil {
		l.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbPool.Close()

	// Storage layer
	statusStore := storage.NewStatusStore(dbPool)
	subscriptionStore := storage.NewSubscriptionStore(dbPool)
	digestStore := storage.NewDigestStore(dbPool)
	pushStore := storage.NewPushStore(dbPool)
	historyStore := storage.NewHistoryStore(dbPool)

	reg := registry.New(subscriptionStore, pushStore, l)

	// Notification channels
	emailSender, err := channel.NewSMTPEmailSender(cfg.SMTP, historyStore, l)
	if err != nil {
		l.Error("Failed to build email channel", slog.Any("error", err))
		os.Exit(1)
	}
	pushSender := channel.NewWebPushSender(cfg.Push, l)

	dispatchRouter := dispatch.NewRouter(
		reg,
		digestStore,
		emailSender,
		pushSender,
		cfg.Dispatch.WorkerLimit,
		cfg.Dispatch.SendTimeout,
		l,
	)

	// Status-change event feed, disabled without brokers
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		saramaConfig := sarama.NewConfig()
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
		saramaConfig.Producer.Retry.Max = 5
		saramaConfig.Producer.Return.Successes = true
		saramaConfig.ClientID = serviceName + "-producer"

		asyncProducer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaConfig)
		if err != nil {
			l.Error("Failed to create sarama producer", slog.Any("error", err))
			os.Exit(1)
		}
		publisher = events.NewProducer(asyncProducer, cfg.Kafka.Topic, l)
	}
	publisher.Start(ctx)
	defer publisher.Close()

	statusSvc := service.NewStatusService(statusStore, dispatchRouter, publisher, l)
	healthSvc := service.NewHealthService(statusStore, l)

	aggregator := digest.NewAggregator(reg, digestStore, emailSender, cfg.Dispatch.SendTimeout, l)

	scheduler, err := digest.NewScheduler(aggregator, cfg.Digest, l)
	if err != nil {
		l.Error("Failed to build digest scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	// HTTP layer
	statusHandler := handler.NewStatusHandler(statusSvc, l)
	subscriptionHandler := handler.NewSubscriptionHandler(reg, l)
	pushHandler := handler.NewPushHandler(reg, l)
	digestHandler := handler.NewDigestHandler(aggregator, l)
	healthHandler := handler.NewHealthHandler(healthSvc, l)

	r := router.NewRouter(statusHandler, subscriptionHandler, pushHandler, digestHandler, healthHandler)

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	go func() {
		l.Info("Server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Failed to start server", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	l.Info("Shutting down server...")

	ctxTimeout, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxTimeout); err != nil {
		l.Error("Shutdown failed", slog.Any("error", err))
	} else {
		l.Info("Server exited cleanly")
	}
}
