package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fosterlabs/blink-engine/shared/contracts"
	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/messaging"
	"github.com/fosterlabs/blink-engine/shared/metrics"
	"github.com/fosterlabs/blink-engine/shared/migration"
	"github.com/fosterlabs/blink-engine/shared/mongo"
	"github.com/fosterlabs/blink-engine/shared/monitoring"
	"github.com/fosterlabs/blink-engine/shared/postgres"
	"github.com/fosterlabs/blink-engine/shared/recovery"
	"github.com/fosterlabs/blink-engine/shared/redis"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/catalog"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/chain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/das"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/editions"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/events"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/fulfillment"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/rates"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/infrastructure/repository"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/payment"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/service"
	transporthttp "github.com/fosterlabs/blink-engine/services/blink-service/internal/transport/http"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/txbuilder"
	"github.com/fosterlabs/blink-engine/services/blink-service/migrations"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Default().Fatalf("invalid configuration: %v", err)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:       logging.LevelInfo,
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
		PrettyLog:   cfg.Environment == "development",
	})

	if err := monitoring.InitSentry(&monitoring.SentryConfig{
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		logger.WithError(err).Warn("sentry initialization failed")
	}
	defer monitoring.Flush(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgresClient, err := postgres.NewPostgres(cfg.Postgres)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer postgresClient.Close()
	if err := postgresClient.HealthCheck(ctx); err != nil {
		logger.Fatalf("failed to ping postgres: %v", err)
	}

	migrator, err := migration.NewMigrator(&migration.Config{
		DB:         postgresClient.GetClient(),
		Service:    cfg.ServiceName,
		Migrations: migrations.FS,
	})
	if err != nil {
		logger.Fatalf("failed to create migrator: %v", err)
	}
	if err := migrator.Migrate(); err != nil {
		logger.Fatalf("failed to run migrations: %v", err)
	}

	redisClient, err := redis.NewRedis(cfg.Redis)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	mongoClient, err := mongo.NewMongo(cfg.Mongo)
	if err != nil {
		logger.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Close(ctx)

	amqpClient, err := messaging.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		logger.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer amqpClient.Close()
	if err := amqpClient.SetupInfrastructure(
		[]messaging.ExchangeConfig{
			{Name: contracts.BlinksExchange, Type: "topic", Durable: true},
			{Name: contracts.EditionsExchange, Type: "topic", Durable: true},
		},
		[]messaging.QueueConfig{
			{Name: contracts.OrdersFulfilledQueue, Durable: true},
			{Name: contracts.PrintsMintedQueue, Durable: true},
		},
		[]messaging.BindingConfig{
			{QueueName: contracts.OrdersFulfilledQueue, ExchangeName: contracts.BlinksExchange, RoutingKey: contracts.OrderFulfilledKey},
			{QueueName: contracts.PrintsMintedQueue, ExchangeName: contracts.EditionsExchange, RoutingKey: contracts.PrintMintedKey},
		},
	); err != nil {
		logger.Fatalf("failed to declare messaging topology: %v", err)
	}

	m := metrics.NewMetrics("blink_engine", cfg.ServiceName)

	repo := repository.NewRepository(postgresClient)
	nftCatalog := catalog.NewCatalog(mongoClient, repo)
	chainClient := chain.NewClient(cfg.SolanaRPCURL, logger)
	assetIndex := das.NewIndex(cfg.DASURL)
	converter := payment.NewConverter(rates.NewCoinGecko(cfg.RateAPIURL), redisClient, logger, m)
	builder := txbuilder.NewBuilder(chainClient, logger, m)
	publisher := events.NewPublisher(amqpClient, logger)

	resolver := service.NewResolver(repo, repo, nftCatalog, assetIndex, converter, cfg, logger, m)
	svc := service.NewService(service.Deps{
		Products:    repo,
		Users:       repo,
		Orders:      repo,
		Catalog:     nftCatalog,
		Assets:      assetIndex,
		Converter:   converter,
		Builder:     builder,
		Balances:    chainClient,
		Verifier:    chainClient,
		Fulfillment: fulfillment.NewShipStation(cfg.ShipStation, cfg.Network),
		Editions:    editions.NewClient(cfg.Editions.BaseURL),
		Publisher:   publisher,
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
	})

	mux := http.NewServeMux()
	transporthttp.NewHandler(resolver, svc, cfg, logger, m).Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           recovery.NewPanicHandler(logger).Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("blink-service listening on :%s (%s)", cfg.HTTPPort, cfg.Network)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
