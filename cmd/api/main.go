package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/cache"
	"github.com/imrishuroy/go-queue-orderflow/internal/catalog"
	"github.com/imrishuroy/go-queue-orderflow/internal/config"
	"github.com/imrishuroy/go-queue-orderflow/internal/coupons"
	domainevents "github.com/imrishuroy/go-queue-orderflow/internal/events"
	"github.com/imrishuroy/go-queue-orderflow/internal/handlers"
	"github.com/imrishuroy/go-queue-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-queue-orderflow/internal/identity"
	"github.com/imrishuroy/go-queue-orderflow/internal/lock"
	"github.com/imrishuroy/go-queue-orderflow/internal/logging"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
	"github.com/imrishuroy/go-queue-orderflow/internal/payments"
)

const serviceName = "queue-api"

func setupRouter(cfg config.Config, clients *aws.AWSClients, sink domainevents.Sink, logger *slog.Logger) *gin.Engine {
	db := clients.DynamoDB
	emitter := domainevents.NewEmitter(sink, logger)
	// one lock table per process guards every per-order mutation
	locks := lock.NewKeyed()
	orderStore := orders.NewStore(db, cfg.OrdersTable)

	var couponCache cache.Cache
	if cfg.RedisAddr != "" {
		couponCache = cache.NewRedisCache(cfg.RedisAddr, serviceName)
	}

	engine := orders.NewEngine(orders.EngineConfig{
		Store:   orderStore,
		Catalog: catalog.NewDynamoCatalog(db, cfg.MenuTable),
		Users:   identity.NewDynamoDirectory(db, cfg.UsersTable),
		Locks:   locks,
		Events:  emitter,
		Logger:  logger,
	})
	issuer := coupons.NewIssuer(coupons.IssuerConfig{
		Client:  db,
		Coupons: coupons.NewStore(db, cfg.CouponsTable, couponCache, logger),
		Orders:  orderStore,
		Locks:   locks,
		Prefix:  cfg.CouponPrefix,
		Events:  emitter,
		Logger:  logger,
	})

	var gateway payments.Gateway
	if cfg.Gateway.KeySecret != "" {
		gateway = payments.NewStripeGateway(cfg.Gateway.KeySecret, cfg.Gateway.Timeout)
	}
	coordinator := payments.NewCoordinator(payments.Config{
		Client:   db,
		Payments: payments.NewStore(db, cfg.PaymentsTable),
		Orders:   orderStore,
		Coupons:  issuer,
		Locks:    locks,
		Gateway:  gateway,
		Settings: payments.GatewaySettings{
			KeyID:          cfg.Gateway.KeyID,
			WebhookSecret:  cfg.Gateway.WebhookSecret,
			EndpointSecret: cfg.Gateway.EndpointSecret,
			Currency:       cfg.Gateway.Currency,
			Timeout:        cfg.Gateway.Timeout,
		},
		Events: emitter,
		Logger: logger,
	})

	gin.SetMode(cfg.GinMode)
	return handlers.API(handlers.Config{
		Engine:      engine,
		Payments:    coordinator,
		Coupons:     issuer,
		Idempotency: idempotency.NewStore(db, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		JWTSecret:   cfg.JWTSecret,
		Metrics:     handlers.NewServerMetrics("queue_orderflow", "api", prometheus.DefaultRegisterer),
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      logger,
	})
}

// newSink picks where domain events go. The returned func releases it.
func newSink(cfg config.Config, clients *aws.AWSClients) (domainevents.Sink, func(), error) {
	switch cfg.EventsBackend {
	case "kafka":
		k, err := domainevents.NewKafkaSink(cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return nil, nil, err
		}
		return k, k.Close, nil
	case "sqs":
		if cfg.EventsQueueURL == "" {
			return nil, func() {}, nil
		}
		return domainevents.NewSQSSink(aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", slog.Any("err", err))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}
	logger := logging.Init(serviceName, cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Error("failed to init aws clients", slog.Any("err", err))
		os.Exit(1)
	}

	sink, closeSink, err := newSink(cfg, clients)
	if err != nil {
		logger.Error("failed to init event sink", slog.String("backend", cfg.EventsBackend), slog.Any("err", err))
		os.Exit(1)
	}
	defer closeSink()
	if sink == nil {
		logger.Warn("domain events disabled", slog.String("backend", cfg.EventsBackend))
	}

	r := setupRouter(cfg, clients, sink, logger)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", slog.String("addr", cfg.HTTPAddr))
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Error("failed to run local server", slog.Any("err", err))
			os.Exit(1)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
