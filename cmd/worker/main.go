package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/config"
	"github.com/imrishuroy/go-queue-orderflow/internal/logging"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

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
	logger := logging.Init("queue-worker", cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Error("failed to init aws clients", slog.Any("err", err))
		os.Exit(1)
	}

	engine := orders.NewEngine(orders.EngineConfig{
		Store:  orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		Logger: logger,
	})
	p := NewProcessor(engine, aws.NewMetricsReporter(clients.CloudWatch, cfg.MetricsNamespace), logger)

	// If RUN_LOCAL=true, we can optionally simulate a single SQS event for local testing.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"type":"order.status_changed","orderId":"local-order-1","status":"PREPARING"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Error("local handler error", slog.Any("err", err))
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}
